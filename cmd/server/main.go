package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"stategraph/internal/core/bootstrap"
	"stategraph/internal/core/branch"
	"stategraph/internal/core/graph"
	"stategraph/internal/core/schema"
	"stategraph/internal/events"
	"stategraph/internal/platform/config"
	"stategraph/internal/platform/httpserver"
	"stategraph/internal/platform/kafka"
	"stategraph/internal/platform/lock"
	"stategraph/internal/platform/logger"
	platformredis "stategraph/internal/platform/redis"
	httpapi "stategraph/internal/transport/http"
)

// main wires storage, locking, events and the ops HTTP surface. Business
// logic lives in the internal/core packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		graphStore  graph.Store
		branchStore branch.Store
		db          *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			fatal(log, "open postgres", err)
		}
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		defer db.Close()

		gs := graph.NewPostgresStore(db)
		if err := gs.EnsureSchema(ctx); err != nil {
			fatal(log, "ensure graph schema", err)
		}
		bs := branch.NewPostgresStore(db)
		if err := bs.EnsureSchema(ctx); err != nil {
			fatal(log, "ensure branch schema", err)
		}
		graphStore, branchStore = gs, bs
		log.Info("using postgres storage")
	} else {
		graphStore, branchStore = graph.NewMemoryStore(), branch.NewMemoryStore()
		log.Warn("no postgres DSN configured, using in-memory storage")
	}

	var locker lock.Locker = lock.NewMemoryLocker()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		fatal(log, "connect redis", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient.Client)
		log.Info("using redis advisory locks")
	}

	schemas := schema.NewStaticProvider()

	var notifier branch.Notifier
	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			fatal(log, "connect kafka", err)
		}
		defer producer.Close()
		notifier = events.NewPublisher(producer, log)
		log.Info("branch change events enabled", "brokers", cfg.Kafka.Brokers)
	}

	registry, err := bootstrap.Initialize(ctx, bootstrap.Deps{
		Graph:    graphStore,
		Branches: branchStore,
		Schemas:  schemas,
		Locks:    locker,
		Notifier: notifier,
		Logger:   log,
	})
	if err != nil {
		fatal(log, "initialize store", err)
	}

	if producer != nil {
		worker := events.NewWorker(registry, log)
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup,
			[]string{events.Topic}, worker, log)
		if err != nil {
			fatal(log, "create kafka consumer", err)
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("consumer stopped", "error", err)
			}
		}()
	}

	ready := func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			return redisClient.Health(ctx)
		}
		return nil
	}

	handler := httpapi.NewHandler(registry, ready, log)
	srv := httpserver.New(cfg.Addr, httpapi.NewRouter(handler))

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "server error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
