package timestamp

import (
	"sync"
	"time"

	dErrors "stategraph/pkg/domain-errors"
)

// Layout is fixed-width RFC3339 with nanosecond precision in UTC, so the
// string form sorts lexicographically in chronological order. Every edge
// stores its `from` instant in this form.
const Layout = "2006-01-02T15:04:05.000000000Z"

// Timestamp is an immutable instant. The zero value is "no timestamp".
type Timestamp struct {
	t time.Time
}

var (
	nowMu   sync.Mutex
	lastNow time.Time
)

// Now returns the current instant. Successive calls within one process are
// strictly increasing even if the wall clock stalls or steps backwards.
func Now() Timestamp {
	nowMu.Lock()
	defer nowMu.Unlock()
	now := time.Now().UTC()
	if !now.After(lastNow) {
		now = lastNow.Add(time.Nanosecond)
	}
	lastNow = now
	return Timestamp{t: now}
}

// FromTime converts a time.Time, normalizing to UTC.
func FromTime(t time.Time) Timestamp {
	return Timestamp{t: t.UTC()}
}

// Parse reads the fixed-width layout, falling back to plain RFC3339 for
// values written by external tooling.
func Parse(value string) (Timestamp, error) {
	if value == "" {
		return Timestamp{}, dErrors.New(dErrors.CodeValidation, "timestamp must not be empty")
	}
	t, err := time.Parse(Layout, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return Timestamp{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid timestamp")
		}
	}
	return Timestamp{t: t.UTC()}, nil
}

func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

func (ts Timestamp) Time() time.Time { return ts.t }

func (ts Timestamp) String() string { return ts.t.Format(Layout) }

func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// Compare returns -1, 0 or +1 ordering ts against other.
func (ts Timestamp) Compare(other Timestamp) int {
	return ts.t.Compare(other.t)
}

// Add returns a timestamp offset by d. Used by tests to build histories.
func (ts Timestamp) Add(d time.Duration) Timestamp {
	return Timestamp{t: ts.t.Add(d)}
}
