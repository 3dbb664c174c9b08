package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"stategraph/internal/core/branch"
	"stategraph/internal/core/timestamp"
	dErrors "stategraph/pkg/domain-errors"
)

// Handler delegates to the branch registry without embedding business
// logic, so transport concerns remain isolated.
type Handler struct {
	registry *branch.Registry
	ready    func(ctx context.Context) error
	logger   *slog.Logger
}

func NewHandler(registry *branch.Registry, ready func(ctx context.Context) error, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, ready: ready, logger: logger}
}

// Register mounts the branch administration endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/branches", h.handleListBranches)
	r.Get("/branches/{name}", h.handleGetBranch)
	r.Post("/branches", h.handleCreateBranch)
}

type branchResponse struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	HierarchyLevel int    `json:"hierarchy_level"`
	IsDefault      bool   `json:"is_default"`
	IsGlobal       bool   `json:"is_global"`
	OriginBranch   string `json:"origin_branch,omitempty"`
	BranchedFrom   string `json:"branched_from,omitempty"`
	Status         string `json:"status"`
	SchemaHash     string `json:"schema_hash,omitempty"`
}

func toBranchResponse(b branch.Branch) branchResponse {
	resp := branchResponse{
		Name:           b.Name,
		Description:    b.Description,
		HierarchyLevel: b.HierarchyLevel,
		IsDefault:      b.IsDefault,
		IsGlobal:       b.IsGlobal,
		OriginBranch:   b.OriginBranch,
		Status:         string(b.Status),
		SchemaHash:     b.SchemaHash,
	}
	if !b.BranchedFrom.IsZero() {
		resp.BranchedFrom = b.BranchedFrom.String()
	}
	return resp
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleListBranches(w http.ResponseWriter, _ *http.Request) {
	branches := h.registry.List()
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	resp := make([]branchResponse, len(branches))
	for i, b := range branches {
		resp[i] = toBranchResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	b, err := h.registry.Get(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchResponse(b))
}

type createBranchRequest struct {
	Name        string `json:"name"`
	Origin      string `json:"origin,omitempty"`
	Description string `json:"description,omitempty"`
	At          string `json:"at,omitempty"`
}

func (h *Handler) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	var at timestamp.Timestamp
	if req.At != "" {
		parsed, err := timestamp.Parse(req.At)
		if err != nil {
			h.writeError(w, err)
			return
		}
		at = parsed
	}

	b, err := h.registry.Create(r.Context(), req.Name, req.Origin, at, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBranchResponse(b))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := dErrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
