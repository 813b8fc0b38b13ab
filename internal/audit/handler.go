package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shifthub/shifthub/internal/auth"
	"github.com/shifthub/shifthub/internal/authz"
)

// Authorizer gates access to the decision trail.
type Authorizer interface {
	Authorize(p *authz.Principal, op authz.Operation, res *authz.Resource) authz.Decision
}

// TrailService reads recorded decisions.
type TrailService interface {
	RecentDecisions(ctx context.Context, limit int) ([]Decision, error)
}

// Handler serves the decision trail to administrators.
type Handler struct {
	logger  *slog.Logger
	service TrailService
	auth    Authorizer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service TrailService, auth Authorizer) *Handler {
	return &Handler{logger: logger, service: service, auth: auth}
}

// MountRoutes registers audit routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/decisions", h.handleList)
}

type decisionResponse struct {
	ID          int64     `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Operation   string    `json:"operation"`
	ResourceID  int64     `json:"resource_id,omitempty"`
	Granted     bool      `json:"granted"`
	DecidedAt   time.Time `json:"decided_at"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	// AssignStatus authority marks an administrator; the trail is not
	// visible to managers or regular users.
	if !h.auth.Authorize(principal, authz.OpAssignStatus, nil).Granted {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	decisions, err := h.service.RecentDecisions(r.Context(), limit)
	if err != nil {
		h.logger.Error("list decisions", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	items := make([]decisionResponse, 0, len(decisions))
	for _, d := range decisions {
		items = append(items, decisionResponse{
			ID:          d.ID,
			PrincipalID: d.PrincipalID,
			Operation:   d.Operation,
			ResourceID:  d.ResourceID,
			Granted:     d.Granted,
			DecidedAt:   d.DecidedAt,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"decisions": items})
}
