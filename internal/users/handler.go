package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shifthub/shifthub/internal/auth"
	"github.com/shifthub/shifthub/internal/authz"
)

// Authorizer gates access to the user directory.
type Authorizer interface {
	Authorize(p *authz.Principal, op authz.Operation, res *authz.Resource) authz.Decision
}

// DirectoryService lists directory users.
type DirectoryService interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Handler serves the user directory for owner reassignment.
type Handler struct {
	logger  *slog.Logger
	service DirectoryService
	auth    Authorizer
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service DirectoryService, auth Authorizer) *Handler {
	return &Handler{logger: logger, service: service, auth: auth}
}

// MountRoutes registers user routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// handleList is reachable only by principals holding AssignOwner authority:
// the directory exists to pick a schedule owner other than oneself.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if !h.auth.Authorize(principal, authz.OpAssignOwner, nil).Granted {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, userResponse{ID: u.ID, Email: u.Email, Name: u.Name})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"users": items})
}
