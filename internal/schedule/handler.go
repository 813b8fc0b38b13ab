package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/shifthub/shifthub/internal/auth"
	"github.com/shifthub/shifthub/internal/authz"
	"github.com/shifthub/shifthub/internal/shared"
)

// ScheduleService defines the workflow contract used by the handler.
type ScheduleService interface {
	Create(ctx context.Context, p *authz.Principal, input CreateScheduleInput) (Schedule, error)
	Get(ctx context.Context, p *authz.Principal, id int64) (Schedule, error)
	Update(ctx context.Context, p *authz.Principal, id int64, input UpdateScheduleInput) (Schedule, error)
	Approve(ctx context.Context, p *authz.Principal, id int64) (Schedule, error)
	Reject(ctx context.Context, p *authz.Principal, id int64) (Schedule, error)
	Delete(ctx context.Context, p *authz.Principal, id int64) error
	List(ctx context.Context, p *authz.Principal, sort ListSort) ([]Schedule, error)
	Calendar(ctx context.Context, p *authz.Principal, weekStart time.Time, nav string) (WeekData, error)
}

// Handler wires HTTP endpoints for the schedule workflow.
type Handler struct {
	logger    *slog.Logger
	service   ScheduleService
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service ScheduleService) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers schedule routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/calendar", h.handleCalendar)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/approve", h.handleApprove)
	r.Post("/{id}/reject", h.handleReject)
	r.Delete("/{id}", h.handleDelete)
}

type schedulePayload struct {
	OwnerID   string `json:"owner_id" validate:"omitempty,max=64"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Status    string `json:"status" validate:"omitempty,oneof=Submitted Approved Rejected"`
}

type scheduleResponse struct {
	ID        int64  `json:"id"`
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name,omitempty"`
	Date      string `json:"date"`
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type weekResponse struct {
	WeekStart string                        `json:"week_start"`
	WeekEnd   string                        `json:"week_end"`
	Days      map[string][]scheduleResponse `json:"days"`
}

func toResponse(s Schedule) scheduleResponse {
	return scheduleResponse{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		OwnerName: s.OwnerName,
		Date:      s.Date.Format("2006-01-02"),
		Day:       s.Day,
		StartTime: s.StartTime.String(),
		EndTime:   s.EndTime.String(),
		Status:    string(s.Status),
	}
}

func (h *Handler) decodePayload(w http.ResponseWriter, r *http.Request) (schedulePayload, bool) {
	var payload schedulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return payload, false
	}
	if err := h.validator.Struct(payload); err != nil {
		fieldErrors := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fieldErrors[fieldErr.Field()] = fieldErr.Error()
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fieldErrors})
		return payload, false
	}
	return payload, true
}

func (h *Handler) parsePayload(w http.ResponseWriter, payload schedulePayload) (time.Time, TimeOfDay, TimeOfDay, bool) {
	date, err := time.Parse("2006-01-02", payload.Date)
	if err != nil {
		writeFieldError(w, "date", "Invalid date.")
		return time.Time{}, 0, 0, false
	}
	start, err := ParseTimeOfDay(payload.StartTime)
	if err != nil {
		writeFieldError(w, "start_time", "Invalid time of day.")
		return time.Time{}, 0, 0, false
	}
	end, err := ParseTimeOfDay(payload.EndTime)
	if err != nil {
		writeFieldError(w, "end_time", "Invalid time of day.")
		return time.Time{}, 0, 0, false
	}
	return date, start, end, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	date, start, end, ok := h.parsePayload(w, payload)
	if !ok {
		return
	}
	input := CreateScheduleInput{
		OwnerID:   payload.OwnerID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    Status(payload.Status),
	}
	created, err := h.service.Create(r.Context(), principal, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	sched, err := h.service.Get(r.Context(), principal, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sched))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	date, start, end, ok := h.parsePayload(w, payload)
	if !ok {
		return
	}
	if payload.Status == "" {
		payload.Status = string(StatusSubmitted)
	}
	input := UpdateScheduleInput{
		OwnerID:   payload.OwnerID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Status:    Status(payload.Status),
	}
	updated, err := h.service.Update(r.Context(), principal, id, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.service.Reject)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, p *authz.Principal, id int64) (Schedule, error)) {
	principal := auth.PrincipalFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	sched, err := fn(r.Context(), principal, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(sched))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), principal, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	sort := ListSort(r.URL.Query().Get("sort"))
	switch sort {
	case SortDateAsc, SortDateDesc, SortOwnerAsc, SortOwnerDesc:
	case "":
		sort = SortDateAsc
	default:
		writeFieldError(w, "sort", "Unknown sort order.")
		return
	}
	schedules, err := h.service.List(r.Context(), principal, sort)
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, toResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": items})
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	weekStart := time.Now()
	if raw := r.URL.Query().Get("week_start"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeFieldError(w, "week_start", "Invalid date.")
			return
		}
		weekStart = parsed
	}
	nav := r.URL.Query().Get("nav")

	week, err := h.service.Calendar(r.Context(), principal, weekStart, nav)
	if err != nil {
		h.writeError(w, err)
		return
	}
	days := map[string][]scheduleResponse{
		"Monday":    responses(week.Monday),
		"Tuesday":   responses(week.Tuesday),
		"Wednesday": responses(week.Wednesday),
		"Thursday":  responses(week.Thursday),
		"Friday":    responses(week.Friday),
		"Saturday":  responses(week.Saturday),
		"Sunday":    responses(week.Sunday),
	}
	writeJSON(w, http.StatusOK, weekResponse{
		WeekStart: week.StartOfWeek.Format("2006-01-02"),
		WeekEnd:   week.EndOfWeek.Format("2006-01-02"),
		Days:      days,
	})
}

func responses(schedules []Schedule) []scheduleResponse {
	items := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, toResponse(s))
	}
	return items
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		writeFieldError(w, validation.Field, validation.Message)
	case errors.Is(err, ErrUnknownOwner):
		writeFieldError(w, "owner_id", "Owner does not exist.")
	case errors.Is(err, ErrFinalStatus):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "schedule already finalized"})
	case errors.Is(err, shared.ErrNotFound):
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.Is(err, shared.ErrForbidden):
		// The denial reason stays in the logs; it is not disclosed here.
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	default:
		h.logger.Error("schedule request failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func writeFieldError(w http.ResponseWriter, field, message string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": map[string]string{field: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
