// Package api provides HTTP handlers for the learning assistant API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/upbeat-labs/learning-assistant/internal/domain"
	"github.com/upbeat-labs/learning-assistant/internal/identity"
	"github.com/upbeat-labs/learning-assistant/internal/planparse"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20

// Bundles is the read-only set of generated plan bundles. store.Registry
// implements it.
type Bundles interface {
	Get(studentID string) (*domain.PlanBundle, error)
	IDs() []string
}

// StateStore persists milestone progress. store.FileStateStore implements it.
type StateStore interface {
	LoadLearningState(studentID string, milestones []string) (domain.LearningState, error)
	UpdateMilestoneStates(studentID string, milestones []string, states []bool) (domain.LearningState, error)
}

// Handler serves the plan, progress and login endpoints.
type Handler struct {
	bundles  Bundles
	states   StateStore
	schedule domain.Schedule
	now      func() time.Time
	logger   *slog.Logger
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(bundles Bundles, states StateStore, schedule domain.Schedule, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		bundles:  bundles,
		states:   states,
		schedule: schedule,
		now:      time.Now,
		logger:   logger,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RegisterRoutes registers the plan and progress routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Route("/api", func(r chi.Router) {
		r.Get("/users", h.Users)
		r.Get("/user/{id}", h.User)
		r.Get("/phase", h.Phase)
		r.Get("/learning-plan/{id}/{phase}/structured", h.StructuredPlan)
		r.Post("/update-milestones", h.UpdateMilestones)
		r.Get("/download-pdf/{id}/{phase}", h.DownloadPDF)
		r.Post("/login", h.Login)
		r.Get("/debug-user", h.DebugUser)
	})
}

// CurrentPhase returns the phase in effect now.
func (h *Handler) CurrentPhase() domain.Phase {
	return h.schedule.Current(h.now())
}

// Root handles GET /.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"message":       "UPBEAT Learning Assistant API",
		"users":         len(h.bundles.IDs()),
		"current_phase": h.CurrentPhase(),
	})
}

// Users handles GET /api/users.
func (h *Handler) Users(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"users": h.bundles.IDs()})
}

// Phase handles GET /api/phase.
func (h *Handler) Phase(w http.ResponseWriter, _ *http.Request) {
	now := h.now()
	JSON(w, http.StatusOK, map[string]any{
		"phase":   h.schedule.Current(now),
		"message": h.schedule.Message(now),
	})
}

// User handles GET /api/user/{id}.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	bundle, err := h.bundles.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	state, err := h.states.LoadLearningState(id, bundle.Milestones)
	if err != nil {
		h.logger.Error("failed to load learning state", "user_id", id, "error", err)
		h.writeError(w, err)
		return
	}
	if !slices.Equal(state.Labels, bundle.Milestones) {
		h.logger.Warn("learning state labels differ from bundle milestones",
			"user_id", id,
			"labels", len(state.Labels),
			"milestones", len(bundle.Milestones),
		)
	}

	JSON(w, http.StatusOK, map[string]any{
		"username":          id,
		"smart_plan_phase1": bundle.Phase1Plan,
		"smart_plan_phase2": bundle.Phase2Plan,
		"milestones":        bundle.Milestones,
		"learning_state":    state,
		"data":              bundle.Survey,
	})
}

// StructuredPlan handles GET /api/learning-plan/{id}/{phase}/structured.
// A plan that cannot be parsed is reported in the body with status 200.
func (h *Handler) StructuredPlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	phase, err := domain.ParsePlanPhase(chi.URLParam(r, "phase"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	bundle, err := h.bundles.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	plan, err := bundle.Plan(phase)
	if err != nil {
		h.writeError(w, err)
		return
	}

	doc, err := planparse.Parse(plan)
	if err != nil {
		h.logger.Warn("structured plan parse failed", "user_id", id, "phase", int(phase), "error", err)
		Error(w, http.StatusOK, "Couldn't parse the learning plan format")
		return
	}
	JSON(w, http.StatusOK, doc)
}

// UpdateMilestonesRequest replaces a student's milestone completion flags.
type UpdateMilestonesRequest struct {
	UserID     string `json:"user_id"`
	Milestones []bool `json:"milestones"`
}

// UpdateMilestones handles POST /api/update-milestones. Persistence
// failures are reported as {"success": false}.
func (h *Handler) UpdateMilestones(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)

	var req UpdateMilestonesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bundle, err := h.bundles.Get(req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	_, err = h.states.UpdateMilestoneStates(req.UserID, bundle.Milestones, req.Milestones)
	switch {
	case err == nil:
		h.logger.Info("milestones updated", "user_id", req.UserID, "count", len(req.Milestones))
		JSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, domain.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("failed to update milestones", "user_id", req.UserID, "error", err)
		JSON(w, http.StatusOK, map[string]bool{"success": false})
	}
}

// DownloadPDF handles GET /api/download-pdf/{id}/{phase}.
func (h *Handler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	phase, err := domain.ParsePlanPhase(chi.URLParam(r, "phase"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	bundle, err := h.bundles.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	data, name, err := bundle.PDF(phase)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(data) == 0 {
		Error(w, http.StatusNotFound, "plan document not available")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write pdf", "user_id", id, "error", err)
	}
}

// LoginRequest carries the credentials handed out with a plan bundle.
type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, defaultMaxRequestBodySize)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := identity.StudentIDFromEmail(req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Unknown ids and wrong passwords are indistinguishable to the caller.
	ok := false
	if bundle, err := h.bundles.Get(id); err == nil {
		ok = identity.CheckPassword(bundle.Password, req.Password)
	}
	if !ok {
		h.logger.Info("login rejected", "user_id", id)
		JSON(w, http.StatusUnauthorized, map[string]any{"success": false})
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "user_id": id})
}

// DebugUser handles GET /api/debug-user. In debug mode it names the demo
// student the UI logs in automatically.
func (h *Handler) DebugUser(w http.ResponseWriter, _ *http.Request) {
	if !h.schedule.Debug {
		Error(w, http.StatusNotFound, "debug mode is off")
		return
	}
	ids := h.bundles.IDs()
	if len(ids) == 0 {
		Error(w, http.StatusNotFound, "no users")
		return
	}
	demo := ids[0]
	if len(ids) > 1 {
		demo = ids[1]
	}
	JSON(w, http.StatusOK, map[string]string{"user_id": demo})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(w, http.StatusNotFound, "user not found")
	case errors.Is(err, domain.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
