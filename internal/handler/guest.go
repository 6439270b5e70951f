package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/DesmondD0ss/AccessManager-sub000/internal/errors"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/middleware"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/service"
)

// GuestHandler serves the guest-facing surface: code validation, session
// creation, and the lifecycle of the caller's own session.
type GuestHandler struct {
	codeService    *service.CodeService
	sessionService *service.SessionService
	redeemLimiter  func(http.Handler) http.Handler
}

func NewGuestHandler(
	codeService *service.CodeService,
	sessionService *service.SessionService,
	redeemLimiter func(http.Handler) http.Handler,
) *GuestHandler {
	return &GuestHandler{
		codeService:    codeService,
		sessionService: sessionService,
		redeemLimiter:  redeemLimiter,
	}
}

func (h *GuestHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.redeemLimiter)
		r.Post("/validate", h.ValidateCode)
		r.Post("/sessions", h.CreateSession)
	})

	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/consumption", h.UpdateConsumption)
	r.Delete("/sessions/{id}", h.TerminateSession)

	return r
}

// POST /api/guest/validate
func (h *GuestHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	valid, err := h.codeService.ValidateCode(r.Context(), req.Code, r.RemoteAddr, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// POST /api/guest/sessions
func (h *GuestHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, apperrors.MissingRequired("code"))
		return
	}

	result, err := h.sessionService.CreateSession(r.Context(), service.CreateSessionInput{
		Code:      req.Code,
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Location:  req.Location,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"session": model.NewSessionView(result.Session),
		"token":   result.Token,
	})
}

// GET /api/guest/sessions/{id}
func (h *GuestHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.authorize(r, sessionID); err != nil {
		writeError(w, err)
		return
	}

	view, err := h.sessionService.GetSessionInfo(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// POST /api/guest/sessions/{id}/consumption
func (h *GuestHandler) UpdateConsumption(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.authorize(r, sessionID); err != nil {
		writeError(w, err)
		return
	}

	var req struct {
		DataDeltaMB         *float64 `json:"dataDeltaMB"`
		TimeConsumedMinutes *int     `json:"timeConsumedMinutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	session, err := h.sessionService.UpdateConsumption(r.Context(), sessionID, req.DataDeltaMB, req.TimeConsumedMinutes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.NewSessionView(session))
}

// DELETE /api/guest/sessions/{id}
func (h *GuestHandler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.authorize(r, sessionID); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessionService.TerminateSession(r.Context(), sessionID, model.ReasonLogout)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       session.Status,
		"terminatedAt": formatTime(session.TerminatedAt),
	})
}

func (h *GuestHandler) authorize(r *http.Request, sessionID string) error {
	token := middleware.ExtractBearerToken(r)
	if token == "" {
		return apperrors.Unauthorized("Missing session token")
	}
	return h.sessionService.AuthorizeToken(r.Context(), sessionID, token)
}
