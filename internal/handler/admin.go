package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/DesmondD0ss/AccessManager-sub000/internal/errors"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/service"
)

// AdminHandler serves the operator surface: issuing and retiring access
// codes and forcibly ending guest sessions.
type AdminHandler struct {
	codeService    *service.CodeService
	sessionService *service.SessionService
	authMiddleware func(http.Handler) http.Handler
}

func NewAdminHandler(
	codeService *service.CodeService,
	sessionService *service.SessionService,
	authMiddleware func(http.Handler) http.Handler,
) *AdminHandler {
	return &AdminHandler{
		codeService:    codeService,
		sessionService: sessionService,
		authMiddleware: authMiddleware,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.authMiddleware)

	r.Post("/codes", h.CreateCode)
	r.Get("/codes", h.ListCodes)
	r.Post("/codes/{id}/deactivate", h.DeactivateCode)
	r.Delete("/codes/{id}", h.DeleteCode)

	r.Get("/sessions/{id}", h.GetSession)
	r.Post("/sessions/{id}/terminate", h.TerminateSession)

	return r
}

type createCodeRequest struct {
	Level        string           `json:"level"`
	Description  string           `json:"description"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	MaxUses      int              `json:"maxUses"`
	CustomQuotas *model.QuotaSpec `json:"customQuotas"`
	CreatedBy    string           `json:"createdBy"`
}

// POST /api/admin/codes
func (h *AdminHandler) CreateCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	code, err := h.codeService.CreateCode(r.Context(), service.CreateCodeInput{
		Level:        model.QuotaLevel(req.Level),
		Description:  req.Description,
		ExpiresAt:    req.ExpiresAt,
		MaxUses:      req.MaxUses,
		CustomQuotas: req.CustomQuotas,
		CreatedBy:    req.CreatedBy,
		IPAddress:    r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, code)
}

// GET /api/admin/codes
func (h *AdminHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	codes, err := h.codeService.ListCodes(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": codes,
		"total": len(codes),
	})
}

// POST /api/admin/codes/{id}/deactivate
func (h *AdminHandler) DeactivateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.codeService.DeactivateCode(r.Context(), chi.URLParam(r, "id"), "admin", r.RemoteAddr, r.UserAgent())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, code)
}

// DELETE /api/admin/codes/{id}
func (h *AdminHandler) DeleteCode(w http.ResponseWriter, r *http.Request) {
	if err := h.codeService.DeleteCode(r.Context(), chi.URLParam(r, "id"), "admin", r.RemoteAddr, r.UserAgent()); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/sessions/{id}
func (h *AdminHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.sessionService.GetSessionInfo(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// POST /api/admin/sessions/{id}/terminate
func (h *AdminHandler) TerminateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.TerminateSession(r.Context(), chi.URLParam(r, "id"), model.ReasonAdminTerminated)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       session.Status,
		"terminatedAt": formatTime(session.TerminatedAt),
	})
}
