// internal/transport/http/handler/preferences.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	apierrors "journal-notifier/internal/common/errors"
	"journal-notifier/internal/models"
	"journal-notifier/internal/pkg/validate"
	"journal-notifier/internal/transport/http/middleware"

	"github.com/go-chi/chi/v5"
)

// PreferenceService is the preference and follow surface behind the settings
// endpoints.
type PreferenceService interface {
	GetPreferences(ctx context.Context, userID string) (*models.NotificationPreferences, error)
	UpdatePreferences(ctx context.Context, p *models.NotificationPreferences) (*models.NotificationPreferences, error)
	ListFollows(ctx context.Context, userID string) ([]models.Follow, error)
	AddFollow(ctx context.Context, f models.Follow) error
	RemoveFollow(ctx context.Context, f models.Follow) error
}

// PreferenceHandler handles preference and follow endpoints.
type PreferenceHandler struct {
	svc PreferenceService
}

func NewPreferenceHandler(svc PreferenceService) *PreferenceHandler {
	return &PreferenceHandler{svc: svc}
}

func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}
	prefs, err := h.svc.GetPreferences(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

type updatePreferencesRequest struct {
	Enabled         bool     `json:"enabled"`
	NotifyOnNew     bool     `json:"notify_on_new"`
	NotifyOnUpdates bool     `json:"notify_on_updates"`
	Mode            string   `json:"mode" validate:"required,oneof=ALL SELECTED"`
	Categories      []string `json:"categories"`
	Tags            []string `json:"tags"`
	Symbols         []string `json:"symbols"`
	MatchPolicy     string   `json:"match_policy" validate:"required,oneof=CATEGORY_ONLY CATEGORY_OR_TAGS_OR_SYMBOLS"`
}

func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}

	var req updatePreferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}

	prefs, err := h.svc.UpdatePreferences(r.Context(), &models.NotificationPreferences{
		UserID:          claims.UserID,
		Enabled:         req.Enabled,
		NotifyOnNew:     req.NotifyOnNew,
		NotifyOnUpdates: req.NotifyOnUpdates,
		Mode:            models.PreferenceMode(req.Mode),
		Categories:      req.Categories,
		Tags:            req.Tags,
		Symbols:         req.Symbols,
		MatchPolicy:     models.MatchPolicy(req.MatchPolicy),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *PreferenceHandler) ListFollows(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}
	follows, err := h.svc.ListFollows(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, follows)
}

type addFollowRequest struct {
	Type  string `json:"type" validate:"required,oneof=TAG SYMBOL STRATEGY"`
	Value string `json:"value" validate:"required"`
}

func (h *PreferenceHandler) AddFollow(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}

	var req addFollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}

	err := h.svc.AddFollow(r.Context(), models.Follow{
		UserID: claims.UserID,
		Type:   models.FollowType(req.Type),
		Value:  req.Value,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, MessageEnvelope{Message: "follow added"})
}

func (h *PreferenceHandler) RemoveFollow(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		httpError(w, apierrors.NewUnauthorizedError())
		return
	}

	err := h.svc.RemoveFollow(r.Context(), models.Follow{
		UserID: claims.UserID,
		Type:   models.FollowType(chi.URLParam(r, "type")),
		Value:  chi.URLParam(r, "value"),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "follow removed"})
}
