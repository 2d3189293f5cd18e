package handlers

import (
	"errors"
	"net/http"

	"github.com/OsianJL/questions-app/internal/models"
	"github.com/OsianJL/questions-app/internal/store"
)

// CreateProfileRequest is the body of POST /profile.
type CreateProfileRequest struct {
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
	Moto     string `json:"moto"`
}

// CreateProfile creates the caller's profile.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p := &models.Profile{
		UserID:   callerID(r),
		Username: sanitizeName(req.Username),
		ImageURL: sanitizeText(req.ImageURL),
		Moto:     sanitizeText(req.Moto),
	}
	if p.Username == "" {
		h.Error(w, http.StatusBadRequest, "username is required")
		return
	}
	if tooLong(p.ImageURL) || tooLong(p.Moto) {
		h.Error(w, http.StatusBadRequest, "field too long")
		return
	}

	created, err := h.store.CreateProfile(r.Context(), p)
	if errors.Is(err, store.ErrConflict) {
		h.Error(w, http.StatusConflict, "profile already exists")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to create profile")
		return
	}

	h.JSON(w, http.StatusCreated, created)
}

// ownProfileID parses {user_id} and checks it names the caller.
func (h *Handler) ownProfileID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(r, "user_id")
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	if id != callerID(r) {
		h.Error(w, http.StatusForbidden, "not your profile")
		return 0, false
	}
	return id, true
}

// GetProfile returns the caller's profile.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownProfileID(w, r)
	if !ok {
		return
	}

	p, err := h.store.GetProfile(r.Context(), id)
	if err != nil {
		h.internalError(w, r, err, "failed to get profile")
		return
	}
	if p == nil {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}

	h.JSON(w, http.StatusOK, p)
}

// UpdateProfile applies a partial update to the caller's profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownProfileID(w, r)
	if !ok {
		return
	}

	var patch models.ProfilePatch
	if err := decodeJSON(r, &patch); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if patch.Username != nil {
		name := sanitizeName(*patch.Username)
		if name == "" {
			h.Error(w, http.StatusBadRequest, "username cannot be empty")
			return
		}
		patch.Username = &name
	}
	for _, field := range []*string{patch.ImageURL, patch.Moto} {
		if field == nil {
			continue
		}
		*field = sanitizeText(*field)
		if tooLong(*field) {
			h.Error(w, http.StatusBadRequest, "field too long")
			return
		}
	}

	p, err := h.store.UpdateProfile(r.Context(), id, patch)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to update profile")
		return
	}

	h.JSON(w, http.StatusOK, p)
}

// DeleteProfile removes the caller's profile.
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownProfileID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteProfile(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to delete profile")
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "profile deleted"})
}
