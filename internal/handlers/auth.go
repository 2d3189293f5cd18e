package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/OsianJL/questions-app/internal/auth"
	"github.com/OsianJL/questions-app/internal/crypto"
	"github.com/OsianJL/questions-app/internal/metrics"
	"github.com/OsianJL/questions-app/internal/store"
)

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// ProtectedResponse is returned by the protected probe endpoint.
type ProtectedResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// ResetRequest asks for a password reset link.
type ResetRequest struct {
	Email string `json:"email"`
}

// NewPasswordRequest sets a new password with a reset token.
type NewPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unconfirmed account and returns its confirmation link.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	email := normalizeEmail(req.Email)
	if !isValidEmail(email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < minPasswordLength {
		h.Error(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.internalError(w, r, err, "failed to hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), email, hash)
	if errors.Is(err, store.ErrConflict) {
		h.Error(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to create user")
		return
	}

	token, err := h.tokens.Issue(user.ID, auth.PurposeConfirm)
	if err != nil {
		h.internalError(w, r, err, "failed to issue confirmation token")
		return
	}
	confirmURL := h.publicURL + "/confirm/" + token

	metrics.UsersRegistered.Inc()
	h.logger.Info().
		Int64("user_id", user.ID).
		Str("confirm_url", confirmURL).
		Msg("user registered")

	h.JSON(w, http.StatusCreated, MessageResponse{
		Message:    "user registered, check your email to confirm your account",
		ConfirmURL: confirmURL,
	})
}

// Login exchanges credentials for an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := normalizeEmail(req.Email)
	ctx := r.Context()

	if h.throttle != nil {
		allowed, err := h.throttle.LoginAllowed(ctx, email, maxLoginFailures)
		if err != nil {
			h.logger.Warn().Err(err).Msg("login throttle check failed")
		} else if !allowed {
			metrics.LoginAttempts.WithLabelValues("throttled").Inc()
			h.Error(w, http.StatusTooManyRequests, "too many failed login attempts, try again later")
			return
		}
	}

	user, err := h.store.GetUserByEmail(ctx, email)
	if err != nil {
		h.internalError(w, r, err, "failed to look up user")
		return
	}
	if user == nil || crypto.CheckPassword(user.PasswordHash, req.Password) != nil {
		metrics.LoginAttempts.WithLabelValues("bad_credentials").Inc()
		if h.throttle != nil {
			if err := h.throttle.RecordLoginFailure(ctx, email); err != nil {
				h.logger.Warn().Err(err).Msg("failed to record login failure")
			}
		}
		h.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if !user.Confirmed {
		metrics.LoginAttempts.WithLabelValues("unconfirmed").Inc()
		h.Error(w, http.StatusForbidden, "email not confirmed")
		return
	}

	token, err := h.tokens.Issue(user.ID, auth.PurposeAccess)
	if err != nil {
		h.internalError(w, r, err, "failed to issue access token")
		return
	}
	if h.throttle != nil {
		_ = h.throttle.ResetLoginFailures(ctx, email)
	}

	metrics.LoginAttempts.WithLabelValues("ok").Inc()
	h.JSON(w, http.StatusOK, LoginResponse{AccessToken: token})
}

// Protected echoes the authenticated user.
func (h *Handler) Protected(w http.ResponseWriter, r *http.Request) {
	id := callerID(r)
	h.JSON(w, http.StatusOK, ProtectedResponse{
		Message: fmt.Sprintf("hello, user %d", id),
		UserID:  id,
	})
}

// ConfirmEmail marks the account named by a confirmation token as confirmed.
func (h *Handler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(chi.URLParam(r, "token"), auth.PurposeConfirm)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid or expired confirmation link")
		return
	}

	err = h.store.ConfirmUser(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusBadRequest, "invalid or expired confirmation link")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to confirm user")
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "email confirmed, you can now log in"})
}

// RequestPasswordReset issues a reset link for a registered email.
func (h *Handler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), normalizeEmail(req.Email))
	if err != nil {
		h.internalError(w, r, err, "failed to look up user")
		return
	}
	if user == nil {
		h.Error(w, http.StatusNotFound, "email not found")
		return
	}

	token, err := h.tokens.Issue(user.ID, auth.PurposeReset)
	if err != nil {
		h.internalError(w, r, err, "failed to issue reset token")
		return
	}
	resetURL := h.publicURL + "/reset_password/confirm/" + token

	h.logger.Info().
		Int64("user_id", user.ID).
		Str("reset_url", resetURL).
		Msg("password reset requested")

	h.JSON(w, http.StatusOK, MessageResponse{
		Message:  "password reset link sent",
		ResetURL: resetURL,
	})
}

// ResetPassword sets a new password using a reset token.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Validate(chi.URLParam(r, "token"), auth.PurposeReset)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid or expired reset link")
		return
	}

	var req NewPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		h.Error(w, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
		return
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		h.internalError(w, r, err, "failed to hash password")
		return
	}

	err = h.store.UpdatePassword(r.Context(), claims.UserID, hash)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusBadRequest, "invalid or expired reset link")
		return
	}
	if err != nil {
		h.internalError(w, r, err, "failed to update password")
		return
	}

	h.JSON(w, http.StatusOK, MessageResponse{Message: "password updated"})
}
