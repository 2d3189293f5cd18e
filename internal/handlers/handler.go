package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/OsianJL/questions-app/clients/go/questions"
	"github.com/OsianJL/questions-app/internal/auth"
	apimw "github.com/OsianJL/questions-app/internal/api/middleware"
	"github.com/OsianJL/questions-app/internal/store"
)

// Sign-up rules are shared with the client forms.
const (
	minPasswordLength = questions.MinPasswordLength
	maxContentLength  = 4000
	maxLoginFailures  = 5
)

// LoginThrottle counts failed logins per email. *store.RedisStore implements it.
type LoginThrottle interface {
	LoginAllowed(ctx context.Context, email string, limit int) (bool, error)
	RecordLoginFailure(ctx context.Context, email string) error
	ResetLoginFailures(ctx context.Context, email string) error
	Ping(ctx context.Context) error
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store     store.DataStore
	throttle  LoginThrottle // nil disables login throttling
	tokens    *auth.TokenService
	logger    zerolog.Logger
	publicURL string
}

// NewHandler creates a new Handler. throttle may be nil.
func NewHandler(ds store.DataStore, throttle LoginThrottle, tokens *auth.TokenService, logger zerolog.Logger, publicURL string) *Handler {
	return &Handler{
		store:     ds,
		throttle:  throttle,
		tokens:    tokens,
		logger:    logger,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// MessageResponse is the body of responses that only carry a message.
type MessageResponse struct {
	Message    string `json:"message"`
	ConfirmURL string `json:"confirm_url,omitempty"`
	ResetURL   string `json:"reset_url,omitempty"`
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, MessageResponse{Message: message})
}

// internalError logs err with the request id and replies 500.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg(message)
	h.Error(w, http.StatusInternalServerError, message)
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// callerID returns the authenticated user. Only valid behind RequireAuth.
func callerID(r *http.Request) int64 {
	id, _ := apimw.GetUserIDFromContext(r.Context())
	return id
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// sanitizeText trims text and removes control characters other than newlines.
func sanitizeText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}
	return name
}

func isValidEmail(email string) bool {
	return questions.ValidEmail(email)
}

func tooLong(s string) bool {
	return len([]rune(s)) > maxContentLength
}
