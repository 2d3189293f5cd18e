// Package questions provides a client for the questions-app REST API.
package questions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the address of a locally running API server.
const DefaultBaseURL = "http://127.0.0.1:5000"

// RequestIDHeader carries a per-request ULID so server logs can be correlated.
const RequestIDHeader = "X-Request-Id"

// Client is a questions-app API client.
//
// Each method issues exactly one HTTP request. The client never retries,
// caches or deduplicates; cancellation and deadlines come from ctx.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithLogger sets the logger used for per-request debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.Logger = logger
	}
}

// NewClient creates a new client for baseURL, or DefaultBaseURL when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
		Logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// doRequest performs an HTTP request and returns the raw response body.
// A non-nil auth is sent as a bearer credential.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, auth *string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != nil {
		req.Header.Set("Authorization", "Bearer "+*auth)
	}
	requestID := ulid.Make().String()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug().
			Err(err).
			Str("method", method).
			Str("path", path).
			Str("request_id", requestID).
			Msg("request failed")
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.Logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Str("request_id", requestID).
		Msg("request completed")

	if resp.StatusCode >= 400 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// callPublic performs an unauthenticated request and decodes the JSON
// response into out.
func (c *Client) callPublic(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	return c.call(ctx, method, path, query, body, nil, out)
}

// callAuth is callPublic with an Authorization header. The header is sent
// even when token is empty so the server decides.
func (c *Client) callAuth(ctx context.Context, method, path string, query url.Values, body interface{}, token string, out interface{}) error {
	return c.call(ctx, method, path, query, body, &token, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body interface{}, auth *string, out interface{}) error {
	respBody, err := c.doRequest(ctx, method, path, query, body, auth)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// MessageResponse is the acknowledgement returned by most mutating endpoints.
type MessageResponse struct {
	Message    string `json:"message"`
	ConfirmURL string `json:"confirm_url,omitempty"`
	ResetURL   string `json:"reset_url,omitempty"`
}

// Credentials is the request body for registration and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response from a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// ProtectedResponse is the payload of the protected test resource.
type ProtectedResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// RegisterUser creates an account. The response carries the email confirmation link.
func (c *Client) RegisterUser(ctx context.Context, email, password string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.callPublic(ctx, http.MethodPost, "/register", nil, Credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginUser exchanges credentials for an access token.
func (c *Client) LoginUser(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.callPublic(ctx, http.MethodPost, "/login", nil, Credentials{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProtectedResource fetches a resource that requires a valid access token.
func (c *Client) GetProtectedResource(ctx context.Context, token string) (*ProtectedResponse, error) {
	var resp ProtectedResponse
	if err := c.callAuth(ctx, http.MethodGet, "/protected", nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmEmail redeems an email confirmation token.
func (c *Client) ConfirmEmail(ctx context.Context, confirmToken string) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.callPublic(ctx, http.MethodGet, "/confirm/"+url.PathEscape(confirmToken), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestPasswordReset asks the server to issue a password reset link for email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (*MessageResponse, error) {
	body := struct {
		Email string `json:"email"`
	}{Email: email}

	var resp MessageResponse
	if err := c.callPublic(ctx, http.MethodPost, "/reset_password", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword redeems a reset token and sets a new password.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) (*MessageResponse, error) {
	body := struct {
		NewPassword string `json:"new_password"`
	}{NewPassword: newPassword}

	var resp MessageResponse
	if err := c.callPublic(ctx, http.MethodPost, "/reset_password/confirm/"+url.PathEscape(resetToken), nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
