package questions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

// newTestClient starts a server that records every request and answers with
// status and body.
func newTestClient(t *testing.T, status int, body string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, recordedRequest{
			Method:   r.Method,
			Path:     r.URL.Path,
			RawQuery: r.URL.RawQuery,
			Header:   r.Header.Clone(),
			Body:     data,
		})
		rec.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL), rec
}

func onlyRequest(t *testing.T, rec *recorder) recordedRequest {
	t.Helper()
	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("expected exactly 1 request, got %d", len(reqs))
	}
	return reqs[0]
}

func decodeBody(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("request body is not a JSON object: %v (%q)", err, data)
	}
	return m
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	if c.BaseURL != DefaultBaseURL {
		t.Fatalf("expected base URL %q, got %q", DefaultBaseURL, c.BaseURL)
	}
	if c.HTTPClient == nil || c.HTTPClient.Timeout != 0 {
		t.Fatal("expected an HTTP client without a timeout")
	}

	hc := &http.Client{}
	c = NewClient("http://example.test", WithHTTPClient(hc))
	if c.HTTPClient != hc {
		t.Fatal("WithHTTPClient was not applied")
	}
}

func TestRegisterUserPostsCredentials(t *testing.T) {
	c, rec := newTestClient(t, http.StatusCreated, `{"message":"confirm your email","confirm_url":"http://x/confirm/abc"}`)

	resp, err := c.RegisterUser(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.ConfirmURL != "http://x/confirm/abc" {
		t.Fatalf("unexpected confirm url %q", resp.ConfirmURL)
	}

	req := onlyRequest(t, rec)
	if req.Method != http.MethodPost || req.Path != "/register" {
		t.Fatalf("expected POST /register, got %s %s", req.Method, req.Path)
	}
	body := decodeBody(t, req.Body)
	if len(body) != 2 || body["email"] != "a@b.com" || body["password"] != "secret1" {
		t.Fatalf("unexpected body %v", body)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("unauthenticated call sent an Authorization header")
	}
	if req.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content type %q", req.Header.Get("Content-Type"))
	}
	if req.Header.Get(RequestIDHeader) == "" {
		t.Fatal("expected a request id header")
	}
}

func TestLoginUserSuccess(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"access_token":"T"}`)

	resp, err := c.LoginUser(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	if resp.AccessToken != "T" {
		t.Fatalf("expected token T, got %q", resp.AccessToken)
	}
}

func TestLoginUserUnauthorized(t *testing.T) {
	c, _ := newTestClient(t, http.StatusUnauthorized, `{"message":"invalid credentials"}`)

	resp, err := c.LoginUser(context.Background(), "a@b.com", "wrong")
	if err == nil {
		t.Fatalf("expected error, got %+v", resp)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Message != "invalid credentials" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatal("IsStatus should match 401")
	}
}

func TestAPIErrorFallsBackToErrorField(t *testing.T) {
	c, _ := newTestClient(t, http.StatusTooManyRequests, `{"error":"rate limit exceeded"}`)

	_, err := c.GetProtectedResource(context.Background(), "tok")
	if err == nil || err.Error() != "questions error 429: rate limit exceeded" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestAPIErrorWithoutJSONBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusBadGateway, `upstream down`)

	_, err := c.ListChats(context.Background(), "tok")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "" || string(apiErr.Body) != "upstream down" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL)
	_, err := c.LoginUser(context.Background(), "a@b.com", "secret1")
	if err == nil {
		t.Fatal("expected transport error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatal("transport failure must not be reported as an APIError")
	}
}

func TestAuthenticatedCallsSendBearerOnce(t *testing.T) {
	ctx := context.Background()
	calls := []struct {
		name string
		call func(c *Client) error
	}{
		{"GetProtectedResource", func(c *Client) error { _, err := c.GetProtectedResource(ctx, "tok"); return err }},
		{"CreateProfile", func(c *Client) error { _, err := c.CreateProfile(ctx, "tok", "u", "i", "m"); return err }},
		{"GetProfile", func(c *Client) error { _, err := c.GetProfile(ctx, "tok", 42); return err }},
		{"UpdateProfile", func(c *Client) error { _, err := c.UpdateProfile(ctx, "tok", 42, ProfileUpdate{}); return err }},
		{"DeleteProfile", func(c *Client) error { _, err := c.DeleteProfile(ctx, "tok", 42); return err }},
		{"CreatePublicMessage", func(c *Client) error { _, err := c.CreatePublicMessage(ctx, "tok", "a", "b", "c"); return err }},
		{"GetPublicMessageDetail", func(c *Client) error { _, err := c.GetPublicMessageDetail(ctx, "tok", 1); return err }},
		{"ReplyToPublicMessage", func(c *Client) error { _, err := c.ReplyToPublicMessage(ctx, "tok", 1, "r"); return err }},
		{"DeletePublicMessage", func(c *Client) error { _, err := c.DeletePublicMessage(ctx, "tok", 1); return err }},
		{"InitiateChat", func(c *Client) error { _, err := c.InitiateChat(ctx, "tok", 7); return err }},
		{"SendChatMessage", func(c *Client) error { _, err := c.SendChatMessage(ctx, "tok", 3, "hi"); return err }},
	}

	for _, tc := range calls {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestClient(t, http.StatusOK, `{}`)
			if err := tc.call(c); err != nil {
				t.Fatal(err)
			}
			req := onlyRequest(t, rec)
			values := req.Header.Values("Authorization")
			if len(values) != 1 || values[0] != "Bearer tok" {
				t.Fatalf("expected one Authorization header, got %v", values)
			}
		})
	}

	listCalls := []struct {
		name string
		call func(c *Client) error
	}{
		{"ListPublicMessages", func(c *Client) error { _, err := c.ListPublicMessages(ctx, "tok", nil); return err }},
		{"ListChats", func(c *Client) error { _, err := c.ListChats(ctx, "tok"); return err }},
		{"GetChatMessages", func(c *Client) error { _, err := c.GetChatMessages(ctx, "tok", 3); return err }},
	}
	for _, tc := range listCalls {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestClient(t, http.StatusOK, `[]`)
			if err := tc.call(c); err != nil {
				t.Fatal(err)
			}
			values := onlyRequest(t, rec).Header.Values("Authorization")
			if len(values) != 1 || values[0] != "Bearer tok" {
				t.Fatalf("expected one Authorization header, got %v", values)
			}
		})
	}
}

func TestEmptyTokenStillSendsAuthorization(t *testing.T) {
	c, rec := newTestClient(t, http.StatusUnauthorized, `{"message":"missing token"}`)

	_, err := c.GetProfile(context.Background(), "", 42)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	// Trailing whitespace is trimmed on the server side.
	values := onlyRequest(t, rec).Header.Values("Authorization")
	if len(values) != 1 || strings.TrimSpace(values[0]) != "Bearer" {
		t.Fatalf("expected one empty bearer header, got %v", values)
	}
}

func TestGetProfilePath(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"user_id":42,"username":"ana","image_url":"http://img","moto":"hola"}`)

	p, err := c.GetProfile(context.Background(), "tok", 42)
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != 42 || p.Username != "ana" || p.Moto != "hola" {
		t.Fatalf("unexpected profile %+v", p)
	}
	req := onlyRequest(t, rec)
	if req.Method != http.MethodGet || req.Path != "/profile/42" {
		t.Fatalf("expected GET /profile/42, got %s %s", req.Method, req.Path)
	}
	if len(req.Body) != 0 {
		t.Fatalf("GET sent a body: %q", req.Body)
	}
}

func TestUpdateProfileSendsOnlySetFields(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"user_id":42,"username":"x"}`)

	if _, err := c.UpdateProfile(context.Background(), "tok", 42, ProfileUpdate{Username: String("x")}); err != nil {
		t.Fatal(err)
	}
	req := onlyRequest(t, rec)
	if req.Method != http.MethodPatch || req.Path != "/profile/42" {
		t.Fatalf("expected PATCH /profile/42, got %s %s", req.Method, req.Path)
	}
	body := decodeBody(t, req.Body)
	if len(body) != 1 || body["username"] != "x" {
		t.Fatalf("expected only username, got %v", body)
	}
}

func TestUpdateProfileAllowsEmptyString(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{}`)

	if _, err := c.UpdateProfile(context.Background(), "tok", 1, ProfileUpdate{Moto: String("")}); err != nil {
		t.Fatal(err)
	}
	body := decodeBody(t, onlyRequest(t, rec).Body)
	if v, ok := body["moto"]; !ok || v != "" {
		t.Fatalf("expected explicit empty moto, got %v", body)
	}
}

func TestListPublicMessagesEncodesFilterAsQuery(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[{"id":1,"author_id":2,"tematica":"Ciencia","idioma":"Español","content":"?"}]`)

	msgs, err := c.ListPublicMessages(context.Background(), "tok", &MessageFilter{Tematica: "Ciencia"})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Tematica != "Ciencia" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	req := onlyRequest(t, rec)
	if req.Method != http.MethodGet || req.Path != "/message" {
		t.Fatalf("expected GET /message, got %s %s", req.Method, req.Path)
	}
	if req.RawQuery != "tematica=Ciencia" {
		t.Fatalf("unexpected query %q", req.RawQuery)
	}
	if len(req.Body) != 0 {
		t.Fatalf("filter leaked into body: %q", req.Body)
	}
}

func TestListPublicMessagesAllFilters(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[]`)

	filter := &MessageFilter{Tematica: "Arte", Idioma: "Español", Contestado: Bool(false)}
	if _, err := c.ListPublicMessages(context.Background(), "tok", filter); err != nil {
		t.Fatal(err)
	}
	req := onlyRequest(t, rec)
	if req.RawQuery != "contestado=false&idioma=Espa%C3%B1ol&tematica=Arte" {
		t.Fatalf("unexpected query %q", req.RawQuery)
	}
}

func TestListPublicMessagesNilFilter(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[]`)

	if _, err := c.ListPublicMessages(context.Background(), "tok", nil); err != nil {
		t.Fatal(err)
	}
	if q := onlyRequest(t, rec).RawQuery; q != "" {
		t.Fatalf("expected no query string, got %q", q)
	}
}

func TestReplyAndDeletePublicMessage(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"id":9,"contestado":true}`)

	msg, err := c.ReplyToPublicMessage(context.Background(), "tok", 9, "answer")
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Contestado {
		t.Fatal("expected answered message")
	}
	req := onlyRequest(t, rec)
	if req.Method != http.MethodPatch || req.Path != "/message/9" {
		t.Fatalf("expected PATCH /message/9, got %s %s", req.Method, req.Path)
	}
	if body := decodeBody(t, req.Body); body["reply"] != "answer" {
		t.Fatalf("unexpected body %v", body)
	}

	c, rec = newTestClient(t, http.StatusForbidden, `{"message":"only the author can delete this message"}`)
	if _, err := c.DeletePublicMessage(context.Background(), "tok", 9); !IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403, got %v", err)
	}
	if req := onlyRequest(t, rec); req.Method != http.MethodDelete || req.Path != "/message/9" {
		t.Fatalf("expected DELETE /message/9, got %s %s", req.Method, req.Path)
	}
}

func TestInitiateChatForwardsEveryCall(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"id":5,"user1_id":1,"user2_id":7}`)

	first, err := c.InitiateChat(context.Background(), "tok", 7)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.InitiateChat(context.Background(), "tok", 7)
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same chat id, got %d and %d", first.ID, second.ID)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("expected both calls to reach the server, got %d", len(reqs))
	}
	for _, req := range reqs {
		if req.Method != http.MethodPost || req.Path != "/chat" {
			t.Fatalf("expected POST /chat, got %s %s", req.Method, req.Path)
		}
		if body := decodeBody(t, req.Body); body["other_user_id"] != float64(7) {
			t.Fatalf("unexpected body %v", body)
		}
	}
	if first.Other(1) != 7 || first.Other(7) != 1 {
		t.Fatal("Other returned the wrong participant")
	}
}

func TestChatMessages(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `[{"id":1,"chat_id":3,"sender_id":1,"content":"hola"},{"id":2,"chat_id":3,"sender_id":7,"content":"qué tal"}]`)

	msgs, err := c.GetChatMessages(context.Background(), "tok", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Content != "hola" || msgs[1].SenderID != 7 {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if req := onlyRequest(t, rec); req.Path != "/chat/3" || req.Method != http.MethodGet {
		t.Fatalf("expected GET /chat/3, got %s %s", req.Method, req.Path)
	}
}

func TestTokenPathsAreEscaped(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{"message":"ok"}`)

	if _, err := c.ConfirmEmail(context.Background(), "abc.def"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ResetPassword(context.Background(), "a/b", "newpass1"); err != nil {
		t.Fatal(err)
	}
	reqs := rec.all()
	if reqs[0].Method != http.MethodGet || reqs[0].Path != "/confirm/abc.def" {
		t.Fatalf("unexpected confirm request %s %s", reqs[0].Method, reqs[0].Path)
	}
	if reqs[1].Method != http.MethodPost || !strings.HasPrefix(reqs[1].Path, "/reset_password/confirm/") {
		t.Fatalf("unexpected reset request %s %s", reqs[1].Method, reqs[1].Path)
	}
	if body := decodeBody(t, reqs[1].Body); body["new_password"] != "newpass1" {
		t.Fatalf("unexpected reset body %v", body)
	}
}

func TestRequestPasswordReset(t *testing.T) {
	c, rec := newTestClient(t, http.StatusNotFound, `{"message":"email not found"}`)

	_, err := c.RequestPasswordReset(context.Background(), "nobody@b.com")
	if !IsStatus(err, http.StatusNotFound) {
		t.Fatalf("expected 404, got %v", err)
	}
	req := onlyRequest(t, rec)
	if body := decodeBody(t, req.Body); len(body) != 1 || body["email"] != "nobody@b.com" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestCanceledContext(t *testing.T) {
	c, rec := newTestClient(t, http.StatusOK, `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetProtectedResource(ctx, "tok"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no request, got %d", n)
	}
}
