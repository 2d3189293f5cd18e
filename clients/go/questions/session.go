package questions

import "sync"

// Session holds the bearer token of the signed-in user for the lifetime of
// the process. It does not expire, refresh or persist the token.
type Session struct {
	mu    sync.RWMutex
	token string
}

// NewSession returns a session holding token, which may be empty.
func NewSession(token string) *Session {
	return &Session{token: token}
}

// SetToken replaces the held token.
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Token returns the held token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear drops the held token.
func (s *Session) Clear() {
	s.SetToken("")
}

// Authenticated reports whether a token is held.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}
