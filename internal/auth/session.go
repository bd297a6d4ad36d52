package auth

import "sync"

// Session holds the bearer token of the signed-in ranger.
type Session struct {
	mu       sync.RWMutex
	token    string
	rangerID string
}

// NewSession creates a signed-out session.
func NewSession() *Session {
	return &Session{}
}

// SignIn replaces the credentials and returns the ranger id carried by the token.
func (s *Session) SignIn(token string) (string, error) {
	rangerID, err := Subject(token)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.rangerID = rangerID
	return rangerID, nil
}

// SignOut forgets the credentials.
func (s *Session) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.rangerID = ""
}

// Token returns the current bearer token, empty when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// RangerID returns the signed-in ranger, empty when signed out.
func (s *Session) RangerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rangerID
}
