// Package session holds the authenticated identity for one client process.
// It replaces the ambient auth store the backend SDKs ship with: one
// Session value is constructed at startup and injected into everything
// that needs the current identity, and interested parts register explicit
// observers instead of reading global state.
package session

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/idilsaglam/tudu/internal/model"
)

// Auth is the authenticated state: the bearer token plus the user record
// the gateway returned with it.
type Auth struct {
	Token  string     `json:"token"`
	Record model.User `json:"record"`
}

// Session is the current-identity holder. Safe for concurrent use; the
// realtime reader goroutines observe it alongside the UI loop.
type Session struct {
	mu        sync.Mutex
	auth      Auth
	expiresAt time.Time

	credFile string // overrides the default credentials path (tests)

	observers map[int]func(Auth)
	nextID    int
}

// New returns an empty session. Call Load to pick up persisted credentials.
func New() *Session {
	return &Session{observers: make(map[int]func(Auth))}
}

// Auth returns the current authenticated state.
func (s *Session) Auth() Auth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// UserID returns the authenticated user's id, or "" when logged out.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth.Record.ID
}

// IsValid reports whether a token is present and not past its expiry.
func (s *Session) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth.Token == "" {
		return false
	}
	if !s.expiresAt.IsZero() && time.Now().After(s.expiresAt) {
		return false
	}
	return true
}

// Set stores a new authenticated state, persists it, and notifies
// observers. The persist error is returned but the in-memory state is
// updated regardless, so a read-only home dir still yields a working
// session for the process lifetime.
func (s *Session) Set(auth Auth) error {
	s.mu.Lock()
	s.auth = auth
	s.expiresAt = tokenExpiry(auth.Token)
	obs := s.snapshotObservers()
	s.mu.Unlock()

	err := s.saveCredentials(auth)
	for _, fn := range obs {
		fn(auth)
	}
	return err
}

// Clear logs out: wipes the in-memory state, removes the credentials
// file, and notifies observers with the zero Auth.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.auth = Auth{}
	s.expiresAt = time.Time{}
	obs := s.snapshotObservers()
	s.mu.Unlock()

	err := s.deleteCredentials()
	for _, fn := range obs {
		fn(Auth{})
	}
	return err
}

// OnChange registers an observer called on every Set and Clear. The
// returned func removes the observer; teardown must call it before the
// owning component goes away.
func (s *Session) OnChange(fn func(Auth)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// snapshotObservers must be called with the lock held.
func (s *Session) snapshotObservers() []func(Auth) {
	out := make([]func(Auth), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

// tokenExpiry reads the exp claim without verifying the signature. The
// gateway is the verifier; the client only needs the timestamp to know
// when to send the user back to login. A token that does not parse as a
// JWT at all counts as already expired; a parsable token without an exp
// claim never expires locally.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := jwt.MapClaims{}
	parser := jwt.Parser{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Unix(0, 0)
	}
	if exp, ok := claims["exp"].(float64); ok && exp > 0 {
		return time.Unix(int64(exp), 0)
	}
	return time.Time{}
}
