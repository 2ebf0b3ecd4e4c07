package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/idilsaglam/tudu/internal/model"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s := New()
	s.SetCredentialsFile(filepath.Join(t.TempDir(), "credentials.json"))
	return s
}

func TestSetPersistsAndLoads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")

	s := New()
	s.SetCredentialsFile(path)
	auth := Auth{
		Token:  signedToken(t, time.Now().Add(time.Hour)),
		Record: model.User{ID: "u1", Email: "a@b.co", Name: "Ada"},
	}
	if err := s.Set(auth); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.IsValid() {
		t.Fatal("session should be valid after Set")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("credentials file missing: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("credentials mode = %o, want 600", got)
	}

	// fresh session restores identity from the file
	s2 := New()
	s2.SetCredentialsFile(path)
	if err := s2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s2.UserID() != "u1" {
		t.Errorf("restored user id = %q, want u1", s2.UserID())
	}
	if !s2.IsValid() {
		t.Error("restored session should be valid")
	}
}

func TestClearRemovesCredentials(t *testing.T) {
	s := newTestSession(t)
	if err := s.Set(Auth{Token: signedToken(t, time.Now().Add(time.Hour)), Record: model.User{ID: "u1"}}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if s.IsValid() {
		t.Error("session should be invalid after Clear")
	}
	if s.UserID() != "" {
		t.Errorf("user id after Clear = %q, want empty", s.UserID())
	}
	p, _ := s.credFilePath()
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("credentials file should be gone after Clear")
	}
	// clearing twice is fine
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear failed: %v", err)
	}
}

func TestExpiredTokenIsInvalid(t *testing.T) {
	s := newTestSession(t)
	_ = s.Set(Auth{Token: signedToken(t, time.Now().Add(-time.Minute)), Record: model.User{ID: "u1"}})
	if s.IsValid() {
		t.Error("session with expired token should be invalid")
	}
}

func TestUnparsableTokenIsInvalid(t *testing.T) {
	s := newTestSession(t)
	_ = s.Set(Auth{Token: "not-a-jwt", Record: model.User{ID: "u1"}})
	if s.IsValid() {
		t.Error("session with an unparsable token should be invalid")
	}
}

func TestOnChangeObservers(t *testing.T) {
	s := newTestSession(t)

	var got []string
	remove := s.OnChange(func(a Auth) {
		got = append(got, a.Record.ID)
	})

	_ = s.Set(Auth{Token: signedToken(t, time.Now().Add(time.Hour)), Record: model.User{ID: "u1"}})
	_ = s.Clear()

	if len(got) != 2 || got[0] != "u1" || got[1] != "" {
		t.Fatalf("observer calls = %v, want [u1 \"\"]", got)
	}

	remove()
	_ = s.Set(Auth{Token: signedToken(t, time.Now().Add(time.Hour)), Record: model.User{ID: "u2"}})
	if len(got) != 2 {
		t.Error("removed observer must not be called")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	tok := signedToken(t, time.Now().Add(time.Hour))
	t.Setenv("TUDU_TOKEN", "Bearer "+tok)

	s := newTestSession(t)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Auth().Token != tok {
		t.Error("env token should be loaded with Bearer prefix stripped")
	}
}

func TestLoadMissingFileIsLoggedOut(t *testing.T) {
	t.Setenv("TUDU_TOKEN", "")
	s := newTestSession(t)
	if err := s.Load(); err != nil {
		t.Fatalf("Load of missing file should not error: %v", err)
	}
	if s.IsValid() {
		t.Error("missing credentials file should leave session logged out")
	}
}

func TestStripBearer(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := stripBearer(tt.in); got != tt.want {
			t.Errorf("stripBearer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
