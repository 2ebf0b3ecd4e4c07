package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const credFileName = "credentials.json"

// credentials is the on-disk shape under ~/.tudu.
type credentials struct {
	Token     string     `json:"token"`
	Record    recordInfo `json:"record"`
	Source    string     `json:"source"`     // "env" | "file"
	CreatedAt time.Time  `json:"created_at"` // when we saved to file
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type recordInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func credsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, ".tudu"), nil
}

func (s *Session) credFilePath() (string, error) {
	if s.credFile != "" {
		return s.credFile, nil
	}
	dir, err := credsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credFileName), nil
}

// SetCredentialsFile points the session at an explicit credentials path
// instead of ~/.tudu/credentials.json.
func (s *Session) SetCredentialsFile(path string) { s.credFile = path }

// Load restores a persisted identity: env override first, then the
// credentials file. A missing file just leaves the session logged out.
func (s *Session) Load() error {
	// 1) env override
	if env := strings.TrimSpace(os.Getenv("TUDU_TOKEN")); env != "" {
		s.mu.Lock()
		s.auth = Auth{Token: stripBearer(env)}
		s.expiresAt = tokenExpiry(s.auth.Token)
		s.mu.Unlock()
		return nil
	}

	// 2) file
	p, err := s.credFilePath()
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // not logged in
		}
		return fmt.Errorf("read credentials: %w", err)
	}
	var c credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}

	s.mu.Lock()
	s.auth = Auth{Token: stripBearer(c.Token)}
	s.auth.Record.ID = c.Record.ID
	s.auth.Record.Email = c.Record.Email
	s.auth.Record.Name = c.Record.Name
	s.expiresAt = tokenExpiry(s.auth.Token)
	if c.ExpiresAt != nil {
		s.expiresAt = *c.ExpiresAt
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) saveCredentials(auth Auth) error {
	token := stripBearer(strings.TrimSpace(auth.Token))
	if token == "" {
		return fmt.Errorf("empty token")
	}
	p, err := s.credFilePath()
	if err != nil {
		return err
	}
	// ensure the directory exists with 0700
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	c := credentials{
		Token: token,
		Record: recordInfo{
			ID:    auth.Record.ID,
			Email: auth.Record.Email,
			Name:  auth.Record.Name,
		},
		Source:    "file",
		CreatedAt: time.Now(),
	}
	if exp := tokenExpiry(token); !exp.IsZero() {
		c.ExpiresAt = &exp
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// write with 0600 (owner-only)
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *Session) deleteCredentials() error {
	p, err := s.credFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
