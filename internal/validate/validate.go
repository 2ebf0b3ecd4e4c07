// Package validate holds the form-field checks used by the auth and todo
// forms. Synchronous checks run on every keystroke; the email field also
// has a deliberately slow asynchronous check mirroring a remote lookup.
package validate

import (
	"context"
	"errors"
	"strings"
	"time"
)

// asyncCheckDelay simulates the latency of a remote email check.
const asyncCheckDelay = 500 * time.Millisecond

// Email is the synchronous email check.
func Email(value string) error {
	if len(value) < 5 {
		return errors.New("Email must be at least 5 characters")
	}
	return nil
}

// EmailAsync is the delayed email check. It waits the simulated lookup
// time (or until ctx is done) before judging the value.
func EmailAsync(ctx context.Context, value string) error {
	select {
	case <-time.After(asyncCheckDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if !strings.Contains(value, "@") {
		return errors.New(`Email must contain "@"`)
	}
	return nil
}

// LoginPassword checks the password on the login form.
func LoginPassword(value string) error {
	if len(value) < 6 {
		return errors.New("Password must be at least 6 characters")
	}
	return nil
}

// RegisterPassword checks the password on the registration form, which
// is stricter than login.
func RegisterPassword(value string) error {
	if len(value) < 8 {
		return errors.New("Password must be at least 8 characters")
	}
	return nil
}

// PasswordConfirm checks the confirmation field against the password.
func PasswordConfirm(password, confirm string) error {
	if password != confirm {
		return errors.New("Passwords do not match")
	}
	return nil
}

// TodoTitle rejects empty titles.
func TodoTitle(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("Title cannot be empty")
	}
	return nil
}

// GroupName rejects empty group names.
func GroupName(value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("Group name cannot be empty")
	}
	return nil
}
