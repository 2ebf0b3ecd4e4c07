package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/idilsaglam/tudu/internal/model"
	"github.com/idilsaglam/tudu/internal/session"
)

// authResponse is what every auth endpoint returns on success.
type authResponse struct {
	Token  string          `json:"token"`
	Record json.RawMessage `json:"record"`
}

// RegisterInput are the fields for creating a new account.
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Name            string `json:"name,omitempty"`
}

// OAuthProvider describes one configured OAuth2 provider as advertised
// by the backend's auth-methods endpoint.
type OAuthProvider struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	State               string `json:"state"`
	AuthURL             string `json:"authUrl"`
	CodeVerifier        string `json:"codeVerifier"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
}

func (c *Client) usersPath(suffix string) string {
	return "/api/collections/users/" + suffix
}

// AuthWithPassword exchanges credentials for a session. The token and
// identity land in the injected session on success.
func (c *Client) AuthWithPassword(ctx context.Context, email, password string) (session.Auth, error) {
	body := map[string]any{"identity": email, "password": password}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, c.usersPath("auth-with-password"), body, &resp); err != nil {
		return session.Auth{}, fmt.Errorf("auth with password: %w", err)
	}
	return c.adoptAuth(resp)
}

// AuthMethods lists the backend's configured OAuth2 providers. The CLI
// shows the provider's AuthURL and later exchanges the returned code via
// AuthWithOAuth2.
func (c *Client) AuthMethods(ctx context.Context) ([]OAuthProvider, error) {
	var resp struct {
		AuthProviders []OAuthProvider `json:"authProviders"`
	}
	if err := c.do(ctx, http.MethodGet, c.usersPath("auth-methods"), nil, &resp); err != nil {
		return nil, fmt.Errorf("auth methods: %w", err)
	}
	return resp.AuthProviders, nil
}

// AuthWithOAuth2 completes an OAuth2 code flow started from a provider's
// AuthURL.
func (c *Client) AuthWithOAuth2(ctx context.Context, provider, code, codeVerifier, redirectURL string) (session.Auth, error) {
	body := map[string]any{
		"provider":     provider,
		"code":         code,
		"codeVerifier": codeVerifier,
		"redirectUrl":  redirectURL,
	}
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, c.usersPath("auth-with-oauth2"), body, &resp); err != nil {
		return session.Auth{}, fmt.Errorf("auth with oauth2: %w", err)
	}
	return c.adoptAuth(resp)
}

// Register creates a new user account. It does not log in; callers chain
// RequestVerification and AuthWithPassword like the registration form.
func (c *Client) Register(ctx context.Context, input RegisterInput) (model.User, error) {
	body := map[string]any{
		"email":           input.Email,
		"password":        input.Password,
		"passwordConfirm": input.PasswordConfirm,
	}
	if input.Name != "" {
		body["name"] = input.Name
	}
	var user model.User
	if err := c.Create(ctx, model.CollectionUsers, body, &user); err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// RequestPasswordReset asks the backend to mail a reset link. Always
// quiet about whether the account exists.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]any{"email": email}
	if err := c.do(ctx, http.MethodPost, c.usersPath("request-password-reset"), body, nil); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}
	return nil
}

// RequestVerification asks the backend to mail a verification link.
func (c *Client) RequestVerification(ctx context.Context, email string) error {
	body := map[string]any{"email": email}
	if err := c.do(ctx, http.MethodPost, c.usersPath("request-verification"), body, nil); err != nil {
		return fmt.Errorf("request verification: %w", err)
	}
	return nil
}

func (c *Client) adoptAuth(resp authResponse) (session.Auth, error) {
	var user model.User
	if err := model.DecodeRecord(model.CollectionUsers, resp.Record, &user); err != nil {
		return session.Auth{}, err
	}
	auth := session.Auth{Token: resp.Token, Record: user}
	if c.session != nil {
		if err := c.session.Set(auth); err != nil {
			// identity is usable in-memory even when persisting failed
			c.log.Warn("could not persist credentials", "err", err)
		}
	}
	return auth, nil
}
