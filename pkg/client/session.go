package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func (c *Client) registerURL() string {
	return fmt.Sprintf("%s/%s/register", c.hostURL, c.module)
}

func (c *Client) authURL() string {
	return c.ModuleURL(c.module, "public/auth")
}

// Register creates a new platform user. It may require admin privileges.
func (c *Client) Register(ctx context.Context, username, password string) (map[string]any, error) {
	body := map[string]string{
		"email":           username,
		"firstName":       "test",
		"lastName":        "user",
		"password":        password,
		"passwordConfirm": password,
	}

	var out map[string]any
	if err := c.doJSON(ctx, http.MethodPost, c.registerURL(), nil, body, &out, false); err != nil {
		return nil, fmt.Errorf("register %s: %w", username, err)
	}
	return out, nil
}

// CreateToken requests a session token valid for expiresIn (zeit/ms format, e.g. "1d", "8h").
func (c *Client) CreateToken(ctx context.Context, username, password, expiresIn string) (string, error) {
	body := map[string]string{
		"username":  username,
		"password":  password,
		"expiresIn": expiresIn,
	}

	var out struct {
		Token          string `json:"token"`
		ExpirationDate string `json:"expirationDate"`
	}
	if err := c.doJSON(ctx, http.MethodPut, c.authURL(), nil, body, &out, false); err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}
	if out.Token == "" {
		return "", ErrNoToken
	}

	c.logger.Debug().
		Str("username", username).
		Str("expiration_date", out.ExpirationDate).
		Msg("Token created")

	return out.Token, nil
}

// Login authenticates and stores the session token.
// The API key takes precedence over the password. An empty expiresIn means "1d".
func (c *Client) Login(ctx context.Context, creds Credentials, expiresIn string) error {
	if creds.Username == "" || creds.secret() == "" {
		return ErrMissingCredentials
	}
	if expiresIn == "" {
		expiresIn = DefaultExpiresIn
	}

	token, err := c.CreateToken(ctx, creds.Username, creds.secret(), expiresIn)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.UpdateToken(token)

	c.logger.Info().Str("username", creds.Username).Msg("Logged in")
	return nil
}

// UpdateToken replaces the session token. An empty token logs out locally.
func (c *Client) UpdateToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Logout drops the local token, then replaces the server side token with
// one that expires after a second and waits for it to lapse.
// Zero creds fall back to Config.Credentials.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	c.UpdateToken("")

	if creds.IsZero() {
		creds = c.config.Credentials
	}
	if creds.Username == "" || creds.secret() == "" {
		return ErrMissingCredentials
	}

	if _, err := c.CreateToken(ctx, creds.Username, creds.secret(), "1s"); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	if c.config.LogoutWait > 0 {
		timer := time.NewTimer(c.config.LogoutWait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.Info().Str("username", creds.Username).Msg("Logged out")
	return nil
}

// EnsureLogin logs in with Config.Credentials when no token is set.
func (c *Client) EnsureLogin(ctx context.Context) error {
	if c.Token() != "" {
		return nil
	}

	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.Token() != "" {
		return nil
	}
	if c.config.Credentials.IsZero() {
		return ErrNotAuthenticated
	}
	if err := c.Login(ctx, c.config.Credentials, DefaultExpiresIn); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	return nil
}

// GetServerStatus returns the server status text. No login required.
func (c *Client) GetServerStatus(ctx context.Context) (string, error) {
	return c.getText(ctx, c.ModuleURL(c.module, "public/status"), nil, false)
}

// GetAPIInfo returns the CLI API info text.
func (c *Client) GetAPIInfo(ctx context.Context) (string, error) {
	return c.getText(ctx, c.ModuleURL(c.module, "info"), nil, true)
}

// GetCurrentUser returns the user owning the session token.
func (c *Client) GetCurrentUser(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.GetJSON(ctx, c.authURL(), nil, &out); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return out, nil
}
