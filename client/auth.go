package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Auth endpoints. They bypass the session guard: a 401 here means bad
// credentials or a dead refresh token and must not trigger another refresh.
const (
	loginPath   = "/auth/token/"
	refreshPath = "/auth/token/refresh/"
	logoutPath  = "/auth/logout/"
)

// Login exchanges a username and password for an access/refresh token pair.
// The tokens are returned, not attached; hand them to the token store.
func (c *Client) Login(ctx context.Context, username, password string) (accessToken, refreshToken string, err error) {
	if username == "" || password == "" {
		return "", "", errors.New("username and password cannot be empty")
	}

	var pair struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   map[string]string{"username": username, "password": password},
	}
	if err := c.doUnguarded(ctx, req, "", &pair); err != nil {
		return "", "", fmt.Errorf("login failed: %w", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		return "", "", errors.New("login response did not include both tokens")
	}
	log.Info().Str("username", username).Msg("Obtained token pair")
	return pair.Access, pair.Refresh, nil
}

// RefreshAccessToken exchanges a refresh token for a new access token.
// It implements auth.TokenRefresher.
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var result struct {
		Access string `json:"access"`
	}
	req := &Request{
		Method: http.MethodPost,
		Path:   refreshPath,
		Body:   map[string]string{"refresh": refreshToken},
	}
	if err := c.doUnguarded(ctx, req, "", &result); err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	if result.Access == "" {
		return "", errors.New("token refresh response did not include an access token")
	}
	return result.Access, nil
}

// Logout asks the server to invalidate the current session. It is best effort;
// callers sign out locally regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	req := &Request{Method: http.MethodPost, Path: logoutPath}
	if err := c.doUnguarded(ctx, req, c.AuthToken(), nil); err != nil {
		return fmt.Errorf("server logout failed: %w", err)
	}
	return nil
}
