package api

import (
	"context"
	nethttp "net/http"

	"github.com/drivelink/drivelink/internal/models"
)

// Login exchanges credentials for a token pair. Persisting the pair is the
// session manager's job, not the transport's.
func (c *Client) Login(ctx context.Context, creds models.Credentials) (models.TokenPair, error) {
	var pair models.TokenPair

	resp, err := c.doJSON(ctx, nethttp.MethodPost, loginPath, creds)
	if err != nil {
		return pair, err
	}
	if err := decodeInto(resp, &pair, nethttp.StatusOK, nethttp.StatusCreated); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

// Signup creates an account and returns the issued token pair.
func (c *Client) Signup(ctx context.Context, creds models.Credentials) (models.TokenPair, error) {
	var pair models.TokenPair

	resp, err := c.doJSON(ctx, nethttp.MethodPost, signupPath, creds)
	if err != nil {
		return pair, err
	}
	if err := decodeInto(resp, &pair, nethttp.StatusOK, nethttp.StatusCreated); err != nil {
		return models.TokenPair{}, err
	}
	return pair, nil
}

// Logout asks the server to invalidate the given refresh token.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	resp, err := c.doJSON(ctx, nethttp.MethodPost, "/auth/logout", models.LogoutRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	return decodeInto(resp, nil, nethttp.StatusOK, nethttp.StatusNoContent)
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	resp, err := c.doJSON(ctx, nethttp.MethodGet, "/user/me", nil)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := decodeInto(resp, &profile, nethttp.StatusOK); err != nil {
		return nil, err
	}
	return &profile, nil
}
