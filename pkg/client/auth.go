package client

import (
	"context"
	"net/http"

	"github.com/recoveryhub/companion/pkg/models"
)

// SignUpRequest registers a new account. The profile starts without a role;
// the client selects one afterwards via [Client.SetRole].
type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the session token and the account's profile.
type AuthResponse struct {
	Token   string              `json:"token"`
	Profile *models.UserProfile `json:"profile"`
}

// SessionResponse is the resolved session state from /api/auth/me. State is
// "active" once a role is selected, "incomplete" before then. Links holds
// the caregiver's links, or the patient's single link when present.
type SessionResponse struct {
	State   string                     `json:"state"`
	Profile *models.UserProfile        `json:"profile"`
	Links   []*models.RelationshipLink `json:"links,omitempty"`
}

// SignUp registers a new account and stores the returned token on the
// client.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signup", req)
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	c.authToken = result.Token
	return &result, nil
}

// SignIn authenticates an existing account and stores the returned token on
// the client.
func (c *Client) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signin", req)
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	c.authToken = result.Token
	return &result, nil
}

// SignOut ends the session and clears the stored token.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/signout", nil)
	if err != nil {
		return err
	}

	if err := decodeResponse(resp, nil); err != nil {
		return err
	}

	c.authToken = ""
	return nil
}

// GetCurrentSession resolves the authenticated account's session state.
func (c *Client) GetCurrentSession(ctx context.Context) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var result SessionResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// RefreshToken rotates the session token, invalidating the previous one.
func (c *Client) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/refresh", nil)
	if err != nil {
		return nil, err
	}

	var result AuthResponse
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	c.authToken = result.Token
	return &result, nil
}
