package questions

import (
	"context"
	"net/http"
	"strconv"
)

// Profile represents a user's public profile.
type Profile struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
	Moto     string `json:"moto"`
}

// CreateProfileRequest is the request body for creating a profile.
type CreateProfileRequest struct {
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
	Moto     string `json:"moto"`
}

// ProfileUpdate is a partial profile update. Nil fields are not sent.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
	Moto     *string `json:"moto,omitempty"`
}

func profilePath(userID int64) string {
	return "/profile/" + strconv.FormatInt(userID, 10)
}

// CreateProfile creates the profile of the authenticated user.
func (c *Client) CreateProfile(ctx context.Context, token, username, imageURL, moto string) (*Profile, error) {
	req := CreateProfileRequest{Username: username, ImageURL: imageURL, Moto: moto}

	var resp Profile
	if err := c.callAuth(ctx, http.MethodPost, "/profile", nil, req, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProfile fetches the profile of userID. The server only allows the owner.
func (c *Client) GetProfile(ctx context.Context, token string, userID int64) (*Profile, error) {
	var resp Profile
	if err := c.callAuth(ctx, http.MethodGet, profilePath(userID), nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile applies a partial update to the profile of userID.
func (c *Client) UpdateProfile(ctx context.Context, token string, userID int64, update ProfileUpdate) (*Profile, error) {
	var resp Profile
	if err := c.callAuth(ctx, http.MethodPatch, profilePath(userID), nil, update, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteProfile deletes the profile of userID.
func (c *Client) DeleteProfile(ctx context.Context, token string, userID int64) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.callAuth(ctx, http.MethodDelete, profilePath(userID), nil, nil, token, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// String returns a pointer to s, for building a ProfileUpdate.
func String(s string) *string {
	return &s
}
