package models

import "time"

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Confirmed    bool      `json:"confirmed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public metadata owned by exactly one user.
type Profile struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ImageURL  string    `json:"image_url"`
	Moto      string    `json:"moto"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfilePatch lists the profile fields to change. Nil fields are left alone.
type ProfilePatch struct {
	Username *string `json:"username"`
	ImageURL *string `json:"image_url"`
	Moto     *string `json:"moto"`
}
