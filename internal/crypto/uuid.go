package crypto

import (
	"github.com/google/uuid"
)

// NewTokenID returns a time-ordered UUID v7 used as the jti of issued tokens.
func NewTokenID() string {
	return uuid.Must(uuid.NewV7()).String()
}
