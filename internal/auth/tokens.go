package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/OsianJL/questions-app/internal/crypto"
)

const issuer = "questions-app"

// Purpose says what a token may be used for.
type Purpose string

const (
	// PurposeAccess authenticates API calls as a bearer token.
	PurposeAccess Purpose = "access"
	// PurposeConfirm confirms an email address.
	PurposeConfirm Purpose = "confirm"
	// PurposeReset authorizes a password reset.
	PurposeReset Purpose = "reset"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongPurpose = errors.New("token not valid for this operation")
)

// Claims are the JWT claims of every token the server issues.
type Claims struct {
	UserID  int64   `json:"user_id"`
	Purpose Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 tokens.
type TokenService struct {
	secretKey []byte
	accessTTL time.Duration
	emailTTL  time.Duration
	now       func() time.Time
}

// NewTokenService creates a TokenService. accessTTL bounds access tokens,
// emailTTL bounds confirmation and reset tokens.
func NewTokenService(secretKey string, accessTTL, emailTTL time.Duration) (*TokenService, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if accessTTL <= 0 || emailTTL <= 0 {
		return nil, fmt.Errorf("token TTLs must be positive")
	}
	return &TokenService{
		secretKey: []byte(secretKey),
		accessTTL: accessTTL,
		emailTTL:  emailTTL,
		now:       time.Now,
	}, nil
}

// Issue creates a signed token for userID.
func (s *TokenService) Issue(userID int64, purpose Purpose) (string, error) {
	ttl := s.emailTTL
	if purpose == PurposeAccess {
		ttl = s.accessTTL
	}

	now := s.now()
	claims := Claims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ID:        crypto.NewTokenID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Validate parses tokenString and checks it was issued for purpose.
func (s *TokenService) Validate(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}
