// Package auth issues and verifies the signed tokens carried in the session
// and admin cookies, and writes those cookies.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: the owning user id, an optional role and the
// standard expiry.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Status is the outcome of verifying a token.
type Status int

const (
	// StatusMalformed covers unparsable, mis-signed or incomplete tokens.
	StatusMalformed Status = iota
	StatusValid
	// StatusExpired means the signature checked out but exp is not after now.
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "malformed"
	}
}

// Verification is the result of Verify. Claims is set for valid and expired
// tokens and nil for malformed ones.
type Verification struct {
	Status Status
	Claims *Claims
}

func (v Verification) Valid() bool { return v.Status == StatusValid }

// Err maps every non-valid outcome to common.ErrInvalidToken.
func (v Verification) Err() error {
	if v.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidToken, v.Status)
}

// GenerateToken signs an HS256 token for userID that expires validity after
// now. It returns the token and its expiry (second precision, as encoded).
func GenerateToken(userID, role string, secretKey []byte, validity time.Duration, now time.Time) (string, time.Time, error) {
	expiresAt := jwt.NewNumericDate(now.Add(validity))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: expiresAt,
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt.Time, nil
}

// Verify checks tokenString against secretKey and the clock reading now.
// It has no side effects.
func Verify(tokenString string, secretKey []byte, now time.Time) Verification {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.UserID == "" {
		return Verification{Status: StatusMalformed}
	}

	validator := jwt.NewValidator(
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err := validator.Validate(claims); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verification{Status: StatusExpired, Claims: claims}
		}
		return Verification{Status: StatusMalformed}
	}

	return Verification{Status: StatusValid, Claims: claims}
}
