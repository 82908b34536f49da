package auth

import (
	"fmt"

	"github.com/javascriptisbest/pbl4-sub001/errors"
)

// TokenVerifier is the production SessionVerifier: it accepts the JWT
// supplied at connection-open time and yields the bound user identity.
// A missing, malformed, or expired token is always ErrAuthRejected;
// there is no anonymous fallback.
type TokenVerifier struct{}

func NewTokenVerifier() TokenVerifier {
	return TokenVerifier{}
}

func (TokenVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", errors.ErrAuthRejected
	}
	claims, err := ValidateToken(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrAuthRejected, err)
	}
	return claims.UserID, nil
}
