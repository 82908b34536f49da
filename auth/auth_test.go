package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/javascriptisbest/pbl4-sub001/errors"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MonMotDePasseTr0pSûr!"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Negative comparison (wrong password)
	match, err = ComparePassword("MauvaisMDP", hash)
	req.NoError(err)
	req.False(match)
}

func TestRegistrationValidation(t *testing.T) {
	req := require.New(t)
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr bool
	}{
		{"Valid request", RegisterRequest{"test@example.com", "ComplexPass123!"}, false},
		{"Invalid email", RegisterRequest{"notanemail", "ComplexPass123!"}, true},
		{"Password too short", RegisterRequest{"test@example.com", "Short1!"}, true},
		{"Missing digit", RegisterRequest{"test@example.com", "NoDigitPassword!"}, true},
		{"Missing special char", RegisterRequest{"test@example.com", "NoSpecialChar123"}, true},
		{"Missing uppercase", RegisterRequest{"test@example.com", "nouppercase123!"}, true},
		{"Password too long (edge case)", RegisterRequest{"test@example.com", strings.Repeat("a", 73)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegister(tt.req)
			if tt.wantErr {
				req.Error(err)
			} else {
				req.NoError(err)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)

	token, err := GenerateToken("user-42", []string{"user"}, time.Hour)
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal("user-42", claims.UserID)
	req.Equal([]string{"user"}, claims.Roles)
}

func TestTokenVerifier(t *testing.T) {
	verifier := NewTokenVerifier()

	t.Run("should yield the bound identity for a valid token", func(t *testing.T) {
		req := require.New(t)
		token, err := GenerateToken("user-42", []string{"user"}, time.Hour)
		req.NoError(err)

		userID, err := verifier.Verify(token)
		req.NoError(err)
		req.Equal("user-42", userID)
	})

	t.Run("should reject a missing token", func(t *testing.T) {
		req := require.New(t)
		_, err := verifier.Verify("")
		req.ErrorIs(err, errors.ErrAuthRejected)
	})

	t.Run("should reject a garbage token", func(t *testing.T) {
		req := require.New(t)
		_, err := verifier.Verify("not.a.jwt")
		req.ErrorIs(err, errors.ErrAuthRejected)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)
		token, err := GenerateToken("user-42", []string{"user"}, -time.Minute)
		req.NoError(err)

		_, err = verifier.Verify(token)
		req.ErrorIs(err, errors.ErrAuthRejected)
	})
}

// BenchmarkHashPassword measures the CPU/RAM impact of the Argon2 parameters
func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
