package auth

import (
	"context"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// InitClerk sets the process-wide Clerk secret key used by VerifyToken and
// GetUser. secretKey comes from config.Config.ClerkSecretKey rather than
// reading the environment directly, so callers don't need to mutate env.
func InitClerk(secretKey string) {
	if secretKey == "" {
		panic("clerk secret key not configured")
	}
	clerk.SetKey(secretKey)
}

// VerifyToken verifies a bearer session token and returns its claims.
func VerifyToken(token string) (*clerk.SessionClaims, error) {
	claims, err := jwt.Verify(context.Background(), &jwt.VerifyParams{
		Token:  token,
		Leeway: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GetUser retrieves a user from Clerk by ID.
func GetUser(userID string) (*clerk.User, error) {
	return user.Get(context.Background(), userID)
}
