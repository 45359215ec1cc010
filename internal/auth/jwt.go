package auth

import (
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	// OperatorKey holds the operator name of an authenticated ops request.
	OperatorKey contextKey = "operator"
)

// --- JWT Claims ---

// OpsClaims includes standard JWT claims plus the operator identity for the
// ops surface. Match this with the claims struct in api/middleware.go
type OpsClaims struct {
	Operator string `json:"operator"`
	jwt.RegisteredClaims
}

// NewOpsToken generates a new JWT bearer token for the ops surface.
func NewOpsToken(operator string, jwtSecret string, expiration time.Duration) (string, error) {
	claims := OpsClaims{
		Operator: operator,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "slackgate-backend",
			Subject:   operator,
			ID:        uuid.NewString(), // jti, so individual tokens are traceable in logs
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("Error signing JWT token for operator %s: %v", operator, err)
		return "", err
	}

	return signedToken, nil
}
