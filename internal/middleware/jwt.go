package middleware

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer identifies the service that issues all access tokens.
const TokenIssuer = "Shohojogi"

const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
)

// Identity is what a validated token resolves to: an opaque user ID plus
// the role the auth layer assigned it.
type Identity struct {
	UserID string
	Role   string
}

// ValidateToken checks the token's signature and standard claims and
// extracts the subject and role. Any deviation returns a descriptive error.
func ValidateToken(tokenString string, publicKey *rsa.PublicKey) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, errors.New("missing expiration claim")
	}
	if time.Unix(int64(exp), 0).Before(time.Now()) {
		return nil, jwt.ErrTokenExpired
	}

	iss, ok := claims["iss"].(string)
	if !ok {
		return nil, errors.New("missing issuer claim")
	}
	if iss != TokenIssuer {
		return nil, errors.New("invalid token issuer")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return nil, errors.New("missing subject claim")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return nil, errors.New("missing role claim")
	}
	if role != RoleCustomer && role != RoleWorker {
		return nil, errors.New("unknown role claim")
	}

	return &Identity{UserID: sub, Role: role}, nil
}

// CreateAccessToken signs a short-lived access token. Used by the auth
// flow and by tests that need a valid credential.
func CreateAccessToken(privateKey *rsa.PrivateKey, userID, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iss":  TokenIssuer,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(privateKey)
}
