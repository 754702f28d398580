package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a bearer token that fails signature or
// claim validation. A request without any Authorization header is not an
// error; it is simply unauthenticated.
var ErrInvalidToken = errors.New("invalid bearer token")

// Security verifies bearer tokens and extracts the caller's identity.
type Security struct {
	secret []byte
}

// NewSecurity creates a Security using the given HS256 signing secret.
func NewSecurity(secret []byte) *Security {
	return &Security{secret: secret}
}

// Identify inspects the request's Authorization header. It returns
// (userID, true, nil) for a valid bearer token, (0, false, nil) when the
// header is absent, and ErrInvalidToken when a token is present but does
// not verify.
func (s *Security) Identify(r *http.Request) (int64, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return 0, false, nil
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return 0, false, ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, false, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false, ErrInvalidToken
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return 0, false, ErrInvalidToken
	}
	return int64(id), true, nil
}
