package utils

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingAuthHeader = errors.New("missing or malformed Authorization header")
	ErrInvalidToken      = errors.New("invalid token")
	ErrInvalidClaims     = errors.New("invalid token claims")
)

// IssueToken signs an HS256 token for a username, expiring in one hour.
func IssueToken(username string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// UsernameFromToken validates a token string and returns the subject.
func UsernameFromToken(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidClaims
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidClaims
	}
	return sub, nil
}

// UsernameFromRequest fetches the Authorization header, validates the JWT,
// and returns the username if everything is valid.
func UsernameFromRequest(r *http.Request, secret []byte) (string, error) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", ErrMissingAuthHeader
	}
	return UsernameFromToken(strings.TrimPrefix(authz, "Bearer "), secret)
}

// OptionalUsername is like UsernameFromRequest but treats a missing or bad
// header as anonymous rather than an error.
func OptionalUsername(r *http.Request, secret []byte) string {
	username, err := UsernameFromRequest(r, secret)
	if err != nil {
		return ""
	}
	return username
}
