package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("test-secret")

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken("alice", testSecret)
	assert.NoError(t, err)

	username, err := UsernameFromToken(token, testSecret)
	assert.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	token, err := IssueToken("alice", testSecret)
	assert.NoError(t, err)

	_, err = UsernameFromToken(token, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	assert.NoError(t, err)

	_, err = UsernameFromToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenMissingSubject(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	assert.NoError(t, err)

	_, err = UsernameFromToken(token, testSecret)
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestUsernameFromRequest(t *testing.T) {
	token, _ := IssueToken("alice", testSecret)

	r := httptest.NewRequest("GET", "/sessions", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	username, err := UsernameFromRequest(r, testSecret)
	assert.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestUsernameFromRequestMissingHeader(t *testing.T) {
	r := httptest.NewRequest("GET", "/sessions", nil)
	_, err := UsernameFromRequest(r, testSecret)
	assert.ErrorIs(t, err, ErrMissingAuthHeader)

	r.Header.Set("Authorization", "Basic abc")
	_, err = UsernameFromRequest(r, testSecret)
	assert.ErrorIs(t, err, ErrMissingAuthHeader)
}

func TestOptionalUsername(t *testing.T) {
	r := httptest.NewRequest("GET", "/sessions", nil)
	assert.Equal(t, "", OptionalUsername(r, testSecret))

	token, _ := IssueToken("bob", testSecret)
	r.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, "bob", OptionalUsername(r, testSecret))
}
