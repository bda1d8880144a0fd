package auth

import (
	"errors"
	"net/http"
	"strings"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

var (
	errMissingAuthorizationHeader = errors.New("missing Authorization header")
	errInvalidAuthorizationHeader = errors.New("invalid Authorization header")
)

// BearerTokenFromRequest extracts the token of an "Authorization: Bearer"
// header.
func BearerTokenFromRequest(r *http.Request) (string, error) {
	reqToken := r.Header.Get(authorizationHeader)
	if reqToken == "" {
		return "", errMissingAuthorizationHeader
	}
	token, ok := strings.CutPrefix(reqToken, bearerPrefix)
	if !ok {
		return "", errInvalidAuthorizationHeader
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errInvalidAuthorizationHeader
	}
	return token, nil
}
