package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier struct {
	tokens  map[string]Identity
	revoked []string
	fail    error
}

func (s *stubVerifier) Verify(_ context.Context, idToken string) (Identity, error) {
	id, ok := s.tokens[idToken]
	if !ok {
		return Identity{}, errors.New("bad token")
	}
	return id, nil
}

func (s *stubVerifier) Revoke(_ context.Context, uid string) error {
	if s.fail != nil {
		return s.fail
	}
	s.revoked = append(s.revoked, uid)
	return nil
}

func TestMiddleware(t *testing.T) {
	verifier := &stubVerifier{tokens: map[string]Identity{
		"good":    {UID: "alice", Email: "alice@uconnect.app"},
		"noemail": {UID: "bob"},
		"nouid":   {Email: "ghost@uconnect.app"},
	}}
	var seen Identity
	handler := Middleware(verifier, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentIdentity(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name          string
		authorization string
		expectedCode  int
		expected      Identity
	}{
		{name: "valid", authorization: "Bearer good", expectedCode: http.StatusNoContent, expected: Identity{UID: "alice", Email: "alice@uconnect.app"}},
		{name: "no email claim", authorization: "Bearer noemail", expectedCode: http.StatusNoContent, expected: Identity{UID: "bob"}},
		{name: "no uid", authorization: "Bearer nouid", expectedCode: http.StatusUnauthorized},
		{name: "unknown token", authorization: "Bearer bad", expectedCode: http.StatusUnauthorized},
		{name: "no header", authorization: "", expectedCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Identity{}
			req := httptest.NewRequest(http.MethodGet, "/previews", nil)
			if tt.authorization != "" {
				req.Header.Set(authorizationHeader, tt.authorization)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.Equal(t, tt.expected, seen)
			if tt.expectedCode == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"unauthenticated"}`, rec.Body.String())
			}
		})
	}
}

func TestAuthenticateWrapsErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := Authenticate(req, &stubVerifier{})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.ErrorIs(t, err, errMissingAuthorizationHeader)
}

func TestSignOut(t *testing.T) {
	verifier := &stubVerifier{}

	err := SignOut(context.Background(), verifier)
	require.ErrorIs(t, err, ErrUnauthenticated)

	ctx := WithIdentity(context.Background(), Identity{UID: "alice"})
	require.NoError(t, SignOut(ctx, verifier))
	assert.Equal(t, []string{"alice"}, verifier.revoked)

	verifier.fail = errors.New("quota")
	require.Error(t, SignOut(ctx, verifier))
}

func TestCurrentUserUID(t *testing.T) {
	_, ok := CurrentUserUID(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UID: "bob", Email: "bob@uconnect.app"})
	uid, ok := CurrentUserUID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "bob", uid)

	id, ok := CurrentIdentity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "bob@uconnect.app", id.Email)
}
