// Package auth is the identity provider boundary: it verifies Firebase ID
// tokens, carries the caller's uid in the request context and signs users out.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/log"
)

// ErrUnauthenticated is returned when a request carries no valid identity.
var ErrUnauthenticated = errors.New("unauthenticated")

const userIDLogField = "userID"

const emailClaim = "email"

// Identity is the verified caller behind an ID token. Email is empty when the
// sign-in provider supplies none.
type Identity struct {
	UID   string
	Email string
}

// Verifier turns ID tokens into identities and revokes sessions.
type Verifier interface {
	Verify(ctx context.Context, idToken string) (Identity, error)
	Revoke(ctx context.Context, uid string) error
}

// Firebase verifies tokens with Firebase Auth. Revoked sessions are rejected.
type Firebase struct {
	client *auth.Client
}

func NewFirebase(client *auth.Client) *Firebase {
	return &Firebase{client: client}
}

func (f *Firebase) Verify(ctx context.Context, idToken string) (Identity, error) {
	token, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	email, _ := token.Claims[emailClaim].(string)
	return Identity{UID: token.UID, Email: email}, nil
}

func (f *Firebase) Revoke(ctx context.Context, uid string) error {
	return f.client.RevokeRefreshTokens(ctx, uid)
}

// Authenticate returns the identity behind the request's bearer token.
func Authenticate(req *http.Request, verifier Verifier) (Identity, error) {
	jwtToken, err := BearerTokenFromRequest(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	id, err := verifier.Verify(req.Context(), jwtToken)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return Identity{}, err
		}
		return Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	if id.UID == "" {
		return Identity{}, fmt.Errorf("%w: token carries no uid", ErrUnauthenticated)
	}
	return id, nil
}

// Middleware rejects unauthenticated requests with 401 and stores the identity
// of authenticated ones in the request context.
func Middleware(verifier Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.LoggerFromContext(ctx)

		id, err := Authenticate(r, verifier)
		if err != nil {
			logger.Error("error while authenticating", slog.String(log.ErrorMsgLogField, err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(contract.ErrorResponse{Error: ErrUnauthenticated.Error()})
			return
		}

		ctx = log.WithLogger(WithIdentity(ctx, id), logger.With(slog.String(userIDLogField, id.UID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type identityCtxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// CurrentIdentity returns the verified caller, or false outside an
// authenticated request.
func CurrentIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok && id.UID != ""
}

// CurrentUserUID returns the authenticated uid, or false outside an
// authenticated request.
func CurrentUserUID(ctx context.Context) (string, bool) {
	id, ok := CurrentIdentity(ctx)
	return id.UID, ok
}

// SignOut revokes every session of the current user.
func SignOut(ctx context.Context, verifier Verifier) error {
	uid, ok := CurrentUserUID(ctx)
	if !ok {
		return ErrUnauthenticated
	}
	if err := verifier.Revoke(ctx, uid); err != nil {
		return fmt.Errorf("error revoking tokens of %s: %w", uid, err)
	}
	log.LoggerFromContext(ctx).Info("user signed out")
	return nil
}
