// Package auth issues and verifies bearer tokens and provides middleware
// that extracts the caller identity from the Authorization header.
// Identity comes from the token alone, there is no store lookup and no revocation.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/essayshare/internal/access"
	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 24 * time.Hour

const bearerScheme = "Bearer"

var (
	// ErrMissingCredential is returned when the Authorization header is empty.
	ErrMissingCredential = errors.New("no token provided")

	// ErrMalformedCredential is returned when the header is not "Bearer <token>".
	ErrMalformedCredential = errors.New("invalid token format")

	// ErrInvalidOrExpiredCredential is returned when the signature does not
	// match the configured secret or the token has expired.
	ErrInvalidOrExpiredCredential = errors.New("invalid or expired token")
)

// Claims represents the JWT claims used by the system.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id"`
	Username string `json:"username"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

const (
	// IdentityKey holds the *user.Identity of a verified request.
	IdentityKey ContextKey = "identity"

	// CredentialErrorKey holds the verification error of a presented but rejected token.
	CredentialErrorKey ContextKey = "credentialError"
)

// Verifier signs tokens and verifies Authorization header values.
type Verifier struct {
	// secret is the process-wide HMAC key.
	secret []byte

	// ttl is the validity window of issued tokens.
	ttl time.Duration

	now func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock replaces the time source, used to simulate token expiry.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a Verifier signing with secret. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewVerifier(secret []byte, ttl time.Duration, opts ...Option) *Verifier {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	v := &Verifier{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Issue builds a signed token for usr valid for the configured ttl.
func (v *Verifier) Issue(usr *user.User) (string, error) {
	now := v.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
		UserID:   usr.ID,
		Username: usr.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("in internal/auth/auth.go/Issue(): error while `token.SignedString()` calling: %w", err)
	}

	return tokenString, nil
}

// Verify extracts the identity from an Authorization header value.
func (v *Verifier) Verify(rawHeaderValue string) (*user.Identity, error) {
	if rawHeaderValue == "" {
		return nil, ErrMissingCredential
	}

	parts := strings.Split(rawHeaderValue, " ")
	if len(parts) != 2 || parts[0] != bearerScheme {
		return nil, ErrMalformedCredential
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		parts[1],
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidOrExpiredCredential
	}

	if !claims.VerifyExpiresAt(v.now(), true) {
		return nil, ErrInvalidOrExpiredCredential
	}

	return &user.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// Authenticate is the optional-credential middleware. It never rejects a
// request: a verified identity, or the error of a presented but rejected
// token, is stored in the request context for the handler to decide.
func (v *Verifier) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		identity, err := v.Verify(request.Header.Get("Authorization"))
		ctx := request.Context()
		switch {
		case err == nil:
			ctx = context.WithValue(ctx, IdentityKey, identity)
		case !errors.Is(err, ErrMissingCredential):
			logger.Log.Debugln("Error calling the `v.Verify()`: ", zap.Error(err))
			ctx = context.WithValue(ctx, CredentialErrorKey, err)
		}

		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireIdentity is the required-credential middleware. Requests without
// a token get 403, requests with a malformed, invalid or expired token get 401.
func (v *Verifier) RequireIdentity(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		identity, err := v.Verify(request.Header.Get("Authorization"))

		var credErr error
		if err != nil && !errors.Is(err, ErrMissingCredential) {
			credErr = err
		}

		verdict := access.RequireCredential(identity, credErr)
		if !verdict.Allowed() {
			logger.Log.Debugln("Rejected request without a valid credential: ", zap.Error(err))
			writeError(response, verdict.HTTPStatus(), err.Error())
			return
		}

		ctx := context.WithValue(request.Context(), IdentityKey, identity)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// IdentityFromContext returns the identity stored by the middlewares, or nil.
func IdentityFromContext(ctx context.Context) *user.Identity {
	identity, _ := ctx.Value(IdentityKey).(*user.Identity)
	return identity
}

// CredentialErrorFromContext returns the verification error of a rejected token, or nil.
func CredentialErrorFromContext(ctx context.Context) error {
	err, _ := ctx.Value(CredentialErrorKey).(error)
	return err
}

func writeError(response http.ResponseWriter, status int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	err := json.NewEncoder(response).Encode(map[string]string{"error": message})
	if err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}
