// Package authenticator declares the credential middlewares the router needs.
package authenticator

import "net/http"

// Authenticator wraps handlers with credential checks.
type Authenticator interface {
	// Authenticate records the caller identity, or the reason its token was
	// rejected, without rejecting the request.
	Authenticate(h http.Handler) http.Handler

	// RequireIdentity rejects requests without a valid token.
	RequireIdentity(h http.Handler) http.Handler
}
