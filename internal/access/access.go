// Package access decides whether a caller may read or modify an essay.
//
// Every decision takes the credential state of the request as two values:
// the verified identity (nil when absent or invalid) and the verification
// error (nil when no credential was presented or it verified). A nil
// identity with a nil error therefore means "no credential".
package access

import (
	"net/http"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	// RequireAuth means no credential was presented and one might still unlock access.
	RequireAuth
	// Forbidden means the presented credential is insufficient.
	Forbidden
	NotFound
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RequireAuth:
		return "require_auth"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Reason refines a non-Allow decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoCredential
	ReasonAuthFailed
	ReasonNotOwner
)

// Verdict is a decision with its reason.
type Verdict struct {
	Decision Decision
	Reason   Reason
}

// Allowed reports whether the verdict permits the operation.
func (v Verdict) Allowed() bool {
	return v.Decision == Allow
}

// HTTPStatus maps the verdict onto the status code the API answers with.
// A private essay requested without a token is a 403, while a token that
// fails verification is a 401.
func (v Verdict) HTTPStatus() int {
	switch v.Decision {
	case Allow:
		return http.StatusOK
	case NotFound:
		return http.StatusNotFound
	case RequireAuth:
		return http.StatusForbidden
	}
	if v.Reason == ReasonAuthFailed {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

var (
	allowed      = Verdict{Decision: Allow}
	notFound     = Verdict{Decision: NotFound}
	noCredential = Verdict{Decision: Forbidden, Reason: ReasonNoCredential}
	authFailed   = Verdict{Decision: Forbidden, Reason: ReasonAuthFailed}
	notOwner     = Verdict{Decision: Forbidden, Reason: ReasonNotOwner}
	needAuth     = Verdict{Decision: RequireAuth, Reason: ReasonNoCredential}
)

// RequireCredential is the bulk check applied before any store access on
// protected endpoints.
func RequireCredential(identity *user.Identity, credErr error) Verdict {
	switch {
	case credErr != nil:
		return authFailed
	case identity == nil:
		return needAuth
	}
	return allowed
}

// CanRead decides a single-essay read. A nil essay means it does not exist.
func CanRead(e *essay.Essay, identity *user.Identity, credErr error) Verdict {
	if e == nil {
		return notFound
	}
	if e.IsPublic {
		return allowed
	}
	if credErr != nil {
		return authFailed
	}
	if identity == nil {
		return noCredential
	}
	if !identity.Owns(e.UserID) {
		return notOwner
	}
	return allowed
}

// CanModify decides an update or delete given the stored owner of the
// essay. found is false when the essay does not exist. Essays without an
// owner can not be modified by anyone.
func CanModify(ownerID *int64, found bool, identity *user.Identity) Verdict {
	if identity == nil {
		return needAuth
	}
	if !found {
		return notFound
	}
	if !identity.Owns(ownerID) {
		return notOwner
	}
	return allowed
}
