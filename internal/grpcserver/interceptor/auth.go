package interceptor

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/essayshare/internal/access"
	"github.com/patric-chuzhbe/essayshare/internal/auth"
	"github.com/patric-chuzhbe/essayshare/internal/logger"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// AuthorizationKey is the metadata key carrying "Bearer <token>".
const AuthorizationKey = "authorization"

type verifier interface {
	Verify(rawHeaderValue string) (*user.Identity, error)
}

type AuthInterceptor struct {
	verifier verifier
}

func NewAuthInterceptor(verifier verifier) *AuthInterceptor {
	return &AuthInterceptor{verifier: verifier}
}

// UnaryAuthInterceptor verifies the authorization metadata of every call.
// For requiredMethods a missing token is PermissionDenied and a bad one is
// Unauthenticated. Other methods always run with the identity, or the
// verification error, stored in the context.
func (a *AuthInterceptor) UnaryAuthInterceptor(requiredMethods []string) grpc.UnaryServerInterceptor {
	required := methodSet(requiredMethods)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		var rawValue string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if values := md.Get(AuthorizationKey); len(values) > 0 {
				rawValue = values[0]
			}
		}

		identity, err := a.verifier.Verify(rawValue)
		var credErr error
		if err != nil && !errors.Is(err, auth.ErrMissingCredential) {
			logger.Log.Debugln("Error calling the `a.verifier.Verify()`: ", zap.Error(err))
			credErr = err
		}

		if _, ok := required[info.FullMethod]; ok {
			verdict := access.RequireCredential(identity, credErr)
			if !verdict.Allowed() {
				code := codes.PermissionDenied
				if verdict.Reason == access.ReasonAuthFailed {
					code = codes.Unauthenticated
				}
				return nil, status.Error(code, err.Error())
			}
		}

		if identity != nil {
			ctx = context.WithValue(ctx, auth.IdentityKey, identity)
		}
		if credErr != nil {
			ctx = context.WithValue(ctx, auth.CredentialErrorKey, credErr)
		}

		return handler(ctx, req)
	}
}
