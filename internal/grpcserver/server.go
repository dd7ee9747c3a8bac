// Package grpcserver exposes the essay use cases over gRPC. Every request
// and reply is a google.protobuf.Struct holding the matching HTTP API body,
// as declared in api/proto/essays.proto, so the default proto codec and
// standard tooling work without generated messages.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/essayshare/internal/grpcserver/interceptor"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

type verifier interface {
	Verify(rawHeaderValue string) (*user.Identity, error)
}

type ipChecker interface {
	Check(clientIP net.IP) bool
	IsTrustedSubnetEmpty() bool
	TrustsProxy(peer net.IP) bool
}

// NewServer builds a gRPC server with logging, trusted subnet and auth
// interceptors and the essay service registered.
func NewServer(handler EssayServiceServer, verifier verifier, checker ipChecker) *grpc.Server {
	authInterceptor := interceptor.NewAuthInterceptor(verifier)

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor(),
			interceptor.UnaryTrustedSubnetInterceptor(checker, []string{
				MethodGetInternalStats,
			}),
			authInterceptor.UnaryAuthInterceptor([]string{
				MethodCreateEssay,
				MethodUpdateEssay,
				MethodDeleteEssay,
			}),
		),
	)
	RegisterEssayServiceServer(server, handler)

	return server
}

