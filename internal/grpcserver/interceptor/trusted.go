package interceptor

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RealIPKey is the metadata key a proxy sets to the original client address.
const RealIPKey = "x-real-ip"

type ipChecker interface {
	Check(clientIP net.IP) bool
	IsTrustedSubnetEmpty() bool
	TrustsProxy(peer net.IP) bool
}

// UnaryTrustedSubnetInterceptor lets protectedMethods through only for
// clients inside the trusted subnet. The client address is the connection
// peer, replaced by x-real-ip metadata when the peer is a trusted proxy.
func UnaryTrustedSubnetInterceptor(checker ipChecker, protectedMethods []string) grpc.UnaryServerInterceptor {
	protected := methodSet(protectedMethods)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if _, ok := protected[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		if checker.IsTrustedSubnetEmpty() || !checker.Check(clientIP(ctx, checker)) {
			return nil, status.Error(codes.PermissionDenied, "access denied")
		}

		return handler(ctx, req)
	}
}

func clientIP(ctx context.Context, checker ipChecker) net.IP {
	peerIP, local := peerAddress(ctx)
	if !local && !checker.TrustsProxy(peerIP) {
		return peerIP
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(RealIPKey); len(values) > 0 {
			return net.ParseIP(values[0])
		}
	}
	return peerIP
}

// peerAddress returns the IP of the connection peer. local is set for
// transports without an IP address, such as unix sockets and in-process pipes.
func peerAddress(ctx context.Context) (ip net.IP, local bool) {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return nil, false
	}

	switch addr := p.Addr.(type) {
	case *net.TCPAddr:
		return addr.IP, false
	case *net.UnixAddr:
		return nil, true
	}

	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return nil, true
	}
	return net.ParseIP(host), false
}
