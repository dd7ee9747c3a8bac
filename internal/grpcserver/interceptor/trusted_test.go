package interceptor

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/essayshare/internal/ipchecker"
)

type pipeAddr struct{}

func (pipeAddr) Network() string { return "pipe" }
func (pipeAddr) String() string  { return "pipe" }

func TestUnaryTrustedSubnetInterceptor(t *testing.T) {
	checker, err := ipchecker.New("10.0.0.0/8")
	require.NoError(t, err)

	const method = "/essays.EssayService/GetInternalStats"
	intercept := UnaryTrustedSubnetInterceptor(checker, []string{method})
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}

	tcp := func(ip string) net.Addr {
		return &net.TCPAddr{IP: net.ParseIP(ip), Port: 5555}
	}

	tests := []struct {
		name    string
		addr    net.Addr
		realIP  string
		allowed bool
	}{
		{name: "trusted peer", addr: tcp("10.0.0.5"), allowed: true},
		{name: "untrusted peer", addr: tcp("203.0.113.9")},
		{name: "forged metadata from untrusted peer", addr: tcp("203.0.113.9"), realIP: "10.0.0.5"},
		{name: "loopback proxy forwards trusted client", addr: tcp("127.0.0.1"), realIP: "10.0.0.5", allowed: true},
		{name: "loopback proxy forwards untrusted client", addr: tcp("127.0.0.1"), realIP: "192.168.1.1"},
		{name: "in-process pipe forwards trusted client", addr: pipeAddr{}, realIP: "10.0.0.5", allowed: true},
		{name: "in-process pipe without metadata", addr: pipeAddr{}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: test.addr})
			if test.realIP != "" {
				ctx = metadata.NewIncomingContext(ctx, metadata.Pairs(RealIPKey, test.realIP))
			}

			resp, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, handler)
			if test.allowed {
				require.NoError(t, err)
				assert.Equal(t, "ok", resp)
				return
			}
			assert.Equal(t, codes.PermissionDenied, status.Code(err))
		})
	}

	t.Run("unprotected method passes", func(t *testing.T) {
		ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: tcp("203.0.113.9")})
		resp, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/essays.EssayService/Ping"}, handler)
		require.NoError(t, err)
		assert.Equal(t, "ok", resp)
	})
}
