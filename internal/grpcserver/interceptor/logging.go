// Package interceptor holds the unary interceptors of the gRPC server.
package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/essayshare/internal/logger"
)

func methodSet(methods []string) map[string]struct{} {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

// UnaryLoggingInterceptor logs method, duration and status code of each call.
func UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		resp, err = handler(ctx, req)

		st, _ := status.FromError(err)
		logger.Log.Infoln(
			"gRPC request",
			"method", info.FullMethod,
			"duration", time.Since(start),
			"code", st.Code().String(),
			"message", st.Message(),
		)

		return resp, err
	}
}
