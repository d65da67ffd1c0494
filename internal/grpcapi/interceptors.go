package grpcapi

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
	"github.com/IsThatLegal/summit-os-sub000/internal/ratelimit"
)

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Info("grpc request",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
			zap.String("peer", peerKey(ctx)),
		)
		return resp, err
	}
}

// rateLimitInterceptor applies lim per peer address.  Limiter errors let
// the call through.
func rateLimitInterceptor(lim ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		res, err := lim.Allow(ctx, peerKey(ctx))
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			return handler(ctx, req)
		}
		if !res.Allowed {
			m.IncrementRateLimited("grpc")
			retry := res.RetryAfter(time.Now())
			_ = grpc.SetHeader(ctx, metadata.Pairs("retry-after", strconv.Itoa(int(retry.Seconds()))))
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded, retry in %s", retry)
		}
		return handler(ctx, req)
	}
}

func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "peer:unknown"
	}
	return "peer:" + ratelimit.HostOnly(p.Addr.String())
}
