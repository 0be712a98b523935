package grpc

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/sirupsen/logrus"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type accountIDKey struct{}

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*service.Claims, error)
}

// BearerAuthUnaryInterceptor requires a valid access token in the
// "authorization" metadata for the listed full method names.
func BearerAuthUnaryInterceptor(tokens accessTokenValidator, protected ...string) gogrpc.UnaryServerInterceptor {
	required := make(map[string]struct{}, len(protected))
	for _, method := range protected {
		required[method] = struct{}{}
	}

	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		if _, ok := required[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		tokenString, ok := middleware.BearerToken(incomingAuthorization(ctx))
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "Authentication credentials were not provided.")
		}
		claims, err := tokens.ValidateAccessToken(tokenString)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "Given token not valid for any token type")
		}

		return handler(context.WithValue(ctx, accountIDKey{}, claims.UserID), req)
	}
}

// AccountIDFromContext returns the account id stored by BearerAuthUnaryInterceptor.
func AccountIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(accountIDKey{}).(uint64)
	return id, ok
}

// ObservabilityUnaryInterceptor logs each call and counts it by status code.
func ObservabilityUnaryInterceptor() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		metrics.GRPCRequestsTotal.WithLabelValues(info.FullMethod, code.String()).Inc()
		entry := logrus.WithFields(logrus.Fields{
			"method":  info.FullMethod,
			"code":    code.String(),
			"latency": time.Since(start).String(),
		})
		if err != nil && code == codes.Internal {
			entry = entry.WithError(err)
		}
		entry.Info("grpc_request")

		return resp, err
	}
}

func incomingAuthorization(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
