// Package grpc holds the gRPC server and health plumbing shared by services.
package grpc

import (
	"context"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/errors/i18n"
)

// NewServer builds a gRPC server with tracing and domain error mapping.
func NewServer(opts ...gogrpc.ServerOption) *gogrpc.Server {
	base := []gogrpc.ServerOption{
		gogrpc.StatsHandler(otelgrpc.NewServerHandler()),
		gogrpc.ChainUnaryInterceptor(UnaryErrorInterceptor()),
	}
	return gogrpc.NewServer(append(base, opts...)...)
}

// RegisterHealth registers a health server reporting SERVING for the
// overall server and for each named service.
func RegisterHealth(server *gogrpc.Server, services ...string) *health.Server {
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return healthServer
}

// UnaryErrorInterceptor converts domain errors returned by handlers into gRPC
// statuses. The localized reason follows the caller's accept-language
// metadata.
func UnaryErrorInterceptor() gogrpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *gogrpc.UnaryServerInfo, handler gogrpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		domainErr, ok := apperrors.As(err)
		if !ok {
			return resp, err
		}
		catalog := i18n.GetCatalog(incomingLocale(ctx))
		return resp, domainErr.ToGRPCStatus(catalog.Locale(), catalog.Format(string(domainErr.Code), domainErr.Metadata))
	}
}

func incomingLocale(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("accept-language")
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
