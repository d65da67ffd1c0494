package grpcapi

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
	"github.com/IsThatLegal/summit-os-sub000/internal/ratelimit"
)

type Dependencies struct {
	Logger        *zap.Logger
	AccessService *service.AccessService
	// Limiter is keyed on the peer address.  Nil disables rate limiting.
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
}

// Server adapts AccessService to the GateAccess service.
type Server struct {
	access *service.AccessService
	logger *zap.Logger
}

// NewServer builds a grpc.Server with the GateAccess service and its
// interceptors registered.
func NewServer(d Dependencies) *grpc.Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	interceptors := []grpc.UnaryServerInterceptor{loggingInterceptor(logger)}
	if d.Limiter != nil {
		interceptors = append(interceptors, rateLimitInterceptor(d.Limiter, d.Metrics, logger))
	}

	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	RegisterGateAccessServer(gs, &Server{access: d.AccessService, logger: logger})
	return gs
}

func (s *Server) CheckGateCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.decide(ctx, store.CredentialGateCode, req)
}

func (s *Server) IdentifyPlate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.decide(ctx, store.CredentialLicensePlate, req)
}

// decide runs the shared decision path.  Every outcome, not found included,
// is a normal response; only request and infrastructure problems are errors.
func (s *Server) decide(ctx context.Context, kind store.CredentialKind, req *structpb.Struct) (*structpb.Struct, error) {
	credential := req.GetFields()["credential"].GetStringValue()

	v, err := s.access.Decide(ctx, kind, credential)
	if err != nil {
		return nil, s.mapError(err)
	}

	fields := map[string]*structpb.Value{
		"granted":     structpb.NewBoolValue(v.Granted()),
		"outcome":     structpb.NewStringValue(string(v.Outcome)),
		"reason_code": structpb.NewStringValue(string(v.Reason)),
		"reason":      structpb.NewStringValue(v.Message()),
	}
	if v.Granted() && kind == store.CredentialLicensePlate {
		fields["tenant_name"] = structpb.NewStringValue(v.TenantName)
	}
	return &structpb.Struct{Fields: fields}, nil
}

func (s *Server) mapError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredential),
		errors.Is(err, service.ErrCredentialTooLong),
		errors.Is(err, service.ErrUnsupportedCredentialKind):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrLookupFailed):
		return status.Error(codes.Unavailable, "tenant lookup is temporarily unavailable")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("grpc gate decision error", zap.Error(err))
		return status.Error(codes.Internal, "unexpected server error")
	}
}
