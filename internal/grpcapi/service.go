// Package grpcapi exposes the gate decision to gate controllers over gRPC.
//
// Messages are google.protobuf.Struct so controllers need no generated
// stubs; the service descriptor below is written out by hand.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName         = "gatekeeper.v1.GateAccess"
	CheckGateCodeMethod = "/" + ServiceName + "/CheckGateCode"
	IdentifyPlateMethod = "/" + ServiceName + "/IdentifyPlate"
)

// GateAccessServer is the server API for gatekeeper.v1.GateAccess.
type GateAccessServer interface {
	CheckGateCode(context.Context, *structpb.Struct) (*structpb.Struct, error)
	IdentifyPlate(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GateAccessServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CheckGateCode", Handler: unaryHandler(CheckGateCodeMethod, GateAccessServer.CheckGateCode)},
		{MethodName: "IdentifyPlate", Handler: unaryHandler(IdentifyPlateMethod, GateAccessServer.IdentifyPlate)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gatekeeper/v1/gate_access.proto",
}

func RegisterGateAccessServer(s grpc.ServiceRegistrar, srv GateAccessServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(GateAccessServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GateAccessServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GateAccessServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
