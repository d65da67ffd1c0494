package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Decision is the client-side view of a GateAccess response.
type Decision struct {
	Granted    bool
	Outcome    string
	ReasonCode string
	Reason     string
	TenantName string
}

// Client calls GateAccess on an existing connection.  Gate controllers and
// tests use it; the server never does.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) CheckGateCode(ctx context.Context, code string, opts ...grpc.CallOption) (Decision, error) {
	return c.invoke(ctx, CheckGateCodeMethod, code, opts...)
}

func (c *Client) IdentifyPlate(ctx context.Context, plate string, opts ...grpc.CallOption) (Decision, error) {
	return c.invoke(ctx, IdentifyPlateMethod, plate, opts...)
}

func (c *Client) invoke(ctx context.Context, method, credential string, opts ...grpc.CallOption) (Decision, error) {
	in := &structpb.Struct{Fields: map[string]*structpb.Value{
		"credential": structpb.NewStringValue(credential),
	}}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, method, in, out, opts...); err != nil {
		return Decision{}, err
	}

	f := out.GetFields()
	return Decision{
		Granted:    f["granted"].GetBoolValue(),
		Outcome:    f["outcome"].GetStringValue(),
		ReasonCode: f["reason_code"].GetStringValue(),
		Reason:     f["reason"].GetStringValue(),
		TenantName: f["tenant_name"].GetStringValue(),
	}, nil
}
