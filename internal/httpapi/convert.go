package httpapi

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/types"
)

// ── Protobuf (google.protobuf.Struct) ────────────────────────────────────────

func gateRequestFromProto(p *structpb.Struct) types.GateRequest {
	f := p.GetFields()
	return types.GateRequest{
		Credential:     f["credential"].GetStringValue(),
		GateAccessCode: f["gate_access_code"].GetStringValue(),
		LicensePlate:   f["license_plate"].GetStringValue(),
	}
}

func gateAccessResponseToProto(r types.GateAccessResponse) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"access": structpb.NewStringValue(r.Access),
	}
	if r.Reason != "" {
		fields["reason"] = structpb.NewStringValue(r.Reason)
	}
	return &structpb.Struct{Fields: fields}
}

func plateIdentifyResponseToProto(r types.PlateIdentifyResponse) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"success": structpb.NewBoolValue(r.Success),
	}
	if r.TenantName != "" {
		fields["tenant_name"] = structpb.NewStringValue(r.TenantName)
	}
	if r.Reason != "" {
		fields["reason"] = structpb.NewStringValue(r.Reason)
	}
	return &structpb.Struct{Fields: fields}
}

func errorResponseToProto(r types.ErrorResponse) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"error":   structpb.NewStringValue(r.Error),
		"message": structpb.NewStringValue(r.Message),
	}}
}

// ── Admin views ──────────────────────────────────────────────────────────────

func tenantToResponse(t store.TenantRecord) types.TenantResponse {
	return types.TenantResponse{
		ID:             t.ID,
		FirstName:      t.FirstName,
		LastName:       t.LastName,
		Email:          t.Email,
		GateAccessCode: t.GateAccessCode,
		LicensePlate:   t.LicensePlate,
		CurrentBalance: t.CurrentBalance,
		IsLockedOut:    t.IsLockedOut,
		CreatedAt:      t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func accessLogToResponse(e store.AccessLogEntry) types.AccessLogResponse {
	return types.AccessLogResponse{
		ID:        e.ID,
		TenantID:  e.TenantID,
		Action:    string(e.Action),
		Channel:   string(e.Channel),
		Reason:    e.Reason,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
