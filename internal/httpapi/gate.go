package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/types"
)

func (s *Server) handleGateAccess(w http.ResponseWriter, r *http.Request) {
	s.handleGate(w, r, store.CredentialGateCode)
}

func (s *Server) handleGateIdentify(w http.ResponseWriter, r *http.Request) {
	s.handleGate(w, r, store.CredentialLicensePlate)
}

// handleGate serves both gate channels.  The body shape is shared; only the
// credential kind and the response shape differ.
func (s *Server) handleGate(w http.ResponseWriter, r *http.Request, kind store.CredentialKind) {
	useProto := isProtobuf(r)

	var (
		req types.GateRequest
		err error
	)
	if useProto {
		var msg structpb.Struct
		if err = readProto(w, r, &msg); err == nil {
			req = gateRequestFromProto(&msg)
		}
	} else {
		err = decodeJSON(w, r, &req)
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeGateError(w, useProto, http.StatusRequestEntityTooLarge, "body_too_large", "request body exceeds 4096 bytes")
		case useProto:
			s.writeGateError(w, true, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
		default:
			s.writeGateError(w, false, http.StatusBadRequest, "bad_json", "invalid JSON body")
		}
		return
	}

	v, err := s.accessService.Decide(r.Context(), kind, credentialFor(req, kind))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredential):
			s.writeGateError(w, useProto, http.StatusBadRequest, "invalid_credential", err.Error())
		case errors.Is(err, service.ErrCredentialTooLong):
			s.writeGateError(w, useProto, http.StatusBadRequest, "credential_too_long", err.Error())
		case errors.Is(err, service.ErrLookupFailed):
			s.writeGateError(w, useProto, http.StatusServiceUnavailable, "lookup_unavailable", "tenant lookup is temporarily unavailable")
		default:
			s.logger.Error("gate decision error",
				zap.String("channel", string(kind)),
				zap.String("request_id", requestIDFrom(r.Context())),
				zap.Error(err),
			)
			s.writeGateError(w, useProto, http.StatusInternalServerError, "internal_error", "unexpected server error")
		}
		return
	}

	status := http.StatusOK
	if !v.Granted() {
		status = http.StatusForbidden
	}

	if kind == store.CredentialLicensePlate {
		resp := types.PlateIdentifyResponse{Success: v.Granted()}
		if v.Granted() {
			resp.TenantName = v.TenantName
		} else {
			resp.Reason = v.Message()
		}
		if useProto {
			writeProto(w, status, plateIdentifyResponseToProto(resp))
			return
		}
		writeJSON(w, status, resp)
		return
	}

	resp := types.GateAccessResponse{Access: "granted"}
	if !v.Granted() {
		resp = types.GateAccessResponse{Access: "denied", Reason: v.Message()}
	}
	if useProto {
		writeProto(w, status, gateAccessResponseToProto(resp))
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeGateError(w http.ResponseWriter, useProto bool, status int, code, message string) {
	if useProto {
		writeProto(w, status, errorResponseToProto(types.ErrorResponse{Error: code, Message: message}))
		return
	}
	writeError(w, status, code, message)
}

// credentialFor prefers the generic field and falls back to the
// channel-specific one.
func credentialFor(req types.GateRequest, kind store.CredentialKind) string {
	if req.Credential != "" {
		return req.Credential
	}
	if kind == store.CredentialLicensePlate {
		return req.LicensePlate
	}
	return req.GateAccessCode
}
