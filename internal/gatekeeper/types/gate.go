package types

// GateRequest is the body of both gate channels.  Credential is a gate code
// on /v1/gate/access and a license plate on /v1/gate/identify; the
// channel-specific field names are accepted too.
type GateRequest struct {
	Credential     string `json:"credential,omitempty"`
	GateAccessCode string `json:"gate_access_code,omitempty"`
	LicensePlate   string `json:"license_plate,omitempty"`
}

// GateAccessResponse is returned by the gate-code channel.
type GateAccessResponse struct {
	Access string `json:"access"` // "granted" | "denied"
	Reason string `json:"reason,omitempty"`
}

// PlateIdentifyResponse is returned by the license-plate channel.
type PlateIdentifyResponse struct {
	Success    bool   `json:"success"`
	TenantName string `json:"tenant_name,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	// RetryAfter is set on 429 responses, in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

type HealthResponse struct {
	Status     string `json:"status"` // "healthy" | "degraded"
	Store      string `json:"store"`
	ServerTime string `json:"server_time"`
}
