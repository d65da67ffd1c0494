package types

type CreateTenantRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	GateAccessCode string `json:"gate_access_code,omitempty"`
	LicensePlate   string `json:"license_plate,omitempty"`
	CurrentBalance int64  `json:"current_balance,omitempty"`
	IsLockedOut    bool   `json:"is_locked_out,omitempty"`
}

type AmountRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type TenantResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name,omitempty"`
	Email          string `json:"email,omitempty"`
	GateAccessCode string `json:"gate_access_code,omitempty"`
	LicensePlate   string `json:"license_plate,omitempty"`
	CurrentBalance int64  `json:"current_balance"`
	IsLockedOut    bool   `json:"is_locked_out"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type AccessLogResponse struct {
	ID        string  `json:"id"`
	TenantID  *string `json:"tenant_id"`
	Action    string  `json:"action"`
	Channel   string  `json:"channel"`
	Reason    string  `json:"reason,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type AccessLogListResponse struct {
	Entries []AccessLogResponse `json:"entries"`
	Count   int                 `json:"count"`
}
