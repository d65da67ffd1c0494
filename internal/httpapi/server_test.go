package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store/memory"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/types"
	"github.com/IsThatLegal/summit-os-sub000/internal/httpapi"
	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
	"github.com/IsThatLegal/summit-os-sub000/internal/ratelimit"
)

const adminToken = "test-admin-token"

const (
	tenantPaid   = "0b5f3c2e-8a41-4c6d-9f0e-1a2b3c4d5e01"
	tenantOwing  = "0b5f3c2e-8a41-4c6d-9f0e-1a2b3c4d5e02"
	tenantLocked = "0b5f3c2e-8a41-4c6d-9f0e-1a2b3c4d5e03"
)

type testEnv struct {
	ts       *httptest.Server
	tenants  *memory.TenantStore
	logs     *memory.AccessLogStore
	metrics  *metrics.Metrics
	registry *prometheus.Registry
}

type envOption func(*httpapi.Dependencies)

func withLimiter(l ratelimit.Limiter) envOption {
	return func(d *httpapi.Dependencies) { d.Limiter = l }
}

func withHealth(p store.Pinger) envOption {
	return func(d *httpapi.Dependencies) { d.Health = p }
}

func withTenantStore(ts store.TenantStore) envOption {
	return func(d *httpapi.Dependencies) {
		d.AccessService = service.NewAccessService(ts, d.AccessLogs, service.AccessConfig{Metrics: d.Metrics})
	}
}

// newTestEnv wires the full dependency graph on in-memory stores, seeded with
// one paid-up, one owing and one locked tenant.
func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	tenants := memory.NewTenantStore(
		store.TenantRecord{ID: tenantPaid, FirstName: "Dana", GateAccessCode: "ABC123", LicensePlate: "PAID001"},
		store.TenantRecord{ID: tenantOwing, FirstName: "Owen", GateAccessCode: "XYZ999", LicensePlate: "OWE7500", CurrentBalance: 7500},
		store.TenantRecord{ID: tenantLocked, FirstName: "Lee", GateAccessCode: "LOCKED1", LicensePlate: "LOCK001", IsLockedOut: true},
	)
	logs := memory.NewAccessLogStore()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	logger := zaptest.NewLogger(t)

	d := httpapi.Dependencies{
		Logger:        logger,
		Addr:          ":0",
		AccessService: service.NewAccessService(tenants, logs, service.AccessConfig{Logger: logger, Metrics: m}),
		TenantService: service.NewTenantService(tenants, logger),
		AccessLogs:    logs,
		Metrics:       m,
		Gatherer:      reg,
		AdminToken:    adminToken,
	}
	for _, opt := range opts {
		opt(&d)
	}

	ts := httptest.NewServer(httpapi.NewServer(d).Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, tenants: tenants, logs: logs, metrics: m, registry: reg}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// ── Gate code channel ────────────────────────────────────────────────────────

func TestGateAccess_PaidTenant_Granted(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.GateAccessResponse](t, resp)
	assert.Equal(t, "granted", body.Access)
	assert.Empty(t, body.Reason)

	entries := env.logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.ActionEntryGranted, entries[0].Action)
	require.NotNil(t, entries[0].TenantID)
	assert.Equal(t, tenantPaid, *entries[0].TenantID)
}

func TestGateAccess_OutstandingBalance_Denied(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"XYZ999"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decode[types.GateAccessResponse](t, resp)
	assert.Equal(t, "denied", body.Access)
	assert.Equal(t, "Access denied due to outstanding balance of $75.00.", body.Reason)
}

func TestGateAccess_Locked_Denied(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"LOCKED1"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decode[types.GateAccessResponse](t, resp)
	assert.Equal(t, "Account locked. Please contact management.", body.Reason)
}

func TestGateAccess_UnknownCode_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"NOPE"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decode[types.GateAccessResponse](t, resp)
	assert.Equal(t, "denied", body.Access)
	assert.Equal(t, "Invalid access code.", body.Reason)

	entries := env.logs.Entries()
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].TenantID)
	assert.Equal(t, store.ActionEntryDenied, entries[0].Action)
	assert.Equal(t, string(service.ReasonUnknownCredential), entries[0].Reason)
}

func TestGateAccess_ChannelFieldName(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"gate_access_code":"ABC123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, env.ts.URL+"/v1/gate/identify", `{"license_plate":"PAID001"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGateAccess_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"bad json", `{"credential":`, "bad_json"},
		{"unknown field", `{"credential":"ABC123","extra":1}`, "bad_json"},
		{"empty credential", `{"credential":"   "}`, "invalid_credential"},
		{"too long", `{"credential":"` + strings.Repeat("A", 51) + `"}`, "credential_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/v1/gate/access", tc.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tc.code, decode[types.ErrorResponse](t, resp).Error)
		})
	}
	assert.Empty(t, env.logs.Entries(), "validation failures must not be logged")
}

func TestGateAccess_LookupOutage_ServiceUnavailable(t *testing.T) {
	env := newTestEnv(t, withTenantStore(outageStore{}))

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "lookup_unavailable", decode[types.ErrorResponse](t, resp).Error)
	assert.Empty(t, env.logs.Entries())
}

func TestGateAccess_Protobuf_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	reqMsg, err := structpb.NewStruct(map[string]any{"credential": "XYZ999"})
	require.NoError(t, err)
	data, err := proto.Marshal(reqMsg)
	require.NoError(t, err)

	resp, err := http.Post(env.ts.URL+"/v1/gate/access", "application/x-protobuf", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &out))
	assert.Equal(t, "denied", out.GetFields()["access"].GetStringValue())
	assert.Contains(t, out.GetFields()["reason"].GetStringValue(), "$75.00")
}

func TestGateAccess_OversizedBody_TooLarge(t *testing.T) {
	env := newTestEnv(t)
	big := strings.Repeat("A", 5000)

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"`+big+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "body_too_large", decode[types.ErrorResponse](t, resp).Error)

	// A credential past the cap must not be decoded from a truncated prefix.
	msg, err := structpb.NewStruct(map[string]any{"credential": "ABC123", "padding": big})
	require.NoError(t, err)
	data, err := proto.Marshal(msg)
	require.NoError(t, err)

	presp, err := http.Post(env.ts.URL+"/v1/gate/access", "application/x-protobuf", bytes.NewReader(data))
	require.NoError(t, err)
	defer presp.Body.Close()
	require.Equal(t, http.StatusRequestEntityTooLarge, presp.StatusCode)

	raw, err := io.ReadAll(presp.Body)
	require.NoError(t, err)
	var out structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &out))
	assert.Equal(t, "body_too_large", out.GetFields()["error"].GetStringValue())

	assert.Empty(t, env.logs.Entries())
}

// ── License plate channel ────────────────────────────────────────────────────

func TestGateIdentify_PaidTenant_ReturnsName(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/identify", `{"credential":"PAID001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[types.PlateIdentifyResponse](t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, "Dana", body.TenantName)

	entries := env.logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, store.CredentialLicensePlate, entries[0].Channel)
}

func TestGateIdentify_UnknownPlate_Forbidden(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/identify", `{"credential":"ZZZ000"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decode[types.PlateIdentifyResponse](t, resp)
	assert.False(t, body.Success)
	assert.Empty(t, body.TenantName)
	assert.Equal(t, "License plate not recognized.", body.Reason)
}

func TestGateIdentify_Locked_NoName(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/v1/gate/identify", `{"credential":"LOCK001"}`)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decode[types.PlateIdentifyResponse](t, resp)
	assert.False(t, body.Success)
	assert.Empty(t, body.TenantName)
	assert.Equal(t, "Account locked. Please contact management.", body.Reason)
}

// ── Rate limiting ────────────────────────────────────────────────────────────

func TestGate_RateLimited(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter(ratelimit.Policy{Limit: 2, Window: time.Minute})
	env := newTestEnv(t, withLimiter(lim))

	for i := 0; i < 2; i++ {
		resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "2", resp.Header.Get("X-RateLimit-Limit"))
	}

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	body := decode[types.ErrorResponse](t, resp)
	assert.Equal(t, "rate_limited", body.Error)
	assert.Positive(t, body.RetryAfter)

	assert.Len(t, env.logs.Entries(), 2, "rejected requests never reach the engine")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimited.WithLabelValues("http")))
}

func TestGate_RateLimited_RotatingHeadersShareBudget(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter(ratelimit.Policy{Limit: 2, Window: time.Minute})
	env := newTestEnv(t, withLimiter(lim))

	send := func(i int) *http.Response {
		req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/gate/access", strings.NewReader(`{"credential":"ABC123"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer forged-token-"+strconv.Itoa(i)+"-abcdefghijklmnop")
		req.Header.Set("X-Forwarded-For", "10.0.0."+strconv.Itoa(i))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	require.Equal(t, http.StatusOK, send(1).StatusCode)
	require.Equal(t, http.StatusOK, send(2).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, send(3).StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, send(4).StatusCode)
}

func TestGate_RateLimited_TrustedProxyKeysOnForwardedClient(t *testing.T) {
	lim := ratelimit.NewMemoryLimiter(ratelimit.Policy{Limit: 1, Window: time.Minute})
	trusted, err := ratelimit.ParseTrustedProxies([]string{"127.0.0.1", "::1"})
	require.NoError(t, err)
	env := newTestEnv(t, withLimiter(lim), func(d *httpapi.Dependencies) {
		d.ClientKey = ratelimit.ForwardedKey(trusted)
	})

	send := func(client string) int {
		req, err := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/gate/access", strings.NewReader(`{"credential":"ABC123"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", client)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.10"))
	assert.Equal(t, http.StatusOK, send("203.0.113.11"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.10"))
}

func TestGate_RateLimiterError_FailsOpen(t *testing.T) {
	env := newTestEnv(t, withLimiter(brokenLimiter{}))

	resp := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ── Admin API ────────────────────────────────────────────────────────────────

func adminDo(t *testing.T, env *testEnv, method, path, body string) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, env.ts.URL+"/v1/admin"+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAdmin_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/v1/admin/tenants/" + tenantPaid)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_CreateTenant_WithBalance_StartsLocked(t *testing.T) {
	env := newTestEnv(t)

	resp := adminDo(t, env, http.MethodPost, "/tenants",
		`{"first_name":"Mia","gate_access_code":"NEW001","current_balance":1200}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[types.TenantResponse](t, resp)
	assert.NotEmpty(t, body.ID)
	assert.True(t, body.IsLockedOut)
	assert.Equal(t, int64(1200), body.CurrentBalance)
}

func TestAdmin_CreateTenant_DuplicateCode_Conflict(t *testing.T) {
	env := newTestEnv(t)

	resp := adminDo(t, env, http.MethodPost, "/tenants", `{"first_name":"Dup","gate_access_code":"ABC123"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdmin_GetTenant_NotFound(t *testing.T) {
	env := newTestEnv(t)

	resp := adminDo(t, env, http.MethodGet, "/tenants/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdmin_MalformedTenantID_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/tenants/not-a-uuid", "/tenants/t-paid/lock", "/tenants/t-paid/unlock"} {
		method := http.MethodPost
		if path == "/tenants/not-a-uuid" {
			method = http.MethodGet
		}
		resp := adminDo(t, env, method, path, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := adminDo(t, env, http.MethodPost, "/tenants/t-paid/charges", `{"amount_cents":100}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = adminDo(t, env, http.MethodPost, "/tenants/t-paid/payments", `{"amount_cents":100}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdmin_PaymentClearsBalance_UnlocksGate(t *testing.T) {
	env := newTestEnv(t)

	// Billing lock: charging a paid-up tenant locks them.
	resp := adminDo(t, env, http.MethodPost, "/tenants/"+tenantPaid+"/charges", `{"amount_cents":5000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[types.TenantResponse](t, resp).IsLockedOut)

	gate := postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	require.Equal(t, http.StatusForbidden, gate.StatusCode)

	resp = adminDo(t, env, http.MethodPost, "/tenants/"+tenantPaid+"/payments", `{"amount_cents":5000}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[types.TenantResponse](t, resp)
	assert.False(t, after.IsLockedOut)
	assert.Zero(t, after.CurrentBalance)

	gate = postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	assert.Equal(t, http.StatusOK, gate.StatusCode)
}

func TestAdmin_LockUnlock(t *testing.T) {
	env := newTestEnv(t)

	resp := adminDo(t, env, http.MethodPost, "/tenants/"+tenantPaid+"/lock", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[types.TenantResponse](t, resp).IsLockedOut)

	resp = adminDo(t, env, http.MethodPost, "/tenants/"+tenantPaid+"/unlock", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[types.TenantResponse](t, resp).IsLockedOut)
}

func TestAdmin_Charge_NonPositiveAmount(t *testing.T) {
	env := newTestEnv(t)

	resp := adminDo(t, env, http.MethodPost, "/tenants/"+tenantPaid+"/charges", `{"amount_cents":0}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_amount", decode[types.ErrorResponse](t, resp).Error)
}

func TestAdmin_ListAccessLogs_Filters(t *testing.T) {
	env := newTestEnv(t)

	postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)
	postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"XYZ999"}`)
	postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"NOPE"}`)

	resp := adminDo(t, env, http.MethodGet, "/access-logs?action=entry_denied", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[types.AccessLogListResponse](t, resp)
	assert.Equal(t, 2, body.Count)
	// Newest first: the unknown credential was the last attempt.
	assert.Nil(t, body.Entries[0].TenantID)

	resp = adminDo(t, env, http.MethodGet, "/access-logs?tenant_id="+tenantPaid+"&limit=10", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[types.AccessLogListResponse](t, resp)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "entry_granted", body.Entries[0].Action)

	resp = adminDo(t, env, http.MethodGet, "/access-logs?action=bogus", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = adminDo(t, env, http.MethodGet, "/access-logs?tenant_id=not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_query", decode[types.ErrorResponse](t, resp).Error)
}

// ── Operational ──────────────────────────────────────────────────────────────

func TestHealth_OK(t *testing.T) {
	env := newTestEnv(t, withHealth(pinger{}))

	resp, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode[types.HealthResponse](t, resp).Status)
}

func TestHealth_StoreDown_Degraded(t *testing.T) {
	env := newTestEnv(t, withHealth(pinger{err: errors.New("db gone")}))

	resp, err := http.Get(env.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "degraded", decode[types.HealthResponse](t, resp).Status)
}

func TestMetrics_ExposesDecisionCounter(t *testing.T) {
	env := newTestEnv(t)

	postJSON(t, env.ts.URL+"/v1/gate/access", `{"credential":"ABC123"}`)

	resp, err := http.Get(env.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "gatekeeper_access_decisions_total")
	assert.Contains(t, string(raw), `route="/v1/gate/access"`)
}

func TestRequestID_Echoed(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get("X-Request-ID"))
}

// ── Fakes ────────────────────────────────────────────────────────────────────

type outageStore struct{ store.TenantStore }

func (outageStore) FindByCredential(context.Context, store.CredentialKind, string) (store.TenantRecord, error) {
	return store.TenantRecord{}, errors.New("connection refused")
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimit.Result, error) {
	return ratelimit.Result{}, errors.New("redis down")
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }
