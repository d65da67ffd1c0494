package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
	"github.com/IsThatLegal/summit-os-sub000/internal/ratelimit"
)

type Dependencies struct {
	Logger        *zap.Logger
	Addr          string
	AccessService *service.AccessService
	TenantService *service.TenantService
	AccessLogs    store.AccessLogStore
	// Limiter guards the gate channels.  Nil disables rate limiting.
	Limiter ratelimit.Limiter
	// ClientKey buckets gate requests.  Defaults to ratelimit.RemoteHostKey.
	ClientKey ratelimit.KeyFunc
	Metrics *metrics.Metrics
	// Gatherer backs /metrics.  Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Health is pinged by /healthz when set.
	Health store.Pinger
	// AdminToken enables /v1/admin behind a bearer token.
	AdminToken string
}

type Server struct {
	httpServer    *http.Server
	logger        *zap.Logger
	router        chi.Router
	metrics       *metrics.Metrics
	accessService *service.AccessService
	tenantService *service.TenantService
	accessLogs    store.AccessLogStore
	health        store.Pinger
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	clientKey := d.ClientKey
	if clientKey == nil {
		clientKey = ratelimit.RemoteHostKey
	}

	r := chi.NewRouter()
	s := &Server{
		logger:        logger,
		router:        r,
		metrics:       d.Metrics,
		accessService: d.AccessService,
		tenantService: d.TenantService,
		accessLogs:    d.AccessLogs,
		health:        d.Health,
	}

	r.Use(requestIDMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(loggingMiddleware(logger, d.Metrics))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1/gate", func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(rateLimitMiddleware(d.Limiter, clientKey, d.Metrics, logger))
		}
		r.Post("/access", s.handleGateAccess)
		r.Post("/identify", s.handleGateIdentify)
	})

	if d.AdminToken != "" && d.TenantService != nil {
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(adminAuthMiddleware(d.AdminToken))
			r.Post("/tenants", s.handleCreateTenant)
			r.Get("/tenants/{id}", s.handleGetTenant)
			r.Post("/tenants/{id}/lock", s.handleLockTenant)
			r.Post("/tenants/{id}/unlock", s.handleUnlockTenant)
			r.Post("/tenants/{id}/charges", s.handleChargeTenant)
			r.Post("/tenants/{id}/payments", s.handleTenantPayment)
			r.Get("/access-logs", s.handleListAccessLogs)
		})
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
