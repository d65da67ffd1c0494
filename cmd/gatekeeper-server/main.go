package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/config"
	"github.com/IsThatLegal/summit-os-sub000/internal/db"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store/memory"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store/postgres"
	sqlitestore "github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store/sqlite"
	"github.com/IsThatLegal/summit-os-sub000/internal/grpcapi"
	"github.com/IsThatLegal/summit-os-sub000/internal/httpapi"
	"github.com/IsThatLegal/summit-os-sub000/internal/logger"
	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
	"github.com/IsThatLegal/summit-os-sub000/internal/ratelimit"
)

const janitorInterval = time.Minute

type stores struct {
	tenants store.TenantStore
	logs    store.AccessLogStore
	health  store.Pinger
	close   func()
}

func main() {
	cfg := config.Load()

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "gatekeeper-server",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("gatekeeper-server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	if err := seedIfRequested(ctx, cfg, st.tenants, log); err != nil {
		return err
	}

	// Services
	accessSvc := service.NewAccessService(st.tenants, st.logs, service.AccessConfig{
		LogWriteTimeout: cfg.LogWriteTimeout,
		Logger:          log.Named("access"),
		Metrics:         m,
	})
	tenantSvc := service.NewTenantService(st.tenants, log.Named("tenants"))

	pruner := service.NewAccessLogPruner(st.logs, service.PrunerConfig{
		RetentionDays: cfg.AccessLogRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, log.Named("pruner"))
	pruner.Start(ctx)
	defer pruner.Stop()

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	trusted, err := ratelimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("GATEKEEPER_TRUSTED_PROXIES: %w", err)
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:        log.Named("http"),
		Addr:          cfg.HTTPAddr,
		AccessService: accessSvc,
		TenantService: tenantSvc,
		AccessLogs:    st.logs,
		Limiter:       limiter,
		ClientKey:     ratelimit.ForwardedKey(trusted),
		Metrics:       m,
		Gatherer:      reg,
		Health:        st.health,
		AdminToken:    cfg.AdminToken,
	})
	if cfg.AdminToken == "" {
		log.Warn("GATEKEEPER_ADMIN_TOKEN not set; admin API disabled")
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// gRPC
	var stopGRPC func()
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs := grpcapi.NewServer(grpcapi.Dependencies{
			Logger:        log.Named("grpc"),
			AccessService: accessSvc,
			Limiter:       limiter,
			Metrics:       m,
		})
		go func() {
			log.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := gs.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
		stopGRPC = gs.GracefulStop
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case runErr = <-errCh:
		log.Error("server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if stopGRPC != nil {
		stopGRPC()
	}
	return runErr
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (stores, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return stores{
			tenants: memory.NewTenantStore(),
			logs:    memory.NewAccessLogStore(),
			close:   func() {},
		}, nil

	case config.StorePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return stores{}, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("postgres store ready")
		ts := postgres.NewTenantStore(conn)
		return stores{
			tenants: ts,
			logs:    postgres.NewAccessLogStore(conn),
			health:  ts,
			close:   closeDB(conn, log),
		}, nil

	default:
		conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
		if err != nil {
			return stores{}, fmt.Errorf("open sqlite: %w", err)
		}
		writer := db.NewWorker(conn)
		log.Info("sqlite store ready", zap.String("path", cfg.DBPath))
		ts := sqlitestore.NewTenantStore(conn, writer)
		closeConn := closeDB(conn, log)
		return stores{
			tenants: ts,
			logs:    sqlitestore.NewAccessLogStore(conn, writer),
			health:  ts,
			close: func() {
				writer.Close()
				closeConn()
			},
		}, nil
	}
}

func closeDB(conn *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := conn.Close(); err != nil {
			log.Warn("db close", zap.Error(err))
		}
	}
}

// newLimiter returns the Redis limiter when an address is configured and
// the in-process limiter otherwise.
// seedIfRequested loads the fixed dev tenants.  Their credentials are public,
// so this needs GATEKEEPER_SEED_DEV and is refused in prod.
func seedIfRequested(ctx context.Context, cfg config.Config, ts store.TenantStore, log *zap.Logger) error {
	if !cfg.SeedDev {
		return nil
	}
	if cfg.Env == "prod" {
		log.Warn("GATEKEEPER_SEED_DEV ignored in prod")
		return nil
	}
	if err := db.SeedDev(ctx, ts); err != nil {
		return fmt.Errorf("seed dev tenants: %w", err)
	}
	log.Info("dev tenants seeded", zap.String("store", cfg.Store))
	return nil
}

func newLimiter(ctx context.Context, cfg config.Config, log *zap.Logger) (ratelimit.Limiter, func()) {
	policy := ratelimit.Policy{Limit: cfg.RateLimitMax, Window: cfg.RateLimitWindow}
	if policy.Limit <= 0 || policy.Window <= 0 {
		policy = ratelimit.GateAccess
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Info("redis rate limiter", zap.String("addr", cfg.RedisAddr))
		return ratelimit.NewRedisLimiter(client, policy, ""), func() { _ = client.Close() }
	}

	lim := ratelimit.NewMemoryLimiter(policy)
	go lim.RunJanitor(ctx, janitorInterval)
	return lim, func() {}
}
