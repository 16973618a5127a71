package main

import (
	"context"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/product-card/internal/platform/analytics"
	"github.com/example/product-card/internal/platform/config"
	"github.com/example/product-card/internal/platform/httpserver"
	"github.com/example/product-card/internal/platform/logging"
	"github.com/example/product-card/internal/platform/natsconn"
	"github.com/example/product-card/internal/platform/run"
	"github.com/example/product-card/services/card/internal/card"
	"github.com/example/product-card/services/card/internal/catalog"
	cardconfig "github.com/example/product-card/services/card/internal/config"
	"github.com/example/product-card/services/card/internal/handlers"
	"github.com/example/product-card/services/card/internal/kv"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	svcCfg := cardconfig.Load()

	products, err := catalog.LoadFile(svcCfg.ProductsFile)
	if err != nil {
		log.Error("load products", zap.String("path", svcCfg.ProductsFile), zap.Error(err))
		run.Exit(1)
	}
	log.Info("products loaded", zap.Int("count", len(products.All())))

	store := initStore(log, svcCfg, cfg.IsProduction())
	publisher, closeNATS := initAnalytics(log, cfg.ServiceName, svcCfg.NATSURL)

	registry := card.NewRegistry(store, card.WithLogger(log))

	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		ReadyFunc: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(ctx)
		},
	})
	handlers.Register(r, handlers.Deps{
		Catalog:   products,
		Cards:     registry,
		Analytics: publisher,
		Log:       log,
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Router: r})

	// gRPC exposes health and reflection only.
	lis, err := net.Listen("tcp", svcCfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	reflection.Register(grpcSrv)
	go func() {
		log.Info("grpc server starting", zap.String("addr", svcCfg.GRPCAddr))
		if err := grpcSrv.Serve(lis); err != nil {
			log.Error("grpc serve", zap.Error(err))
		}
	}()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	runner := run.New(log)
	code := runner.WithSignals(func(context.Context) error {
		return srv.Start(log)
	})

	hs.Shutdown()
	runner.Graceful("grpc", func(ctx context.Context) error {
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			return nil
		case <-ctx.Done():
			grpcSrv.Stop()
			return ctx.Err()
		}
	})
	runner.Graceful("http", srv.Shutdown)
	closeNATS()
	_ = store.Close()

	log.Info("exit", zap.Int("code", code))
	_ = log.Sync()
	run.Exit(code)
}

// initStore selects the key-value backend. In production (APP_ENV=production)
// a persistent backend is required and the process terminates otherwise.
func initStore(log *zap.Logger, cfg cardconfig.Config, isProd bool) kv.Store {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, backend, err := kv.Open(ctx, kv.Options{
		RedisDSN:    cfg.RedisDSN,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
	}, isProd)
	if err != nil {
		if isProd {
			log.Error("card store unavailable in production", zap.String("backend", backend), zap.Error(err))
			_ = log.Sync()
			run.Exit(1)
		}
		log.Warn("card store unavailable, falling back to in-memory store", zap.String("backend", backend), zap.Error(err))
		return kv.NewMemory()
	}
	if backend == "memory" {
		log.Warn("no REDIS_DSN, DATABASE_URL or SQLITE_PATH set, using in-memory store (development only)")
	} else {
		log.Info("card store ready", zap.String("backend", backend))
	}
	return store
}

// initAnalytics connects to NATS when url is set. Without it the returned
// publisher is a no-op.
func initAnalytics(log *zap.Logger, name, url string) (*analytics.Publisher, func()) {
	if url == "" {
		log.Info("NATS_URL not set, analytics disabled")
		return analytics.New(nil, log), func() {}
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: url, Name: name})
	if err != nil {
		log.Warn("nats connect failed, analytics disabled", zap.Error(err))
		return analytics.New(nil, log), func() {}
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		log.Warn("jetstream unavailable, analytics disabled", zap.Error(err))
		nc.Close()
		return analytics.New(nil, log), func() {}
	}
	if err := analytics.EnsureStream(js); err != nil {
		log.Warn("analytics stream setup failed", zap.String("stream", analytics.StreamName), zap.Error(err))
	}
	return analytics.New(js, log), func() {
		_ = nc.Drain()
	}
}
