package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mnehpets/onerpc/api"
	"github.com/mnehpets/onerpc/dispatch"
	"github.com/mnehpets/onerpc/endpoint"
	"github.com/mnehpets/onerpc/jsonrpc"
	"github.com/mnehpets/onerpc/metrics"
	"github.com/mnehpets/onerpc/middleware"
)

const shutdownTimeout = 10 * time.Second

// stack is the dispatch pipeline shared by the serve and call commands.
type stack struct {
	registry  *dispatch.Registry
	mapper    *dispatch.SimpleMapper
	evaluator jsonrpc.Evaluator
}

func newStack(cfg Config, logger *slog.Logger) (*stack, error) {
	reg := dispatch.NewRegistry()
	if err := api.Register(reg, cfg.Namespace); err != nil {
		return nil, err
	}
	mapper, err := dispatch.NewMapper(reg,
		dispatch.WithNamespace(cfg.Namespace),
		dispatch.WithSeparator(cfg.Separator),
	)
	if err != nil {
		return nil, err
	}
	return &stack{
		registry:  reg,
		mapper:    mapper,
		evaluator: dispatch.NewEvaluator(mapper, dispatch.WithLogger(logger)),
	}, nil
}

// newHandler wires the HTTP surface: the RPC endpoint at cfg.Path, a
// liveness probe at /healthz and, if cfg.MetricsPath is set, the Prometheus
// scrape endpoint.
func newHandler(cfg Config, logger *slog.Logger, promReg *prometheus.Registry) (http.Handler, error) {
	s, err := newStack(cfg, logger)
	if err != nil {
		return nil, err
	}

	var ev jsonrpc.Evaluator = s.evaluator
	if cfg.MetricsPath != "" {
		ev = metrics.NewEvaluator(ev, promReg)
	}
	rpc := jsonrpc.NewEndpoint(ev,
		jsonrpc.WithLogger(logger),
		jsonrpc.WithMaxBatch(cfg.MaxBatch),
	)

	headerOpts := []middleware.SecurityHeadersOption{}
	if len(cfg.CORSOrigins) > 0 {
		headerOpts = append(headerOpts, middleware.WithCORS(middleware.NewCORSConfig(cfg.CORSOrigins...)))
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, endpoint.Handler(rpc.Endpoint,
		middleware.NewRequestIDProcessor(cfg.TrustRequestID),
		middleware.NewRequestLogProcessor(logger),
		middleware.NewSecurityHeadersProcessor(headerOpts...),
	))
	if cfg.MetricsPath != "" {
		mux.Handle("GET "+cfg.MetricsPath, metrics.Handler(promReg))
	}
	mux.Handle("GET /healthz", endpoint.HandleFunc(healthz))
	return mux, nil
}

func healthz(_ http.ResponseWriter, _ *http.Request, _ struct{}) (endpoint.Renderer, error) {
	return &endpoint.StringRenderer{Body: "ok\n"}, nil
}

func newPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// serve runs the server until ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	handler, err := newHandler(cfg, logger, newPrometheusRegistry())
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr), slog.String("path", cfg.Path))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
