package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dispatchmesh/dispatch/internal/logger"
	"github.com/dispatchmesh/dispatch/internal/telemetry"
	"github.com/dispatchmesh/dispatch/pkg/config"
	"github.com/dispatchmesh/dispatch/pkg/dispatchresult"
	"github.com/dispatchmesh/dispatch/pkg/metrics"
	promMetrics "github.com/dispatchmesh/dispatch/pkg/metrics/prometheus"
	"github.com/dispatchmesh/dispatch/pkg/multiplex"
	"github.com/dispatchmesh/dispatch/pkg/node"
	"github.com/dispatchmesh/dispatch/pkg/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dispatch node in the foreground",
	RunE:  runNode,
}

func runNode(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	nodeID := uuid.New().String()
	logger.Info("starting dispatch node", "node_id", nodeID, "listen_addr", cfg.Node.ListenAddr)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dispatchnode",
		ServiceVersion: version,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	var dispatchMetrics metrics.DispatchMetrics = metrics.NoOp
	var promM *promMetrics.Metrics
	if cfg.Metrics.Enabled {
		promM = promMetrics.New()
		dispatchMetrics = promM
	}

	endpoint, err := transport.Listen(ctx, transport.EndPointConfig{
		ListenAddr: cfg.Node.ListenAddr,
		Reconnect: transport.ReconnectionConfig{
			InitialInterval: cfg.Reconnect.InitialInterval,
			MaxInterval:     cfg.Reconnect.MaxInterval,
			MaxElapsedTime:  cfg.Reconnect.MaxElapsedTime,
		},
		ReceiveQueueSize: cfg.Node.ReceiveQueueSize,
		MaxMessageSize:   cfg.Node.MaxMessageSize,
		Metrics:          dispatchMetrics,
	})
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer endpoint.Close()

	logger.Info("bound transport endpoint", "addr", endpoint.Address().String(), "max_message_size", cfg.Node.MaxMessageSize.String())

	mux := multiplex.New(ctx, endpoint)

	typeResolver := dispatchresult.NewTypeRegistry()
	dispatcher := node.New(ctx, mux, endpoint.Address(), nil, typeResolver, node.WithMetrics(dispatchMetrics))
	logger.Info("dispatcher ready", "scope", dispatcher.GetScope().Address().String())

	if len(cfg.Node.Peers) > 0 {
		logger.Info("configured seed peers, connecting lazily on first dispatch", "peers", cfg.Node.Peers)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg.Metrics.ListenAddr, promM, nodeID)
		go func() {
			logger.Info("metrics server listening", "addr", cfg.Metrics.ListenAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("dispatch node running, press Ctrl+C to stop")
	<-sigCh
	signal.Stop(sigCh)
	logger.Info("shutdown signal received, closing")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	cancel()
	return nil
}

func newMetricsServer(addr string, m *promMetrics.Metrics, nodeID string) *http.Server {
	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "ok node_id=%s\n", nodeID)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
