package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/okian/behavior/internal/adapters/analyzer"
	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/adapters/export"
	"github.com/okian/behavior/internal/adapters/http/api"
	"github.com/okian/behavior/internal/adapters/http/site"
	"github.com/okian/behavior/internal/adapters/http/swagger"
	"github.com/okian/behavior/internal/adapters/mq/emitter"
	"github.com/okian/behavior/internal/adapters/overlay"
	"github.com/okian/behavior/internal/adapters/source"
	app "github.com/okian/behavior/internal/app"
	"github.com/okian/behavior/internal/config"
	"github.com/okian/behavior/internal/domain/cooldown"
	"github.com/okian/behavior/internal/domain/history"
	"github.com/okian/behavior/internal/domain/scoring"
	"github.com/okian/behavior/internal/worker"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second

	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our collectors live on a custom registry.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "behavior exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get()

	// defaults -> optional file -> env
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	bus := events.New()
	svc := newService(cfg, bus)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Close(closeCtx); err != nil {
			log.Error(closeCtx, "session did not stop cleanly", logger.Error(err))
		}
	}()

	if cfg.MQTT.Broker != "" {
		em, err := emitter.Connect(ctx, cfg.MQTT, emitter.WithLogger(log.Named("mqtt")))
		if err != nil {
			return err
		}
		defer em.Close()
		go em.Run(ctx, bus.Subscribe(0))
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService wires the session service from cfg.
func newService(cfg *config.Config, bus *events.Bus) *app.Service {
	log := logger.Get()
	open := func(context.Context) (worker.Source, error) {
		return source.Open(cfg.Source)
	}

	an, id := newAnalyzer(cfg)
	th := scoring.Thresholds{
		Stress:     cfg.Thresholds.Stress,
		Engagement: cfg.Thresholds.Engagement,
		ExtremeJoy: cfg.Thresholds.ExtremeJoy,
		Focus:      cfg.Thresholds.Focus,
	}

	opts := []app.Option{
		app.WithLogger(log.Named("session")),
		app.WithBus(bus),
		app.WithInterval(cfg.AnalysisInterval()),
		app.WithRenderer(overlay.New()),
		app.WithEvaluator(scoring.NewEvaluator(scoring.WithThresholds(th))),
		app.WithCooldown(cooldown.New(
			cooldown.WithWindow(cfg.Cooldown()),
			cooldown.WithMinConfidence(cfg.IdentityThreshold),
		)),
		app.WithHistory(history.New(cfg.HistorySize)),
		app.WithExporter(export.New(cfg.ExportDir, cfg.SessionName, export.WithLogger(log.Named("export")))),
	}
	if id != nil {
		opts = append(opts, app.WithIdentifier(id))
	}
	return app.New(open, an, opts...)
}

// newAnalyzer returns the configured analyzer and, when a face gallery is
// available, the identifier that matches against it.
func newAnalyzer(cfg *config.Config) (worker.Analyzer, worker.Identifier) {
	if cfg.Analyzer.Kind == "fake" {
		demo := analyzer.NewDemo()
		return demo, demo
	}

	client := analyzer.New(cfg.Analyzer.URL,
		analyzer.WithDetector(cfg.Analyzer.Detector),
		analyzer.WithModel(cfg.Analyzer.Model),
		analyzer.WithTimeout(time.Duration(cfg.Analyzer.TimeoutMS)*time.Millisecond),
	)
	if fi, err := os.Stat(cfg.Analyzer.GalleryDir); err != nil || !fi.IsDir() {
		logger.Get().Warn(context.Background(), "face gallery not found; recognition disabled",
			logger.String("dir", cfg.Analyzer.GalleryDir))
		return client, nil
	}
	gallery := analyzer.NewGallery(client, cfg.Analyzer.GalleryDir,
		analyzer.WithRefresh(time.Duration(cfg.Analyzer.GalleryRefreshS)*time.Second),
		analyzer.WithMaxDistance(cfg.Analyzer.MaxDistance),
		analyzer.WithGalleryLogger(logger.Get().Named("gallery")),
	)
	return client, gallery
}

// newMux registers every HTTP route.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc,
		api.WithRedrawInterval(cfg.RedrawInterval()),
		api.WithLogger(logger.Get().Named("api")),
	)
	apiServer.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes the system gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
