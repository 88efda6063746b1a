package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/behavior/internal/adapters/events"
	"github.com/okian/behavior/internal/config"
	"github.com/okian/behavior/pkg/logger"
	"github.com/okian/behavior/pkg/metrics"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When loading configuration from env", func() {
			_ = os.Setenv("BEHAVIOR_ADDR", ":8080")
			_ = os.Setenv("BEHAVIOR_ANALYZER__KIND", "fake")
			_ = os.Setenv("BEHAVIOR_THRESHOLDS__STRESS", "55")
			defer func() {
				_ = os.Unsetenv("BEHAVIOR_ADDR")
				_ = os.Unsetenv("BEHAVIOR_ANALYZER__KIND")
				_ = os.Unsetenv("BEHAVIOR_THRESHOLDS__STRESS")
			}()

			cfg, err := config.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.Analyzer.Kind, convey.ShouldEqual, "fake")

			convey.Convey("Then the service carries the configured thresholds", func() {
				svc := newService(cfg, events.New())
				defer func() { _ = svc.Close(context.Background()) }()
				convey.So(svc.Thresholds().Stress, convey.ShouldEqual, 55)
				convey.So(svc.Running(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the deepface analyzer has no gallery", func() {
			cfg := config.New()
			cfg.Analyzer.GalleryDir = t.TempDir() + "/missing"
			an, id := newAnalyzer(cfg)
			convey.So(an, convey.ShouldNotBeNil)
			convey.So(id, convey.ShouldBeNil)
		})

		convey.Convey("When the deepface analyzer has a gallery", func() {
			cfg := config.New()
			cfg.Analyzer.GalleryDir = t.TempDir()
			_, id := newAnalyzer(cfg)
			convey.So(id, convey.ShouldNotBeNil)
		})

		convey.Convey("When serving the full mux", func() {
			cfg := config.New()
			cfg.Analyzer.Kind = "fake"
			cfg.Source.Frames = 3
			cfg.Source.FPS = 100
			cfg.ExportDir = t.TempDir()
			svc := newService(cfg, events.New())
			defer func() { _ = svc.Close(context.Background()) }()
			mux := newMux(context.Background(), cfg, svc)

			convey.Convey("Then every surface answers", func() {
				for _, path := range []string{"/", "/api-docs", "/openapi.yaml", "/dashboard", "/snapshot", "/stats", "/healthz"} {
					req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, req)
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				}
			})

			convey.Convey("And a session runs to exhaustion", func() {
				req := httptest.NewRequest(http.MethodPost, "/session/start", http.NoBody)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

				deadline := time.Now().Add(5 * time.Second)
				for svc.Running() && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				convey.So(svc.Running(), convey.ShouldBeFalse)
				convey.So(svc.Snapshot().ExitReason, convey.ShouldEqual, "exhausted")
			})
		})

		convey.Convey("When system metrics are refreshed", func() {
			updateSystemMetrics()
			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "behavior_system_goroutines" {
					found = true
				}
			}
			convey.So(found, convey.ShouldBeTrue)
		})
	})
}
