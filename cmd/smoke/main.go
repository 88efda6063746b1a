// Command smoke runs the face analyzer once on a synthetic or real image.
//
//	smoke pattern --save test_pattern.png
//	smoke rect
//	smoke image https://example.com/faces.jpg
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/behavior/internal/smoketest"
	"github.com/okian/behavior/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	app := smoketest.NewApp(ctx, logger.Get().Named("smoke"), nil)
	err := app.Run(os.Args)
	stop()
	if err != nil {
		os.Stderr.WriteString("smoke failed: " + err.Error() + "\n")
	}
	os.Exit(smoketest.ExitCode(err))
}
