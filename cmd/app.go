package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/app"
	"github.com/owdb/wrestlebot/internal/config"
	"github.com/owdb/wrestlebot/internal/errlog"
	"github.com/owdb/wrestlebot/internal/importer"
)

// App is the service surface commands depend on, so tests can inject a
// stub container.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Reporter() *errlog.Reporter
	Coordinator() *importer.Coordinator
}

func newApp(ctx context.Context, cfgPath string, dryRun bool) (App, error) {
	return app.New(ctx, app.Options{ConfigPath: cfgPath, DryRun: dryRun})
}
