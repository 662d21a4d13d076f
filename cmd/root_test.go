package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/owdb/wrestlebot/internal/config"
	"github.com/owdb/wrestlebot/internal/errlog"
	"github.com/owdb/wrestlebot/internal/importer"
	"github.com/owdb/wrestlebot/internal/model"
	"github.com/owdb/wrestlebot/internal/scrape"
	"github.com/owdb/wrestlebot/internal/statestore"
	"github.com/owdb/wrestlebot/internal/store"
)

type stubApp struct {
	logger      *zap.Logger
	reporter    *errlog.Reporter
	coordinator *importer.Coordinator
	closed      bool
}

func (s *stubApp) Close()                             { s.closed = true }
func (s *stubApp) Logger() *zap.Logger                { return s.logger }
func (s *stubApp) Config() config.Config              { return config.Config{} }
func (s *stubApp) Reporter() *errlog.Reporter         { return s.reporter }
func (s *stubApp) Coordinator() *importer.Coordinator { return s.coordinator }

type cannedAdapter struct{}

func (cannedAdapter) Name() string { return "canned" }

func (cannedAdapter) ScrapeWrestlers(_ context.Context, _ int) ([]model.RawWrestler, error) {
	return []model.RawWrestler{{Name: "Tornado Example"}}, nil
}

func newStubApp() *stubApp {
	logger := zap.NewNop()
	registry := scrape.NewRegistry()
	registry.Add(cannedAdapter{})
	return &stubApp{
		logger:   logger,
		reporter: errlog.New(statestore.NewMemory(), logger),
		coordinator: importer.New(importer.Params{
			Store:    store.NewMemory(),
			Registry: registry,
			Matching: config.MatchingConfig{SimilarityThreshold: 0.85, YearFloor: 1900},
			Logger:   logger,
		}),
	}
}

func runCommand(t *testing.T, stub *stubApp, args ...string) (string, error) {
	t.Helper()
	orig := appFactory
	appFactory = func(context.Context, string, bool) (App, error) { return stub, nil }
	defer func() { appFactory = orig }()

	var buf bytes.Buffer
	root := newRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestScrapeCommandPrintsSummary(t *testing.T) {
	stub := newStubApp()
	out, err := runCommand(t, stub, "scrape", "--source", "canned", "--type", "wrestlers", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "wrestlers")
	assert.Contains(t, out, "errors: 0")
	assert.True(t, stub.closed)
}

func TestScrapeCommandUnknownTypeFails(t *testing.T) {
	stub := newStubApp()
	_, err := runCommand(t, stub, "scrape", "--type", "lunchboxes")
	require.Error(t, err)
	assert.True(t, stub.closed)
}

func TestErrorsCommandEmptyFeed(t *testing.T) {
	out, err := runCommand(t, newStubApp(), "errors")
	require.NoError(t, err)
	assert.Contains(t, out, "no recent errors")
}

func TestErrorsCommandShowsAndClears(t *testing.T) {
	stub := newStubApp()
	stub.reporter.Report(errlog.APIError{
		Source:     "cagematch",
		Endpoint:   "https://www.cagematch.net/?id=2",
		Kind:       "http_500",
		Message:    "server error",
		StatusCode: 500,
	})

	out, err := runCommand(t, stub, "errors", "--source", "cagematch")
	require.NoError(t, err)
	assert.Contains(t, out, "cagematch")
	assert.Contains(t, out, "server error")
	assert.Contains(t, out, "status 500")

	out, err = runCommand(t, stub, "errors", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "error feed cleared")

	out, err = runCommand(t, stub, "errors")
	require.NoError(t, err)
	assert.Contains(t, out, "no recent errors")
}
