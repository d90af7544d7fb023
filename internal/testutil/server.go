// Shared app and server setup for package tests.

package testutil

import (
	"testing"

	"github.com/vrsandeep/squish-go/internal/api"
	"github.com/vrsandeep/squish-go/internal/config"
	"github.com/vrsandeep/squish-go/internal/core"
)

// SetupTestApp builds an App over fake codecs with default settings.
func SetupTestApp(t *testing.T) (*core.App, FakeCodecs) {
	t.Helper()
	return SetupTestAppWithConfig(t, config.Default())
}

// SetupTestAppWithConfig builds an App over fake codecs with cfg.
func SetupTestAppWithConfig(t *testing.T, cfg *config.Config) (*core.App, FakeCodecs) {
	t.Helper()
	fakes := NewFakeCodecs()
	app, err := core.NewWithCodecs(cfg, fakes.List())
	if err != nil {
		t.Fatalf("Failed to set up test app: %v", err)
	}
	t.Cleanup(app.Close)
	return app, fakes
}

// SetupTestServer initializes a full core.App and api.Server for integration testing.
func SetupTestServer(t *testing.T) (*api.Server, *core.App, FakeCodecs) {
	t.Helper()
	cfg := config.Default()
	cfg.Compression.AutoProcess = false
	app, fakes := SetupTestAppWithConfig(t, cfg)
	return api.NewServer(app), app, fakes
}
