package telemetry

import (
	"context"
	"testing"

	"github.com/keyxmakerx/roadtothesky/internal/config"
)

func TestSetup_NoopWhenEndpointEmpty(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{Enabled: true, ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_NoopWhenDisabled(t *testing.T) {
	cfg := config.TelemetryConfig{Endpoint: "http://localhost:4318", Enabled: false, ServiceName: "test"}
	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetup_CreatesProviderWhenEndpointSet(t *testing.T) {
	// Non-routable address, nothing is exported before shutdown.
	cfg := config.TelemetryConfig{Endpoint: "http://192.0.2.1:4318", Enabled: true, ServiceName: "test"}
	shutdown, err := Setup(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}
