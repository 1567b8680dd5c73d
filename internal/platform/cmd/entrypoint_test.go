package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type testConfig struct {
	Address string `env:"CMD_TEST_ADDRESS" envDefault:"127.0.0.1:8080"`
	Mode    string `env:"CMD_TEST_MODE" envDefault:"server"`
}

func TestParseConfigReadsEnvAndFlags(t *testing.T) {
	t.Setenv("CLASSROOM_SPACE_CMD_TEST_ADDRESS", "env:9000")
	t.Setenv("CLASSROOM_SPACE_CMD_TEST_MODE", "env-mode")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg := testConfig{}
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.Address, "address", cfg.Address, "address")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "mode")

	if err := ParseArgs(fs, []string{"-address", "flag:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.Address != "flag:9001" {
		t.Fatalf("address = %q, want flag value", cfg.Address)
	}
	if cfg.Mode != "env-mode" {
		t.Fatalf("mode = %q, want env value", cfg.Mode)
	}
}

func TestParseConfigRejectsNilTarget(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil target error")
	}
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected parse args to reject nil parser")
	}
}

func TestLogPrefix(t *testing.T) {
	if got := LogPrefix(" rooms "); got != "[ROOMS] " {
		t.Fatalf("LogPrefix = %q, want %q", got, "[ROOMS] ")
	}
}

func TestRunWithTelemetry(t *testing.T) {
	t.Setenv("CLASSROOM_SPACE_OTEL_ENDPOINT", "")
	if err := RunWithTelemetry(context.Background(), "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceRooms, nil); err == nil {
		t.Fatal("expected missing run function error")
	}

	want := errors.New("boom")
	if err := RunWithTelemetry(context.Background(), ServiceRooms, func(context.Context) error { return want }); !errors.Is(err, want) {
		t.Fatalf("run error = %v, want %v", err, want)
	}
}

func TestRunWithTelemetryReportsBadOTelConfig(t *testing.T) {
	t.Setenv("CLASSROOM_SPACE_OTEL_SAMPLE_RATIO", "-1")
	called := false
	err := RunWithTelemetry(context.Background(), ServiceRooms, func(context.Context) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected telemetry config error")
	}
	if called {
		t.Fatal("run should not start when telemetry setup fails")
	}
}
