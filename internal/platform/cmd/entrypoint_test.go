package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

type entrypointTestConfig struct {
	Addr string `env:"HEARTHSIDE_ENTRYPOINT_TEST_ADDR" envDefault:":7000"`
}

func TestParseConfigNil(t *testing.T) {
	if err := ParseConfig[entrypointTestConfig](nil); err == nil {
		t.Fatal("expected error for nil config target")
	}
}

func TestParseConfigFromArgs(t *testing.T) {
	var cfg entrypointTestConfig
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var addr string
	fs.StringVar(&addr, "addr", "", "listen address")

	if err := ParseConfigFromArgs(&cfg, fs, []string{"-addr", ":7001"}); err != nil {
		t.Fatalf("parse config from args: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("expected env default :7000, got %q", cfg.Addr)
	}
	if addr != ":7001" {
		t.Fatalf("expected flag override :7001, got %q", addr)
	}
}

func TestParseArgsNilFlagSet(t *testing.T) {
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected error for nil flag set")
	}
}

func TestRunWithTelemetryRequiresService(t *testing.T) {
	err := RunWithTelemetry(context.Background(), "  ", func(context.Context) error { return nil })
	if err == nil {
		t.Fatal("expected error for empty service name")
	}
}

func TestRunWithTelemetryRequiresRun(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "server", nil); err == nil {
		t.Fatal("expected error for nil run function")
	}
}

func TestRunWithTelemetryPropagatesRunError(t *testing.T) {
	want := errors.New("boom")
	err := RunWithTelemetry(context.Background(), "server", func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("expected run error, got %v", err)
	}
}
