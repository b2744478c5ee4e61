// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/lsmp/lib/secure"
	"github.com/bureau-foundation/lsmp/lib/version"
	"github.com/bureau-foundation/lsmp/transport"
)

func requireUsageError(t *testing.T, err error) {
	t.Helper()
	var usageErr *usageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if usageErr.ExitCode() != exitUsage {
		t.Errorf("ExitCode() = %d, want %d", usageErr.ExitCode(), exitUsage)
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatalf("run --version failed: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), binaryName+" ") || !strings.Contains(stdout.String(), version.Protocol) {
		t.Errorf("unexpected version output %q", stdout.String())
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no subcommand", args: nil},
		{name: "unknown subcommand", args: []string{"frobnicate"}},
		{name: "unknown flag", args: []string{"serve", "--frobnicate"}},
		{name: "stray argument", args: []string{"serve", "extra"}},
		{name: "send without source", args: []string{"send"}},
		{name: "send with both sources", args: []string{"send", "--file", "x", "--prompt"}},
		{name: "send with zero count", args: []string{"send", "--file", "x", "--count", "0"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), test.args, &stdout, &stderr)
			requireUsageError(t, err)
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"send", "--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("send --help returned %v", err)
	}
	if !strings.Contains(stderr.String(), "--count") {
		t.Errorf("help output does not list flags: %q", stderr.String())
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lsmp.yaml")
	if err := os.WriteFile(path, []byte("log:\n  format: xml\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"serve", "--config", path}, &stdout, &stderr)
	requireUsageError(t, err)
}

func TestRun_Send(t *testing.T) {
	t.Setenv("LSMP_CONFIG", "")
	address := startEchoServer(t, true)

	secretPath := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(secretPath, []byte("hunter2\n"), 0600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	for _, mode := range []string{"sync", "async"} {
		t.Run(mode, func(t *testing.T) {
			args := []string{"send", "--connect", address, "--file", secretPath, "--count", "2", "--handshake"}
			if mode == "async" {
				args = append(args, "--async")
			}
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), args, &stdout, &stderr); err != nil {
				t.Fatalf("send failed: %v\nstderr: %s", err, stderr.String())
			}
			if !strings.HasPrefix(stdout.String(), "2 of 2 echoes verified (7 bytes") {
				t.Errorf("unexpected report %q", stdout.String())
			}
			if strings.Contains(stderr.String(), "hunter2") {
				t.Errorf("secret leaked into logs: %s", stderr.String())
			}
		})
	}
}

func TestRun_SendJSON(t *testing.T) {
	t.Setenv("LSMP_CONFIG", "")
	address := startEchoServer(t, false)

	secretPath := filepath.Join(t.TempDir(), "secret.jsonc")
	document := `{"b": 1, /* rotated weekly */ "a": [true,],}`
	if err := os.WriteFile(secretPath, []byte(document), 0600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	var stdout, stderr bytes.Buffer
	args := []string{"send", "--connect", address, "--file", secretPath, "--json"}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("send failed: %v\nstderr: %s", err, stderr.String())
	}
	// Canonical form is {"a":[true],"b":1}.
	if !strings.HasPrefix(stdout.String(), "1 of 1 echoes verified (18 bytes") {
		t.Errorf("unexpected report %q", stdout.String())
	}
}

func TestRun_SendJSONRejectsMalformed(t *testing.T) {
	t.Setenv("LSMP_CONFIG", "")
	address := startEchoServer(t, false)

	secretPath := filepath.Join(t.TempDir(), "secret.json")
	if err := os.WriteFile(secretPath, []byte(`{"a": }`), 0600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	var stdout, stderr bytes.Buffer
	args := []string{"send", "--connect", address, "--file", secretPath, "--json"}
	err := run(context.Background(), args, &stdout, &stderr)
	var syntaxErr *secure.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected syntax error, got %v", err)
	}
}

func TestRun_SendConnectFailure(t *testing.T) {
	t.Setenv("LSMP_CONFIG", "")

	// Reserve a port, then free it so nothing is listening.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()

	secretPath := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(secretPath, []byte("value"), 0600); err != nil {
		t.Fatalf("writing secret: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err = run(context.Background(), []string{"send", "--connect", address, "--file", secretPath}, &stdout, &stderr)
	if !transport.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format   string
		wantJSON bool
	}{
		{format: "json", wantJSON: true},
		{format: "text", wantJSON: false},
		// Not a terminal.
		{format: "auto", wantJSON: true},
	}
	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			var output bytes.Buffer
			logger := newLogger(&output, slog.LevelInfo, test.format)
			logger.Info("hello", "key", "value")
			logger.Debug("suppressed")

			isJSON := json.Valid(bytes.TrimSpace(output.Bytes()))
			if isJSON != test.wantJSON {
				t.Errorf("format %s produced %q", test.format, output.String())
			}
			if strings.Contains(output.String(), "suppressed") {
				t.Error("debug record passed an info-level logger")
			}
		})
	}
}
