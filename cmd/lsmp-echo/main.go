// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// lsmp-echo is an operator tool for LSMP endpoints. "serve" accepts
// connections and echoes every packet back to its sender. "send"
// connects, sends a secret read from a file, stdin, or a terminal
// prompt, and verifies the echo in constant time.
//
// Payloads stay in guarded memory end to end. Logs identify a payload
// only by its length and a per-process keyed BLAKE3 fingerprint.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lsmp/lib/version"
)

const binaryName = "lsmp-echo"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Handle --version before subcommand dispatch to match other binaries.
	if len(args) > 0 && args[0] == "--version" {
		version.Fprint(stdout, binaryName)
		return nil
	}

	if len(args) == 0 {
		printUsage(stderr)
		return usage("missing subcommand")
	}

	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:], stdout, stderr)
	case "send":
		return runSend(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return usage("unknown subcommand %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `%s: send and echo LSMP packets.

Usage:
  %s serve [--config FILE] [--listen ADDRESS] [--handshake]
  %s send  [--config FILE] [--connect ADDRESS] (--file PATH | --prompt) [flags]
  %s --version

Run "%s <subcommand> --help" for subcommand flags.
`, binaryName, binaryName, binaryName, binaryName, binaryName)
}

// parseFlags parses a subcommand's flags. It returns done=true when
// --help was handled and the subcommand should return nil.
func parseFlags(flagSet *pflag.FlagSet, args []string, stderr io.Writer) (done bool, err error) {
	flagSet.SetOutput(stderr)
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return true, nil
		}
		return false, usage("%v", err)
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return false, usage("unexpected argument: %s", extra[0])
	}
	return false, nil
}
