// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for LSMP
// binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//	go build -ldflags "-X github.com/bureau-foundation/lsmp/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When GitCommit is not injected, [Commit] and [Dirty] read the VCS
// stamp the Go toolchain records in the binary, so plain "go build"
// output still identifies its revision. Test binaries carry no stamp
// and report "unknown".
//
// [Info] is the --version line and includes [Protocol], the wire
// protocol name. [Full] adds the Go version and GOOS/GOARCH.
package version
