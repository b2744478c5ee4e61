// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for LSMP
// endpoints.
//
// Configuration is loaded from a single file named by either the
// LSMP_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search, so configuration stays deterministic and auditable.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// defaults are stricter: memory locking is required and the payload
// bound drops to 1 MiB, unless a production section says otherwise.
//
// ${VAR} and ${VAR:-default} patterns are expanded in the listen and
// connect addresses after loading. No other environment variables
// override config values.
//
// Example:
//
//	environment: production
//	listen: ${LSMP_LISTEN:-0.0.0.0:7891}
//	transport:
//	  dial_timeout: 5s
//	log:
//	  level: debug
//	  format: json
//
// This package depends on no other LSMP packages.
package config
