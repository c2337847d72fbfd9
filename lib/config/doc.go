// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for roomkeys
// binaries.
//
// Configuration is loaded from a single file specified by either the
// ROOMKEYS_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There is no automatic file search.
//
// The file supports environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production defaults to JSON logs at
// info level when it has no section of its own.
//
// ${HOME} and ${VAR:-default} patterns are expanded in path fields
// after loading. No environment variable overrides a config value.
//
// Key exports:
//
//   - [Config] -- master struct with Encryption, PushRules, Logging
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Logger] -- builds the slog.Logger binaries log through
package config
