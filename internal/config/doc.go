// Package config loads the settings daemon's runtime configuration from
// multiple sources (YAML files, environment variables, CLI flags) with
// precedence: CLI flags > YAML config > Environment variables > Defaults.
// It is unrelated to the user settings document, which lives in package
// settings and is persisted by package store.
package config
