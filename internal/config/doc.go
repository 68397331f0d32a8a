// Package config loads the gateway configuration from a JSON or YAML file,
// applies AGENTS_* environment overrides and fills in defaults.
package config
