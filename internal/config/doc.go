// Package config loads, normalizes, and validates riptide's TOML
// configuration, layering environment overrides for credentials on top.
package config
