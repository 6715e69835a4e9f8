// Package config loads, normalizes, and validates hashtools configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HASHTOOLS_STORE_DSN. The Config type centralizes every knob the CLI needs:
// the configured storage roots and their priorities, digest pipeline sizing,
// the inventory store connection, and consistency run limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
