// Package config loads, normalizes, and validates mediarelay configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TELEGRAM_BOT_TOKEN and COOKIE_BASE64. The Config type centralizes every knob
// the daemon and CLI need, so workspace directories, the compression ladder,
// and chat transport credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
