// Package config loads, normalizes, and validates fecclean configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the FEC_API_KEY environment
// fallback. Cleaning passes, fetcher quotas, and state locations are all
// resolved here so the CLI, batch runner, and fetcher see sanitized values.
package config
