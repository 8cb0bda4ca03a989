// Package config loads, normalizes, and validates iptv configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the environment overrides the
// aggregator has always accepted (IPTV_CONFIG, IPTV_CHANNEL, IPTV_DIST,
// IPTV_TMP, DEBUG and the EPG_* variables). The Config type centralizes the
// source list, alias tables, policy lists and export knobs so a run can be
// assembled in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, deduplicated lists, and clear validation errors.
package config
