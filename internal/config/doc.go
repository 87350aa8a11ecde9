// Package config loads, normalizes, and validates fapiao configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SILICONFLOW_API_KEY. The Config type centralizes every knob the daemon and
// CLI need, from the filename template to the category mapping rules.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, normalized templates, and clear validation errors.
package config
