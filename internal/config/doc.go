// Package config loads, normalizes, and validates sttbench configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STT_API_KEY. The Config type centralizes every knob the batch commands need:
// dataset directories, chunk sizes, noise levels, provider credentials, and
// evaluation tokenization rules.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
