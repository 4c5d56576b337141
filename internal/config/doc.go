// Package config loads, normalizes, and validates the TOML configuration
// that drives a jimeng run.
//
// Load applies defaults first, then overlays values from the resolved config
// file, expands ~ in path fields, and validates the result. Validation is
// strict and happens before any quota is consumed: an unknown default model,
// a model referencing a missing ratio table, or a non-positive interval all
// fail the load. Unknown keys in the file are ignored.
package config
