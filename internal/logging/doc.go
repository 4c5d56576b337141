// Package logging builds slog loggers for the batch renderer.
//
// Two output formats are supported: a compact console format meant for
// interactive runs and a JSON format for log collection. Helpers exist
// for attaching the standardized component and entry fields so every
// package logs the same shape.
package logging
