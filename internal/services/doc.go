// Package services defines shared utilities consumed by the batch
// orchestrator and the external provider clients.
//
// Key responsibilities:
//   - Context helpers that stamp entry ids and submission attempts for
//     logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent report statuses (succeeded vs skipped vs failed vs
//     interrupted).
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability, retries) stays uniform across the run.
package services
