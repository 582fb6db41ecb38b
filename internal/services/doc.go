// Package services defines shared utilities consumed by the pipeline stages and
// the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the kinds surfaced to callers (missing input, resource open,
//     external stage timeout or failure, cancellation).
//   - Details, which turns any pipeline error into a Failure value that can be
//     printed or serialised without leaking raw error chains.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
