// Package services defines shared utilities consumed by the pipeline stages
// and the enrichment client.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and track file names
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal vs. per-file recoverable conditions.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
