// Package logging builds the slog loggers used across igclog.
//
// The console handler renders operator-facing single-line output with
// color when attached to a terminal; the JSON handler serves log files and
// scripting. Context helpers stamp run IDs, stage names, and track file
// names onto every record emitted within a pipeline pass.
package logging
