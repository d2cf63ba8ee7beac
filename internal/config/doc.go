// Package config loads, validates, and persists igclog configuration.
//
// Configuration lives in a TOML file (default ~/.config/igclog/config.toml,
// or igclog.toml next to the working directory). All path fields are
// tilde-expanded and normalized on load; Validate rejects unusable values
// before the pipeline starts.
package config
