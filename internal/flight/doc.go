// Package flight defines the canonical flight record derived for each track
// file, plus the two reconciliation layers applied on top of computed data:
// operator-supplied manual overrides (field-presence merge) and legacy
// logbook records (which take precedence over computed values when present).
package flight
