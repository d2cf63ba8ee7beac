// Package igc parses IGC flight recorder files into structured tracks.
//
// The parser covers the record types the pipeline consumes: the A record
// (logger identity), H header records (date, pilot, glider, registration),
// and B records (timestamped position fixes with pressure and GPS altitude).
// Header values are decoded as Latin-1, which is what most recorders emit.
// Parsing is a pure function of the input bytes; a malformed file yields an
// error and never a partial track.
package igc
