// Package xcscore computes cross-country scores for parsed flight tracks.
//
// The solver is an anytime algorithm: it proposes candidate routes over a
// progressively refined sampling of the track and the caller keeps the best
// candidate seen so far. Optimization stops when the wall-clock budget
// elapses, when heap usage crosses the configured high-water mark, or when
// the solver has exhausted its search space, whichever happens first. The
// best score never decreases across iterations, so interrupting early always
// yields a valid (if not optimal) result.
//
// Scoring follows the XContest ruleset: open distance through up to three
// turnpoints, free triangles, and FAI triangles.
package xcscore
