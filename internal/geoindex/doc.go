// Package geoindex answers reverse geocoding queries against a static place
// dataset.
//
// The index is a k-d tree over latitude/longitude built once per run and
// queried read-only afterwards, so it is safe for concurrent readers. Places
// carry a category; nearest-neighbor queries filter candidates by role so a
// takeoff lookup never answers with a landing-only site and vice versa.
package geoindex
