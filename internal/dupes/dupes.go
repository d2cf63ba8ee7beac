// Package dupes flags likely duplicate track files two ways: identical
// file content and overlapping flight intervals. Both scans are
// directional, so a duplicate pair shows up once per member; the reported
// pairs are hints for the operator, not automatic deletions.
package dupes

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"
)

// Pair points from one file to the first other file it duplicates.
type Pair struct {
	Path  string
	Other string
}

// HashDuplicates compares files by content digest. Unreadable files are
// skipped rather than failing the whole scan.
func HashDuplicates(paths []string) ([]Pair, error) {
	type hashed struct {
		path string
		sum  string
	}
	hashes := make([]hashed, 0, len(paths))
	for _, p := range paths {
		sum, err := fileDigest(p)
		if err != nil {
			continue
		}
		hashes = append(hashes, hashed{path: p, sum: sum})
	}

	var pairs []Pair
	for _, fh := range hashes {
		for _, other := range hashes {
			if other.path != fh.path && other.sum == fh.sum {
				pairs = append(pairs, Pair{Path: fh.path, Other: other.path})
				break
			}
		}
	}
	return pairs, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Interval is one flight's time span for overlap comparison.
type Interval struct {
	Takeoff time.Time
	Landing time.Time
	Path    string
}

// TemporalDuplicates flags flights whose takeoff falls inside another
// flight's span, boundaries included. Each flight reports only its first
// match, so the check is directional: A landing exactly when B takes off
// flags B against A but not the reverse.
func TemporalDuplicates(intervals []Interval) []Pair {
	var pairs []Pair
	for _, item := range intervals {
		for _, other := range intervals {
			if item.Path == other.Path {
				continue
			}
			if !item.Takeoff.Before(other.Takeoff) && !item.Takeoff.After(other.Landing) {
				pairs = append(pairs, Pair{Path: item.Path, Other: other.Path})
				break
			}
		}
	}
	return pairs
}
