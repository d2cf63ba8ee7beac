package xcscore

import (
	"github.com/paulmach/orb"

	"igclog/internal/igc"
)

// Solver proposes candidate routes one at a time. Each call to Next evaluates
// one turnpoint combination against every rule and returns the best candidate
// of that combination; the caller is responsible for tracking the overall
// best. The combination space is walked at progressively finer samplings of
// the trimmed track, so early candidates arrive quickly while later passes
// refine toward the optimum. When the finest pass completes the solver is
// exhausted and the best candidate seen is the optimum over the sampling.
type Solver struct {
	fixes  []igc.Fix
	points []orb.Point
	launch int
	land   int

	resolution int
	maxRes     int
	samples    []int
	i, j, k    int
	done       bool
}

const (
	initialResolution = 8
	maxResolutionCap  = 512
)

// NewSolver builds a solver over the trimmed flight portion of the track.
func NewSolver(track *igc.Track) *Solver {
	launch, land := trimToFlight(track.Fixes)
	fixes := track.Fixes[launch : land+1]
	points := make([]orb.Point, len(fixes))
	for i, f := range fixes {
		points[i] = fixPoint(f)
	}

	maxRes := len(fixes)
	if maxRes > maxResolutionCap {
		maxRes = maxResolutionCap
	}

	s := &Solver{
		fixes:      fixes,
		points:     points,
		launch:     launch,
		land:       land,
		resolution: initialResolution,
		maxRes:     maxRes,
	}
	if len(fixes) < 4 {
		s.done = true
		return s
	}
	if s.resolution > maxRes {
		s.resolution = maxRes
	}
	s.resample()
	return s
}

// Launch returns the launch fix index into the original track.
func (s *Solver) Launch() int { return s.launch }

// Landing returns the landing fix index into the original track.
func (s *Solver) Landing() int { return s.land }

// TrimmedFixes returns the fixes between launch and landing inclusive.
func (s *Solver) TrimmedFixes() []igc.Fix { return s.fixes }

// resample picks evenly spaced fix indices for the current resolution.
func (s *Solver) resample() {
	n := s.resolution
	if n > len(s.fixes) {
		n = len(s.fixes)
	}
	s.samples = make([]int, n)
	step := float64(len(s.fixes)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		s.samples[i] = int(float64(i) * step)
	}
	s.i, s.j, s.k = 0, 1, 2
}

// Next returns the best candidate for the next turnpoint combination. The
// second return value is false once the search space is exhausted.
func (s *Solver) Next() (Candidate, bool) {
	for {
		if s.done {
			return Candidate{}, false
		}

		tp1 := s.samples[s.i]
		tp2 := s.samples[s.j]
		tp3 := s.samples[s.k]
		s.advance()

		best := Candidate{Score: -1}
		for _, rule := range XContest {
			cand, ok := rule.evaluate(s.points, 0, tp1, tp2, tp3, len(s.points)-1)
			if ok && cand.Score > best.Score {
				best = cand
			}
		}
		if best.Score < 0 {
			// No rule accepted this combination; try the next one.
			continue
		}
		return best, true
	}
}

// advance steps the i<j<k combination walk and escalates resolution when a
// full pass completes.
func (s *Solver) advance() {
	n := len(s.samples)
	s.k++
	if s.k < n {
		return
	}
	s.j++
	if s.j < n-1 {
		s.k = s.j + 1
		return
	}
	s.i++
	if s.i < n-2 {
		s.j = s.i + 1
		s.k = s.j + 1
		return
	}

	// Pass complete: refine or finish.
	if s.resolution >= s.maxRes {
		s.done = true
		return
	}
	s.resolution *= 2
	if s.resolution > s.maxRes {
		s.resolution = s.maxRes
	}
	s.resample()
}

// Exhausted reports whether the solver has walked its entire search space.
func (s *Solver) Exhausted() bool { return s.done }
