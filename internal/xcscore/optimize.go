package xcscore

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"igclog/internal/igc"
	"igclog/internal/logging"
)

// TerminationReason records which condition ended the optimization loop.
type TerminationReason string

const (
	ReasonBudget    TerminationReason = "budget"
	ReasonMemory    TerminationReason = "memory"
	ReasonExhausted TerminationReason = "exhausted"
)

// Options bounds one optimization run.
type Options struct {
	// Budget is the wall-clock limit. Zero means the default of 50 seconds.
	Budget time.Duration
	// MemoryHighWater is the heap usage ratio (HeapAlloc/HeapSys) that stops
	// the run. Zero means the default of 0.98.
	MemoryHighWater float64
	Logger          *slog.Logger
}

const (
	defaultBudget          = 50 * time.Second
	defaultMemoryHighWater = 0.98
	// memCheckEvery bounds the cost of ReadMemStats; the heap grows far
	// slower than candidate evaluation, so sampling is safe.
	memCheckEvery = 256
)

// State is the serializable solver outcome, persisted as the raw optimizer
// artifact so later runs reload it instead of recomputing.
type State struct {
	Best       Candidate         `json:"best"`
	Iterations int               `json:"iterations"`
	Reason     TerminationReason `json:"reason"`
	// Launch and Landing are fix indices into the full parsed track.
	Launch  int `json:"launch"`
	Landing int `json:"landing"`
}

// Summary condenses an optimization into the fields the flight record needs.
type Summary struct {
	DistanceM   float64    `json:"distance"`
	DurationS   float64    `json:"duration"`
	Score       float64    `json:"score"`
	Type        string     `json:"type"`
	Code        string     `json:"code"`
	LaunchTime  *time.Time `json:"launchTime"`
	LandingTime *time.Time `json:"landingTime"`
	LaunchPos   []float64  `json:"launchPos"`  // lon, lat
	LandingPos  []float64  `json:"landingPos"` // lon, lat
	MaxAltitude int        `json:"maxAltitude"`
}

// Outcome bundles everything the optimize stage produces for one file.
type Outcome struct {
	State   State
	Track   *igc.Track
	Summary Summary
}

// ErrNoCandidate reports a track too short or static to score.
var ErrNoCandidate = errors.New("xcscore: no scorable route")

// Optimize runs the anytime solver loop over the parsed track. The loop
// checks its termination conditions every iteration, first condition met
// wins: wall-clock budget, memory high-water, solver exhaustion. The best
// score is monotonically non-decreasing; the returned candidate is never
// worse than any candidate observed during the run.
func Optimize(ctx context.Context, track *igc.Track, opts Options) (*Outcome, error) {
	if track == nil || len(track.Fixes) == 0 {
		return nil, errors.New("xcscore: empty track")
	}

	budget := opts.Budget
	if budget <= 0 {
		budget = defaultBudget
	}
	highWater := opts.MemoryHighWater
	if highWater <= 0 || highWater > 1 {
		highWater = defaultMemoryHighWater
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	solver := NewSolver(track)
	deadline := time.Now().Add(budget)

	var (
		best    Candidate
		haveAny bool
		iters   int
		reason  TerminationReason
	)

	for {
		cand, ok := solver.Next()
		if !ok {
			reason = ReasonExhausted
			break
		}
		iters++
		if !haveAny || cand.Score > best.Score {
			best = cand
			haveAny = true
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			reason = ReasonBudget
			break
		}
		if iters%memCheckEvery == 0 && heapRatio() > highWater {
			logger.Warn("memory high-water reached, returning best result so far",
				logging.Float64("high_water", highWater),
				logging.Int("iterations", iters),
			)
			reason = ReasonMemory
			break
		}
	}

	if !haveAny {
		return nil, ErrNoCandidate
	}

	state := State{
		Best:       best,
		Iterations: iters,
		Reason:     reason,
		Launch:     solver.Launch(),
		Landing:    solver.Landing(),
	}

	return &Outcome{
		State:   state,
		Track:   track,
		Summary: summarize(track, solver, best),
	}, nil
}

func heapRatio() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	if m.HeapSys == 0 {
		return 0
	}
	return float64(m.HeapAlloc) / float64(m.HeapSys)
}

func summarize(track *igc.Track, solver *Solver, best Candidate) Summary {
	fixes := solver.TrimmedFixes()
	launch := fixes[0]
	landing := fixes[len(fixes)-1]

	launchTime := launch.Time
	landingTime := landing.Time
	duration := landingTime.Sub(launchTime).Seconds()
	if duration < 0 {
		duration = 0
	}

	maxAlt := 0
	for _, fix := range track.Fixes {
		if alt, ok := fix.Altitude(); ok && alt > maxAlt {
			maxAlt = alt
		}
	}

	return Summary{
		DistanceM:   best.DistanceKm * 1000,
		DurationS:   duration,
		Score:       best.Score,
		Type:        best.RuleName,
		Code:        best.RuleCode,
		LaunchTime:  &launchTime,
		LandingTime: &landingTime,
		LaunchPos:   []float64{launch.Longitude, launch.Latitude},
		LandingPos:  []float64{landing.Longitude, landing.Latitude},
		MaxAltitude: maxAlt,
	}
}
