package xcscore

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"igclog/internal/igc"
)

const (
	// movingSpeed is the ground speed in m/s above which a fix counts as
	// airborne movement.
	movingSpeed = 1.5
	// movingRun is how many consecutive moving segments confirm a launch.
	movingRun = 5
)

// trimToFlight finds the launch and landing fix indices by looking for the
// first and last sustained runs of ground movement. Tracks that never move
// keep their full extent.
func trimToFlight(fixes []igc.Fix) (launch, landing int) {
	launch = 0
	landing = len(fixes) - 1
	if len(fixes) < movingRun+1 {
		return launch, landing
	}

	speeds := make([]float64, len(fixes)-1)
	for i := 0; i < len(fixes)-1; i++ {
		dt := fixes[i+1].Time.Sub(fixes[i].Time).Seconds()
		if dt <= 0 {
			continue
		}
		d := geo.Distance(fixPoint(fixes[i]), fixPoint(fixes[i+1]))
		speeds[i] = d / dt
	}

	run := 0
	found := false
	for i, v := range speeds {
		if v > movingSpeed {
			run++
			if run >= movingRun {
				launch = i - movingRun + 1
				found = true
				break
			}
		} else {
			run = 0
		}
	}
	if !found {
		return 0, len(fixes) - 1
	}

	run = 0
	for i := len(speeds) - 1; i >= 0; i-- {
		if speeds[i] > movingSpeed {
			run++
			if run >= movingRun {
				landing = i + movingRun
				break
			}
		} else {
			run = 0
		}
	}
	if landing <= launch {
		return 0, len(fixes) - 1
	}
	return launch, landing
}

func fixPoint(f igc.Fix) orb.Point {
	return orb.Point{f.Longitude, f.Latitude}
}
