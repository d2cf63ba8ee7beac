package xcscore

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Rule describes one scoring shape of the XContest ruleset.
type Rule struct {
	Name       string
	Code       string
	Multiplier float64
	// Triangle marks rules whose three turnpoints must close back on the
	// route start within ClosingRatio of the triangle perimeter.
	Triangle     bool
	ClosingRatio float64
	// MinSideRatio is the FAI constraint: every triangle side must cover at
	// least this share of the perimeter. Zero disables the check.
	MinSideRatio float64
}

// XContest scoring rules, in evaluation order.
var XContest = []Rule{
	{Name: "Free flight", Code: "od", Multiplier: 1.0},
	{Name: "Free triangle", Code: "tri", Multiplier: 1.2, Triangle: true, ClosingRatio: 0.2},
	{Name: "FAI triangle", Code: "fai", Multiplier: 1.4, Triangle: true, ClosingRatio: 0.2, MinSideRatio: 0.28},
}

// Candidate is one scored route proposal.
type Candidate struct {
	RuleName string `json:"ruleName"`
	RuleCode string `json:"ruleCode"`
	// DistanceKm is the scored route distance (for triangles the perimeter
	// minus the closing gap).
	DistanceKm float64 `json:"distanceKm"`
	Score      float64 `json:"score"`
	// Turnpoints are indices into the trimmed fix sequence.
	Turnpoints []int   `json:"turnpoints"`
	ClosingKm  float64 `json:"closingKm"`
}

func distanceKm(a, b orb.Point) float64 {
	return geo.Distance(a, b) / 1000
}

// evaluate scores one turnpoint combination against a rule. The returned
// bool is false when the combination cannot satisfy the rule's constraints.
func (r Rule) evaluate(pts []orb.Point, launch, tp1, tp2, tp3, landing int) (Candidate, bool) {
	if r.Triangle {
		d12 := distanceKm(pts[tp1], pts[tp2])
		d23 := distanceKm(pts[tp2], pts[tp3])
		d31 := distanceKm(pts[tp3], pts[tp1])
		perimeter := d12 + d23 + d31
		if perimeter == 0 {
			return Candidate{}, false
		}
		closing := distanceKm(pts[launch], pts[landing])
		if closing > r.ClosingRatio*perimeter {
			return Candidate{}, false
		}
		if r.MinSideRatio > 0 {
			min := d12
			if d23 < min {
				min = d23
			}
			if d31 < min {
				min = d31
			}
			if min < r.MinSideRatio*perimeter {
				return Candidate{}, false
			}
		}
		dist := perimeter - closing
		return Candidate{
			RuleName:   r.Name,
			RuleCode:   r.Code,
			DistanceKm: dist,
			Score:      dist * r.Multiplier,
			Turnpoints: []int{tp1, tp2, tp3},
			ClosingKm:  closing,
		}, true
	}

	dist := distanceKm(pts[launch], pts[tp1]) +
		distanceKm(pts[tp1], pts[tp2]) +
		distanceKm(pts[tp2], pts[tp3]) +
		distanceKm(pts[tp3], pts[landing])
	return Candidate{
		RuleName:   r.Name,
		RuleCode:   r.Code,
		DistanceKm: dist,
		Score:      dist * r.Multiplier,
		Turnpoints: []int{tp1, tp2, tp3},
	}, true
}
