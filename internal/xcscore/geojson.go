package xcscore

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSON projects the optimization outcome into a feature collection: the
// scored route as a line, launch and landing as identified point features,
// and the score metadata as collection-level properties.
func (o *Outcome) GeoJSON() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if o == nil {
		return fc
	}

	fixes := o.Track.Fixes[o.State.Launch : o.State.Landing+1]
	if len(fixes) == 0 {
		return fc
	}

	route := orb.LineString{fixPoint(fixes[0])}
	for _, tp := range o.State.Best.Turnpoints {
		if tp >= 0 && tp < len(fixes) {
			route = append(route, fixPoint(fixes[tp]))
		}
	}
	route = append(route, fixPoint(fixes[len(fixes)-1]))

	routeFeature := geojson.NewFeature(route)
	routeFeature.ID = "route0"
	routeFeature.Properties["d"] = o.State.Best.DistanceKm
	fc.Append(routeFeature)

	launch := geojson.NewFeature(fixPoint(fixes[0]))
	launch.ID = "launch0"
	launch.Properties["timestamp"] = fixes[0].Time.UnixMilli()
	fc.Append(launch)

	land := geojson.NewFeature(fixPoint(fixes[len(fixes)-1]))
	land.ID = "land0"
	land.Properties["timestamp"] = fixes[len(fixes)-1].Time.UnixMilli()
	fc.Append(land)

	fc.ExtraMembers = map[string]any{
		"properties": map[string]any{
			"type":  o.State.Best.RuleName,
			"code":  o.State.Best.RuleCode,
			"score": o.State.Best.Score,
		},
	}
	return fc
}
