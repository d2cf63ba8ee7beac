package geoindex

// Category classifies a place in the dataset. The single-letter values match
// the merged locations dataset on disk.
type Category string

const (
	CategoryAirport Category = "a"
	CategoryCity    Category = "c"
	CategoryTakeoff Category = "t"
	CategoryLanding Category = "l"
)

// Role selects which place categories are acceptable for a lookup.
type Role int

const (
	// RoleTakeoff excludes landing-only places.
	RoleTakeoff Role = iota
	// RoleLanding excludes takeoff-only places.
	RoleLanding
)

// Place is one entry of the static dataset. Immutable once the index is built.
type Place struct {
	Name     string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lon      float64  `json:"lon"`
	Category Category `json:"t"`
}

// compatible reports whether the place may answer a query for the role.
// Airports and cities carry no restriction.
func (p Place) compatible(role Role) bool {
	switch role {
	case RoleTakeoff:
		return p.Category != CategoryLanding
	case RoleLanding:
		return p.Category != CategoryTakeoff
	}
	return true
}
