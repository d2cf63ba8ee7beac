package geoindex

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"igclog/internal/fileutil"
)

// earthRadiusM matches the sphere radius orb/geo uses for haversine distances.
const earthRadiusM = 6378137.0

// Index is an immutable k-d tree over the place dataset. A nil *Index is a
// valid empty index whose lookups return no results.
type Index struct {
	places []Place
	root   *node
}

type node struct {
	// ord is the dataset position of the place; it doubles as the tie-break
	// key for equal distances.
	ord         int
	dim         int
	left, right *node
}

// Result is one nearest-neighbor match.
type Result struct {
	Place    Place
	DistM    float64
	datasetO int
}

// Load reads the merged place dataset and builds the index.
func Load(path string) (*Index, error) {
	var places []Place
	if err := fileutil.ReadJSON(path, &places); err != nil {
		return nil, err
	}
	return Build(places), nil
}

// Build constructs the index from a dataset slice. The slice is copied; the
// index never mutates after construction.
func Build(places []Place) *Index {
	cp := make([]Place, len(places))
	copy(cp, places)
	idx := &Index{places: cp}

	ords := make([]int, len(cp))
	for i := range ords {
		ords[i] = i
	}
	idx.root = idx.build(ords, 0)
	return idx
}

func (x *Index) build(ords []int, depth int) *node {
	if len(ords) == 0 {
		return nil
	}
	dim := depth % 2
	sort.SliceStable(ords, func(a, b int) bool {
		return x.coord(ords[a], dim) < x.coord(ords[b], dim)
	})
	mid := len(ords) / 2
	n := &node{ord: ords[mid], dim: dim}
	left := append([]int(nil), ords[:mid]...)
	right := append([]int(nil), ords[mid+1:]...)
	n.left = x.build(left, depth+1)
	n.right = x.build(right, depth+1)
	return n
}

func (x *Index) coord(ord, dim int) float64 {
	if dim == 0 {
		return x.places[ord].Lat
	}
	return x.places[ord].Lon
}

// Nearest returns up to k places ranked by ascending great-circle distance
// from the query point; equal distances keep dataset order.
func (x *Index) Nearest(lat, lon float64, k int) []Result {
	if x == nil || x.root == nil || k <= 0 {
		return nil
	}
	q := orb.Point{lon, lat}
	best := make([]Result, 0, k+1)
	x.search(x.root, q, k, &best)
	sort.SliceStable(best, func(a, b int) bool {
		if best[a].DistM != best[b].DistM {
			return best[a].DistM < best[b].DistM
		}
		return best[a].datasetO < best[b].datasetO
	})
	if len(best) > k {
		best = best[:k]
	}
	return best
}

func (x *Index) search(n *node, q orb.Point, k int, best *[]Result) {
	if n == nil {
		return
	}
	p := x.places[n.ord]
	d := geo.Distance(q, orb.Point{p.Lon, p.Lat})
	insert(best, Result{Place: p, DistM: d, datasetO: n.ord}, k)

	var qCoord, nCoord float64
	if n.dim == 0 {
		qCoord, nCoord = q[1], p.Lat
	} else {
		qCoord, nCoord = q[0], p.Lon
	}

	near, far := n.left, n.right
	if qCoord > nCoord {
		near, far = n.right, n.left
	}
	x.search(near, q, k, best)

	if len(*best) < k || planeDistance(q, n.dim, nCoord) < worst(*best) {
		x.search(far, q, k, best)
	}
}

// planeDistance is the minimal great-circle distance from the query to the
// splitting line. For a latitude split that is the meridian arc to the
// parallel; for a longitude split it is the cross-track distance to the
// meridian, which can undercut the along-parallel arc.
func planeDistance(q orb.Point, dim int, split float64) float64 {
	if dim == 0 {
		return math.Abs(q[1]-split) * math.Pi / 180 * earthRadiusM
	}
	dlon := math.Abs(q[0]-split) * math.Pi / 180
	if dlon > math.Pi {
		dlon = 2*math.Pi - dlon
	}
	if dlon > math.Pi/2 {
		dlon = math.Pi / 2
	}
	qlat := q[1] * math.Pi / 180
	return math.Asin(math.Sin(dlon)*math.Cos(qlat)) * earthRadiusM
}

func insert(best *[]Result, r Result, k int) {
	*best = append(*best, r)
	sort.SliceStable(*best, func(a, b int) bool {
		if (*best)[a].DistM != (*best)[b].DistM {
			return (*best)[a].DistM < (*best)[b].DistM
		}
		return (*best)[a].datasetO < (*best)[b].datasetO
	})
	if len(*best) > k {
		*best = (*best)[:k]
	}
}

func worst(best []Result) float64 {
	if len(best) == 0 {
		return 0
	}
	return best[len(best)-1].DistM
}

// ReverseLookup returns the name of the nearest place among the k nearest
// neighbors that is compatible with the role, or "" when the index is empty
// or none of the k candidates qualifies.
func (x *Index) ReverseLookup(lat, lon float64, role Role, k int) string {
	results := x.Nearest(lat, lon, k)
	for _, r := range results {
		if r.Place.compatible(role) {
			return r.Place.Name
		}
	}
	return ""
}

// Len returns the number of places in the dataset.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.places)
}
