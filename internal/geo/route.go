package geo

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/loopline/thriftscout/internal/model"
)

// ExhaustiveWaypointLimit is the largest waypoint count for which
// OptimizeRoute evaluates every permutation. The exhaustive branch is
// factorial in waypoint count; callers must enforce this cap before asking
// for an optimal order.
const ExhaustiveWaypointLimit = 8

// TravelMode selects the assumed average speed for duration estimates.
type TravelMode string

const (
	TravelModeDriving   TravelMode = "driving"
	TravelModeWalking   TravelMode = "walking"
	TravelModeBicycling TravelMode = "bicycling"
)

// speedMetersPerSecond maps travel modes to assumed average speeds.
// Driving uses 50 km/h.
var speedMetersPerSecond = map[TravelMode]float64{
	TravelModeDriving:   13.89,
	TravelModeWalking:   1.4,
	TravelModeBicycling: 4.2,
}

// Speed returns the assumed average speed for the mode in m/s, defaulting
// to driving for unknown modes.
func (m TravelMode) Speed() float64 {
	if v, ok := speedMetersPerSecond[m]; ok {
		return v
	}
	return speedMetersPerSecond[TravelModeDriving]
}

// RouteLeg is one segment of an optimized route.
type RouteLeg struct {
	From           model.LatLng  `json:"from"`
	To             model.LatLng  `json:"to"`
	DistanceMeters float64       `json:"distance_m"`
	Duration       time.Duration `json:"duration"`
	BearingDegrees float64       `json:"bearing_deg"`
}

// Route is an ordered visit plan over a set of waypoints.
type Route struct {
	// Order holds indices into the input waypoint slice in visit order.
	Order          []int         `json:"order"`
	Legs           []RouteLeg    `json:"legs"`
	DistanceMeters float64       `json:"distance_m"`
	Duration       time.Duration `json:"duration"`
	// Optimal is true only for the exhaustive branch; the nearest-neighbor
	// heuristic is an approximation and makes no optimality claim.
	Optimal bool `json:"optimal"`
}

// OptimizeRoute orders waypoints to minimize total travel distance from
// start through every waypoint, optionally ending at end. With at most
// ExhaustiveWaypointLimit waypoints every permutation is evaluated and the
// true minimum is returned; beyond that a nearest-neighbor greedy pass is
// used instead.
func OptimizeRoute(start model.LatLng, waypoints []model.LatLng, end *model.LatLng, mode TravelMode) (*Route, error) {
	if len(waypoints) == 0 {
		return nil, eris.New("route: at least one waypoint is required")
	}

	var order []int
	optimal := false
	if len(waypoints) <= ExhaustiveWaypointLimit {
		order = bestPermutation(start, waypoints, end)
		optimal = true
	} else {
		order = nearestNeighborOrder(start, waypoints)
	}

	return buildRoute(start, waypoints, end, order, optimal, mode), nil
}

// SequentialRoute builds the route visiting waypoints in their given order,
// without any reordering.
func SequentialRoute(start model.LatLng, waypoints []model.LatLng, end *model.LatLng, mode TravelMode) (*Route, error) {
	if len(waypoints) == 0 {
		return nil, eris.New("route: at least one waypoint is required")
	}
	order := make([]int, len(waypoints))
	for i := range order {
		order[i] = i
	}
	return buildRoute(start, waypoints, end, order, false, mode), nil
}

// bestPermutation evaluates every waypoint permutation and returns the
// minimum-total-distance order.
func bestPermutation(start model.LatLng, waypoints []model.LatLng, end *model.LatLng) []int {
	idx := make([]int, len(waypoints))
	for i := range idx {
		idx[i] = i
	}

	best := make([]int, len(idx))
	copy(best, idx)
	bestDist := orderDistance(start, waypoints, end, idx)

	permute(idx, 0, func(perm []int) {
		if d := orderDistance(start, waypoints, end, perm); d < bestDist {
			bestDist = d
			copy(best, perm)
		}
	})

	return best
}

// permute generates all permutations of idx[k:] in place, invoking visit
// for each complete arrangement.
func permute(idx []int, k int, visit func([]int)) {
	if k == len(idx)-1 {
		visit(idx)
		return
	}
	for i := k; i < len(idx); i++ {
		idx[k], idx[i] = idx[i], idx[k]
		permute(idx, k+1, visit)
		idx[k], idx[i] = idx[i], idx[k]
	}
}

// nearestNeighborOrder greedily visits the closest unvisited waypoint.
// The result is a valid tour but not guaranteed optimal.
func nearestNeighborOrder(start model.LatLng, waypoints []model.LatLng) []int {
	order := make([]int, 0, len(waypoints))
	visited := make([]bool, len(waypoints))
	current := start

	for len(order) < len(waypoints) {
		next := -1
		nextDist := 0.0
		for i, wp := range waypoints {
			if visited[i] {
				continue
			}
			d := Distance(current, wp)
			if next == -1 || d < nextDist {
				next = i
				nextDist = d
			}
		}
		visited[next] = true
		order = append(order, next)
		current = waypoints[next]
	}

	return order
}

func orderDistance(start model.LatLng, waypoints []model.LatLng, end *model.LatLng, order []int) float64 {
	total := 0.0
	current := start
	for _, i := range order {
		total += Distance(current, waypoints[i])
		current = waypoints[i]
	}
	if end != nil {
		total += Distance(current, *end)
	}
	return total
}

func buildRoute(start model.LatLng, waypoints []model.LatLng, end *model.LatLng, order []int, optimal bool, mode TravelMode) *Route {
	speed := mode.Speed()

	stops := make([]model.LatLng, 0, len(order)+2)
	stops = append(stops, start)
	for _, i := range order {
		stops = append(stops, waypoints[i])
	}
	if end != nil {
		stops = append(stops, *end)
	}

	route := &Route{Order: order, Optimal: optimal}
	for i := 0; i+1 < len(stops); i++ {
		d := Distance(stops[i], stops[i+1])
		leg := RouteLeg{
			From:           stops[i],
			To:             stops[i+1],
			DistanceMeters: d,
			Duration:       time.Duration(d / speed * float64(time.Second)),
			BearingDegrees: Bearing(stops[i], stops[i+1]),
		}
		route.Legs = append(route.Legs, leg)
		route.DistanceMeters += d
		route.Duration += leg.Duration
	}

	return route
}
