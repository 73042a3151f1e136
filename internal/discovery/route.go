package discovery

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// RoutePlan is an ordered visiting plan over stored businesses.
type RoutePlan struct {
	Stops []model.Business `json:"stops"` // in visiting order
	Route *geo.Route       `json:"route"`
}

// PlanRoute loads the requested businesses and orders them into a route from
// start. With optimize set, at most 8 waypoints are accepted so the
// exhaustive search stays tractable; larger sets must use the heuristic.
func (s *Service) PlanRoute(ctx context.Context, businessIDs []string, start model.LatLng, optimize bool, mode geo.TravelMode) (*RoutePlan, error) {
	if len(businessIDs) == 0 {
		return nil, eris.Wrap(model.NewValidationError("business_ids", "at least one business id is required"), "discovery: plan route")
	}
	if !start.Valid() {
		return nil, eris.Wrap(model.NewValidationError("start", "start must be a valid coordinate"), "discovery: plan route")
	}
	if optimize && len(businessIDs) > geo.ExhaustiveWaypointLimit {
		return nil, eris.Wrap(
			model.NewValidationError("business_ids", "optimized routes support at most 8 businesses"),
			"discovery: plan route")
	}

	businesses, err := s.store.FindByIDs(ctx, businessIDs)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: load route businesses")
	}
	if len(businesses) == 0 {
		return nil, eris.Wrapf(model.ErrNotFound, "discovery: none of the %d requested businesses exist", len(businessIDs))
	}

	waypoints := make([]model.LatLng, len(businesses))
	for i := range businesses {
		waypoints[i] = businesses[i].Address.Location
	}

	var route *geo.Route
	if optimize {
		route, err = geo.OptimizeRoute(start, waypoints, nil, mode)
	} else {
		route, err = geo.SequentialRoute(start, waypoints, nil, mode)
	}
	if err != nil {
		return nil, eris.Wrap(err, "discovery: build route")
	}

	stops := make([]model.Business, len(route.Order))
	for i, idx := range route.Order {
		stops[i] = businesses[idx]
	}
	return &RoutePlan{Stops: stops, Route: route}, nil
}
