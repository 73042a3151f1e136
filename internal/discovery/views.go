package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/loopline/thriftscout/internal/model"
)

// SaveMapView persists a map view for its owner. A share token is generated
// only when the view is public; private views carry none.
func (s *Service) SaveMapView(ctx context.Context, ownerID string, view model.SavedMapView) (*model.SavedMapView, error) {
	if ownerID == "" {
		return nil, eris.Wrap(model.NewValidationError("owner_id", "owner id is required"), "discovery: save view")
	}
	if strings.TrimSpace(view.Name) == "" {
		return nil, eris.Wrap(model.NewValidationError("name", "view name is required"), "discovery: save view")
	}
	if !view.Center.Valid() {
		return nil, eris.Wrap(model.NewValidationError("center", "view center must be a valid coordinate"), "discovery: save view")
	}
	if view.Zoom < minZoom || view.Zoom > maxZoom {
		return nil, eris.Wrap(model.NewValidationError("zoom", "zoom must be between 1 and 20"), "discovery: save view")
	}
	if err := view.Filters.Validate(); err != nil {
		return nil, eris.Wrap(err, "discovery: save view")
	}

	view.ID = uuid.New().String()
	view.OwnerID = ownerID
	view.CreatedAt = time.Now().UTC()
	view.ShareToken = ""
	if view.IsPublic {
		view.ShareToken = uuid.New().String()
	}

	if err := s.store.CreateView(ctx, &view); err != nil {
		return nil, eris.Wrap(err, "discovery: save view")
	}
	return &view, nil
}

// ListMapViews returns the owner's views plus, optionally, public views
// shared by others.
func (s *Service) ListMapViews(ctx context.Context, ownerID string, includePublic bool) ([]model.SavedMapView, error) {
	if ownerID == "" {
		return nil, eris.Wrap(model.NewValidationError("owner_id", "owner id is required"), "discovery: list views")
	}
	views, err := s.store.ListViews(ctx, ownerID, includePublic)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: list views")
	}
	return views, nil
}
