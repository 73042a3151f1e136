// Package store persists businesses, saved map views, export requests, and
// the append-only search analytics log. Two drivers implement the same
// interface: SQLite for local use and Postgres (with PostGIS) for shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/loopline/thriftscout/internal/model"
)

// Store is the persistence interface the discovery engine depends on.
type Store interface {
	// UpsertBusiness creates the record when the external id is unseen,
	// otherwise updates mutable fields and bumps last_updated.
	UpsertBusiness(ctx context.Context, b *model.Business) (*model.Business, error)
	// FindInBox returns businesses inside the box; when updatedAfter is
	// set, only records with last_updated at or after it.
	FindInBox(ctx context.Context, box model.MapBounds, updatedAfter *time.Time) ([]model.Business, error)
	// FindInBoxSince returns businesses inside the box discovered at or
	// after since, for trend comparisons.
	FindInBoxSince(ctx context.Context, box model.MapBounds, since time.Time) ([]model.Business, error)
	// FindByIDs returns the businesses with the given internal ids, in the
	// order requested. Unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []string) ([]model.Business, error)

	// Saved map views.
	CreateView(ctx context.Context, v *model.SavedMapView) error
	ListViews(ctx context.Context, ownerID string, includePublic bool) ([]model.SavedMapView, error)

	// Export requests.
	CreateExport(ctx context.Context, req *model.ExportRequest) error
	UpdateExport(ctx context.Context, id string, patch model.ExportPatch) error
	GetExport(ctx context.Context, id string) (*model.ExportRequest, error)

	// Search analytics log: append-only, best-effort.
	LogSearchResults(ctx context.Context, rows []model.SearchResult) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}
