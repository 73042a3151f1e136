package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"

	"github.com/loopline/thriftscout/internal/model"
)

// PgxPool is the subset of pgxpool.Pool the store uses. It matches the
// interface pgxmock exposes, so tests can swap in a mock pool.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store on PostgreSQL with PostGIS.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects to PostgreSQL using the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS businesses (
	id                UUID PRIMARY KEY,
	external_id       TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	street            TEXT NOT NULL DEFAULT '',
	neighborhood      TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	lat               DOUBLE PRECISION NOT NULL,
	lng               DOUBLE PRECISION NOT NULL,
	geom              GEOMETRY(Point, 4326),
	phone             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	social            JSONB,
	rating            DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count      INTEGER NOT NULL DEFAULT 0,
	price_level       INTEGER NOT NULL DEFAULT 0,
	categories        JSONB,
	open_now          BOOLEAN,
	hours             JSONB,
	photo_urls        JSONB,
	is_active         BOOLEAN NOT NULL DEFAULT TRUE,
	discovered_at     TIMESTAMPTZ NOT NULL,
	last_updated      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_views (
	id          UUID PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	center_lat  DOUBLE PRECISION NOT NULL,
	center_lng  DOUBLE PRECISION NOT NULL,
	zoom        INTEGER NOT NULL,
	map_type    TEXT NOT NULL DEFAULT '',
	filters     JSONB,
	layers      JSONB,
	is_public   BOOLEAN NOT NULL DEFAULT FALSE,
	share_token TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS export_requests (
	id           UUID PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	format       TEXT NOT NULL,
	criteria     JSONB NOT NULL,
	fields       JSONB,
	status       TEXT NOT NULL,
	download_ref TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	file_size    BIGINT NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	expires_at   TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS search_results (
	search_id   UUID NOT NULL,
	business_id UUID NOT NULL,
	owner_id    TEXT NOT NULL,
	center_lat  DOUBLE PRECISION NOT NULL,
	center_lng  DOUBLE PRECISION NOT NULL,
	radius_m    DOUBLE PRECISION NOT NULL,
	filters     JSONB,
	distance_m  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_businesses_geom ON businesses USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_businesses_last_updated ON businesses (last_updated);
CREATE INDEX IF NOT EXISTS idx_saved_views_owner ON saved_views (owner_id);
CREATE INDEX IF NOT EXISTS idx_search_results_search ON search_results (search_id);
`

// Migrate creates the schema, including the PostGIS extension.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close shuts down the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pointEWKB encodes a coordinate as hex EWKB, which PostGIS parses directly
// into a geometry value.
func pointEWKB(loc model.LatLng) (string, error) {
	pt, err := geom.NewPoint(geom.XY).SetSRID(4326).SetCoords(geom.Coord{loc.Lng, loc.Lat})
	if err != nil {
		return "", eris.Wrap(err, "postgres: build point")
	}
	enc, err := ewkbhex.Encode(pt, ewkbhex.NDR)
	if err != nil {
		return "", eris.Wrap(err, "postgres: encode point")
	}
	return enc, nil
}

const pgSelectBusiness = `
	SELECT id, external_id, name, formatted_address, street, neighborhood,
	       city, state, postal_code, lat, lng, phone, website, social,
	       rating, review_count, price_level, categories, open_now, hours,
	       photo_urls, is_active, discovered_at, last_updated
	FROM businesses`

// UpsertBusiness implements Store.
func (s *PostgresStore) UpsertBusiness(ctx context.Context, b *model.Business) (*model.Business, error) {
	if b.ExternalID == "" {
		return nil, eris.New("postgres: business external id is required")
	}
	now := time.Now().UTC()

	geomHex, err := pointEWKB(b.Address.Location)
	if err != nil {
		return nil, err
	}
	social, _ := json.Marshal(b.Contact.Social)
	categories, _ := json.Marshal(b.Categories)
	hours, _ := json.Marshal(b.Hours)
	photos, _ := json.Marshal(b.PhotoURLs)

	row := s.pool.QueryRow(ctx, `
		INSERT INTO businesses (
			id, external_id, name, formatted_address, street, neighborhood,
			city, state, postal_code, lat, lng, geom, phone, website, social,
			rating, review_count, price_level, categories, open_now, hours,
			photo_urls, is_active, discovered_at, last_updated
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::geometry,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		ON CONFLICT (external_id) DO UPDATE SET
			name = EXCLUDED.name,
			formatted_address = EXCLUDED.formatted_address,
			street = EXCLUDED.street,
			neighborhood = EXCLUDED.neighborhood,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			postal_code = EXCLUDED.postal_code,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			geom = EXCLUDED.geom,
			phone = EXCLUDED.phone,
			website = EXCLUDED.website,
			social = EXCLUDED.social,
			rating = EXCLUDED.rating,
			review_count = EXCLUDED.review_count,
			price_level = EXCLUDED.price_level,
			categories = EXCLUDED.categories,
			open_now = EXCLUDED.open_now,
			hours = EXCLUDED.hours,
			photo_urls = EXCLUDED.photo_urls,
			is_active = EXCLUDED.is_active,
			last_updated = EXCLUDED.last_updated
		RETURNING id, external_id, name, formatted_address, street, neighborhood,
		          city, state, postal_code, lat, lng, phone, website, social,
		          rating, review_count, price_level, categories, open_now, hours,
		          photo_urls, is_active, discovered_at, last_updated`,
		uuid.New().String(), b.ExternalID, b.Name, b.Address.Formatted,
		b.Address.Street, b.Address.Neighborhood, b.Address.City, b.Address.State,
		b.Address.PostalCode, b.Address.Location.Lat, b.Address.Location.Lng,
		geomHex, b.Contact.Phone, b.Contact.Website, social,
		b.Rating, b.ReviewCount, b.PriceLevel, categories, b.OpenNow,
		hours, photos, b.IsActive, now, now,
	)

	out, err := scanPgBusiness(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert business %s", b.ExternalID)
	}
	return out, nil
}

func scanPgBusiness(row pgx.Row) (*model.Business, error) {
	var (
		b                                 model.Business
		social, categories, hours, photos []byte
	)
	err := row.Scan(
		&b.ID, &b.ExternalID, &b.Name, &b.Address.Formatted, &b.Address.Street,
		&b.Address.Neighborhood, &b.Address.City, &b.Address.State,
		&b.Address.PostalCode, &b.Address.Location.Lat, &b.Address.Location.Lng,
		&b.Contact.Phone, &b.Contact.Website, &social,
		&b.Rating, &b.ReviewCount, &b.PriceLevel, &categories, &b.OpenNow,
		&hours, &photos, &b.IsActive, &b.DiscoveredAt, &b.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	if len(social) > 0 {
		_ = json.Unmarshal(social, &b.Contact.Social)
	}
	if len(categories) > 0 {
		_ = json.Unmarshal(categories, &b.Categories)
	}
	if len(hours) > 0 {
		_ = json.Unmarshal(hours, &b.Hours)
	}
	if len(photos) > 0 {
		_ = json.Unmarshal(photos, &b.PhotoURLs)
	}
	return &b, nil
}

// FindInBox implements Store. The box predicate runs against the PostGIS
// geometry so the GIST index is used.
func (s *PostgresStore) FindInBox(ctx context.Context, box model.MapBounds, updatedAfter *time.Time) ([]model.Business, error) {
	n := box.Normalized()
	query := pgSelectBusiness + `
	WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326) AND is_active`
	args := []any{n.SouthWest.Lng, n.SouthWest.Lat, n.NorthEast.Lng, n.NorthEast.Lat}

	if updatedAfter != nil {
		query += ` AND last_updated >= $5`
		args = append(args, updatedAfter.UTC())
	}
	query += ` ORDER BY last_updated DESC`

	return s.queryBusinesses(ctx, query, args...)
}

// FindInBoxSince implements Store.
func (s *PostgresStore) FindInBoxSince(ctx context.Context, box model.MapBounds, since time.Time) ([]model.Business, error) {
	n := box.Normalized()
	query := pgSelectBusiness + `
	WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326) AND discovered_at >= $5
	ORDER BY discovered_at DESC`
	return s.queryBusinesses(ctx, query,
		n.SouthWest.Lng, n.SouthWest.Lat, n.NorthEast.Lng, n.NorthEast.Lat, since.UTC())
}

// FindByIDs implements Store.
func (s *PostgresStore) FindByIDs(ctx context.Context, ids []string) ([]model.Business, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.queryBusinesses(ctx, pgSelectBusiness+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return orderByRequested(found, ids), nil
}

func (s *PostgresStore) queryBusinesses(ctx context.Context, query string, args ...any) ([]model.Business, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanPgBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan business")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate businesses")
	}
	return out, nil
}

// CreateView implements Store.
func (s *PostgresStore) CreateView(ctx context.Context, v *model.SavedMapView) error {
	filters, _ := json.Marshal(v.Filters)
	layers, _ := json.Marshal(v.Layers)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO saved_views (
			id, owner_id, name, description, center_lat, center_lng, zoom,
			map_type, filters, layers, is_public, share_token, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		v.ID, v.OwnerID, v.Name, v.Description, v.Center.Lat, v.Center.Lng,
		v.Zoom, v.MapType, filters, layers, v.IsPublic, v.ShareToken,
		v.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: create view")
}

// ListViews implements Store.
func (s *PostgresStore) ListViews(ctx context.Context, ownerID string, includePublic bool) ([]model.SavedMapView, error) {
	where := `owner_id = $1`
	if includePublic {
		where = `(owner_id = $1 OR is_public)`
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, owner_id, name, description, center_lat, center_lng, zoom,
		       map_type, filters, layers, is_public, share_token, created_at
		FROM saved_views WHERE `+where+` ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list views")
	}
	defer rows.Close()

	var out []model.SavedMapView
	for rows.Next() {
		var (
			v               model.SavedMapView
			filters, layers []byte
		)
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Center.Lat,
			&v.Center.Lng, &v.Zoom, &v.MapType, &filters, &layers,
			&v.IsPublic, &v.ShareToken, &v.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan view")
		}
		if len(filters) > 0 {
			_ = json.Unmarshal(filters, &v.Filters)
		}
		if len(layers) > 0 {
			_ = json.Unmarshal(layers, &v.Layers)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate views")
	}
	return out, nil
}

// CreateExport implements Store.
func (s *PostgresStore) CreateExport(ctx context.Context, req *model.ExportRequest) error {
	criteria, err := json.Marshal(req.Criteria)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal export criteria")
	}
	fields, _ := json.Marshal(req.Fields)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO export_requests (
			id, owner_id, format, criteria, fields, status, download_ref,
			record_count, file_size, error, expires_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		req.ID, req.OwnerID, string(req.Format), criteria, fields,
		string(req.Status), req.DownloadRef, req.RecordCount, req.FileSize,
		req.Error, req.ExpiresAt, req.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: create export")
}

// UpdateExport implements Store.
func (s *PostgresStore) UpdateExport(ctx context.Context, id string, patch model.ExportPatch) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE export_requests
		SET status = $1, download_ref = $2, record_count = $3, file_size = $4,
		    error = $5, expires_at = $6
		WHERE id = $7`,
		string(patch.Status), patch.DownloadRef, patch.RecordCount,
		patch.FileSize, patch.Error, patch.ExpiresAt, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update export %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "postgres: export %s", id)
	}
	return nil
}

// GetExport implements Store.
func (s *PostgresStore) GetExport(ctx context.Context, id string) (*model.ExportRequest, error) {
	var (
		req              model.ExportRequest
		criteria, fields []byte
		format, status   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, format, criteria, fields, status, download_ref,
		       record_count, file_size, error, expires_at, created_at
		FROM export_requests WHERE id = $1`, id,
	).Scan(
		&req.ID, &req.OwnerID, &format, &criteria, &fields, &status,
		&req.DownloadRef, &req.RecordCount, &req.FileSize, &req.Error,
		&req.ExpiresAt, &req.CreatedAt,
	)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "postgres: export %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get export %s", id)
	}
	req.Format = model.ExportFormat(format)
	req.Status = model.ExportStatus(status)
	if len(criteria) > 0 {
		_ = json.Unmarshal(criteria, &req.Criteria)
	}
	if len(fields) > 0 {
		_ = json.Unmarshal(fields, &req.Fields)
	}
	return &req, nil
}

// LogSearchResults implements Store.
func (s *PostgresStore) LogSearchResults(ctx context.Context, rows []model.SearchResult) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin search log tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, r := range rows {
		filters, _ := json.Marshal(r.Filters)
		if _, err := tx.Exec(ctx, `
			INSERT INTO search_results (
				search_id, business_id, owner_id, center_lat, center_lng,
				radius_m, filters, distance_m, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			r.SearchID, r.BusinessID, r.OwnerID, r.Center.Lat, r.Center.Lng,
			r.RadiusMeters, filters, r.DistanceMeters, r.CreatedAt.UTC(),
		); err != nil {
			return eris.Wrap(err, "postgres: insert search result")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit search log")
}
