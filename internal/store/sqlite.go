package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/loopline/thriftscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS businesses (
	id                TEXT PRIMARY KEY,
	external_id       TEXT NOT NULL UNIQUE,
	name              TEXT NOT NULL,
	formatted_address TEXT NOT NULL DEFAULT '',
	street            TEXT NOT NULL DEFAULT '',
	neighborhood      TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	state             TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	lat               REAL NOT NULL,
	lng               REAL NOT NULL,
	phone             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	social            TEXT,
	rating            REAL NOT NULL DEFAULT 0,
	review_count      INTEGER NOT NULL DEFAULT 0,
	price_level       INTEGER NOT NULL DEFAULT 0,
	categories        TEXT,
	open_now          INTEGER,
	hours             TEXT,
	photo_urls        TEXT,
	is_active         INTEGER NOT NULL DEFAULT 1,
	discovered_at     DATETIME NOT NULL,
	last_updated      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS saved_views (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	center_lat  REAL NOT NULL,
	center_lng  REAL NOT NULL,
	zoom        INTEGER NOT NULL,
	map_type    TEXT NOT NULL DEFAULT '',
	filters     TEXT,
	layers      TEXT,
	is_public   INTEGER NOT NULL DEFAULT 0,
	share_token TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS export_requests (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	format       TEXT NOT NULL,
	criteria     TEXT NOT NULL,
	fields       TEXT,
	status       TEXT NOT NULL,
	download_ref TEXT NOT NULL DEFAULT '',
	record_count INTEGER NOT NULL DEFAULT 0,
	file_size    INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	expires_at   DATETIME,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS search_results (
	search_id   TEXT NOT NULL,
	business_id TEXT NOT NULL,
	owner_id    TEXT NOT NULL,
	center_lat  REAL NOT NULL,
	center_lng  REAL NOT NULL,
	radius_m    REAL NOT NULL,
	filters     TEXT,
	distance_m  REAL NOT NULL,
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_businesses_box ON businesses(lat, lng);
CREATE INDEX IF NOT EXISTS idx_businesses_last_updated ON businesses(last_updated);
CREATE INDEX IF NOT EXISTS idx_saved_views_owner ON saved_views(owner_id);
CREATE INDEX IF NOT EXISTS idx_search_results_search ON search_results(search_id);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertBusiness implements Store.
func (s *SQLiteStore) UpsertBusiness(ctx context.Context, b *model.Business) (*model.Business, error) {
	if b.ExternalID == "" {
		return nil, eris.New("sqlite: business external id is required")
	}
	now := time.Now().UTC()

	social, _ := json.Marshal(b.Contact.Social)
	categories, _ := json.Marshal(b.Categories)
	hours, _ := json.Marshal(b.Hours)
	photos, _ := json.Marshal(b.PhotoURLs)

	var openNow any
	if b.OpenNow != nil {
		openNow = boolToInt(*b.OpenNow)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO businesses (
			id, external_id, name, formatted_address, street, neighborhood,
			city, state, postal_code, lat, lng, phone, website, social,
			rating, review_count, price_level, categories, open_now, hours,
			photo_urls, is_active, discovered_at, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			name = excluded.name,
			formatted_address = excluded.formatted_address,
			street = excluded.street,
			neighborhood = excluded.neighborhood,
			city = excluded.city,
			state = excluded.state,
			postal_code = excluded.postal_code,
			lat = excluded.lat,
			lng = excluded.lng,
			phone = excluded.phone,
			website = excluded.website,
			social = excluded.social,
			rating = excluded.rating,
			review_count = excluded.review_count,
			price_level = excluded.price_level,
			categories = excluded.categories,
			open_now = excluded.open_now,
			hours = excluded.hours,
			photo_urls = excluded.photo_urls,
			is_active = excluded.is_active,
			last_updated = excluded.last_updated`,
		uuid.New().String(), b.ExternalID, b.Name, b.Address.Formatted,
		b.Address.Street, b.Address.Neighborhood, b.Address.City, b.Address.State,
		b.Address.PostalCode, b.Address.Location.Lat, b.Address.Location.Lng,
		b.Contact.Phone, b.Contact.Website, string(social),
		b.Rating, b.ReviewCount, b.PriceLevel, string(categories), openNow,
		string(hours), string(photos), boolToInt(b.IsActive), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert business %s", b.ExternalID)
	}

	return s.getByExternalID(ctx, b.ExternalID)
}

func (s *SQLiteStore) getByExternalID(ctx context.Context, externalID string) (*model.Business, error) {
	row := s.db.QueryRowContext(ctx, selectBusinessSQL+` WHERE external_id = ?`, externalID)
	b, err := scanBusiness(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "sqlite: business %s", externalID)
		}
		return nil, eris.Wrapf(err, "sqlite: get business %s", externalID)
	}
	return b, nil
}

const selectBusinessSQL = `
	SELECT id, external_id, name, formatted_address, street, neighborhood,
	       city, state, postal_code, lat, lng, phone, website, social,
	       rating, review_count, price_level, categories, open_now, hours,
	       photo_urls, is_active, discovered_at, last_updated
	FROM businesses`

// FindInBox implements Store.
func (s *SQLiteStore) FindInBox(ctx context.Context, box model.MapBounds, updatedAfter *time.Time) ([]model.Business, error) {
	n := box.Normalized()
	query := selectBusinessSQL + `
	WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ? AND is_active = 1`
	args := []any{n.SouthWest.Lat, n.NorthEast.Lat, n.SouthWest.Lng, n.NorthEast.Lng}

	if updatedAfter != nil {
		query += ` AND last_updated >= ?`
		args = append(args, updatedAfter.UTC())
	}
	query += ` ORDER BY last_updated DESC`

	return s.queryBusinesses(ctx, query, args...)
}

// FindInBoxSince implements Store.
func (s *SQLiteStore) FindInBoxSince(ctx context.Context, box model.MapBounds, since time.Time) ([]model.Business, error) {
	n := box.Normalized()
	query := selectBusinessSQL + `
	WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ? AND discovered_at >= ?
	ORDER BY discovered_at DESC`
	return s.queryBusinesses(ctx, query,
		n.SouthWest.Lat, n.NorthEast.Lat, n.SouthWest.Lng, n.NorthEast.Lng, since.UTC())
}

// FindByIDs implements Store.
func (s *SQLiteStore) FindByIDs(ctx context.Context, ids []string) ([]model.Business, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	found, err := s.queryBusinesses(ctx, selectBusinessSQL+` WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	return orderByRequested(found, ids), nil
}

// orderByRequested re-sorts query results into the caller's id order.
func orderByRequested(found []model.Business, ids []string) []model.Business {
	byID := make(map[string]model.Business, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	out := make([]model.Business, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

func (s *SQLiteStore) queryBusinesses(ctx context.Context, query string, args ...any) ([]model.Business, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query businesses")
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan business")
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate businesses")
	}
	return out, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row scanner) (*model.Business, error) {
	var (
		b                                 model.Business
		social, categories, hours, photos sql.NullString
		openNow                           sql.NullInt64
		isActive                          int
	)
	err := row.Scan(
		&b.ID, &b.ExternalID, &b.Name, &b.Address.Formatted, &b.Address.Street,
		&b.Address.Neighborhood, &b.Address.City, &b.Address.State,
		&b.Address.PostalCode, &b.Address.Location.Lat, &b.Address.Location.Lng,
		&b.Contact.Phone, &b.Contact.Website, &social,
		&b.Rating, &b.ReviewCount, &b.PriceLevel, &categories, &openNow,
		&hours, &photos, &isActive, &b.DiscoveredAt, &b.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	if social.Valid && social.String != "null" {
		_ = json.Unmarshal([]byte(social.String), &b.Contact.Social)
	}
	if categories.Valid && categories.String != "null" {
		_ = json.Unmarshal([]byte(categories.String), &b.Categories)
	}
	if hours.Valid && hours.String != "null" {
		_ = json.Unmarshal([]byte(hours.String), &b.Hours)
	}
	if photos.Valid && photos.String != "null" {
		_ = json.Unmarshal([]byte(photos.String), &b.PhotoURLs)
	}
	if openNow.Valid {
		v := openNow.Int64 == 1
		b.OpenNow = &v
	}
	b.IsActive = isActive == 1
	return &b, nil
}

// CreateView implements Store.
func (s *SQLiteStore) CreateView(ctx context.Context, v *model.SavedMapView) error {
	filters, _ := json.Marshal(v.Filters)
	layers, _ := json.Marshal(v.Layers)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_views (
			id, owner_id, name, description, center_lat, center_lng, zoom,
			map_type, filters, layers, is_public, share_token, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.OwnerID, v.Name, v.Description, v.Center.Lat, v.Center.Lng,
		v.Zoom, v.MapType, string(filters), string(layers),
		boolToInt(v.IsPublic), v.ShareToken, v.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: create view")
}

// ListViews implements Store.
func (s *SQLiteStore) ListViews(ctx context.Context, ownerID string, includePublic bool) ([]model.SavedMapView, error) {
	where := `owner_id = ?`
	if includePublic {
		where = `(owner_id = ? OR is_public = 1)`
	}
	query := `
		SELECT id, owner_id, name, description, center_lat, center_lng, zoom,
		       map_type, filters, layers, is_public, share_token, created_at
		FROM saved_views WHERE ` + where + ` ORDER BY created_at DESC`
	args := []any{ownerID}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list views")
	}
	defer rows.Close()

	var out []model.SavedMapView
	for rows.Next() {
		var (
			v               model.SavedMapView
			filters, layers sql.NullString
			isPublic        int
		)
		if err := rows.Scan(
			&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Center.Lat,
			&v.Center.Lng, &v.Zoom, &v.MapType, &filters, &layers,
			&isPublic, &v.ShareToken, &v.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan view")
		}
		if filters.Valid && filters.String != "null" {
			_ = json.Unmarshal([]byte(filters.String), &v.Filters)
		}
		if layers.Valid && layers.String != "null" {
			_ = json.Unmarshal([]byte(layers.String), &v.Layers)
		}
		v.IsPublic = isPublic == 1
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate views")
	}
	return out, nil
}

// CreateExport implements Store.
func (s *SQLiteStore) CreateExport(ctx context.Context, req *model.ExportRequest) error {
	criteria, err := json.Marshal(req.Criteria)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal export criteria")
	}
	fields, _ := json.Marshal(req.Fields)

	var expires any
	if req.ExpiresAt != nil {
		expires = req.ExpiresAt.UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO export_requests (
			id, owner_id, format, criteria, fields, status, download_ref,
			record_count, file_size, error, expires_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.OwnerID, string(req.Format), string(criteria), string(fields),
		string(req.Status), req.DownloadRef, req.RecordCount, req.FileSize,
		req.Error, expires, req.CreatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: create export")
}

// UpdateExport implements Store.
func (s *SQLiteStore) UpdateExport(ctx context.Context, id string, patch model.ExportPatch) error {
	var expires any
	if patch.ExpiresAt != nil {
		expires = patch.ExpiresAt.UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE export_requests
		SET status = ?, download_ref = ?, record_count = ?, file_size = ?,
		    error = ?, expires_at = ?
		WHERE id = ?`,
		string(patch.Status), patch.DownloadRef, patch.RecordCount,
		patch.FileSize, patch.Error, expires, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update export %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "sqlite: export %s", id)
	}
	return nil
}

// GetExport implements Store.
func (s *SQLiteStore) GetExport(ctx context.Context, id string) (*model.ExportRequest, error) {
	var (
		req              model.ExportRequest
		criteria, fields sql.NullString
		format, status   string
		expires          sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, format, criteria, fields, status, download_ref,
		       record_count, file_size, error, expires_at, created_at
		FROM export_requests WHERE id = ?`, id,
	).Scan(
		&req.ID, &req.OwnerID, &format, &criteria, &fields, &status,
		&req.DownloadRef, &req.RecordCount, &req.FileSize, &req.Error,
		&expires, &req.CreatedAt,
	)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrNotFound, "sqlite: export %s", id)
		}
		return nil, eris.Wrapf(err, "sqlite: get export %s", id)
	}
	req.Format = model.ExportFormat(format)
	req.Status = model.ExportStatus(status)
	if criteria.Valid {
		_ = json.Unmarshal([]byte(criteria.String), &req.Criteria)
	}
	if fields.Valid && fields.String != "null" {
		_ = json.Unmarshal([]byte(fields.String), &req.Fields)
	}
	if expires.Valid {
		t := expires.Time
		req.ExpiresAt = &t
	}
	return &req, nil
}

// LogSearchResults implements Store.
func (s *SQLiteStore) LogSearchResults(ctx context.Context, rows []model.SearchResult) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin search log tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO search_results (
			search_id, business_id, owner_id, center_lat, center_lng,
			radius_m, filters, distance_m, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare search log")
	}
	defer stmt.Close()

	for _, r := range rows {
		filters, _ := json.Marshal(r.Filters)
		if _, err := stmt.ExecContext(ctx,
			r.SearchID, r.BusinessID, r.OwnerID, r.Center.Lat, r.Center.Lng,
			r.RadiusMeters, string(filters), r.DistanceMeters, r.CreatedAt.UTC(),
		); err != nil {
			return eris.Wrap(err, "sqlite: insert search result")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit search log")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
