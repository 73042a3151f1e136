package model

import "time"

// SavedMapView is a persisted map configuration owned by a user. A share
// token exists only for public views.
type SavedMapView struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"owner_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Center      LatLng        `json:"center"`
	Zoom        int           `json:"zoom"`
	MapType     string        `json:"map_type,omitempty"`
	Filters     SearchFilters `json:"filters"`
	Layers      []string      `json:"layers,omitempty"`
	IsPublic    bool          `json:"is_public"`
	ShareToken  string        `json:"share_token,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ExportStatus is the lifecycle state of an export request. Requests start
// processing and transition exactly once to a terminal state.
type ExportStatus string

const (
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusCompleted  ExportStatus = "completed"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportFormat identifies a supported export serialization.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatTSV  ExportFormat = "tsv" // tab-separated, Excel-compatible
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f ExportFormat) bool {
	switch f {
	case ExportFormatCSV, ExportFormatTSV, ExportFormatXLSX:
		return true
	}
	return false
}

// ExportRequest tracks one export of a search result set.
type ExportRequest struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Format      ExportFormat   `json:"format"`
	Criteria    SearchCriteria `json:"criteria"`
	Fields      []string       `json:"fields,omitempty"`
	Status      ExportStatus   `json:"status"`
	DownloadRef string         `json:"download_ref,omitempty"`
	RecordCount int            `json:"record_count"`
	FileSize    int64          `json:"file_size"`
	Error       string         `json:"error,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"` // 24h after completion
	CreatedAt   time.Time      `json:"created_at"`
}

// ExportPatch carries the mutable fields of an export request update.
type ExportPatch struct {
	Status      ExportStatus
	DownloadRef string
	RecordCount int
	FileSize    int64
	Error       string
	ExpiresAt   *time.Time
}

// SearchResult is one append-only analytics log row recording that a search
// returned a business. The discovery path never reads these back.
type SearchResult struct {
	SearchID       string        `json:"search_id"`
	BusinessID     string        `json:"business_id"`
	OwnerID        string        `json:"owner_id"`
	Center         LatLng        `json:"center"`
	RadiusMeters   float64       `json:"radius_m"`
	Filters        SearchFilters `json:"filters"`
	DistanceMeters float64       `json:"distance_m"`
	CreatedAt      time.Time     `json:"created_at"`
}
