package discovery

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/loopline/thriftscout/internal/model"
)

// exportExpiry is how long a completed export stays downloadable.
const exportExpiry = 24 * time.Hour

// defaultExportFields is the projection used when the caller names none.
var defaultExportFields = []string{
	"name", "address", "city", "neighborhood", "rating", "review_count",
	"price_level", "phone", "website", "lat", "lng", "distance_m",
}

// ExportResults re-runs the search for the full matching set, serializes it
// to the requested format under the export directory, and tracks the request
// lifecycle: it is created in processing and transitions exactly once to
// completed (with a 24h expiry) or failed (with the error captured, never
// retried).
func (s *Service) ExportResults(ctx context.Context, ownerID string, criteria model.SearchCriteria, format model.ExportFormat, fields []string) (*model.ExportRequest, error) {
	if !model.ValidFormat(format) {
		return nil, eris.Wrap(model.NewValidationError("format", "format must be csv, tsv, or xlsx"), "discovery: export")
	}
	applyCriteriaDefaults(&criteria)
	if err := criteria.Validate(); err != nil {
		return nil, eris.Wrap(err, "discovery: export")
	}
	if len(fields) == 0 {
		fields = defaultExportFields
	}
	for _, f := range fields {
		if !validExportField(f) {
			return nil, eris.Wrap(model.NewValidationError("fields", fmt.Sprintf("unknown export field %q", f)), "discovery: export")
		}
	}

	req := &model.ExportRequest{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Format:    format,
		Criteria:  criteria,
		Fields:    fields,
		Status:    model.ExportStatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateExport(ctx, req); err != nil {
		return nil, eris.Wrap(err, "discovery: create export request")
	}

	result, err := s.generateExport(ctx, req)
	if err != nil {
		s.failExport(ctx, req, err)
		return nil, eris.Wrapf(model.ErrExportGeneration, "discovery: export %s: %v", req.ID, err)
	}
	return result, nil
}

func (s *Service) generateExport(ctx context.Context, req *model.ExportRequest) (*model.ExportRequest, error) {
	rows, err := s.collectExportRows(ctx, req.Criteria, req.OwnerID)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.cfg.ExportDir, req.ID+"."+string(req.Format))
	if err := os.MkdirAll(s.cfg.ExportDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "discovery: create export dir")
	}

	switch req.Format {
	case model.ExportFormatCSV:
		err = writeDelimited(path, req.Fields, rows, ',')
	case model.ExportFormatTSV:
		err = writeDelimited(path, req.Fields, rows, '\t')
	case model.ExportFormatXLSX:
		err = writeXLSX(path, req.Fields, rows)
	}
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: stat export file")
	}

	expires := time.Now().Add(exportExpiry).UTC()
	patch := model.ExportPatch{
		Status:      model.ExportStatusCompleted,
		DownloadRef: path,
		RecordCount: len(rows),
		FileSize:    info.Size(),
		ExpiresAt:   &expires,
	}
	if err := s.store.UpdateExport(ctx, req.ID, patch); err != nil {
		return nil, eris.Wrap(err, "discovery: mark export completed")
	}

	req.Status = patch.Status
	req.DownloadRef = patch.DownloadRef
	req.RecordCount = patch.RecordCount
	req.FileSize = patch.FileSize
	req.ExpiresAt = patch.ExpiresAt
	return req, nil
}

// failExport records the terminal failed state. If even that update fails
// there is nothing left to do but log.
func (s *Service) failExport(ctx context.Context, req *model.ExportRequest, cause error) {
	patch := model.ExportPatch{
		Status: model.ExportStatusFailed,
		Error:  cause.Error(),
	}
	if err := s.store.UpdateExport(ctx, req.ID, patch); err != nil {
		s.log.Error("failed to record export failure",
			zap.String("export_id", req.ID), zap.Error(err))
	}
}

// collectExportRows pages through the full filtered result set. The pages
// run as searches for the export's owner so the analytics log attributes
// them correctly.
func (s *Service) collectExportRows(ctx context.Context, criteria model.SearchCriteria, ownerID string) ([]model.Business, error) {
	criteria.Limit = model.MaxPageLimit
	criteria.Page = 1

	var out []model.Business
	for {
		resp, err := s.Search(ctx, criteria, ownerID)
		if err != nil {
			return nil, err
		}
		out = append(out, resp.Businesses...)
		if criteria.Page >= resp.Pagination.TotalPages {
			return out, nil
		}
		criteria.Page++
	}
}

func validExportField(f string) bool {
	for _, known := range defaultExportFields {
		if f == known {
			return true
		}
	}
	return false
}

func fieldValue(b *model.Business, field string) string {
	switch field {
	case "name":
		return b.Name
	case "address":
		return b.Address.Formatted
	case "city":
		return b.Address.City
	case "neighborhood":
		return b.Address.Neighborhood
	case "rating":
		return strconv.FormatFloat(b.Rating, 'f', 1, 64)
	case "review_count":
		return strconv.Itoa(b.ReviewCount)
	case "price_level":
		return strconv.Itoa(b.PriceLevel)
	case "phone":
		return b.Contact.Phone
	case "website":
		return b.Contact.Website
	case "lat":
		return strconv.FormatFloat(b.Address.Location.Lat, 'f', 6, 64)
	case "lng":
		return strconv.FormatFloat(b.Address.Location.Lng, 'f', 6, 64)
	case "distance_m":
		return strconv.FormatFloat(b.DistanceMeters, 'f', 0, 64)
	}
	return ""
}

func writeDelimited(path string, fields []string, rows []model.Business, delim rune) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "discovery: create export file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = delim

	if err := w.Write(fields); err != nil {
		return eris.Wrap(err, "discovery: write export header")
	}
	record := make([]string, len(fields))
	for i := range rows {
		for j, field := range fields {
			record[j] = fieldValue(&rows[i], field)
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "discovery: write export row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "discovery: flush export")
	}
	return nil
}

func writeXLSX(path string, fields []string, rows []model.Business) error {
	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("businesses")
	if err != nil {
		return eris.Wrap(err, "discovery: add export sheet")
	}

	header := sheet.AddRow()
	for _, field := range fields {
		header.AddCell().SetString(field)
	}
	for i := range rows {
		row := sheet.AddRow()
		for _, field := range fields {
			row.AddCell().SetString(fieldValue(&rows[i], field))
		}
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrap(err, "discovery: save xlsx export")
	}
	return nil
}
