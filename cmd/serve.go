package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/discovery"
	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: newMux(env.Service),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newMux wires the JSON API routes.
func newMux(svc *discovery.Service) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/search", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			model.SearchCriteria
			OwnerID string `json:"owner_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		resp, err := svc.Search(r.Context(), req.SearchCriteria, req.OwnerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("GET /api/map", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		bounds := model.MapBounds{
			NorthEast: model.LatLng{Lat: queryFloat(q.Get("ne_lat")), Lng: queryFloat(q.Get("ne_lng"))},
			SouthWest: model.LatLng{Lat: queryFloat(q.Get("sw_lat")), Lng: queryFloat(q.Get("sw_lng"))},
		}
		zoom, _ := strconv.Atoi(q.Get("zoom"))

		var filters model.SearchFilters
		if v := q.Get("min_rating"); v != "" {
			f := queryFloat(v)
			filters.MinRating = &f
		}
		if cats := q["category"]; len(cats) > 0 {
			filters.Categories = cats
		}

		data, err := svc.GetMapData(r.Context(), bounds, zoom, filters)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, data)
	})

	mux.HandleFunc("GET /api/analytics", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		bounds := model.MapBounds{
			NorthEast: model.LatLng{Lat: queryFloat(q.Get("ne_lat")), Lng: queryFloat(q.Get("ne_lng"))},
			SouthWest: model.LatLng{Lat: queryFloat(q.Get("sw_lat")), Lng: queryFloat(q.Get("sw_lng"))},
		}

		timeframe := 90 * 24 * time.Hour
		if v := q.Get("timeframe"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid timeframe"})
				return
			}
			timeframe = d
		}

		report, err := svc.GetMarketAnalytics(r.Context(), bounds, timeframe)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	mux.HandleFunc("POST /api/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			analytics.Area
			IncludeCompetitors  bool `json:"include_competitors"`
			IncludeDemographics bool `json:"include_demographics"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		result, err := svc.AnalyzeArea(r.Context(), req.Area, req.IncludeCompetitors, req.IncludeDemographics)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	mux.HandleFunc("POST /api/route", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BusinessIDs []string     `json:"business_ids"`
			Start       model.LatLng `json:"start"`
			Optimize    bool         `json:"optimize"`
			Mode        string       `json:"mode"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		plan, err := svc.PlanRoute(r.Context(), req.BusinessIDs, req.Start, req.Optimize, geo.TravelMode(req.Mode))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	})

	mux.HandleFunc("POST /api/views", func(w http.ResponseWriter, r *http.Request) {
		var view model.SavedMapView
		if !decodeJSON(w, r, &view) {
			return
		}

		saved, err := svc.SaveMapView(r.Context(), view.OwnerID, view)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	})

	mux.HandleFunc("GET /api/views", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		includePublic := q.Get("include_public") == "true"

		views, err := svc.ListMapViews(r.Context(), q.Get("owner_id"), includePublic)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	})

	mux.HandleFunc("POST /api/export", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OwnerID  string               `json:"owner_id"`
			Criteria model.SearchCriteria `json:"criteria"`
			Format   string               `json:"format"`
			Fields   []string             `json:"fields"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		export, err := svc.ExportResults(r.Context(), req.OwnerID, req.Criteria, model.ExportFormat(req.Format), req.Fields)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, export)
	})

	return mux
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the discovery error classes to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrUpstreamProvider):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
	}

	var ve *model.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, status, map[string]string{"error": ve.Reason, "field": ve.Field})
		return
	}
	writeJSON(w, status, map[string]string{"error": eris.Cause(err).Error()})
}

func queryFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
