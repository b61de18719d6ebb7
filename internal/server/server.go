package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/internal/api"
	"github.com/kiesman99/tilecut/internal/catalog"
	"github.com/kiesman99/tilecut/internal/metrics"
	"github.com/kiesman99/tilecut/internal/mosaic"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

type Option func(*Server)

// WithCatalog caches rendered tiles in store. name labels the cache
// metrics.
func WithCatalog(store catalog.Store, name string) Option {
	return func(s *Server) {
		s.cache = store
		s.cacheName = name
	}
}

// WithMaxZoom rejects tile requests deeper than zoom.
func WithMaxZoom(zoom uint32) Option {
	return func(s *Server) { s.maxZoom = zoom }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// Server implements the ServerInterface from the generated API
type Server struct {
	startTime time.Time
	version   string
	mosaic    *mosaic.Mosaic
	cache     catalog.Store
	cacheName string
	maxZoom   uint32
	log       *zap.Logger
}

// NewServer creates a new server rendering tiles from m.
func NewServer(version string, m *mosaic.Mosaic, opts ...Option) *Server {
	s := &Server{
		startTime: time.Now(),
		version:   version,
		mosaic:    m,
		maxZoom:   tile.MaxZoom,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}
	s.writeJSON(w, http.StatusOK, response)
}

// GetTile renders, or serves from the catalog, one tile.
func (s *Server) GetTile(w http.ResponseWriter, r *http.Request, z, x, y int, format api.TileFormat, params api.GetTileParams) {
	requestID := requestID(r)

	f, err := raster.ParseFormat(string(format))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_FORMAT", err.Error(), &requestID)
		return
	}
	scheme, err := parseScheme(params.Scheme)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_SCHEME", err.Error(), &requestID)
		return
	}
	k, err := s.tileKey(z, x, y, scheme)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_TILE", err.Error(), &requestID)
		return
	}

	if data, ok := s.cached(r.Context(), k, f); ok {
		w.Header().Set("X-Cache", "HIT")
		s.writeTile(w, f, data, requestID)
		return
	}

	data, err := s.mosaic.Render(k, f)
	if err != nil {
		s.handleRenderError(w, k, err, &requestID)
		return
	}

	if s.cache != nil {
		if err := s.cache.Put(r.Context(), k, f, data); err != nil {
			s.log.Warn("catalog put failed", zap.Stringer("key", k), zap.Error(err))
		}
		w.Header().Set("X-Cache", "MISS")
	}
	s.writeTile(w, f, data, requestID)
}

// GetCatalog lists the zoom levels held by the catalog.
func (s *Server) GetCatalog(w http.ResponseWriter, r *http.Request) {
	requestID := requestID(r)
	if s.cache == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "CATALOG_DISABLED", "no tile catalog is configured", &requestID)
		return
	}

	zooms, err := s.cache.Zooms(r.Context())
	if err != nil {
		s.handleCatalogError(w, err, &requestID)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CatalogResponse{Zooms: ints(zooms)})
}

// GetCatalogZoom lists the columns and rows held for zoom z. Rows are
// numbered in the requested scheme.
func (s *Server) GetCatalogZoom(w http.ResponseWriter, r *http.Request, z int, params api.GetCatalogZoomParams) {
	requestID := requestID(r)
	if s.cache == nil {
		s.writeErrorResponse(w, http.StatusNotFound, "CATALOG_DISABLED", "no tile catalog is configured", &requestID)
		return
	}
	if z < 0 || z > tile.MaxZoom {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_ZOOM", fmt.Sprintf("zoom must be between 0 and %d", tile.MaxZoom), &requestID)
		return
	}
	scheme, err := parseScheme(params.Scheme)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_SCHEME", err.Error(), &requestID)
		return
	}

	zoom := uint32(z)
	cols, err := s.cache.Columns(r.Context(), zoom)
	if err != nil {
		s.handleCatalogError(w, err, &requestID)
		return
	}
	rows, err := s.cache.Rows(r.Context(), zoom)
	if err != nil {
		s.handleCatalogError(w, err, &requestID)
		return
	}
	for i, y := range rows {
		rows[i] = scheme.Row(tile.NewKey(zoom, 0, y))
	}
	slices.Sort(rows)

	s.writeJSON(w, http.StatusOK, api.ZoomCatalogResponse{
		Zoom:   z,
		Scheme: api.Scheme(scheme),
		X:      ints(cols),
		Y:      ints(rows),
	})
}

// GetSources lists the rasters of the mosaic.
func (s *Server) GetSources(w http.ResponseWriter, r *http.Request) {
	entries := s.mosaic.Entries()
	sources := make([]api.Source, 0, len(entries))
	for _, e := range entries {
		b := e.Source.Bound()
		nw, se := b.NWLatLon(), b.SELatLon()
		sources = append(sources, api.Source{
			Name:  e.Name,
			Bands: e.Source.Bands(),
			Bbox:  []float64{se.LatDegrees(), nw.LonDegrees(), nw.LatDegrees(), se.LonDegrees()},
		})
	}
	s.writeJSON(w, http.StatusOK, api.SourcesResponse{Sources: sources})
}

func (s *Server) tileKey(z, x, y int, scheme tile.Scheme) (tile.Key, error) {
	if z < 0 || z > int(s.maxZoom) {
		return tile.Key{}, fmt.Errorf("zoom must be between 0 and %d", s.maxZoom)
	}
	n := int64(tile.ZoomToTileCount(uint32(z)))
	if x < 0 || int64(x) >= n || y < 0 || int64(y) >= n {
		return tile.Key{}, fmt.Errorf("tile %d/%d/%d is outside the %dx%d grid", z, x, y, n, n)
	}
	return scheme.Key(uint32(z), uint32(x), uint32(y)), nil
}

func (s *Server) cached(ctx context.Context, k tile.Key, f raster.Format) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, k, f)
	if err != nil {
		s.log.Warn("catalog get failed", zap.Stringer("key", k), zap.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues(s.cacheName).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(s.cacheName).Inc()
	return data, true
}

func (s *Server) writeTile(w http.ResponseWriter, f raster.Format, data []byte, requestID string) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Debug("write tile", zap.Error(err))
	}
}

// handleRenderError maps mosaic failures onto HTTP responses.
func (s *Server) handleRenderError(w http.ResponseWriter, k tile.Key, err error, requestID *string) {
	if errors.Is(err, mosaic.ErrNoCoverage) {
		s.writeErrorResponse(w, http.StatusNotFound, "NO_COVERAGE",
			fmt.Sprintf("no source covers tile %v", k), requestID)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "RENDER_TIMEOUT", "tile rendering timed out", requestID)
		return
	}

	s.log.Error("render failed", zap.Stringer("key", k), zap.Error(err))
	s.writeErrorResponse(w, http.StatusBadGateway, "RENDER_FAILED", err.Error(), requestID)
}

func (s *Server) handleCatalogError(w http.ResponseWriter, err error, requestID *string) {
	s.log.Error("catalog listing failed", zap.Error(err))
	s.writeErrorResponse(w, http.StatusBadGateway, "CATALOG_ERROR", "catalog is unavailable", requestID)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string) {
	s.writeJSON(w, statusCode, api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("encode response", zap.Error(err))
	}
}

func parseScheme(p *api.Scheme) (tile.Scheme, error) {
	if p == nil {
		return tile.XYZ, nil
	}
	return tile.ParseScheme(string(*p))
}

func ints(vs []uint32) []int {
	out := make([]int, len(vs))
	for i, v := range vs {
		out[i] = int(v)
	}
	return out
}

// requestID returns the id set by the RequestID middleware, or a new one.
func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
