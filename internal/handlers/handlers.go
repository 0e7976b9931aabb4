package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"media-proxy/internal/generator"
	"media-proxy/internal/logging"
	"media-proxy/internal/proxy"
)

// Handlers exposes the media proxy operations over HTTP.
type Handlers struct {
	gen       *generator.Generator
	startTime time.Time
}

// New creates the HTTP handler set.
func New(gen *generator.Generator) *Handlers {
	return &Handlers{
		gen:       gen,
		startTime: time.Now(),
	}
}

// Generate handles POST /api/proxy/generate. The response is always a
// structured GenerationResult; generation failures are 200s with
// success=false so timeline clients can degrade to placeholders.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req proxy.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result := h.gen.Generate(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// GetCached handles GET /api/proxy/cached. Non-blocking: 404 when the
// request has no valid cache entry.
func (h *Handlers) GetCached(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, ok := h.gen.GetCached(r.Context(), req)
	if !ok {
		writeError(w, http.StatusNotFound, "no cached result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetMediaInfo handles GET /api/proxy/info?path=... It returns probed ground
// truth for a source so the timeline can correct caller-side estimates.
func (h *Handlers) GetMediaInfo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path parameter is required")
		return
	}

	info, err := h.gen.MediaInfo(r.Context(), path)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// InvalidateSource handles DELETE /api/proxy/source?path=...
func (h *Handlers) InvalidateSource(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path parameter is required")
		return
	}

	removed := h.gen.Invalidate(r.Context(), path)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ClearCache handles DELETE /api/proxy/cache.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.gen.ClearAll(r.Context()); err != nil {
		logging.Error("Failed to clear cache: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/proxy/stats.
func (h *Handlers) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.gen.Stats())
}

func requestFromQuery(r *http.Request) (proxy.GenerationRequest, error) {
	q := r.URL.Query()

	req := proxy.GenerationRequest{
		SourcePath: q.Get("sourcePath"),
	}

	var err error
	if req.Duration, err = parseFloatParam(q.Get("duration"), "duration"); err != nil {
		return req, err
	}
	if req.FPS, err = parseFloatParam(q.Get("fps"), "fps"); err != nil {
		return req, err
	}
	if v := q.Get("sourceStartTime"); v != "" {
		if req.SourceStartTime, err = parseFloatParam(v, "sourceStartTime"); err != nil {
			return req, err
		}
	}
	if req.ThumbWidth, err = parseIntParam(q.Get("thumbWidth"), "thumbWidth"); err != nil {
		return req, err
	}
	if req.ThumbHeight, err = parseIntParam(q.Get("thumbHeight"), "thumbHeight"); err != nil {
		return req, err
	}
	if v := q.Get("maxThumbnailsPerSheet"); v != "" {
		if req.MaxThumbnailsPerSheet, err = parseIntParam(v, "maxThumbnailsPerSheet"); err != nil {
			return req, err
		}
	}
	if v := q.Get("intervalSeconds"); v != "" {
		if req.IntervalSeconds, err = parseFloatParam(v, "intervalSeconds"); err != nil {
			return req, err
		}
	}
	return req, nil
}

func parseFloatParam(value, name string) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &paramError{name: name, value: value}
	}
	return f, nil
}

func parseIntParam(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &paramError{name: name, value: value}
	}
	return n, nil
}

type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return "invalid " + e.name + " parameter: " + strconv.Quote(e.value)
}
