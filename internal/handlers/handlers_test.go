package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"media-proxy/internal/coordinator"
	"media-proxy/internal/extraction"
	"media-proxy/internal/generator"
	"media-proxy/internal/kvstore"
	"media-proxy/internal/proxy"
	"media-proxy/internal/proxycache"
)

type stubProber struct{}

func (stubProber) Probe(context.Context, string) (extraction.Info, error) {
	return extraction.Info{Duration: 60, FPS: 30}, nil
}

// stubBackend completes every job immediately.
type stubBackend struct {
	mu          sync.Mutex
	submissions int
}

func (b *stubBackend) SubmitJob(_ context.Context, _ []extraction.Command) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submissions++
	return fmt.Sprintf("job-%d", b.submissions), nil
}

func (b *stubBackend) Progress(string) (extraction.Progress, error) {
	return extraction.Progress{}, extraction.ErrJobNotFound
}

func (b *stubBackend) Done(string) <-chan extraction.JobEvent {
	ch := make(chan extraction.JobEvent, 1)
	ch <- extraction.JobEvent{}
	close(ch)
	return ch
}

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	coord := coordinator.New(&stubBackend{}, coordinator.TimeoutConfig{
		Base:     time.Second,
		PerSheet: 100 * time.Millisecond,
		Max:      5 * time.Second,
	}, 10*time.Millisecond)
	cache := proxycache.New(kvstore.NewMemory(), proxycache.Options{
		Validate: func(string) bool { return true },
	})
	gen := generator.New(stubProber{}, coord, cache, t.TempDir())
	return New(gen)
}

func generateBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(proxy.GenerationRequest{
		SourcePath:      "/media/clip.mp4",
		Duration:        10,
		FPS:             30,
		IntervalSeconds: 1,
		ThumbWidth:      160,
		ThumbHeight:     90,
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestGenerateEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/generate", generateBody(t))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result proxy.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not a GenerationResult: %v", err)
	}
	if !result.Success {
		t.Fatalf("generation failed: %s", result.Error)
	}
	if len(result.SpriteSheets) != 1 {
		t.Errorf("got %d sheets, want 1", len(result.SpriteSheets))
	}
}

func TestGenerateEndpointBadJSON(t *testing.T) {
	h := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/api/proxy/generate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Errorf("expected a structured error body, got %s", rec.Body.String())
	}
}

func TestGenerateEndpointFailureIsStructured(t *testing.T) {
	// Generation failures are 200s with success=false so clients can show a
	// placeholder instead of treating the response as transport-level.
	h := newTestHandlers(t)

	body, _ := json.Marshal(proxy.GenerationRequest{
		SourcePath:  "blob:abc123",
		Duration:    10,
		ThumbWidth:  160,
		ThumbHeight: 90,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/proxy/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result proxy.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Success {
		t.Error("unsupported source reported success")
	}
	if result.Error == "" {
		t.Error("failure carries no error message")
	}
}

func cachedQuery() url.Values {
	q := url.Values{}
	q.Set("sourcePath", "/media/clip.mp4")
	q.Set("duration", "10")
	q.Set("fps", "30")
	q.Set("thumbWidth", "160")
	q.Set("thumbHeight", "90")
	q.Set("intervalSeconds", "1")
	return q
}

func TestGetCachedEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	// Miss before any generation
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/cached?"+cachedQuery().Encode(), nil)
	rec := httptest.NewRecorder()
	h.GetCached(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d before generation, want 404", rec.Code)
	}

	// Generate, then the same parameters hit
	genRec := httptest.NewRecorder()
	h.Generate(genRec, httptest.NewRequest(http.MethodPost, "/api/proxy/generate", generateBody(t)))
	if genRec.Code != http.StatusOK {
		t.Fatalf("generate status = %d", genRec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetCached(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/cached?"+cachedQuery().Encode(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d after generation, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result proxy.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Errorf("cached result not successful: %s", result.Error)
	}
}

func TestGetCachedEndpointBadParams(t *testing.T) {
	h := newTestHandlers(t)

	q := cachedQuery()
	q.Set("duration", "ten")
	req := httptest.NewRequest(http.MethodGet, "/api/proxy/cached?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.GetCached(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "duration") {
		t.Errorf("error does not name the bad parameter: %s", rec.Body.String())
	}
}

func TestInvalidateSourceEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	// Missing path parameter
	rec := httptest.NewRecorder()
	h.InvalidateSource(rec, httptest.NewRequest(http.MethodDelete, "/api/proxy/source", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d without path, want 400", rec.Code)
	}

	// Generate an entry, then invalidate it
	genRec := httptest.NewRecorder()
	h.Generate(genRec, httptest.NewRequest(http.MethodPost, "/api/proxy/generate", generateBody(t)))

	rec = httptest.NewRecorder()
	h.InvalidateSource(rec, httptest.NewRequest(http.MethodDelete, "/api/proxy/source?path=/media/clip.mp4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["removed"] != 1 {
		t.Errorf("removed = %d, want 1", body["removed"])
	}
}

func TestGetMediaInfoEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.GetMediaInfo(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/info", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d without path, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetMediaInfo(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/info?path=/media/clip.mp4", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var info proxy.MediaInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.Duration != 60 || info.FPS != 30 {
		t.Errorf("info = %+v, want duration 60 fps 30", info)
	}
}

func TestClearCacheEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	genRec := httptest.NewRecorder()
	h.Generate(genRec, httptest.NewRequest(http.MethodPost, "/api/proxy/generate", generateBody(t)))

	rec := httptest.NewRecorder()
	h.ClearCache(rec, httptest.NewRequest(http.MethodDelete, "/api/proxy/cache", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	statsRec := httptest.NewRecorder()
	h.Stats(statsRec, httptest.NewRequest(http.MethodGet, "/api/proxy/stats", nil))
	var stats generator.Stats
	if err := json.Unmarshal(statsRec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Size != 0 {
		t.Errorf("cache size = %d after clear, want 0", stats.Size)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandlers(t)

	genRec := httptest.NewRecorder()
	h.Generate(genRec, httptest.NewRequest(http.MethodPost, "/api/proxy/generate", generateBody(t)))

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/proxy/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats generator.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
	if len(stats.Keys) != 1 {
		t.Errorf("got %d keys, want 1", len(stats.Keys))
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != statusHealthy {
		t.Errorf("Status = %q, want %q", health.Status, statusHealthy)
	}
}

func TestLivenessCheck(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alive") {
		t.Errorf("body = %q", rec.Body.String())
	}

	// HEAD gets headers only
	rec = httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodHead, "/livez", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD response has a body: %q", rec.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	h := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}
