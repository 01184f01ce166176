package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/pagerender/pagerender/internal/config"
	"github.com/pagerender/pagerender/internal/rendering"
	"github.com/pagerender/pagerender/internal/server/ratelimit"
	"github.com/pagerender/pagerender/internal/testutil"
)

func testConfig() *config.ServerConfig {
	return &config.ServerConfig{Port: 8080, MaxUploadMB: 1, DefaultDPI: 72}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := newServer(testConfig(), nil)
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func postRender(s *Server, query string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/render"+query, bytes.NewReader(body))
	return doRequest(s, req)
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestNew_NilConfig(t *testing.T) {
	s, err := newServer(nil, nil)
	assert.Error(t, err)
	assert.Nil(t, s)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeJSON(t, w)["status"])

	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestRequestID_ReusesClientValue(t *testing.T) {
	s := newTestServer(t)
	id := uuid.New().String()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", id)
	w := doRequest(s, req)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	w = doRequest(s, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(s, httptest.NewRequest(http.MethodOptions, "/render", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRender_PNG(t *testing.T) {
	s := newTestServer(t)

	w := postRender(s, "?dpi=144", testutil.BuildPDF(image.Pt(200, 100)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "1", w.Header().Get("X-Page-Count"))

	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRender_JPEGScaledSecondPage(t *testing.T) {
	s := newTestServer(t)

	w := postRender(s, "?page=2&width=100&format=jpg&quality=70",
		testutil.BuildPDF(image.Pt(300, 300), image.Pt(200, 100)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Page-Count"))

	img, err := jpeg.Decode(w.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
}

func TestRender_Gray(t *testing.T) {
	s := newTestServer(t)

	w := postRender(s, "?gray=true&antialias=false", testutil.BuildPDF(image.Pt(50, 50)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	img, err := png.Decode(w.Body)
	require.NoError(t, err)
	assert.IsType(t, &image.Gray{}, img)
}

func TestRender_MalformedDocument(t *testing.T) {
	s := newTestServer(t)

	w := postRender(s, "", []byte("this is definitely not a document"))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, "render_failure", resp["error"])
	assert.Equal(t, string(rendering.KindMalformedResource), resp["kind"])
	assert.NotEmpty(t, resp["origin"])
	assert.NotEmpty(t, resp["message"])
	assert.NotContains(t, resp, "page", "document-level failures carry no page")
	assert.Equal(t, w.Header().Get("X-Request-ID"), resp["request_id"])
}

func TestRender_RendererPanic(t *testing.T) {
	s := newTestServer(t)
	s.guard = rendering.NewGuard(rendering.RendererFunc(func(rendering.Page, rendering.Options) (image.Image, error) {
		var counts map[string]int
		counts["page"]++
		return nil, nil
	}))

	w := postRender(s, "", testutil.BuildPDF(image.Pt(50, 50)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, string(rendering.KindTypeMismatch), resp["kind"])
	assert.Equal(t, float64(1), resp["page"])
}

func TestRender_RendererTypedNilError(t *testing.T) {
	s := newTestServer(t)
	s.guard = rendering.NewGuard(rendering.RendererFunc(func(rendering.Page, rendering.Options) (image.Image, error) {
		var pathErr *fs.PathError
		return nil, pathErr
	}))

	w := postRender(s, "", testutil.BuildPDF(image.Pt(50, 50)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, string(rendering.KindUnknown), resp["kind"])
	assert.Equal(t, "*fs.PathError", resp["origin"])
}

func TestRender_PixelLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPixels = 100
	s, err := newServer(cfg, nil)
	require.NoError(t, err)

	w := postRender(s, "", testutil.BuildPDF(image.Pt(200, 100)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(rendering.KindResourceExhaustion), decodeJSON(t, w)["kind"])
}

func TestRender_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	pdf := testutil.BuildPDF(image.Pt(50, 50))

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"dpi not a number", "?dpi=high", "dpi"},
		{"dpi too large", "?dpi=9000", "dpi"},
		{"page zero", "?page=0", "page"},
		{"page out of range", "?page=3", "page"},
		{"crop wrong arity", "?crop=1,2,3", "crop"},
		{"crop inverted", "?crop=10,10,5,20", "crop"},
		{"crop negative", "?crop=-1,0,10,10", "crop"},
		{"bad format", "?format=gif", "format"},
		{"bad bool", "?gray=maybe", "gray"},
		{"quality too high", "?quality=120", "quality"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postRender(s, tt.query, pdf)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, decodeJSON(t, w)["error"], tt.field)
		})
	}
}

func TestRender_EmptyBody(t *testing.T) {
	s := newTestServer(t)
	w := postRender(s, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRender_UploadTooLarge(t *testing.T) {
	s := newTestServer(t)
	w := postRender(s, "", make([]byte, 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRender_UnsupportedMedia(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))

	w := postRender(s, "", buf.Bytes())

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Contains(t, decodeJSON(t, w)["error"], "image/png")
}

func TestRender_BusyWhenNoSlot(t *testing.T) {
	s := newTestServer(t)
	s.renderSlots = semaphore.NewWeighted(1)
	require.NoError(t, s.renderSlots.Acquire(context.Background(), 1))
	defer s.renderSlots.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/render", bytes.NewReader(testutil.BuildPDF(image.Pt(50, 50))))

	w := doRequest(s, req.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPages(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/pages",
		bytes.NewReader(testutil.BuildPDF(image.Pt(612, 792), image.Pt(300, 200))))
	w := doRequest(s, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.PageCount)
	assert.Equal(t, []PageInfo{
		{Page: 1, Width: 612, Height: 792},
		{Page: 2, Width: 300, Height: 200},
	}, resp.Pages)
	assert.Equal(t, w.Header().Get("X-Request-ID"), resp.RequestID)
}

func TestPages_Malformed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/pages", bytes.NewReader([]byte("garbage input")))
	w := doRequest(s, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewLimiter(&ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/render", Method: "POST", Limit: 1, Window: time.Hour},
		},
	})
	defer limiter.Stop()

	s, err := newServer(testConfig(), limiter)
	require.NoError(t, err)
	pdf := testutil.BuildPDF(image.Pt(20, 20))

	w := postRender(s, "", pdf)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = postRender(s, "", pdf)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeJSON(t, w)["error"])

	// Health checks are never limited.
	for i := 0; i < 5; i++ {
		w = doRequest(s, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
