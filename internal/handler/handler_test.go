package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameloop/frameloop/internal/admission"
	"github.com/frameloop/frameloop/internal/blob"
	"github.com/frameloop/frameloop/internal/config"
	"github.com/frameloop/frameloop/internal/intake"
	"github.com/frameloop/frameloop/internal/middleware"
	"github.com/frameloop/frameloop/internal/model"
	"github.com/frameloop/frameloop/internal/pipeline"
	"github.com/frameloop/frameloop/internal/slot"
	"github.com/frameloop/frameloop/internal/synth"
	"github.com/frameloop/frameloop/internal/title"
	"github.com/frameloop/frameloop/internal/ws"
)

type stubPublisher struct{ count int }

func (s *stubPublisher) Publish(ctx context.Context, t string, data []byte) (model.Artifact, error) {
	s.count++
	return model.Artifact{
		Key:         fmt.Sprintf("artifact-%d.gif", s.count),
		Title:       t,
		URI:         "mem://published/artifact.gif",
		PublishedAt: time.Now(),
	}, nil
}

type nopAuditor struct{}

func (nopAuditor) LogUpload(clientID, role, outcome, reason, key string) {}

func (nopAuditor) LogSynthesis(a model.Artifact, s [3]string, took time.Duration) {}

func newTestRouter(t *testing.T, limits admission.Limits) (*gin.Engine, *stubPublisher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	titles, err := title.Load()
	require.NoError(t, err)

	cfg := &config.Config{
		MaxUploadBytes: 1 << 20,
		UploadTimeout:  5 * time.Second,
		GalleryLimit:   10,
	}

	hub := ws.NewHub()
	pub := &stubPublisher{}
	svc := pipeline.NewService(
		intake.NewValidator(cfg.MaxUploadBytes),
		intake.NewNormalizer(250),
		slot.NewStore(blob.NewMemStore("slots")),
		synth.NewSynthesizer(200),
		titles,
		pub,
		hub,
		nopAuditor{},
	)

	r := gin.New()
	h := NewHandler(svc, nil, hub, cfg)
	limiter := admission.NewLimiter(limits)
	h.RegisterRoutes(r, middleware.RateLimit(limiter, nil))
	return r, pub
}

func uploadRequest(t *testing.T, position, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if position != "" {
		require.NoError(t, w.WriteField("position", position))
	}
	if filename != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: uint8(y), B: uint8(x), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func generousLimits() admission.Limits {
	return admission.Limits{PerMinute: 1000, PerHour: 1000, PerDay: 1000}
}

func TestUpload_Accepted(t *testing.T) {
	r, _ := newTestRouter(t, generousLimits())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "start", "frame.png", "image/png", testPNG(t)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp model.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ImageURL)
	assert.Nil(t, resp.Artifact, "single role occupied, no artifact yet")
}

func TestUpload_CompletesTriple(t *testing.T) {
	r, pub := newTestRouter(t, generousLimits())

	for _, pos := range []string{"start", "middle"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, uploadRequest(t, pos, "frame.png", "image/png", testPNG(t)))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "end", "frame.png", "image/png", testPNG(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Artifact)
	assert.NotEmpty(t, resp.Artifact.Title)
	assert.Equal(t, 1, pub.count)
}

func TestUpload_MissingPosition(t *testing.T) {
	r, _ := newTestRouter(t, generousLimits())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "", "frame.png", "image/png", testPNG(t)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "position")
}

func TestUpload_MissingFile(t *testing.T) {
	r, _ := newTestRouter(t, generousLimits())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "start", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no image file")
}

// TestUpload_RejectionIsBadRequest: a validation failure is reported with
// its reason, as 400, distinct from rate limiting.
func TestUpload_RejectionIsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t, generousLimits())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "start", "note.txt", "text/plain", []byte("hi")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "content type")
}

// TestUpload_RateLimited: admission denial is 429, not 400, and fires
// before validation ever runs.
func TestUpload_RateLimited(t *testing.T) {
	r, _ := newTestRouter(t, admission.Limits{PerMinute: 1, PerHour: 10, PerDay: 10})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "start", "frame.png", "image/png", testPNG(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "start", "note.txt", "text/plain", []byte("hi")))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, generousLimits())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), "occupancy")
}
