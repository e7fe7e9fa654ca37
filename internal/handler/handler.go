package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/frameloop/frameloop/internal/config"
	"github.com/frameloop/frameloop/internal/intake"
	"github.com/frameloop/frameloop/internal/model"
	"github.com/frameloop/frameloop/internal/pipeline"
	"github.com/frameloop/frameloop/internal/publish"
	"github.com/frameloop/frameloop/internal/ws"
)

// galleryMaxLimit caps the gallery page size regardless of the query.
const galleryMaxLimit = 100

// Handler holds HTTP/WS endpoint handlers.
type Handler struct {
	svc      *pipeline.Service
	pub      *publish.Publisher
	hub      *ws.Hub
	cfg      *config.Config
	upgrader websocket.Upgrader
}

// NewHandler creates the handler set.
func NewHandler(svc *pipeline.Service, pub *publish.Publisher, hub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		svc: svc,
		pub: pub,
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers all routes on the Gin engine. rateLimit is
// applied to the upload path only; it gates entry into the pipeline.
func (h *Handler) RegisterRoutes(r *gin.Engine, rateLimit gin.HandlerFunc) {
	// ── Public endpoints ──
	r.GET("/api/v1/health", h.Health)
	r.GET("/api/v1/gallery", h.Gallery)

	// ── Live feed for gallery subscribers ──
	r.GET("/ws/feed", h.Feed)

	// ── Upload (admission-controlled) ──
	r.POST("/api/v1/images", rateLimit, h.Upload)
}

// ─────────────────────────────────────────────
// POST /api/v1/images
// ─────────────────────────────────────────────

// Upload accepts a single image file plus its position (start | middle |
// end), runs it through the pipeline, and reports the stored image URI —
// plus the artifact when this upload completed a triple.
func (h *Handler) Upload(c *gin.Context) {
	role, err := model.ParseRole(c.PostForm("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file found in the request"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}
	defer file.Close()

	// Read at most one byte past the cap; the validator rejects the rest.
	data, err := io.ReadAll(io.LimitReader(file, h.cfg.MaxUploadBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}

	candidate := model.Candidate{
		Filename:    filepath.Base(fileHeader.Filename),
		ContentType: fileHeader.Header.Get("Content-Type"),
		Data:        data,
	}

	// Decode and storage round-trips are bounded; a wedged backend fails
	// the request instead of hanging it.
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.UploadTimeout)
	defer cancel()

	resp, err := h.svc.Ingest(ctx, c.ClientIP(), role, candidate)
	if err != nil {
		var rej *intake.Rejection
		if errors.As(err, &rej) {
			c.JSON(http.StatusBadRequest, gin.H{"error": rej.Reason})
			return
		}
		log.Printf("[handler] upload error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed, try again later"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// GET /api/v1/gallery
// ─────────────────────────────────────────────

// Gallery returns the most recently published artifacts, newest first.
func (h *Handler) Gallery(c *gin.Context) {
	limit := h.cfg.GalleryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > galleryMaxLimit {
		limit = galleryMaxLimit
	}

	artifacts, err := h.pub.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[handler] gallery error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "gallery unavailable"})
		return
	}

	c.JSON(http.StatusOK, model.GalleryResponse{Artifacts: artifacts})
}

// ─────────────────────────────────────────────
// GET /ws/feed  (gallery subscriber WebSocket)
// ─────────────────────────────────────────────

// Feed upgrades the connection and streams publication events until the
// subscriber goes away.
func (h *Handler) Feed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[handler] websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, h.hub)
	client.Run()
}

// ─────────────────────────────────────────────
// GET /api/v1/health
// ─────────────────────────────────────────────

// Health returns basic server health info, including role occupancy.
func (h *Handler) Health(c *gin.Context) {
	occupancy, err := h.svc.Occupancy(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}

	counts := make(map[string]int, len(occupancy))
	for role, keys := range occupancy {
		counts[role.String()] = len(keys)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"occupancy":   counts,
		"subscribers": h.hub.ClientCount(),
	})
}
