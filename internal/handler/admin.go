package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frameloop/frameloop/internal/pipeline"
)

// AdminHandler handles admin-only endpoints: slot diagnostics and
// recovery from stuck occupants (a failed best-effort delete leaves the
// occupant re-selectable forever otherwise).
type AdminHandler struct {
	svc *pipeline.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *pipeline.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// RegisterRoutes registers admin routes on the admin group.
func (h *AdminHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/slots", h.ListSlots)
	admin.DELETE("/slots/:key", h.PurgeSlot)
}

// ─────────────────────────────────────────────
// GET /api/v1/admin/slots
// ─────────────────────────────────────────────

// ListSlots reports current occupant keys per role.
func (h *AdminHandler) ListSlots(c *gin.Context) {
	occupancy, err := h.svc.Occupancy(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": occupancy})
}

// ─────────────────────────────────────────────
// DELETE /api/v1/admin/slots/:key
// ─────────────────────────────────────────────

// PurgeSlot removes one occupant by storage key. Idempotent: purging a
// missing key succeeds.
func (h *AdminHandler) PurgeSlot(c *gin.Context) {
	key := c.Param("key")
	if err := h.svc.PurgeOccupant(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purged": key})
}
