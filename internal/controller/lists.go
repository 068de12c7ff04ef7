// Package controller is the thin transport adapter: it binds request
// payloads, calls into the sync engine, and maps typed engine errors
// to status codes. No business rules live here.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"simplist/internal/cache"
	"simplist/internal/config"
	"simplist/internal/database"
	"simplist/internal/engine"
	"simplist/internal/hub"
	"simplist/internal/models"
	"simplist/pkg/logger"
)

type Handlers struct {
	engine    *engine.Engine
	hub       *hub.Hub
	snapshots *cache.Snapshots
	getGroup  singleflight.Group
}

func New(eng *engine.Engine, h *hub.Hub, snapshots *cache.Snapshots) *Handlers {
	return &Handlers{engine: eng, hub: h, snapshots: snapshots}
}

// Welcome is the API index.
func (h *Handlers) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the Simplist API"})
}

// Health returns 200 if the process is alive. Used by load balancers.
func Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Ready returns 200 when the configured backends are reachable.
// Backends that are not configured do not count against readiness.
func Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	cfg := config.Get()
	if cfg.DatabaseURL != "" {
		db := database.DB(ctx)
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database ping failed"})
			return
		}
	}
	if cfg.RedisURL != "" && cache.Client(ctx) == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
		return
	}
	c.String(http.StatusOK, "OK")
}

// CreateList handles POST /api/lists. An empty body creates an
// untitled list.
func (h *Handlers) CreateList(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ml, err := h.engine.CreateList(ctx, body.Title)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ml)
}

// GetLists handles GET /api/lists. Diagnostics: items unexpanded.
func (h *Handlers) GetLists(c *gin.Context) {
	lists, err := h.engine.ListAll(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	if lists == nil {
		lists = []models.List{}
	}
	c.JSON(http.StatusOK, lists)
}

// GetList handles GET /api/lists/:listID. Cache-first as raw bytes;
// store misses are coalesced per list id so a thundering herd on one
// hot list costs a single materialization.
func (h *Handlers) GetList(c *gin.Context) {
	ctx := c.Request.Context()
	listID := c.Param("listID")
	if h.snapshots != nil {
		if b, ok := h.snapshots.Get(ctx, listID); ok {
			c.Data(http.StatusOK, "application/json", b)
			return
		}
	}
	v, err, _ := h.getGroup.Do("list:"+listID, func() (interface{}, error) {
		ml, err := h.engine.GetList(context.Background(), listID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ml)
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	b := v.([]byte)
	c.Data(http.StatusOK, "application/json", b)
	if h.snapshots != nil {
		h.snapshots.SetAsync(listID, b)
	}
}

// UpdateList handles PATCH /api/lists/:listID. Fields absent from the
// payload stay untouched; a submitted items array is the full desired
// ordering.
func (h *Handlers) UpdateList(c *gin.Context) {
	var patch models.ListPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ml, err := h.engine.UpdateList(c.Request.Context(), c.Param("listID"), patch)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ml)
}

// AddItem handles POST /api/lists/:listID/items.
func (h *Handlers) AddItem(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ml, err := h.engine.AddItemToList(c.Request.Context(), c.Param("listID"), body.Content)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ml)
}

// EditItem handles PATCH /api/lists/:listID/items/:itemID.
func (h *Handlers) EditItem(c *gin.Context) {
	var patch models.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	ml, err := h.engine.EditItem(c.Request.Context(), c.Param("listID"), c.Param("itemID"), patch)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ml)
}

// ToggleItem handles POST /api/lists/:listID/items/:itemID/toggle.
func (h *Handlers) ToggleItem(c *gin.Context) {
	ml, err := h.engine.ToggleItem(c.Request.Context(), c.Param("listID"), c.Param("itemID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ml)
}

// RemoveItem handles DELETE /api/lists/:listID/items/:itemID.
// Subscribers still get the post-removal snapshot; the HTTP caller
// gets no body.
func (h *Handlers) RemoveItem(c *gin.Context) {
	_, err := h.engine.RemoveItem(c.Request.Context(), c.Param("listID"), c.Param("itemID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) renderError(c *gin.Context, err error) {
	var nf *engine.NotFoundError
	var ve *engine.ValidationError
	switch {
	case errors.As(err, &nf):
		c.JSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	default:
		logger.Error(c.Request.Context(), "Request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
