package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"carousel/internal/app"
	"carousel/internal/app/model"
	"carousel/internal/records"
	"carousel/pkg/config"
	"carousel/pkg/httputil"
)

const (
	proxyTimeout  = 10 * time.Second
	maxProxyBytes = 20 << 20
)

type Handler struct {
	pipeline *app.Pipeline
	fetcher  httputil.Doer
}

type triggerRequest struct {
	Topic        string `json:"topic"`
	SlideCount   int    `json:"slide_count"`
	Theme        string `json:"theme"`
	RSSSource    string `json:"rss_source"`
	ExtraContext string `json:"extra_context"`
	Mode         string `json:"mode"`
}

// updateRequest accepts the editor's full generation document. Only the
// editable fields are kept; the rest is ignored.
type updateRequest struct {
	Topic  *string        `json:"topic"`
	Theme  *string        `json:"theme"`
	Status *string        `json:"status"`
	Slides *[]model.Slide `json:"slides"`
}

func NewHandler(pipeline *app.Pipeline, fetcher httputil.Doer) *Handler {
	if fetcher == nil {
		fetcher = &http.Client{Timeout: proxyTimeout}
	}
	return &Handler{pipeline: pipeline, fetcher: fetcher}
}

// NewRouter wires every route under /api plus the local asset directory when it is served from disk.
func NewRouter(pipeline *app.Pipeline, cfg *config.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), cors(cfg.Server.AllowedOrigin))

	api := router.Group("/api")
	NewHandler(pipeline, nil).RegisterRoutes(api)

	if cfg.Assets.Backend == config.AssetsLocal && cfg.Assets.Route != "" {
		router.Static(cfg.Assets.Route, cfg.Assets.Dir)
	}

	return router
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
	rg.POST("/webhooks/trigger", h.trigger)

	generations := rg.Group("/generations")
	generations.GET("", h.list)
	generations.GET("/:id", h.get)
	generations.PUT("/:id", h.update)
	generations.POST("/:id/generate-image/:slide_id", h.generateImage)
	generations.POST("/:id/generate-viral-visuals", h.generateViralVisuals)

	rg.GET("/proxy/image", h.proxyImage)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	id, err := h.pipeline.Submit(c.Request.Context(), app.Request{
		Topic:      req.Topic,
		SlideCount: req.SlideCount,
		Mode:       model.Mode(req.Mode),
		Theme:      req.Theme,
		Context:    strings.TrimSpace(req.RSSSource + " " + req.ExtraContext),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": id})
}

func (h *Handler) list(c *gin.Context) {
	limit := parseInt(c.Query("limit"), records.DefaultListLimit)

	items, err := h.pipeline.List(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) get(c *gin.Context) {
	gen, err := h.pipeline.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gen)
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	update := model.GenerationUpdate{Topic: req.Topic, Theme: req.Theme}
	if req.Status != nil {
		status := model.Status(*req.Status)
		update.Status = &status
	}
	if req.Slides != nil {
		update.Slides = *req.Slides
		if update.Slides == nil {
			update.Slides = []model.Slide{}
		}
	}

	if err := h.pipeline.Edit(c.Request.Context(), c.Param("id"), update); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *Handler) generateImage(c *gin.Context) {
	url, err := h.pipeline.GenerateSlideImage(c.Request.Context(), c.Param("id"), c.Param("slide_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) generateViralVisuals(c *gin.Context) {
	id := c.Param("id")
	if err := h.pipeline.TriggerViralVisuals(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "id": id})
}

// proxyImage serves a remote image from this origin so the editor can rasterize slides.
func (h *Handler) proxyImage(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url required"})
		return
	}

	data, contentType, err := httputil.FetchBytes(c.Request.Context(), h.fetcher, url, maxProxyBytes)
	if err != nil {
		slog.Error("Image proxy failed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch image"})
		return
	}
	if contentType == "" {
		contentType = "image/png"
	}

	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType, data)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, records.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, app.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		slog.Error("Request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
