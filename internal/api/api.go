// Package api serves search and arbitrage queries over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rewired-gh/silverroute/internal/analyzer"
	"github.com/rewired-gh/silverroute/internal/arbitrage"
	"github.com/rewired-gh/silverroute/internal/logger"
)

// Service is the query surface the handlers depend on.
type Service interface {
	Search(ctx context.Context, query string) analyzer.SearchReport
	Query(ctx context.Context, input string, sel analyzer.Selection) (analyzer.QueryReport, error)
	AnalyzeWithMode(ctx context.Context, mode arbitrage.Mode, itemIDs []string) (analyzer.Report, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	svc         Service
	defaultMode arbitrage.Mode
	started     time.Time
}

type analyzeRequest struct {
	ItemIDs []string `json:"item_ids" binding:"required,min=1,max=500,dive,required"`
	Mode    string   `json:"mode"`
}

// SetupRoutes registers the API routes on r.
func SetupRoutes(r *gin.RouterGroup, svc Service, defaultMode arbitrage.Mode) *Handler {
	handler := &Handler{svc: svc, defaultMode: defaultMode, started: time.Now()}

	r.GET("/healthz", handler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/search", handler.Search)
		v1.GET("/arbitrage", handler.QueryArbitrage)
		v1.POST("/arbitrage", handler.AnalyzeItems)
	}
	return handler
}

// NewRouter builds a gin engine with the API routes and request logging.
func NewRouter(svc Service, defaultMode arbitrage.Mode, mode string) *gin.Engine {
	if mode != "" {
		gin.SetMode(mode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	SetupRoutes(&r.RouterGroup, svc, defaultMode)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Search resolves ?q= to variant families.
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q must not be empty"})
		return
	}
	c.JSON(http.StatusOK, h.svc.Search(c.Request.Context(), q))
}

// QueryArbitrage searches ?q= and analyzes the families chosen by ?group= or
// ?all=, optionally under ?mode=.
func (h *Handler) QueryArbitrage(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q must not be empty"})
		return
	}

	var sel analyzer.Selection
	if g := c.Query("group"); g != "" {
		if strings.EqualFold(g, "all") || strings.EqualFold(g, "todos") {
			sel.All = true
		} else {
			n, err := strconv.Atoi(g)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "group must be a number"})
				return
			}
			sel.Group = n
		}
	}
	if all, err := strconv.ParseBool(c.DefaultQuery("all", "false")); err == nil && all {
		sel.All = true
	}
	if m := c.Query("mode"); m != "" {
		mode, err := arbitrage.ParseMode(m)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel.Mode = mode
	}

	out, err := h.svc.Query(c.Request.Context(), q, sel)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyzeItems evaluates an explicit list of item IDs.
func (h *Handler) AnalyzeItems(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mode := h.defaultMode
	if req.Mode != "" {
		m, err := arbitrage.ParseMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mode = m
	}

	report, err := h.svc.AnalyzeWithMode(c.Request.Context(), mode, req.ItemIDs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analyzer.ErrInvalidGroup):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// Serve runs the HTTP server on addr until ctx is done, then shuts it down.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
