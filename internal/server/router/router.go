package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goldenhour/backoffice/internal/server/handlers"
)

// Handlers groups the HTTP handlers mounted by the router. Webhook is nil when
// WhatsApp is not configured.
type Handlers struct {
	Stock   *handlers.StockHandler
	Carts   *handlers.CartHandler
	Counts  *handlers.CountHandler
	Webhook *handlers.WebhookHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/locations", h.Stock.ListLocations)
	r.GET("/locations/:code/stock", h.Stock.LocationStock)
	r.GET("/models", h.Stock.ListModels)

	carts := r.Group("/carts")
	carts.POST("", h.Carts.Open)
	carts.GET("/:id", h.Carts.Get)
	carts.DELETE("/:id", h.Carts.Discard)
	carts.POST("/:id/items", h.Carts.AddItem)
	carts.DELETE("/:id/items/:index", h.Carts.RemoveItem)
	carts.POST("/:id/commit", h.Carts.Commit)

	r.POST("/sales", h.Carts.RecordSale)

	counts := r.Group("/counts")
	counts.POST("", h.Counts.Start)
	counts.DELETE("/:id", h.Counts.Abandon)
	counts.PUT("/:id/entries/:model", h.Counts.Record)
	counts.POST("/:id/report", h.Counts.Report)
	counts.POST("/:id/finish", h.Counts.Finish)

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	logger.Info("router initialized", zap.Bool("webhook", h.Webhook != nil))
	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request completed", fields...)
			return
		}
		logger.Info("request completed", fields...)
	}
}
