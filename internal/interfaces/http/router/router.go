// Package router wires the HTTP surface: request logging, recovery, body
// limits, and the versioned API routes.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/infrastructure/config"
	"github.com/sellerhub/backend/internal/infrastructure/logger"
	"github.com/sellerhub/backend/internal/interfaces/http/handler"
	"github.com/sellerhub/backend/internal/interfaces/http/middleware"
)

// Handlers groups the route handlers for setup
type Handlers struct {
	System  *handler.SystemHandler
	Account *handler.AccountHandler
	Import  *handler.ImportHandler
	Record  *handler.RecordHandler
}

// Setup builds the gin engine with middleware and routes
func Setup(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	r := gin.New()
	r.Use(logger.RequestID())
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.Recovery(log))
	r.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/accounts", h.Account.Create)
		v1.GET("/accounts", h.Account.List)

		acc := v1.Group("/accounts/:account_id")
		{
			acc.GET("", h.Account.Get)
			acc.PATCH("/active", h.Account.SetActive)

			acc.POST("/imports/:kind", h.Import.Upload)
			acc.GET("/imports/jobs", h.Import.List)
			acc.GET("/imports/jobs/:id", h.Import.Get)
			acc.POST("/imports/jobs/:id/cancel", h.Import.Cancel)

			acc.GET("/orders", h.Record.ListOrders)
			acc.GET("/orders/:id", h.Record.GetOrder)
			acc.POST("/orders/:id/transition", h.Record.TransitionOrder)

			acc.GET("/listings", h.Record.ListListings)
			acc.GET("/listings/:id", h.Record.GetListing)
			acc.POST("/listings/:id/transition", h.Record.TransitionListing)
			acc.POST("/listings/:id/sale", h.Record.RecordSale)

			acc.GET("/history/:kind/:id", h.Record.History)
			acc.GET("/summary/:kind", h.Record.Summary)
		}
	}

	return r
}
