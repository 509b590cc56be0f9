package api

import (
	"log"

	"github.com/ilhanselcuk/sellergenix-sub005/internal/api/handlers"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/auth"
)

// setupRoutes configures all the routes for the API
func (s *Server) setupRoutes() {
	log.Println("Setting up routes...")
	router := s.router

	// Basic health and database test endpoints
	router.GET("/health", s.healthCheck)
	router.GET("/test-db", s.testDatabaseConnectivity)

	protected := router.Group("")
	protected.Use(auth.JWTAuth())
	{
		// Period metrics: GET for dashboards, POST for complex filters
		protected.GET("/metrics", handlers.GetMetrics(s.store))
		protected.POST("/metrics", handlers.GetMetrics(s.store))
		protected.GET("/metrics/asin", handlers.GetASINMetrics(s.store))
	}

	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.AdminRoleCheck())
	{
		// Full order/item backfill from the marketplace
		adminRoutes.POST("/sync-orders", handlers.StartOrderSync(s.store, s.cfg.SPAPI, s.cfg.WebhookURL))
		adminRoutes.GET("/sync-orders/status", handlers.GetOrderSyncStatus())

		// Settlement report fee reconciliation
		adminRoutes.POST("/sync-settlement", handlers.StartSettlementSync(s.store, s.cfg.SPAPI))
		adminRoutes.GET("/sync-settlement/status", handlers.GetSettlementSyncStatus())
	}

	// Cloud job routes (API key authentication for scheduled jobs)
	cloudJobRoutes := router.Group("/admin")
	cloudJobRoutes.Use(auth.APIKeyAuth(s.cfg.SyncAPIKey))
	{
		// Hourly sync endpoint for cloud scheduler
		cloudJobRoutes.POST("/hourly-sync", handlers.HourlySync(s.store, s.cfg.SPAPI))
		cloudJobRoutes.GET("/hourly-sync/status", handlers.GetHourlySyncStatus())
	}

	log.Println("Routes set up successfully")
}
