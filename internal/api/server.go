package api

import (
	"log"
	"net/http"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/database"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	dbClient *database.PostgreSQLClient
	store    *store.Store
	cfg      *config.Config
}

// NewServer creates a new server instance
func NewServer(dbClient *database.PostgreSQLClient, st *store.Store, cfg *config.Config) *Server {
	// Initialize Gin router
	router := gin.Default()

	// Configure trusted proxies for Cloud Run deployment
	router.SetTrustedProxies([]string{
		"127.0.0.1",      // localhost (for local dev)
		"::1",            // localhost IPv6 (for local dev)
		"10.0.0.0/8",     // Google Cloud internal network range
		"172.16.0.0/12",  // Private network range used by GCP
		"192.168.0.0/16", // Private network range used by GCP
	})

	// Set up CORS middleware for all environments
	corsConfig := cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"https://sellergenix.web.app",
			"https://sellergenix.firebaseapp.com",
			"https://staging-sellergenix.web.app",
			"https://app.sellergenix.io",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Time", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	router.Use(cors.New(corsConfig))

	// Create server
	server := &Server{
		router:   router,
		dbClient: dbClient,
		store:    st,
		cfg:      cfg,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	log.Printf("Starting server on %s", addr)
	return s.router.Run(addr)
}

// GetRouter returns the Gin router
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// healthCheck provides a basic health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "OK",
	})
}

// testDatabaseConnectivity tests the database connection
func (s *Server) testDatabaseConnectivity(c *gin.Context) {
	result := gin.H{
		"database": "not_tested",
		"status":   "ok",
	}

	if s.dbClient != nil {
		if err := s.dbClient.TestConnectivity(); err != nil {
			result["database"] = "failed: " + err.Error()
			result["status"] = "error"
		} else {
			result["database"] = "connected"
		}
	}

	if result["status"] == "error" {
		c.JSON(http.StatusInternalServerError, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
