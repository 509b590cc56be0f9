// cmd/server/main.go
package main

import (
	"log"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/api"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/database"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize PostgreSQL client
	log.Println("Initializing PostgreSQL client...")
	dbClient, err := database.InitPostgreSQL(
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
	)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer dbClient.Close()

	// Test connectivity
	log.Println("Testing PostgreSQL connectivity...")
	if err := dbClient.TestConnectivity(); err != nil {
		log.Fatalf("PostgreSQL connectivity test failed: %v", err)
	}
	log.Println("PostgreSQL connectivity test passed!")

	st := store.New(dbClient)

	// Initialize server
	server := api.NewServer(dbClient, st, cfg)

	log.Printf("Starting server on port %s", cfg.Port)
	server.Run(":" + cfg.Port)
}
