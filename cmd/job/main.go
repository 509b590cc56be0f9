// cmd/job/main.go
// Cloud Run Job entrypoint for the scheduled hourly sync
package main

import (
	"context"
	"log"
	"os"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/api/handlers"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/database"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
)

func main() {
	log.Println("=== Starting Cloud Run Job: Hourly Sync ===")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
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
		log.Fatalf("FATAL: Failed to initialize PostgreSQL client: %v", err)
	}
	defer dbClient.Close()

	if err := dbClient.TestConnectivity(); err != nil {
		log.Fatalf("FATAL: PostgreSQL connectivity test failed: %v", err)
	}
	log.Println("PostgreSQL connectivity test passed")

	st := store.New(dbClient)

	// Create sync manager and run one pass
	log.Println("Creating HourlySyncManager...")
	syncManager := handlers.NewHourlySyncManager(st, cfg.SPAPI)

	log.Println("Starting hourly sync execution...")
	runErr := syncManager.Run(context.Background())

	// Get final status and determine exit code
	status := syncManager.GetStatus()

	log.Printf("=== Sync Completed ===")
	log.Printf("Tenants Synced: %d", status.TenantsSynced)
	log.Printf("Tenants Failed: %d", status.TenantsFailed)
	log.Printf("Orders Processed: %d", status.OrdersProcessed)
	log.Printf("Items Synced: %d", status.ItemsSynced)

	// Exit with appropriate code
	if runErr != nil && status.TenantsSynced == 0 {
		log.Println("ERROR: All sync attempts failed")
		os.Exit(1)
	}

	log.Println("Hourly sync job completed successfully")
	os.Exit(0)
}
