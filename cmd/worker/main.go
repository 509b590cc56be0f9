// cmd/worker/main.go
// Queue worker entrypoint: consumes order change events and re-ingests the
// affected orders.
package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/database"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/rabbitmq"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/workers"
)

func main() {
	log.Println("Starting Order Event Worker Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Configuration loaded")
	log.Printf("  - RabbitMQ: %s", cfg.RabbitMQ.URL)
	log.Printf("  - Postgres: %s:%s/%s", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database)

	// Connect to Postgres
	dbClient, err := database.InitPostgreSQL(
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
	)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer dbClient.Close()
	log.Println("Connected to Postgres")

	st := store.New(dbClient)

	// Create RabbitMQ consumer
	consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	defer consumer.Close()
	log.Println("Connected to RabbitMQ")

	worker := workers.NewOrderEventWorker(consumer, st, cfg.SPAPI, cfg.RabbitMQ.OrderQueue)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Start(); err != nil {
			log.Printf("Order event worker error: %v", err)
		}
	}()

	log.Println("Worker started successfully")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down worker...")
	consumer.Close()
	wg.Wait()
	log.Println("Worker stopped gracefully")
}
