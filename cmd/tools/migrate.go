package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/baxromumarov/job-harvester/internal/store"
)

func main() {
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Database URL (defaults to DATABASE_URL)")
	schema := flag.String("schema", "", "Path to schema file (default: embedded schema)")
	flag.Parse()

	if *dbURL == "" {
		log.Fatal("Database URL is required (-db or DATABASE_URL)")
	}

	db, err := store.NewStore(*dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.RunMigrations(ctx, *schema); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations executed successfully")
}
