package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/vietlearn/backend-academy/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	source := flag.String("source", "file://db/migrations", "migration source URL")
	flag.Parse()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := app.RunMigrations(*source, dbURL); err != nil {
		log.Fatalf("Migrations failed: %v", err)
	}
	log.Println("Migrations applied successfully")
}
