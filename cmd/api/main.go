package main

import (
	"log"
	"os"
	"time"

	"github.com/esmmarket/esmmarket-golang/internal/database"
	"github.com/esmmarket/esmmarket-golang/internal/handlers"
	"github.com/esmmarket/esmmarket-golang/internal/routes"
	"github.com/joho/godotenv"
)

func main() {
	// --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB: db,
	}

	// --- Background Worker ---
	// The reaper runs hourly: orders still unpaid past the payment window
	// are cancelled and their reserved stock is released.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		log.Println("Background worker started: monitoring for overdue orders")

		for range ticker.C {
			app.ProcessOverdueOrders()
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	addr := ":" + os.Getenv("PORT")
	if addr == ":" {
		addr = ":8080"
	}
	log.Printf("Starting ESM Market API server on %s...", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
