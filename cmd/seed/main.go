package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/config"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/seed"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Password for every seeded account")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	opts := seed.Defaults(*password)
	if *email != "" {
		// the first account is the admin
		opts.Staff[0].Email = *email
	}

	sum, err := seed.Run(ctx, database.NewTxRunner(pool), opts)
	if err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
	log.Printf("Seed completed successfully: %d tables, %d users, %d menu items created", sum.Tables, sum.Users, sum.Menu)
}
