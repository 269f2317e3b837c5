package main

import (
	"context"
	"log"
	"register-service/internal/database"
)

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx := context.Background()

	pool, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	seeded, err := database.Seed(ctx, pool)
	if err != nil {
		log.Fatal("seeding failed: ", err)
	}

	if seeded {
		log.Println("sample catalog loaded")
	} else {
		log.Println("catalog is not empty, nothing to seed")
	}
}
