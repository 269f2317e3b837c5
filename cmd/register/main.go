// Command register runs a terminal cash register against the catalog database.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"register-service/internal/database"
	"register-service/internal/receipt"
	"register-service/internal/repository"
	"register-service/internal/sales"
)

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	formatter := receipt.DefaultFormatter()
	formatter.Title = cfg.StoreName

	reg := newRegister(
		repository.NewProductRepository(pool),
		sales.NewEngine(repository.NewSaleRepository(pool)),
		formatter,
		os.Stdout,
	)

	if err := reg.run(ctx, os.Stdin); err != nil {
		log.Fatal("register stopped: ", err)
	}
}
