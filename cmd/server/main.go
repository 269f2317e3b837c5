package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"register-service/internal/api"
	"register-service/internal/cache"
	"register-service/internal/cart"
	"register-service/internal/database"
	"register-service/internal/receipt"
	"register-service/internal/repository"
	"register-service/internal/sales"
	"syscall"
	"time"
)

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	if cfg.SeedSampleData {
		seeded, err := database.Seed(ctx, pool)
		if err != nil {
			log.Fatal("seeding failed: ", err)
		}
		if seeded {
			log.Println("sample catalog loaded")
		}
	}

	live := repository.NewProductRepository(pool)
	var products repository.ProductRepository = live
	var categories repository.CategoryRepository = repository.NewCategoryRepository(pool)
	var carts cart.SessionStore = cart.NewMemoryStore()
	var engineOpts []sales.Option

	if cfg.RedisURL != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg)
		if err != nil {
			log.Printf("Redis unavailable, running without cache: %v", err)
		} else {
			defer rdb.Close()
			cached := cache.NewCachedProductRepository(products, rdb)
			products = cached
			categories = cache.NewCachedCategoryRepository(categories, cached)
			carts = cart.NewRedisStore(rdb, cfg.CartTTL)
			engineOpts = append(engineOpts, sales.WithInvalidator(cached))
		}
	}

	formatter := receipt.DefaultFormatter()
	formatter.Title = cfg.StoreName

	handler := api.NewRouter(api.Deps{
		Products:   products,
		Catalog:    live,
		Categories: categories,
		Movements:  repository.NewMovementRepository(pool),
		Suppliers:  repository.NewSupplierRepository(pool),
		Stats:      repository.NewStatsRepository(pool),
		Sales:      sales.NewEngine(repository.NewSaleRepository(pool), engineOpts...),
		Carts:      carts,
		Receipts:   formatter,
		CartTTL:    cfg.CartTTL,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
