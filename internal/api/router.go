// Package api wires the HTTP handlers to routes.
package api

import (
	"net/http"
	"register-service/internal/api/handlers"
	"register-service/internal/cart"
	"register-service/internal/receipt"
	"register-service/internal/repository"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Deps struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Movements  repository.MovementRepository
	Suppliers  repository.SupplierRepository
	Stats      repository.StatsRepository
	Sales      handlers.SaleService
	Carts      cart.SessionStore
	Receipts   receipt.Formatter
	CartTTL    time.Duration

	// Catalog backs cart stock and price checks. It defaults to Products;
	// set it to the uncached repository when Products reads through a cache.
	Catalog cart.Catalog
}

func NewRouter(d Deps) http.Handler {
	products := handlers.NewProductHandler(d.Products, d.Movements)
	categories := handlers.NewCategoryHandler(d.Categories)
	suppliers := handlers.NewSupplierHandler(d.Suppliers)
	dashboard := handlers.NewDashboardHandler(d.Stats)
	salesHandler := handlers.NewSaleHandler(d.Sales, d.Receipts)
	catalog := d.Catalog
	if catalog == nil {
		catalog = d.Products
	}
	carts := handlers.NewCartHandler(d.Carts, catalog, d.Sales)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", products.List)
			r.Post("/", products.Create)
			r.Get("/low-stock", products.LowStock)
			r.Get("/barcode/{barcode}", products.GetByBarcode)
			r.Get("/{id}", products.GetByID)
			r.Patch("/{id}", products.Update)
			r.Delete("/{id}", products.Delete)
			r.Post("/{id}/stock", products.AdjustStock)
			r.Get("/{id}/movements", products.Movements)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.GetAll)
			r.Post("/", categories.Create)
			r.Delete("/{id}", categories.Delete)
		})

		r.Route("/suppliers", func(r chi.Router) {
			r.Get("/", suppliers.GetAll)
			r.Post("/", suppliers.Create)
			r.Get("/{id}", suppliers.GetByID)
			r.Patch("/{id}", suppliers.Update)
			r.Delete("/{id}", suppliers.Delete)
			r.Get("/{id}/products", suppliers.Products)
			r.Post("/{id}/products", suppliers.LinkProduct)
			r.Delete("/{id}/products/{productID}", suppliers.UnlinkProduct)
		})

		r.Group(func(r chi.Router) {
			r.Use(handlers.SessionMiddleware(d.CartTTL))
			r.Get("/cart", carts.Get)
			r.Delete("/cart", carts.Clear)
			r.Post("/cart/items", carts.Add)
			r.Delete("/cart/items/{index}", carts.Remove)
			r.Post("/cart/checkout", carts.Checkout)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", salesHandler.Recent)
			r.Post("/", salesHandler.Create)
			r.Get("/{id}", salesHandler.GetByID)
			r.Get("/{id}/receipt", salesHandler.Receipt)
		})

		r.Get("/dashboard", dashboard.Get)
	})

	return r
}
