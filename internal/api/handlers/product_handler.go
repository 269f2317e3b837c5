package handlers

import (
	"errors"
	"net/http"
	"register-service/internal/models"
	"register-service/internal/repository"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductHandler struct {
	repo      repository.ProductRepository
	movements repository.MovementRepository
}

func NewProductHandler(repo repository.ProductRepository, movements repository.MovementRepository) *ProductHandler {
	return &ProductHandler{repo: repo, movements: movements}
}

type ProductCreateRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Barcode           *string         `json:"barcode" validate:"omitempty,max=64"`
	CategoryID        *int64          `json:"category_id" validate:"omitempty,gt=0"`
	Price             decimal.Decimal `json:"price"`
	CostPrice         decimal.Decimal `json:"cost_price"`
	Stock             int             `json:"stock" validate:"gte=0"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

// ProductUpdateRequest is a partial update; omitted fields keep their value.
type ProductUpdateRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Barcode           *string          `json:"barcode" validate:"omitempty,max=64"`
	CategoryID        *int64           `json:"category_id" validate:"omitempty,gte=0"`
	Price             *decimal.Decimal `json:"price"`
	CostPrice         *decimal.Decimal `json:"cost_price"`
	Stock             *int             `json:"stock" validate:"omitempty,gte=0"`
	LowStockThreshold *int             `json:"low_stock_threshold" validate:"omitempty,gte=0"`
}

type StockAdjustRequest struct {
	Change int `json:"change" validate:"required"`
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "product")
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			writeDomainError(w, err, "failed to get product")
		}
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *ProductHandler) GetByBarcode(w http.ResponseWriter, r *http.Request) {
	barcode := strings.TrimSpace(chi.URLParam(r, "barcode"))
	if barcode == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "barcode is required", nil)
		return
	}

	product, err := h.repo.GetByBarcode(r.Context(), barcode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
			return
		}
		writeDomainError(w, err, "failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

// List returns the whole catalog, or the products matching the q and
// category_id query parameters when either is given.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.ProductFilter{Keyword: strings.TrimSpace(query.Get("q"))}

	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || categoryID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid category_id", nil)
			return
		}
		filter.CategoryID = categoryID
	}

	var (
		products []models.Product
		err      error
	)
	if filter.Keyword == "" && filter.CategoryID == 0 {
		products, err = h.repo.GetAll(r.Context())
	} else {
		products, err = h.repo.Search(r.Context(), filter)
	}
	if err != nil {
		writeDomainError(w, err, "failed to get products")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetLowStock(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to get low stock products")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponses(products))
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductCreateRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	p := models.Product{
		Name:              req.Name,
		Barcode:           req.Barcode,
		CategoryID:        req.CategoryID,
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		Stock:             req.Stock,
		LowStockThreshold: models.DefaultLowStockThreshold,
	}
	if req.LowStockThreshold != nil {
		p.LowStockThreshold = *req.LowStockThreshold
	}

	if err := h.repo.Create(r.Context(), &p); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			writeError(w, http.StatusConflict, "duplicate", "barcode already in use", nil)
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			writeDomainError(w, err, "failed to create product")
		}
		return
	}

	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(p.ProductID, 10))
	writeJSON(w, http.StatusCreated, toProductResponse(p))
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "product")
	if !ok {
		return
	}

	var req ProductUpdateRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	product, err := h.repo.Update(r.Context(), id, models.ProductChanges{
		Name:              req.Name,
		Barcode:           req.Barcode,
		CategoryID:        req.CategoryID,
		Price:             req.Price,
		CostPrice:         req.CostPrice,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		default:
			writeDomainError(w, err, "failed to update product")
		}
		return

	}

	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "product")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		default:
			writeDomainError(w, err, "failed to delete product")
		}
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// AdjustStock applies a manual stock correction and records it as an
// adjustment movement.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "product")
	if !ok {
		return
	}

	var req StockAdjustRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	product, err := h.repo.AdjustStock(r.Context(), id, req.Change)
	if err != nil {
		writeDomainError(w, err, "failed to adjust stock")
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(*product))
}

func (h *ProductHandler) Movements(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "product")
	if !ok {
		return
	}

	movements, err := h.movements.GetByProductID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get stock movements")
		return
	}

	writeJSON(w, http.StatusOK, movements)
}
