package handlers

import (
	"context"
	"errors"
	"net/http"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/receipt"
	"register-service/internal/repository"
	"register-service/internal/sales"
	"strconv"
)

const maxRecentSales = 200

// SaleService is the part of the sales engine the HTTP layer needs.
type SaleService interface {
	CommitSale(ctx context.Context, items []sales.LineRequest, paymentMethod string) (int64, error)
	GetSale(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error)
	ListRecentSales(ctx context.Context, limit int) ([]models.SaleSummary, error)
}

type SaleHandler struct {
	sales    SaleService
	receipts receipt.Formatter
}

func NewSaleHandler(sales SaleService, receipts receipt.Formatter) *SaleHandler {
	return &SaleHandler{sales: sales, receipts: receipts}
}

type SaleCreateRequest struct {
	Items []struct {
		ProductID int64 `json:"product_id" validate:"required,gt=0"`
		Quantity  int   `json:"quantity" validate:"required,gt=0"`
	} `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=50"`
}

// Create commits a sale directly from a list of lines, bypassing the
// session cart.
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req SaleCreateRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	lines := make([]sales.LineRequest, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, sales.LineRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	saleID, err := h.sales.CommitSale(r.Context(), lines, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err, "failed to complete sale")
		return
	}

	sale, items, err := h.sales.GetSale(r.Context(), saleID)
	if err != nil {
		writeDomainError(w, err, "failed to get sale")
		return
	}

	w.Header().Set("Location", "/api/sales/"+strconv.FormatInt(saleID, 10))
	writeJSON(w, http.StatusCreated, toSaleResponse(sale, items))
}

func (h *SaleHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := repository.DefaultRecentSalesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentSales {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be between 1 and 200", nil)
			return
		}
		limit = n
	}

	summaries, err := h.sales.ListRecentSales(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err, "failed to get recent sales")
		return
	}

	out := make([]saleSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, saleSummaryResponse{
			SaleID:        s.SaleID,
			Total:         money.Format(s.Total),
			PaymentMethod: s.PaymentMethod,
			ItemCount:     s.ItemCount,
			CreatedAt:     s.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *SaleHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "sale")
	if !ok {
		return
	}

	sale, items, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "sale not found", nil)
			return
		}
		writeDomainError(w, err, "failed to get sale")
		return
	}

	writeJSON(w, http.StatusOK, toSaleResponse(sale, items))
}

func (h *SaleHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "sale")
	if !ok {
		return
	}

	sale, items, err := h.sales.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "sale not found", nil)
			return
		}
		writeDomainError(w, err, "failed to get sale")
		return
	}

	text := h.receipts.Format(sale, items, money.Tax(sale.Total))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text + "\n"))
}
