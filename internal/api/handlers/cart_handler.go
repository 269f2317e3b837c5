package handlers

import (
	"context"
	"log"
	"net/http"
	"register-service/internal/cart"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type CartHandler struct {
	sessions cart.SessionStore
	catalog  cart.Catalog
	sales    SaleService
}

func NewCartHandler(sessions cart.SessionStore, catalog cart.Catalog, sales SaleService) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: catalog, sales: sales}
}

// CartAddRequest adds by product id or, when scanning, by barcode.
type CartAddRequest struct {
	ProductID int64  `json:"product_id" validate:"required_without=Barcode,omitempty,gt=0"`
	Barcode   string `json:"barcode" validate:"required_without=ProductID,omitempty,max=64"`
	Quantity  int    `json:"quantity" validate:"omitempty,gt=0"`
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=50"`
}

type checkoutResponse struct {
	SaleID int64         `json:"sale_id"`
	Sale   *saleResponse `json:"sale,omitempty"`
}

func (h *CartHandler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (*cart.Cart, bool) {
	c, err := h.sessions.Load(ctx, sessionID(r))
	if err != nil {
		writeDomainError(w, err, "failed to load cart")
		return nil, false
	}
	return c, true
}

func (h *CartHandler) update(w http.ResponseWriter, r *http.Request, fn func(c *cart.Cart) error, fallback string) {
	c, err := h.sessions.Update(r.Context(), sessionID(r), fn)
	if err != nil {
		writeDomainError(w, err, fallback)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c.Snapshot(), c.Totals()))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(r.Context(), w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toCartResponse(c.Snapshot(), c.Totals()))
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req CartAddRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	ctx := r.Context()
	h.update(w, r, func(c *cart.Cart) error {
		if req.ProductID > 0 {
			return c.Add(ctx, h.catalog, req.ProductID, req.Quantity)
		}
		return c.AddByBarcode(ctx, h.catalog, req.Barcode, req.Quantity)
	}, "failed to add to cart")
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_index", "invalid cart index", nil)
		return
	}

	h.update(w, r, func(c *cart.Cart) error {
		return c.Remove(index)
	}, "failed to remove from cart")
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.sessions.Delete(ctx, sessionID(r)); err != nil {
		writeDomainError(w, err, "failed to clear cart")
		return
	}

	c := cart.New()
	writeJSON(w, http.StatusOK, toCartResponse(c.Snapshot(), c.Totals()))
}

// Checkout commits the session cart. The cart survives a failed checkout so
// the cashier can correct it.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if r.ContentLength != 0 {
		if ok := decodeAndValidate(w, r, &req); !ok {
			return
		}
	}

	ctx := r.Context()
	c, ok := h.load(ctx, w, r)
	if !ok {
		return
	}

	saleID, err := c.Checkout(ctx, h.sales, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err, "failed to complete sale")
		return
	}

	if err := h.sessions.Delete(ctx, sessionID(r)); err != nil {
		writeDomainError(w, err, "sale completed but the cart could not be cleared")
		return
	}

	resp := checkoutResponse{SaleID: saleID}
	if sale, items, err := h.sales.GetSale(ctx, saleID); err == nil {
		view := toSaleResponse(sale, items)
		resp.Sale = &view
	} else {
		log.Printf("sale %d committed but could not be read back: %v", saleID, err)
	}

	writeJSON(w, http.StatusCreated, resp)
}
