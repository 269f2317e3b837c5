package handlers

import (
	"net/http"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/repository"
	"strconv"

	"github.com/shopspring/decimal"
)

type SupplierHandler struct {
	repo repository.SupplierRepository
}

func NewSupplierHandler(repo repository.SupplierRepository) *SupplierHandler {
	return &SupplierHandler{repo: repo}
}

type SupplierLinkRequest struct {
	ProductID   int64           `json:"product_id" validate:"required,gt=0"`
	SupplyPrice decimal.Decimal `json:"supply_price"`
}

func (h *SupplierHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.repo.GetAll(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to get suppliers")
		return
	}

	writeJSON(w, http.StatusOK, suppliers)
}

func (h *SupplierHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}

	supplier, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get supplier")
		return
	}

	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var s models.Supplier
	if ok := decodeAndValidate(w, r, &s); !ok {
		return
	}

	if err := h.repo.Create(r.Context(), &s); err != nil {
		writeDomainError(w, err, "failed to create supplier")
		return
	}

	w.Header().Set("Location", "/api/suppliers/"+strconv.FormatInt(s.SupplierID, 10))
	writeJSON(w, http.StatusCreated, s)
}

func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}

	var changes models.SupplierChanges
	if ok := decodeAndValidate(w, r, &changes); !ok {
		return
	}

	supplier, err := h.repo.Update(r.Context(), id, changes)
	if err != nil {
		writeDomainError(w, err, "failed to update supplier")
		return
	}

	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err, "failed to delete supplier")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *SupplierHandler) Products(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}

	products, err := h.repo.GetProducts(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "failed to get supplier products")
		return
	}

	out := make([]supplierProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, supplierProductResponse{
			ProductID:   p.ProductID,
			Name:        p.Name,
			Barcode:     p.Barcode,
			Price:       money.Format(p.Price),
			SupplyPrice: money.Format(p.SupplyPrice),
		})
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *SupplierHandler) LinkProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}

	var req SupplierLinkRequest
	if ok := decodeAndValidate(w, r, &req); !ok {
		return
	}

	if err := h.repo.LinkProduct(r.Context(), id, req.ProductID, req.SupplyPrice); err != nil {
		writeDomainError(w, err, "failed to link product")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *SupplierHandler) UnlinkProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id", "supplier")
	if !ok {
		return
	}
	productID, ok := parseID(w, r, "productID", "product")
	if !ok {
		return
	}

	if err := h.repo.UnlinkProduct(r.Context(), id, productID); err != nil {
		writeDomainError(w, err, "failed to unlink product")
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}
