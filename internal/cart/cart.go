// Package cart accumulates pending sale lines. A cart is advisory: it checks
// stock when lines are added, but only the sales engine decides at checkout.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"register-service/internal/models"
	"register-service/internal/money"
	"register-service/internal/repository"
	"register-service/internal/sales"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrIndexOutOfRange = errors.New("cart index out of range")

// Catalog is the read side of the product store used when adding lines.
// Merges refresh price and stock from it, so it should not be a cache.
type Catalog interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*models.Product, error)
}

type Committer interface {
	CommitSale(ctx context.Context, items []sales.LineRequest, paymentMethod string) (int64, error)
}

// Cart holds at most one line per product, in insertion order. It is not
// safe for concurrent use; every session or register owns its own cart.
type Cart struct {
	lines []models.CartLine
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) Add(ctx context.Context, catalog Catalog, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", repository.ErrInvalidInput)
	}

	product, err := catalog.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: product %d not found", sales.ErrUnknownProduct, productID)
		}
		return err
	}

	return c.addProduct(product, quantity)
}

func (c *Cart) AddByBarcode(ctx context.Context, catalog Catalog, barcode string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", repository.ErrInvalidInput)
	}

	barcode = strings.TrimSpace(barcode)
	product, err := catalog.GetByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: no product with barcode %q", sales.ErrUnknownProduct, barcode)
		}
		return err
	}

	return c.addProduct(product, quantity)
}

// addProduct merges into the existing line for the product, refreshing its
// name and price from the product just read. The cart is unchanged on error.
func (c *Cart) addProduct(p *models.Product, quantity int) error {
	idx := slices.IndexFunc(c.lines, func(l models.CartLine) bool {
		return l.ProductID == p.ProductID
	})

	merged := quantity
	if idx >= 0 {
		merged += c.lines[idx].Quantity
	}

	if merged > p.Stock {
		return &sales.StockError{
			ProductID: p.ProductID,
			Name:      p.Name,
			Requested: merged,
			Available: p.Stock,
		}
	}

	price := money.Round(p.Price)
	line := models.CartLine{
		ProductID: p.ProductID,
		Name:      p.Name,
		UnitPrice: price,
		Quantity:  merged,
		Subtotal:  money.LineSubtotal(price, merged),
	}

	if idx >= 0 {
		c.lines[idx] = line
	} else {
		c.lines = append(c.lines, line)
	}

	return nil
}

func (c *Cart) Remove(index int) error {
	if index < 0 || index >= len(c.lines) {
		return fmt.Errorf("%w: %d (cart has %d lines)", ErrIndexOutOfRange, index, len(c.lines))
	}
	c.lines = slices.Delete(c.lines, index, index+1)
	return nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Len() int {
	return len(c.lines)
}

// Totals is derived from the current lines only; tax is added on top.
func (c *Cart) Totals() models.CartTotals {
	count := 0
	subtotals := make([]decimal.Decimal, 0, len(c.lines))
	for _, l := range c.lines {
		count += l.Quantity
		subtotals = append(subtotals, l.Subtotal)
	}

	subtotal := money.Sum(subtotals...)
	tax := money.Tax(subtotal)

	return models.CartTotals{
		ItemCount: count,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     money.Round(subtotal.Add(tax)),
	}
}

func (c *Cart) Snapshot() []models.CartLine {
	return slices.Clone(c.lines)
}

func (c *Cart) Requests() []sales.LineRequest {
	items := make([]sales.LineRequest, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, sales.LineRequest{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return items
}

// Checkout commits the cart and empties it. On failure the cart is kept so
// the caller can fix it and resubmit.
func (c *Cart) Checkout(ctx context.Context, committer Committer, paymentMethod string) (int64, error) {
	if len(c.lines) == 0 {
		return 0, sales.ErrEmptyCart
	}

	saleID, err := committer.CommitSale(ctx, c.Requests(), paymentMethod)
	if err != nil {
		return 0, err
	}

	c.Clear()
	return saleID, nil
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	lines := c.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	return json.Marshal(lines)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	c.lines = lines
	return nil
}
