// Package repotest provides in-memory repositories for tests. Sale
// transactions are serialized and staged, so a failed transaction leaves no
// trace, like the row-locked Postgres implementation.
package repotest

import (
	"context"
	"fmt"
	"maps"
	"register-service/internal/models"
	"register-service/internal/repository"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type state struct {
	products      map[int64]models.Product
	sales         []models.Sale
	items         []models.SaleItem
	movements     []models.StockMovement
	categories    []models.Category
	nextProductID int64
	nextSaleID    int64
	nextItemID    int64
}

func (s *state) clone() *state {
	c := *s
	c.products = maps.Clone(s.products)
	c.sales = slices.Clone(s.sales)
	c.items = slices.Clone(s.items)
	c.movements = slices.Clone(s.movements)
	c.categories = slices.Clone(s.categories)
	return &c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state

	// FailInsertItems, when set, is returned by SaleTx.InsertItems.
	FailInsertItems error
	// FailDecrement, when set, is returned by SaleTx.DecrementStock.
	FailDecrement error
}

func New() *Store {
	return &Store{st: &state{products: map[int64]models.Product{}}}
}

// AddProduct inserts a product with the given price and stock.
func (s *Store) AddProduct(name, price string, stock int) models.Product {
	p := models.Product{
		Name:              name,
		Price:             decimal.RequireFromString(price),
		Stock:             stock,
		LowStockThreshold: models.DefaultLowStockThreshold,
	}
	if err := s.Products().Create(context.Background(), &p); err != nil {
		panic(err)
	}
	return p
}

func (s *Store) Product(id int64) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.products[id]
}

func (s *Store) SetStock(id int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.st.products[id]
	p.Stock = stock
	s.st.products[id] = p
}

func (s *Store) SaleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.sales)
}

func (s *Store) Movements() []models.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.st.movements)
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepo{s: s}
}

func (s *Store) Sales() repository.SaleRepository {
	return &saleRepo{s: s}
}

func (s *Store) MovementLedger() repository.MovementRepository {
	return &movementRepo{s: s}
}

func (s *Store) Categories() repository.CategoryRepository {
	return &categoryRepo{s: s}
}

func (st *state) addMovement(productID int64, saleID *int64, movementType string, change int) {
	st.movements = append(st.movements, models.StockMovement{
		MovementID:   int64(len(st.movements) + 1),
		ProductID:    productID,
		SaleID:       saleID,
		MovementType: movementType,
		ChangeQuant:  change,
		CreatedAt:    time.Now(),
	})
}

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if strings.TrimSpace(p.Name) == "" || p.Price.IsNegative() || p.Stock < 0 {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.Barcode != nil {
		for _, existing := range r.s.st.products {
			if existing.Barcode != nil && *existing.Barcode == *p.Barcode {
				return repository.ErrDuplicate
			}
		}
	}
	r.s.st.nextProductID++
	p.ProductID = r.s.st.nextProductID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.s.st.products[p.ProductID] = *p
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *productRepo) GetByBarcode(ctx context.Context, barcode string) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.st.products {
		if p.Barcode != nil && *p.Barcode == barcode {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	return r.Search(ctx, models.ProductFilter{})
}

func (r *productRepo) Search(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	keyword := strings.ToLower(filter.Keyword)
	var out []models.Product
	for _, p := range r.s.st.products {
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			continue
		}
		if filter.CategoryID > 0 && (p.CategoryID == nil || *p.CategoryID != filter.CategoryID) {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *productRepo) Update(ctx context.Context, id int64, c models.ProductChanges) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if c.Name != nil {
		p.Name = *c.Name
	}
	if c.Barcode != nil {
		p.Barcode = c.Barcode
	}
	if c.CategoryID != nil {
		p.CategoryID = c.CategoryID
	}
	if c.Price != nil {
		p.Price = *c.Price
	}
	if c.CostPrice != nil {
		p.CostPrice = *c.CostPrice
	}
	if c.Stock != nil {
		p.Stock = *c.Stock
	}
	if c.LowStockThreshold != nil {
		p.LowStockThreshold = *c.LowStockThreshold
	}
	r.s.st.products[id] = p
	return &p, nil
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.st.products, id)
	return nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id int64, change int) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.st.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Stock+change < 0 {
		return nil, repository.ErrNotEnough
	}
	p.Stock += change
	r.s.st.products[id] = p
	r.s.st.addMovement(id, nil, models.MovementAdjustment, change)
	return &p, nil
}

func (r *productRepo) GetLowStock(ctx context.Context) ([]models.Product, error) {
	all, _ := r.GetAll(ctx)
	var out []models.Product
	for _, p := range all {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

type saleRepo struct {
	s *Store
}

func (r *saleRepo) WithinTx(ctx context.Context, fn func(tx repository.SaleTx) error) error {
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	r.s.mu.Lock()
	staged := r.s.st.clone()
	r.s.mu.Unlock()

	if err := fn(&saleTx{s: r.s, st: staged}); err != nil {
		return err
	}

	r.s.mu.Lock()
	r.s.st = staged
	r.s.mu.Unlock()
	return nil
}

func (r *saleRepo) GetSaleWithItems(ctx context.Context, id int64) (*models.Sale, []models.SaleItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.st.sales {
		if sale.SaleID != id {
			continue
		}
		items := []models.SaleItem{}
		for _, item := range r.s.st.items {
			if item.SaleID == id {
				items = append(items, item)
			}
		}
		return &sale, items, nil
	}
	return nil, nil, repository.ErrNotFound
}

func (r *saleRepo) GetRecent(ctx context.Context, limit int) ([]models.SaleSummary, error) {
	if limit <= 0 {
		limit = repository.DefaultRecentSalesLimit
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.SaleSummary{}
	for i := len(r.s.st.sales) - 1; i >= 0 && len(out) < limit; i-- {
		sale := r.s.st.sales[i]
		count := 0
		for _, item := range r.s.st.items {
			if item.SaleID == sale.SaleID {
				count++
			}
		}
		out = append(out, models.SaleSummary{Sale: sale, ItemCount: count})
	}
	return out, nil
}

type saleTx struct {
	s  *Store
	st *state
}

func (t *saleTx) LockProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error) {
	out := make(map[int64]models.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *saleTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	t.st.nextSaleID++
	sale.SaleID = t.st.nextSaleID
	t.st.sales = append(t.st.sales, *sale)
	return nil
}

func (t *saleTx) InsertItems(ctx context.Context, saleID int64, items []models.SaleItem) error {
	if t.s.FailInsertItems != nil {
		return t.s.FailInsertItems
	}
	for i := range items {
		t.st.nextItemID++
		items[i].SaleItemID = t.st.nextItemID
		items[i].SaleID = saleID
		t.st.items = append(t.st.items, items[i])
	}
	return nil
}

func (t *saleTx) DecrementStock(ctx context.Context, productID int64, quantity int, saleID int64) error {
	if t.s.FailDecrement != nil {
		return t.s.FailDecrement
	}
	p, ok := t.st.products[productID]
	if !ok || p.Stock < quantity {
		return fmt.Errorf("%w: product %d", repository.ErrNotEnough, productID)
	}
	p.Stock -= quantity
	t.st.products[productID] = p
	t.st.addMovement(productID, &saleID, models.MovementSale, -quantity)
	return nil
}

type movementRepo struct {
	s *Store
}

func (r *movementRepo) GetByProductID(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	return r.filter(func(m models.StockMovement) bool { return m.ProductID == productID }), nil
}

func (r *movementRepo) GetBySaleID(ctx context.Context, saleID int64) ([]models.StockMovement, error) {
	return r.filter(func(m models.StockMovement) bool { return m.SaleID != nil && *m.SaleID == saleID }), nil
}

func (r *movementRepo) filter(keep func(models.StockMovement) bool) []models.StockMovement {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []models.StockMovement{}
	for _, m := range r.s.st.movements {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

type categoryRepo struct {
	s *Store
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return repository.ErrInvalidInput
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.st.categories {
		if existing.Name == c.Name {
			return repository.ErrDuplicate
		}
	}
	c.CategoryID = int64(len(r.s.st.categories) + 1)
	r.s.st.categories = append(r.s.st.categories, *c)
	return nil
}

func (r *categoryRepo) GetAll(ctx context.Context) ([]models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.st.categories)
	slices.SortFunc(out, func(a, b models.Category) int { return strings.Compare(a.Name, b.Name) })
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

func (r *categoryRepo) Delete(ctx context.Context, id int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := slices.IndexFunc(r.s.st.categories, func(c models.Category) bool { return c.CategoryID == id })
	if idx < 0 {
		return nil, repository.ErrNotFound
	}
	r.s.st.categories = slices.Delete(r.s.st.categories, idx, idx+1)
	detached := []int64{}
	for pid, p := range r.s.st.products {
		if p.CategoryID != nil && *p.CategoryID == id {
			p.CategoryID = nil
			r.s.st.products[pid] = p
			detached = append(detached, pid)
		}
	}
	slices.Sort(detached)
	return detached, nil
}
