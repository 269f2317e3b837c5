package database

import (
	"context"
	"fmt"
)

type seedProduct struct {
	name      string
	barcode   string
	category  string
	price     string
	cost      string
	stock     int
	threshold int
}

var seedCategories = []string{
	"Dairy", "Bakery", "Beverages", "Snacks", "Fruits & Vegetables",
	"Meat & Poultry", "Frozen Foods", "Household",
}

var seedProducts = []seedProduct{
	{"Whole Milk 1L", "1001", "Dairy", "3.49", "2.10", 45, 10},
	{"Cheddar Cheese 200g", "1002", "Dairy", "4.99", "3.20", 30, 8},
	{"Greek Yogurt 500g", "1003", "Dairy", "5.49", "3.50", 25, 8},
	{"White Bread Loaf", "2001", "Bakery", "2.49", "1.20", 50, 15},
	{"Croissants 4-pack", "2002", "Bakery", "3.99", "2.40", 20, 10},
	{"Orange Juice 1L", "3001", "Beverages", "4.29", "2.80", 35, 10},
	{"Sparkling Water 6-pack", "3002", "Beverages", "5.99", "3.60", 40, 12},
	{"Cola 2L", "3003", "Beverages", "2.99", "1.50", 60, 15},
	{"Potato Chips 150g", "4001", "Snacks", "3.29", "1.80", 55, 15},
	{"Chocolate Bar", "4002", "Snacks", "1.99", "0.90", 80, 20},
	{"Bananas 1kg", "5001", "Fruits & Vegetables", "1.49", "0.70", 5, 10},
	{"Tomatoes 500g", "5002", "Fruits & Vegetables", "2.99", "1.60", 3, 8},
	{"Chicken Breast 500g", "6001", "Meat & Poultry", "7.99", "5.20", 20, 8},
	{"Frozen Pizza", "7001", "Frozen Foods", "6.49", "3.80", 15, 5},
	{"Dish Soap 500ml", "8001", "Household", "3.99", "2.00", 25, 10},
}

var seedSuppliers = [][4]string{
	{"Fresh Farms Co.", "555-0101", "orders@freshfarms.com", "123 Farm Road"},
	{"Metro Distributors", "555-0202", "sales@metrodist.com", "456 Industrial Ave"},
	{"Quick Supply Ltd.", "555-0303", "info@quicksupply.com", "789 Commerce St"},
}

// Seed fills an empty catalog with sample data. It is a no-op when any
// product already exists, and reports whether it inserted anything.
func Seed(ctx context.Context, conn Conn) (bool, error) {
	var count int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	categoryIDs := make(map[string]int64, len(seedCategories))
	for _, name := range seedCategories {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO categories (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING category_id
		`, name).Scan(&id)
		if err != nil {
			return false, fmt.Errorf("failed to seed category %s: %w", name, err)
		}
		categoryIDs[name] = id
	}

	for _, p := range seedProducts {
		_, err := tx.Exec(ctx, `
			INSERT INTO products (name, barcode, category_id, price, cost_price, stock, low_stock_threshold)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		`, p.name, p.barcode, categoryIDs[p.category], p.price, p.cost, p.stock, p.threshold)
		if err != nil {
			return false, fmt.Errorf("failed to seed product %s: %w", p.name, err)
		}
	}

	for _, s := range seedSuppliers {
		_, err := tx.Exec(ctx,
			"INSERT INTO suppliers (name, phone, email, address) VALUES ($1, $2, $3, $4)",
			s[0], s[1], s[2], s[3],
		)
		if err != nil {
			return false, fmt.Errorf("failed to seed supplier %s: %w", s[0], err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}

	return true, nil
}
