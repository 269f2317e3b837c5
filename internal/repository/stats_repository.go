package repository

import (
	"context"
	"fmt"
	"register-service/internal/models"
)

type statsRepo struct {
	db DBTX
}

func NewStatsRepository(db DBTX) StatsRepository {
	return &statsRepo{db: db}
}

// Dashboard aggregates catalog and sales figures. Revenue is pre-tax.
func (r *statsRepo) Dashboard(ctx context.Context) (*models.DashboardStats, error) {
	sql := `
	SELECT
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM categories),
		(SELECT COUNT(*) FROM products WHERE stock <= low_stock_threshold),
		(SELECT COUNT(*) FROM sales WHERE created_at >= date_trunc('day', NOW())),
		(SELECT COALESCE(SUM(total), 0) FROM sales WHERE created_at >= date_trunc('day', NOW())),
		(SELECT COALESCE(SUM(total), 0) FROM sales)
	`

	var stats models.DashboardStats

	err := r.db.QueryRow(ctx, sql).Scan(
		&stats.TotalProducts,
		&stats.TotalCategories,
		&stats.LowStockCount,
		&stats.TodaySalesCount,
		&stats.TodayRevenue,
		&stats.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard stats: %w", err)
	}

	return &stats, nil
}
