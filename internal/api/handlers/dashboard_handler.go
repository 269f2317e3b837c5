package handlers

import (
	"net/http"
	"register-service/internal/money"
	"register-service/internal/repository"
)

type DashboardHandler struct {
	stats repository.StatsRepository
}

func NewDashboardHandler(stats repository.StatsRepository) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to get dashboard stats")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		TotalProducts:   stats.TotalProducts,
		TotalCategories: stats.TotalCategories,
		LowStockCount:   stats.LowStockCount,
		TodaySalesCount: stats.TodaySalesCount,
		TodayRevenue:    money.Format(stats.TodayRevenue),
		TotalRevenue:    money.Format(stats.TotalRevenue),
	})
}
