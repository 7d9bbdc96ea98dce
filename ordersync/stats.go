package ordersync

import (
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/shopspring/decimal"
)

type OrderTypeStats struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ShiftStats struct {
	TotalOrders    int                                 `json:"total_orders"`
	TotalRevenue   decimal.Decimal                     `json:"total_revenue"`
	CancelledCount int                                 `json:"cancelled_count"`
	ByOrderType    map[models.OrderType]OrderTypeStats `json:"by_order_type"`
}

// ComputeStats derives shift totals from a merged view. Approved
// cancellations stay in the order count but drop out of revenue;
// pending cancellations still count toward revenue until the manager
// decides. The per-type breakdown excludes approved cancellations
// entirely.
func ComputeStats(orders []models.Order) ShiftStats {
	stats := ShiftStats{
		TotalRevenue: decimal.Zero,
		ByOrderType:  map[models.OrderType]OrderTypeStats{},
	}
	for _, order := range orders {
		stats.TotalOrders++
		if order.Status == models.OrderStatusCancelledApproved {
			stats.CancelledCount++
			continue
		}
		stats.TotalRevenue = stats.TotalRevenue.Add(order.TotalPrice)

		byType := stats.ByOrderType[order.OrderType]
		byType.Orders++
		byType.Revenue = byType.Revenue.Add(order.TotalPrice)
		stats.ByOrderType[order.OrderType] = byType
	}
	return stats
}
