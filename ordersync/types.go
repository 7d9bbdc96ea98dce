package ordersync

import (
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/models"
)

type OrdersResponse struct {
	ShiftId   string         `json:"shift_id"`
	Orders    []models.Order `json:"orders"`
	Stats     ShiftStats     `json:"stats"`
	FetchedAt time.Time      `json:"fetched_at"`
	Stale     bool           `json:"stale"`
}

type CancellationRequestBody struct {
	ShiftId string `json:"shift_id"`
	Reason  string `json:"reason"`
}

type DecisionRequestBody struct {
	OrderId   string `json:"order_id"`
	ShiftId   string `json:"shift_id"`
	DecidedBy string `json:"decided_by"`
}

type OrderAddedBody struct {
	Order models.Order `json:"order"`
}

func snapshotResponse(snap *Snapshot, stale bool) OrdersResponse {
	return OrdersResponse{
		ShiftId:   snap.ShiftId,
		Orders:    snap.Orders,
		Stats:     snap.Stats,
		FetchedAt: snap.FetchedAt,
		Stale:     stale,
	}
}
