package ordersync

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type remoteOrder struct {
	ID                 string      `json:"id"`
	OrderId            string      `json:"order_id"`
	ShiftId            string      `json:"shift_id"`
	CustomerName       string      `json:"customer_name"`
	OrderType          string      `json:"order_type"`
	TotalPrice         json.Number `json:"total_price"`
	Status             string      `json:"status"`
	CancellationReason string      `json:"cancellation_reason"`
	CancelledAt        string      `json:"cancelled_at"`
	CancelledBy        string      `json:"cancelled_by"`
	CreatedAt          string      `json:"created_at"`
}

func (o remoteOrder) orderId() string {
	if strings.TrimSpace(o.OrderId) != "" {
		return strings.TrimSpace(o.OrderId)
	}
	return strings.TrimSpace(o.ID)
}

type remoteOrderItem struct {
	ID          string        `json:"id"`
	ItemId      string        `json:"item_id"`
	ProductName string        `json:"product_name"`
	Name        string        `json:"name"`
	SizeName    string        `json:"size_name"`
	UnitPrice   json.Number   `json:"unit_price"`
	Quantity    int           `json:"quantity"`
	Extras      []remoteExtra `json:"extras"`
	Notes       string        `json:"notes"`
}

type remoteExtra struct {
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type remoteCancellationRecord struct {
	OrderId      string      `json:"order_id"`
	ShiftId      string      `json:"shift_id"`
	CustomerName string      `json:"customer_name"`
	OrderType    string      `json:"order_type"`
	TotalPrice   json.Number `json:"total_price"`
	Reason       string      `json:"reason"`
	RequestedBy  string      `json:"requested_by"`
	Status       string      `json:"status"`
	CreatedAt    string      `json:"created_at"`
	DecidedAt    string      `json:"decided_at"`
	DecidedBy    string      `json:"decided_by"`
}

// RemoteOrderSource fetches shift orders, their items and the
// cancellation feed from the POS backend.
type RemoteOrderSource struct {
	client *posClient
	logger *logrus.Logger
}

func NewRemoteOrderSource(apiKey string) (*RemoteOrderSource, error) {
	client, err := newPosClient(apiKey)
	if err != nil {
		return nil, err
	}
	return &RemoteOrderSource{client: client, logger: config.GetLogger()}, nil
}

// FetchOrders tries the shift-scoped endpoint first; when the backend
// does not support it, falls back to the unscoped list filtered
// client-side. Items are attached via per-order calls, bounded by
// ORDER_SYNC_ITEM_CONCURRENCY. Returned orders carry the remote-known
// canonical status; ledger membership is applied later during merge.
func (s *RemoteOrderSource) FetchOrders(ctx context.Context, shiftId string) ([]models.Order, error) {
	rows, err := s.fetchShiftScoped(ctx, shiftId)
	if err != nil {
		if !endpointUnavailable(err) {
			return nil, err
		}
		rows, err = s.fetchAllAndFilter(ctx, shiftId)
		if err != nil {
			return nil, err
		}
	}

	orders := make([]models.Order, 0, len(rows))
	for _, raw := range rows {
		var ro remoteOrder
		if err := json.Unmarshal(raw, &ro); err != nil {
			config.LogError(s.logger, "ordersync", "FetchOrders", "invalid order payload", string(raw), err)
			continue
		}
		if ro.orderId() == "" {
			continue
		}
		orders = append(orders, s.toOrder(ro, shiftId))
	}

	s.attachItems(ctx, orders)
	return orders, nil
}

func (s *RemoteOrderSource) fetchShiftScoped(ctx context.Context, shiftId string) ([]json.RawMessage, error) {
	path := strings.TrimSpace(os.Getenv("POS_SHIFT_ORDERS_PATH"))
	if path == "" {
		path = "/v1/shifts/%s/orders"
	}
	resp, err := s.client.getList(ctx, strings.Replace(path, "%s", url.PathEscape(shiftId), 1), nil)
	if err != nil {
		return nil, err
	}
	return resp.rows(), nil
}

func (s *RemoteOrderSource) fetchAllAndFilter(ctx context.Context, shiftId string) ([]json.RawMessage, error) {
	path := strings.TrimSpace(os.Getenv("POS_ORDERS_PATH"))
	if path == "" {
		path = "/v1/orders"
	}
	resp, err := s.client.getList(ctx, path, nil)
	if err != nil {
		return nil, err
	}

	filtered := make([]json.RawMessage, 0, len(resp.rows()))
	for _, raw := range resp.rows() {
		var probe struct {
			ShiftId string `json:"shift_id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		if probe.ShiftId == shiftId {
			filtered = append(filtered, raw)
		}
	}
	return filtered, nil
}

func (s *RemoteOrderSource) attachItems(ctx context.Context, orders []models.Order) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.SyncItemConcurrency())
	for i := range orders {
		i := i
		g.Go(func() error {
			items, err := s.fetchOrderItems(gctx, orders[i].OrderId)
			if err != nil {
				// Missing items never fail the whole fetch; the order
				// header already carries the total.
				config.LogError(s.logger, "ordersync", "attachItems", orders[i].OrderId, nil, err)
				return nil
			}
			orders[i].Items = items
			return nil
		})
	}
	_ = g.Wait()
}

func (s *RemoteOrderSource) fetchOrderItems(ctx context.Context, orderId string) ([]models.OrderItem, error) {
	path := strings.TrimSpace(os.Getenv("POS_ORDER_ITEMS_PATH"))
	if path == "" {
		path = "/v1/orders/%s/items"
	}
	resp, err := s.client.getList(ctx, strings.Replace(path, "%s", url.PathEscape(orderId), 1), nil)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(resp.rows()))
	for _, raw := range resp.rows() {
		var ri remoteOrderItem
		if err := json.Unmarshal(raw, &ri); err != nil {
			continue
		}
		items = append(items, toOrderItem(ri))
	}
	return items, nil
}

type remoteShift struct {
	ID        string `json:"id"`
	ShiftId   string `json:"shift_id"`
	Status    string `json:"status"`
	StartTime string `json:"start_time"`
}

// FetchShift reports the shift's lifecycle state so the poller can stop
// tracking closed shifts. Backends without the endpoint report the
// shift as open; polling such a shift forever is harmless, dropping a
// live one is not.
func (s *RemoteOrderSource) FetchShift(ctx context.Context, shiftId string) (models.Shift, error) {
	path := strings.TrimSpace(os.Getenv("POS_SHIFT_PATH"))
	if path == "" {
		path = "/v1/shifts/%s"
	}
	shift := models.Shift{ShiftId: shiftId, Status: models.ShiftStatusActive}

	var rs remoteShift
	err := s.client.do(ctx, "GET", strings.Replace(path, "%s", url.PathEscape(shiftId), 1), nil, nil, &rs)
	if err != nil {
		if endpointUnavailable(err) {
			return shift, nil
		}
		return shift, err
	}

	switch statusKey(rs.Status) {
	case "closed", "ended", "finished":
		shift.Status = models.ShiftStatusClosed
	case "pending_close", "closing":
		shift.Status = models.ShiftStatusPendingClose
	}
	shift.StartTime = parseTimeOrNow(rs.StartTime)
	return shift, nil
}

// FetchCancellationRecords is best-effort: cashier credentials may not
// be allowed to read the global cancellation feed, and older backends
// lack the endpoint entirely. Both degrade to (nil, nil); callers fall
// back to the status flags in the order payload.
func (s *RemoteOrderSource) FetchCancellationRecords(ctx context.Context, shiftId string) ([]models.CancellationRecord, error) {
	path := strings.TrimSpace(os.Getenv("POS_CANCELLATIONS_PATH"))
	if path == "" {
		path = "/v1/shifts/%s/cancellation-requests"
	}
	resp, err := s.client.getList(ctx, strings.Replace(path, "%s", url.PathEscape(shiftId), 1), nil)
	if err != nil {
		if endpointUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}

	records := make([]models.CancellationRecord, 0, len(resp.rows()))
	for _, raw := range resp.rows() {
		var rr remoteCancellationRecord
		if err := json.Unmarshal(raw, &rr); err != nil {
			config.LogError(s.logger, "ordersync", "FetchCancellationRecords", "invalid record payload", string(raw), err)
			continue
		}
		if strings.TrimSpace(rr.OrderId) == "" {
			continue
		}
		records = append(records, toCancellationRecord(rr, shiftId))
	}
	return records, nil
}

// RequestCancellation issues the create-request call. A 4xx decline is
// surfaced as RequestRejectedError with the server's message.
func (s *RemoteOrderSource) RequestCancellation(ctx context.Context, req CancellationRequest) error {
	path := strings.TrimSpace(os.Getenv("POS_CANCELLATION_REQUEST_PATH"))
	if path == "" {
		path = "/v1/cancellation-requests"
	}
	err := s.client.postJSON(ctx, path, req, nil)
	if err == nil {
		return nil
	}
	var ae *apiError
	if errors.As(err, &ae) && ae.Status >= 400 && ae.Status < 500 {
		return &RequestRejectedError{Message: rejectionMessage(ae.Body)}
	}
	return err
}

func rejectionMessage(body string) string {
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if parsed.Error != "" {
			return parsed.Error
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	if body == "" {
		return "request declined"
	}
	return body
}

func (s *RemoteOrderSource) toOrder(ro remoteOrder, shiftId string) models.Order {
	order := models.Order{
		OrderId:            ro.orderId(),
		ShiftId:            shiftId,
		CustomerName:       strings.TrimSpace(ro.CustomerName),
		OrderType:          models.OrderType(strings.TrimSpace(ro.OrderType)),
		TotalPrice:         decimalFromNumber(ro.TotalPrice),
		Status:             models.OrderStatus(ro.Status),
		CancellationReason: strings.TrimSpace(ro.CancellationReason),
		CancelledBy:        strings.TrimSpace(ro.CancelledBy),
		CreatedAt:          parseTimeOrNow(ro.CreatedAt),
	}
	if t, ok := parseTime(ro.CancelledAt); ok {
		order.CancelledAt = &t
	}
	// Remote-known status only at this stage.
	applyStatus(&order, false, false)
	return order
}

func toOrderItem(ri remoteOrderItem) models.OrderItem {
	itemId := strings.TrimSpace(ri.ItemId)
	if itemId == "" {
		itemId = strings.TrimSpace(ri.ID)
	}
	name := strings.TrimSpace(ri.ProductName)
	if name == "" {
		name = strings.TrimSpace(ri.Name)
	}
	quantity := ri.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	extras := make([]models.OrderItemExtra, 0, len(ri.Extras))
	for _, e := range ri.Extras {
		extras = append(extras, models.OrderItemExtra{
			Name:     strings.TrimSpace(e.Name),
			Price:    decimalFromNumber(e.Price),
			Quantity: e.Quantity,
		})
	}
	return models.OrderItem{
		ItemId:      itemId,
		ProductName: name,
		SizeName:    strings.TrimSpace(ri.SizeName),
		UnitPrice:   decimalFromNumber(ri.UnitPrice),
		Quantity:    quantity,
		Extras:      extras,
		Notes:       strings.TrimSpace(ri.Notes),
	}
}

func toCancellationRecord(rr remoteCancellationRecord, shiftId string) models.CancellationRecord {
	rec := models.CancellationRecord{
		OrderId:      strings.TrimSpace(rr.OrderId),
		ShiftId:      shiftId,
		CustomerName: strings.TrimSpace(rr.CustomerName),
		OrderType:    models.OrderType(strings.TrimSpace(rr.OrderType)),
		TotalPrice:   decimalFromNumber(rr.TotalPrice),
		Reason:       strings.TrimSpace(rr.Reason),
		RequestedBy:  strings.TrimSpace(rr.RequestedBy),
		Status:       normalizeRecordStatus(rr.Status),
		CreatedAt:    parseTimeOrNow(rr.CreatedAt),
		DecidedBy:    strings.TrimSpace(rr.DecidedBy),
	}
	if t, ok := parseTime(rr.DecidedAt); ok {
		rec.DecidedAt = &t
	}
	return rec
}

func normalizeRecordStatus(raw string) models.CancellationStatus {
	switch statusKey(raw) {
	case "approved", "accepted":
		return models.CancellationStatusApproved
	case "rejected", "declined", "denied":
		return models.CancellationStatusRejected
	default:
		return models.CancellationStatusPending
	}
}

func decimalFromNumber(num json.Number) decimal.Decimal {
	if num.String() == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(num.String()); err == nil {
		return d
	}
	return decimal.Zero
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseTimeOrNow(value string) time.Time {
	if t, ok := parseTime(value); ok {
		return t
	}
	return time.Now()
}
