package ordersync

import (
	"context"
	"errors"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// CancellationRequest is what the cashier submits. Manager identity is
// not needed here; approval arrives later as a signal.
type CancellationRequest struct {
	OrderId     string `json:"order_id" validate:"required"`
	ShiftId     string `json:"shift_id" validate:"required"`
	RequestedBy string `json:"requested_by" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

type CancellationRequester interface {
	RequestCancellation(ctx context.Context, req CancellationRequest) error
}

// ViewUpdater is the slice of the coordinator the workflow needs:
// optimistic snapshot updates and reconcile refreshes.
type ViewUpdater interface {
	ScheduleRefresh(shiftId string, delay time.Duration, force bool)
	ApplyLocalStatus(shiftId string, orderId string, status models.OrderStatus)
}

// ErrRequestInFlight means another terminal is submitting a request for
// the same order right now.
var ErrRequestInFlight = errors.New("cancellation request already in flight")

// CancellationWorkflow drives the manager-approved void flow:
// request -> pending -> approved | rejected. The local ledger holds the
// optimistic view; every transition schedules a forced refresh to
// reconcile with the server.
type CancellationWorkflow struct {
	remote         CancellationRequester
	ledger         *LocalLedger
	view           ViewUpdater
	validate       *validator.Validate
	logger         *logrus.Logger
	reconcileDelay time.Duration
}

func NewCancellationWorkflow(remote CancellationRequester, ledger *LocalLedger, view ViewUpdater) *CancellationWorkflow {
	return &CancellationWorkflow{
		remote:         remote,
		ledger:         ledger,
		view:           view,
		validate:       validator.New(),
		logger:         config.GetLogger(),
		reconcileDelay: config.SyncReconcileDelay(),
	}
}

// Request validates, submits to the backend and, only on success,
// writes the optimistic pending state and schedules the reconcile
// fetch. A failed submit leaves every piece of local state untouched so
// the cashier can retry.
func (w *CancellationWorkflow) Request(ctx context.Context, req CancellationRequest) error {
	if err := w.validate.Struct(req); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	// Two terminals racing on the same order must not double-submit.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "cancel:"+req.OrderId, 10*time.Second, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				return ErrRequestInFlight
			}
			config.LogError(w.logger, "ordersync", "Request", req.OrderId, nil, err)
		} else {
			defer lock.Release(ctx)
		}
	}

	if err := w.remote.RequestCancellation(ctx, req); err != nil {
		return err
	}

	if err := w.ledger.WritePendingCancellation(req.OrderId); err != nil {
		config.LogError(w.logger, "ordersync", "Request", req.OrderId, req, err)
	}
	if w.view != nil {
		w.view.ApplyLocalStatus(req.ShiftId, req.OrderId, models.OrderStatusPendingCancellation)
		w.view.ScheduleRefresh(req.ShiftId, w.reconcileDelay, true)
	}
	return nil
}

// HandleApproval reacts to a manager approval signal. Idempotent:
// repeating the signal for an already-approved id is a no-op.
func (w *CancellationWorkflow) HandleApproval(orderId string, shiftId string) {
	if w.ledger.IsApproved(orderId) {
		return
	}
	if err := w.ledger.WriteApprovedCancellation(orderId); err != nil {
		config.LogError(w.logger, "ordersync", "HandleApproval", orderId, nil, err)
		return
	}
	if w.view != nil {
		w.view.ApplyLocalStatus(shiftId, orderId, models.OrderStatusCancelledApproved)
		w.view.ScheduleRefresh(shiftId, w.reconcileDelay, true)
	}
}

// HandleRejection removes the pending mark only; the order reverts to
// whatever status the next fetch reports. Idempotent.
func (w *CancellationWorkflow) HandleRejection(orderId string, shiftId string) {
	if !w.ledger.IsPending(orderId) {
		return
	}
	if err := w.ledger.RemovePendingCancellation(orderId); err != nil {
		config.LogError(w.logger, "ordersync", "HandleRejection", orderId, nil, err)
		return
	}
	if w.view != nil {
		w.view.ScheduleRefresh(shiftId, w.reconcileDelay, true)
	}
}

// BindBus routes decision and order-added events into the workflow and
// the coordinator.
func (w *CancellationWorkflow) BindBus(bus *Bus) {
	bus.Subscribe(func(ev OrderEvent) {
		switch ev.Kind {
		case EventCancellationApproved:
			w.HandleApproval(ev.OrderId, ev.ShiftId)
		case EventCancellationRejected:
			w.HandleRejection(ev.OrderId, ev.ShiftId)
		case EventOrderAdded:
			if w.view != nil {
				w.view.ScheduleRefresh(ev.ShiftId, 0, true)
			}
		}
	})
}
