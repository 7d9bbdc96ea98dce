package ordersync

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/YassinSalah100/Goha-System-sub001/models"
	"github.com/YassinSalah100/Goha-System-sub001/utils"
	"github.com/gin-gonic/gin"
)

func GetOrdersHandler(coordinator *FetchCoordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		shiftId := strings.TrimSpace(c.Param("shiftId"))
		if shiftId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shiftId is required"})
			return
		}
		force := strings.EqualFold(c.Query("refresh"), "true")

		snap, err := coordinator.Refresh(c.Request.Context(), shiftId, force)
		if snap == nil {
			status := http.StatusBadGateway
			msg := "order fetch failed"
			if err != nil {
				msg = err.Error()
			}
			c.JSON(status, gin.H{"error": msg})
			return
		}
		// A failed refresh serves the last known-good view.
		c.JSON(http.StatusOK, snapshotResponse(snap, err != nil))
	}
}

func GetStatsHandler(coordinator *FetchCoordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		shiftId := strings.TrimSpace(c.Param("shiftId"))
		if shiftId == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shiftId is required"})
			return
		}

		snap, err := coordinator.Refresh(c.Request.Context(), shiftId, false)
		if snap == nil {
			msg := "order fetch failed"
			if err != nil {
				msg = err.Error()
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": msg})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"shift_id":   snap.ShiftId,
			"stats":      snap.Stats,
			"fetched_at": snap.FetchedAt,
			"stale":      err != nil,
		})
	}
}

func RequestCancellationHandler(workflow *CancellationWorkflow) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId := strings.TrimSpace(c.Param("orderId"))

		var body CancellationRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		requestedBy, _ := utils.GetUserIdFromContext(c.Request.Context())
		req := CancellationRequest{
			OrderId:     orderId,
			ShiftId:     strings.TrimSpace(body.ShiftId),
			RequestedBy: requestedBy,
			Reason:      strings.TrimSpace(body.Reason),
		}

		err := workflow.Request(c.Request.Context(), req)
		if err == nil {
			c.JSON(http.StatusAccepted, gin.H{
				"order_id": orderId,
				"status":   models.OrderStatusPendingCancellation,
			})
			return
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message})
			return
		}
		var re *RequestRejectedError
		if errors.As(err, &re) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": re.Message})
			return
		}
		if errors.Is(err, ErrRequestInFlight) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

func ApproveCancellationHandler(bus *Bus) gin.HandlerFunc {
	return decisionHandler(bus, EventCancellationApproved)
}

func RejectCancellationHandler(bus *Bus) gin.HandlerFunc {
	return decisionHandler(bus, EventCancellationRejected)
}

func decisionHandler(bus *Bus, kind EventKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body DecisionRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if strings.TrimSpace(body.OrderId) == "" || strings.TrimSpace(body.ShiftId) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and shift_id are required"})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		ev := OrderEvent{
			Kind:          kind,
			OrderId:       strings.TrimSpace(body.OrderId),
			ShiftId:       strings.TrimSpace(body.ShiftId),
			ActorId:       strings.TrimSpace(body.DecidedBy),
			CorrelationId: cid,
		}
		bus.Publish(ev)

		// Fan out to the other terminals; the poll loop covers misses.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := PublishOrderEvent(ctx, ev); err != nil {
				config.LogError(config.GetLogger(), "ordersync", "decisionHandler", ev.OrderId, nil, err)
			}
		}()

		c.JSON(http.StatusOK, gin.H{"order_id": ev.OrderId, "event": ev.Kind})
	}
}

// OrderAddedHandler is the offline-first write path: the terminal
// caches the freshly created order locally and nudges every view to
// refresh. The order reaches the backend through its own sale flow.
func OrderAddedHandler(ledger *LocalLedger, bus *Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body OrderAddedBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		order := body.Order
		if strings.TrimSpace(order.OrderId) == "" || strings.TrimSpace(order.ShiftId) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and shift_id are required"})
			return
		}
		if order.Status == "" {
			order.Status = models.OrderStatusActive
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now()
		}

		if err := ledger.WriteCachedOrder(order); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		bus.Publish(OrderEvent{
			Kind:          EventOrderAdded,
			OrderId:       order.OrderId,
			ShiftId:       order.ShiftId,
			CorrelationId: cid,
		})
		c.JSON(http.StatusCreated, gin.H{"order_id": order.OrderId})
	}
}
