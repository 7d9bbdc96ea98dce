package ordersync

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	"github.com/YassinSalah100/Goha-System-sub001/config"
	"github.com/gin-gonic/gin"
)

// PublishOrderEvent pushes an event to the shared topic so the manager
// backoffice and other terminals see it. Best-effort from the caller's
// point of view; the poll loop is the catch-up path.
func PublishOrderEvent(ctx context.Context, ev OrderEvent) error {
	topicName := strings.TrimSpace(os.Getenv("ORDER_EVENTS_TOPIC"))
	if topicName == "" {
		topicName = "pos-order-events"
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(topicName)
	if envBoolDefault("ORDER_EVENTS_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, topicName)
		if err != nil {
			return err
		}
	}

	data, _ := json.Marshal(ev)
	res := topic.Publish(ctx, &pubsub.Message{Data: data})
	_, err = res.Get(ctx)
	return err
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PubSubPushHandler bridges Pub/Sub push delivery onto the in-process
// bus. Always acks (204): a malformed or duplicate message must not be
// redelivered forever, and every transition it can trigger is
// idempotent anyway.
func PubSubPushHandler(bus *Bus) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_ORDER_EVENTS_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var ev OrderEvent
		if err := json.Unmarshal(envelope.Message.Data, &ev); err != nil {
			c.Status(204)
			return
		}
		if ev.OrderId == "" || ev.ShiftId == "" {
			c.Status(204)
			return
		}
		switch ev.Kind {
		case EventOrderAdded, EventCancellationApproved, EventCancellationRejected:
			bus.Publish(ev)
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
