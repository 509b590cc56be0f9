package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/api/handlers"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/rabbitmq"
	"github.com/ilhanselcuk/sellergenix-sub005/internal/store"
)

// OrderEvent is the queue payload published when a marketplace order changes.
type OrderEvent struct {
	Event         string `json:"event"`
	UserID        string `json:"user_id"`
	AmazonOrderID string `json:"amazon_order_id"`
}

// OrderEventWorker re-ingests single orders in response to change events.
// Each event is handled with the owning tenant's own seller credentials.
type OrderEventWorker struct {
	consumer  *rabbitmq.Consumer
	st        *store.Store
	spapiCfg  config.SPAPIConfig
	queueName string
}

func NewOrderEventWorker(consumer *rabbitmq.Consumer, st *store.Store, spapiCfg config.SPAPIConfig, queueName string) *OrderEventWorker {
	return &OrderEventWorker{
		consumer:  consumer,
		st:        st,
		spapiCfg:  spapiCfg,
		queueName: queueName,
	}
}

func (w *OrderEventWorker) Start() error {
	log.Printf("Starting Order Event Worker for queue: %s", w.queueName)
	return w.consumer.ConsumeQueue(w.queueName, w.handleMessage)
}

func (w *OrderEventWorker) handleMessage(body []byte) error {
	var evt OrderEvent
	if err := rabbitmq.ParseJSON(body, &evt); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	if evt.UserID == "" || evt.AmazonOrderID == "" {
		return fmt.Errorf("order event missing user_id or amazon_order_id")
	}

	log.Printf("Processing order event: type=%s, user=%s, order=%s", evt.Event, evt.UserID, evt.AmazonOrderID)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch evt.Event {
	case "created", "updated":
		return handlers.SyncSingleOrder(ctx, w.st, w.spapiCfg, store.TenantID(evt.UserID), evt.AmazonOrderID)
	default:
		return fmt.Errorf("unknown event type: %s", evt.Event)
	}
}
