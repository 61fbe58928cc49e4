// Package mirror forwards booking lifecycle changes to Kafka so other
// device sessions and backoffice consumers see them. Best effort only:
// a broker outage never blocks or fails the user action that produced
// the change.
package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/signal"
)

type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
	unsub  func()
}

func NewPublisher(brokers []string, topic string, log *slog.Logger) *Publisher {
	if log == nil {
		log = logging.Discard()
	}
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &Publisher{writer: w, log: log}
}

// Attach subscribes the publisher to booking updates on the bus. Call
// Close to detach and release the writer.
func (p *Publisher) Attach(bus *signal.Bus) {
	p.unsub = bus.SubscribeBookingUpdated(p.PublishUpdate)
}

// PublishUpdate forwards one update to the topic, keyed by booking id.
func (p *Publisher) PublishUpdate(u signal.BookingUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, _ := json.Marshal(u)
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(u.BookingID), Value: b}); err != nil {
		p.log.Warn("mirroring booking update failed", "booking_id", u.BookingID, "error", err)
	}
}

func (p *Publisher) Close() error {
	if p.unsub != nil {
		p.unsub()
		p.unsub = nil
	}
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
