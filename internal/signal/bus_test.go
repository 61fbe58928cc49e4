package signal

import (
	"testing"

	"github.com/example/tricy-client/internal/models"
)

func TestDeliveryInRegistrationOrder(t *testing.T) {
	b := NewBus()
	var order []string
	b.SubscribeLogout(func() { order = append(order, "first") })
	b.SubscribeLogout(func() { order = append(order, "second") })
	b.SubscribeLogout(func() { order = append(order, "third") })
	b.PublishLogout()
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("delivery order = %v", order)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBus()
	var got int
	unsub := b.SubscribeBookingUpdated(func(BookingUpdate) { got++ })
	b.PublishBookingUpdated(BookingUpdate{BookingID: "b1", Status: models.StatusCompleted})
	unsub()
	unsub() // second call is a no-op
	b.PublishBookingUpdated(BookingUpdate{BookingID: "b1", Status: models.StatusCompleted})
	if got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}

func TestLateSubscriberMissesSignal(t *testing.T) {
	b := NewBus()
	b.PublishBookingUpdated(BookingUpdate{BookingID: "b1", Status: models.StatusCompleted})
	var got int
	b.SubscribeBookingUpdated(func(BookingUpdate) { got++ })
	if got != 0 {
		t.Fatal("signals must not be buffered for late subscribers")
	}
}

func TestPayloadDelivered(t *testing.T) {
	b := NewBus()
	var got BookingUpdate
	b.SubscribeBookingUpdated(func(u BookingUpdate) { got = u })
	b.PublishBookingUpdated(BookingUpdate{BookingID: "b42", Status: models.StatusCompleted})
	if got.BookingID != "b42" || got.Status != models.StatusCompleted {
		t.Fatalf("payload = %+v", got)
	}
}
