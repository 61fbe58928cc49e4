// Package signal is the cross-screen event bus. Signals are fire-and-forget:
// delivered synchronously, in registration order, to listeners subscribed at
// publish time. Nothing is queued or buffered, so a screen that is not
// mounted misses the signal and must rely on its reload path. That is by
// contract fine: signals are a cache-coherence optimization, every screen
// can rebuild its view from the API at any time.
package signal

import (
	"sync"

	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
)

// BookingUpdate is the payload of the bookingUpdated signal.
type BookingUpdate struct {
	BookingID string        `json:"booking_id"`
	Status    models.Status `json:"status"`
}

type logoutSub struct {
	id int
	fn func()
}

type updateSub struct {
	id int
	fn func(BookingUpdate)
}

type Bus struct {
	mu      sync.Mutex
	nextID  int
	logout  []logoutSub
	updates []updateSub
}

func NewBus() *Bus { return &Bus{} }

// SubscribeLogout registers fn for the logout signal and returns its
// unsubscribe func. Unsubscribing twice is harmless.
func (b *Bus) SubscribeLogout(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.logout = append(b.logout, logoutSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.logout {
			if s.id == id {
				b.logout = append(b.logout[:i], b.logout[i+1:]...)
				return
			}
		}
	}
}

// SubscribeBookingUpdated registers fn for bookingUpdated signals and
// returns its unsubscribe func.
func (b *Bus) SubscribeBookingUpdated(fn func(BookingUpdate)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.updates = append(b.updates, updateSub{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.updates {
			if s.id == id {
				b.updates = append(b.updates[:i], b.updates[i+1:]...)
				return
			}
		}
	}
}

// PublishLogout delivers the logout signal to every current listener.
func (b *Bus) PublishLogout() {
	b.mu.Lock()
	subs := make([]logoutSub, len(b.logout))
	copy(subs, b.logout)
	b.mu.Unlock()
	observability.SignalsPublished.WithLabelValues("logout").Inc()
	for _, s := range subs {
		s.fn()
	}
}

// PublishBookingUpdated delivers a bookingUpdated signal to every current
// listener.
func (b *Bus) PublishBookingUpdated(u BookingUpdate) {
	b.mu.Lock()
	subs := make([]updateSub, len(b.updates))
	copy(subs, b.updates)
	b.mu.Unlock()
	observability.SignalsPublished.WithLabelValues("booking_updated").Inc()
	for _, s := range subs {
		s.fn(u)
	}
}
