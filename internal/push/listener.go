// Package push keeps a websocket open to the booking events endpoint and
// republishes each frame on the local signal bus, so screens converge on
// changes made from other devices.
package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/signal"
)

// frame is the wire shape of one push event.
type frame struct {
	BookingID string        `json:"booking_id"`
	Status    models.Status `json:"status"`
}

type Listener struct {
	url  string
	bus  *signal.Bus
	log  *slog.Logger
	dial func(ctx context.Context, url string) (conn, error)
}

// conn is the slice of *websocket.Conn the read loop uses.
type conn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

func NewListener(url string, bus *signal.Bus, log *slog.Logger) *Listener {
	if log == nil {
		log = logging.Discard()
	}
	return &Listener{
		url: url,
		bus: bus,
		log: log,
		dial: func(ctx context.Context, url string) (conn, error) {
			c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			return c, err
		},
	}
}

// Run connects and reads frames until ctx is cancelled, reconnecting
// with capped exponential backoff on any failure.
func (l *Listener) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return
		}
		c, err := l.dial(ctx, l.url)
		if err != nil {
			l.log.Warn("push dial failed", "url", l.url, "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		l.readLoop(ctx, c)
		_ = c.Close()
	}
}

func (l *Listener) readLoop(ctx context.Context, c conn) {
	// Unblock ReadMessage when the context goes.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				l.log.Warn("push read failed, reconnecting", "error", err)
			}
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil || f.BookingID == "" {
			l.log.Warn("dropping malformed push frame", "payload", string(raw))
			continue
		}
		observability.PushFrames.Inc()
		l.bus.PublishBookingUpdated(signal.BookingUpdate{BookingID: f.BookingID, Status: f.Status})
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
