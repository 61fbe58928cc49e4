// Package notify is the notifications screen: a per-user feed with an
// unread badge, marked read one at a time.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/signal"
)

// API is the slice of the gateway this screen needs.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

type Screen struct {
	api    API
	bus    *signal.Bus
	userID string
	log    *slog.Logger

	mu            sync.Mutex
	mounted       bool
	cancel        context.CancelFunc
	unsubs        []func()
	notifications []models.Notification
}

func NewScreen(api API, bus *signal.Bus, userID string, log *slog.Logger) *Screen {
	if log == nil {
		log = logging.Discard()
	}
	return &Screen{api: api, bus: bus, userID: userID, log: log}
}

func (s *Screen) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted {
		return
	}
	s.mounted = true
	if s.bus != nil {
		s.unsubs = append(s.unsubs, s.bus.SubscribeLogout(s.onLogout))
	}
}

func (s *Screen) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.mounted = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// Load fetches the user's feed. Auth failures and cancellation propagate;
// any other failure degrades the screen to an empty feed.
func (s *Screen) Load(ctx context.Context) ([]models.Notification, error) {
	fctx := s.beginFetch(ctx)

	var feed []models.Notification
	if err := s.api.Get(fctx, "/notifications/user/"+s.userID, &feed); err != nil {
		switch {
		case gateway.IsUnauthorized(err):
			observability.ScreenLoads.WithLabelValues("notifications", "unauthorized").Inc()
			return nil, err
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			s.log.Warn("notifications fetch failed, degrading to empty feed", "error", err)
			observability.ScreenLoads.WithLabelValues("notifications", "degraded").Inc()
			s.mu.Lock()
			s.notifications = nil
			s.mu.Unlock()
			return nil, nil
		}
	}

	s.mu.Lock()
	s.notifications = feed
	s.mu.Unlock()
	observability.ScreenLoads.WithLabelValues("notifications", "ok").Inc()
	return s.Notifications(), nil
}

func (s *Screen) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// Unread counts notifications not yet marked read, for the badge.
func (s *Screen) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, nt := range s.notifications {
		if !nt.Read {
			n++
		}
	}
	return n
}

// MarkRead flips one notification server-side and replaces the local copy
// with the server's version.
func (s *Screen) MarkRead(ctx context.Context, notificationID string) error {
	var updated models.Notification
	if err := s.api.Post(ctx, "/notifications/"+notificationID+"/read", struct{}{}, &updated); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, nt := range s.notifications {
		if nt.NotificationID != notificationID {
			continue
		}
		if updated.NotificationID == notificationID {
			s.notifications[i] = updated
		} else {
			s.notifications[i].Read = true
		}
		break
	}
	return nil
}

func (s *Screen) beginFetch(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return fctx
}

func (s *Screen) onLogout() {
	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()
}
