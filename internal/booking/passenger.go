package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/lifecycle"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/signal"
)

// PassengerScreen is the booking-history view for one passenger. It holds
// its cache exclusively; mount it to receive cross-screen signals, unmount
// to stop listening and abort any in-flight fetch.
type PassengerScreen struct {
	api    API
	bus    *signal.Bus
	userID string
	log    *slog.Logger

	mu       sync.Mutex
	mounted  bool
	cancel   context.CancelFunc
	unsubs   []func()
	bookings []models.Booking
}

func NewPassengerScreen(api API, bus *signal.Bus, userID string, log *slog.Logger) *PassengerScreen {
	if log == nil {
		log = logging.Discard()
	}
	return &PassengerScreen{api: api, bus: bus, userID: userID, log: log}
}

func (s *PassengerScreen) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mounted || s.bus == nil {
		s.mounted = true
		return
	}
	s.mounted = true
	s.unsubs = append(s.unsubs,
		s.bus.SubscribeLogout(s.onLogout),
		s.bus.SubscribeBookingUpdated(s.onBookingUpdated),
	)
}

// Unmount aborts the in-flight fetch, if any. Mandatory: a late response
// must never touch the cache of a view the user has navigated away from.
func (s *PassengerScreen) Unmount() {
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

// Load fetches the full history and rebuilds the cache: filtered to this
// passenger, ordered per SortForHistory. At most one fetch is in flight;
// starting a new one aborts the previous. Any failure other than
// Unauthorized degrades the view to empty instead of propagating.
func (s *PassengerScreen) Load(ctx context.Context) ([]models.Booking, error) {
	fctx := s.beginFetch(ctx)

	var all []models.Booking
	if err := s.api.Get(fctx, "/bookings", &all); err != nil {
		switch {
		case gateway.IsUnauthorized(err):
			observability.ScreenLoads.WithLabelValues("passenger_history", "unauthorized").Inc()
			return nil, err
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			s.log.Warn("booking history fetch failed, degrading to empty view", "error", err)
			observability.ScreenLoads.WithLabelValues("passenger_history", "degraded").Inc()
			s.mu.Lock()
			s.bookings = nil
			s.mu.Unlock()
			return nil, nil
		}
	}

	mine := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if b.UserID == s.userID {
			mine = append(mine, b)
		}
	}
	SortForHistory(mine)

	s.mu.Lock()
	s.bookings = mine
	s.mu.Unlock()
	observability.ScreenLoads.WithLabelValues("passenger_history", "ok").Inc()
	return snapshot(mine), nil
}

// Bookings returns a copy of the current cache.
func (s *PassengerScreen) Bookings() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.bookings)
}

// Book creates a new booking for this passenger and splices it into the
// cache. The fare is the caller's quote, typically from fare.Estimator.
func (s *PassengerScreen) Book(ctx context.Context, req models.BookingCreate) (models.Booking, error) {
	if req.UserID == "" {
		req.UserID = s.userID
	}
	var created models.Booking
	if err := s.api.Post(ctx, "/bookings", req, &created); err != nil {
		return models.Booking{}, err
	}
	s.mu.Lock()
	if created.BookingID != "" && !containsID(s.bookings, created.BookingID) {
		s.bookings = append([]models.Booking{created}, s.bookings...)
		SortForHistory(s.bookings)
	}
	s.mu.Unlock()
	return created, nil
}

// Cancel aborts a requested booking and evicts it from the cache. The
// caller must have confirmed the action with the user before invoking.
// The local transition check runs first: only requested bookings cancel.
func (s *PassengerScreen) Cancel(ctx context.Context, bookingID string) error {
	s.mu.Lock()
	cur, known := findByID(s.bookings, bookingID)
	s.mu.Unlock()
	if known && !lifecycle.LegalTransition(cur.Status, models.StatusCancelled) {
		observability.LocalConflicts.Inc()
		return &gateway.Conflict{Message: "only a requested booking can be cancelled"}
	}
	if err := s.api.Post(ctx, "/bookings/"+bookingID+"/cancel", struct{}{}, nil); err != nil {
		return err
	}
	// Optimistic eviction; the next authoritative reload settles it.
	s.mu.Lock()
	s.bookings = removeByID(s.bookings, bookingID)
	s.mu.Unlock()
	return nil
}

// beginFetch cancels the previous fetch and registers a new one, enforcing
// the one-in-flight-fetch-per-mount rule.
func (s *PassengerScreen) beginFetch(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return fctx
}

func (s *PassengerScreen) onLogout() {
	s.mu.Lock()
	s.bookings = nil
	s.mu.Unlock()
}

func (s *PassengerScreen) onBookingUpdated(u signal.BookingUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !containsID(s.bookings, u.BookingID) {
		return
	}
	if u.Status == models.StatusCancelled {
		s.bookings = removeByID(s.bookings, u.BookingID)
		return
	}
	for i := range s.bookings {
		if s.bookings[i].BookingID == u.BookingID {
			s.bookings[i].Status = u.Status
		}
	}
	SortForHistory(s.bookings)
}
