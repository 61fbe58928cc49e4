package booking

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/tricy-client/internal/archive"
	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/lifecycle"
	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/signal"
)

// DriverView is the partitioned booking state the driver home screen
// renders. A booking id never appears in more than one partition.
type DriverView struct {
	Requested []models.Booking
	Active    []models.Booking
	Completed []models.Booking
}

// DriverScreen is the driver home view: the open request queue plus this
// driver's own rides, partitioned active/completed.
type DriverScreen struct {
	api      API
	bus      *signal.Bus
	driverID string
	archive  archive.BookingArchive
	log      *slog.Logger

	mu      sync.Mutex
	mounted bool
	cancel  context.CancelFunc
	unsubs  []func()
	view    DriverView
}

func NewDriverScreen(api API, bus *signal.Bus, driverID string, log *slog.Logger) *DriverScreen {
	if log == nil {
		log = logging.Discard()
	}
	return &DriverScreen{api: api, bus: bus, driverID: driverID, log: log}
}

// WithArchive enables write-behind of completed rides. Archive failures
// never fail the user action.
func (s *DriverScreen) WithArchive(a archive.BookingArchive) *DriverScreen {
	s.archive = a
	return s
}

func (s *DriverScreen) Mount() {
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

func (s *DriverScreen) Unmount() {
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

// Load rebuilds the view from the two authoritative feeds: the global
// requested queue and this driver's assigned bookings. An id present in
// both keeps only the assigned copy; the driver's own bookings partition
// into active and completed, deduplicated first-seen-wins.
func (s *DriverScreen) Load(ctx context.Context) (DriverView, error) {
	fctx := s.beginFetch(ctx)

	var requested, own []models.Booking
	if err := s.api.Get(fctx, "/bookings/status/requested", &requested); err != nil {
		return s.loadFailed(err)
	}
	if err := s.api.Get(fctx, "/bookings/driver/"+s.driverID, &own); err != nil {
		return s.loadFailed(err)
	}

	sortNewestFirst(requested)
	sortNewestFirst(own)

	assigned := make(map[string]bool, len(own))
	for _, b := range own {
		assigned[b.BookingID] = true
	}
	queue := make([]models.Booking, 0, len(requested))
	for _, b := range requested {
		if !assigned[b.BookingID] {
			queue = append(queue, b)
		}
	}

	var view DriverView
	view.Requested = queue
	seen := make(map[string]bool, len(own))
	for _, b := range own {
		if seen[b.BookingID] {
			continue
		}
		seen[b.BookingID] = true
		if b.Status == models.StatusCompleted {
			view.Completed = append(view.Completed, b)
		} else {
			view.Active = append(view.Active, b)
		}
	}

	s.mu.Lock()
	s.view = view
	s.mu.Unlock()
	observability.ScreenLoads.WithLabelValues("driver_home", "ok").Inc()
	return s.View(), nil
}

// View returns a copy of the current partitions.
func (s *DriverScreen) View() DriverView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return DriverView{
		Requested: snapshot(s.view.Requested),
		Active:    snapshot(s.view.Active),
		Completed: snapshot(s.view.Completed),
	}
}

// Accept takes a booking from the request queue. The single-active-ride
// rule is checked locally first: with an active ride present this fails
// with a conflict before any network traffic. The server remains the
// final authority and may still reject the assignment in a race.
func (s *DriverScreen) Accept(ctx context.Context, bookingID string) (models.Booking, error) {
	s.mu.Lock()
	blocked := !lifecycle.CanAssign(s.view.Active)
	fallback, queued := findByID(s.view.Requested, bookingID)
	s.mu.Unlock()
	if blocked {
		observability.LocalConflicts.Inc()
		return models.Booking{}, &gateway.Conflict{Message: "driver already has an active ride"}
	}

	var resp struct {
		Message string         `json:"message"`
		Booking models.Booking `json:"booking"`
	}
	if err := s.api.Post(ctx, "/bookings/"+bookingID+"/assign/"+s.driverID, struct{}{}, &resp); err != nil {
		return models.Booking{}, err
	}

	accepted := resp.Booking
	if accepted.BookingID == "" {
		// Older servers return no payload; fall back to the queued copy.
		if !queued {
			return models.Booking{}, &gateway.ServerError{Status: 200, Message: "assign response carried no booking"}
		}
		accepted = fallback
		accepted.DriverID = s.driverID
	}
	if accepted.Status == models.StatusRequested || accepted.Status == "" {
		accepted.Status = models.StatusAccepted
	}

	s.mu.Lock()
	s.view.Requested = removeByID(s.view.Requested, bookingID)
	s.view.Active = append([]models.Booking{accepted}, removeByID(s.view.Active, bookingID)...)
	s.mu.Unlock()
	return accepted, nil
}

// Decline drops a request from the local queue only; nothing is sent.
// Another driver may still take it, and it returns on the next reload
// if it is still open.
func (s *DriverScreen) Decline(bookingID string) {
	s.mu.Lock()
	s.view.Requested = removeByID(s.view.Requested, bookingID)
	s.mu.Unlock()
}

// Complete finishes an active ride. The caller must have confirmed the
// action with the user. On success the booking moves to the completed
// partition locally and a bookingUpdated signal is broadcast so other
// mounted screens converge without refetching. The local state stays
// provisional until the next authoritative reload.
func (s *DriverScreen) Complete(ctx context.Context, bookingID string) (models.Booking, error) {
	s.mu.Lock()
	cur, known := findByID(s.view.Active, bookingID)
	s.mu.Unlock()
	if known && !lifecycle.LegalTransition(cur.Status, models.StatusCompleted) {
		observability.LocalConflicts.Inc()
		return models.Booking{}, &gateway.Conflict{Message: "ride cannot be completed from status " + string(cur.Status)}
	}

	if err := s.api.Post(ctx, "/bookings/"+bookingID+"/complete", struct{}{}, nil); err != nil {
		return models.Booking{}, err
	}

	completed := cur
	if !known {
		completed = models.Booking{BookingID: bookingID, DriverID: s.driverID}
	}
	completed.Status = models.StatusCompleted

	s.mu.Lock()
	s.view.Active = removeByID(s.view.Active, bookingID)
	if !containsID(s.view.Completed, bookingID) {
		s.view.Completed = append([]models.Booking{completed}, s.view.Completed...)
	}
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.SaveCompleted(ctx, &completed); err != nil {
			s.log.Warn("archiving completed ride failed", "booking_id", bookingID, "error", err)
		}
	}
	if s.bus != nil {
		s.bus.PublishBookingUpdated(signal.BookingUpdate{BookingID: bookingID, Status: models.StatusCompleted})
	}
	return completed, nil
}

func (s *DriverScreen) beginFetch(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return fctx
}

func (s *DriverScreen) loadFailed(err error) (DriverView, error) {
	switch {
	case gateway.IsUnauthorized(err):
		observability.ScreenLoads.WithLabelValues("driver_home", "unauthorized").Inc()
		return DriverView{}, err
	case errors.Is(err, context.Canceled):
		return DriverView{}, err
	default:
		s.log.Warn("driver bookings fetch failed, degrading to empty view", "error", err)
		observability.ScreenLoads.WithLabelValues("driver_home", "degraded").Inc()
		s.mu.Lock()
		s.view = DriverView{}
		s.mu.Unlock()
		return DriverView{}, nil
	}
}

func (s *DriverScreen) onLogout() {
	s.mu.Lock()
	s.view = DriverView{}
	s.mu.Unlock()
}

// onBookingUpdated converges this screen with a completion or cancellation
// performed elsewhere. For completions the booking moves into the
// completed partition, deduplicated; when only the id is known a minimal
// record stands in until the next reload.
func (s *DriverScreen) onBookingUpdated(u signal.BookingUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch u.Status {
	case models.StatusCompleted:
		moved, had := findByID(s.view.Active, u.BookingID)
		s.view.Active = removeByID(s.view.Active, u.BookingID)
		if containsID(s.view.Completed, u.BookingID) {
			return
		}
		if !had {
			moved = models.Booking{BookingID: u.BookingID}
		}
		moved.Status = models.StatusCompleted
		s.view.Completed = append([]models.Booking{moved}, s.view.Completed...)
	case models.StatusCancelled:
		s.view.Requested = removeByID(s.view.Requested, u.BookingID)
		s.view.Active = removeByID(s.view.Active, u.BookingID)
	}
}
