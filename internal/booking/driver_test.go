package booking

import (
	"context"
	"testing"

	"github.com/example/tricy-client/internal/archive"
	"github.com/example/tricy-client/internal/gateway"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/signal"
)

func driverBooking(id string, status models.Status, createdAt string) models.Booking {
	b := mkBooking(id, "passenger-1", status, createdAt)
	if status != models.StatusRequested {
		b.DriverID = "d1"
	}
	return b
}

func loadedDriverScreen(t *testing.T, api *fakeAPI, bus *signal.Bus) *DriverScreen {
	t.Helper()
	s := NewDriverScreen(api, bus, "d1", nil)
	s.Mount()
	t.Cleanup(s.Unmount)
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoadDedupesAssignedFromRequested(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-01T00:00:00"),
		driverBooking("taken", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("taken", models.StatusAccepted, "2026-01-02T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	v := s.View()
	if containsID(v.Requested, "taken") {
		t.Fatal("assigned booking must not also appear in the requested queue")
	}
	if !containsID(v.Requested, "open") || !containsID(v.Active, "taken") {
		t.Fatalf("view = requested %v active %v", ids(v.Requested), ids(v.Active))
	}
}

func TestLoadPartitionsFirstSeenWins(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("dup", models.StatusAccepted, "2026-01-03T00:00:00"),
		driverBooking("dup", models.StatusCompleted, "2026-01-03T00:00:00"),
		driverBooking("done", models.StatusCompleted, "2026-01-01T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	v := s.View()
	if !containsID(v.Active, "dup") || containsID(v.Completed, "dup") {
		t.Fatalf("first-seen copy must win: active %v completed %v", ids(v.Active), ids(v.Completed))
	}
	if !containsID(v.Completed, "done") {
		t.Fatalf("completed partition = %v", ids(v.Completed))
	}
}

func TestNoIDInBothQueueAndOwnPartitions(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("a", models.StatusRequested, "2026-01-01T00:00:00"),
		driverBooking("b", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("b", models.StatusAccepted, "2026-01-02T00:00:00"),
		driverBooking("c", models.StatusCompleted, "2026-01-03T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	v := s.View()
	own := map[string]bool{}
	for _, b := range append(v.Active, v.Completed...) {
		own[b.BookingID] = true
	}
	for _, b := range v.Requested {
		if own[b.BookingID] {
			t.Fatalf("id %s in both queue and own partitions", b.BookingID)
		}
	}
}

func TestAcceptBlockedLocallyWithActiveRide(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("busy", models.StatusAccepted, "2026-01-01T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	_, err := s.Accept(context.Background(), "open")
	if !gateway.IsConflict(err) {
		t.Fatalf("want Conflict, got %v", err)
	}
	if api.callCount("POST /bookings/open/assign/d1") != 0 {
		t.Fatal("accept must not reach the network while a ride is active")
	}
}

func TestAcceptSplicesQueueIntoActive(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{})
	api.respond("POST /bookings/open/assign/d1", map[string]any{
		"message": "Driver assigned",
		"booking": driverBooking("open", models.StatusAccepted, "2026-01-02T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	got, err := s.Accept(context.Background(), "open")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != models.StatusAccepted {
		t.Fatalf("accepted status = %s", got.Status)
	}
	v := s.View()
	if containsID(v.Requested, "open") || !containsID(v.Active, "open") {
		t.Fatalf("splice failed: requested %v active %v", ids(v.Requested), ids(v.Active))
	}
}

func TestAcceptWithoutResponsePayloadFallsBackToQueueCopy(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{})
	api.respond("POST /bookings/open/assign/d1", map[string]any{"message": "Driver assigned"})
	s := loadedDriverScreen(t, api, signal.NewBus())

	got, err := s.Accept(context.Background(), "open")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.BookingID != "open" || got.DriverID != "d1" || got.Status != models.StatusAccepted {
		t.Fatalf("fallback copy = %+v", got)
	}
}

func TestServerConflictOnAcceptIsOrdinary(t *testing.T) {
	// Another driver won the race: the server's rejection surfaces as a
	// normal conflict, nothing breaks locally.
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-02T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{})
	api.fail("POST /bookings/open/assign/d1", &gateway.Conflict{Message: "already assigned"})
	s := loadedDriverScreen(t, api, signal.NewBus())

	_, err := s.Accept(context.Background(), "open")
	if !gateway.IsConflict(err) {
		t.Fatalf("want Conflict, got %v", err)
	}
	if !containsID(s.View().Requested, "open") {
		t.Fatal("queue must be left intact on server rejection")
	}
}

func TestCompleteMovesPartitionsAndBroadcasts(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("ride", models.StatusAccepted, "2026-01-01T00:00:00"),
	})
	bus := signal.NewBus()
	s := loadedDriverScreen(t, api, bus)

	var got signal.BookingUpdate
	bus.SubscribeBookingUpdated(func(u signal.BookingUpdate) { got = u })

	completed, err := s.Complete(context.Background(), "ride")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Fatalf("status = %s", completed.Status)
	}
	v := s.View()
	if containsID(v.Active, "ride") || !containsID(v.Completed, "ride") {
		t.Fatalf("partitions: active %v completed %v", ids(v.Active), ids(v.Completed))
	}
	if got.BookingID != "ride" || got.Status != models.StatusCompleted {
		t.Fatalf("broadcast = %+v", got)
	}
}

func TestCompletedSignalConvergesOtherMountedScreen(t *testing.T) {
	reqFeed := []models.Booking{}
	ownFeed := []models.Booking{driverBooking("ride", models.StatusAccepted, "2026-01-01T00:00:00")}

	bus := signal.NewBus()
	apiA := newFakeAPI()
	apiA.respond("GET /bookings/status/requested", reqFeed)
	apiA.respond("GET /bookings/driver/d1", ownFeed)
	apiA.respond("POST /bookings/ride/complete", map[string]any{"message": "Booking completed"})
	screenA := loadedDriverScreen(t, apiA, bus)

	apiB := newFakeAPI()
	apiB.respond("GET /bookings/status/requested", reqFeed)
	apiB.respond("GET /bookings/driver/d1", ownFeed)
	screenB := loadedDriverScreen(t, apiB, bus)

	if _, err := screenA.Complete(context.Background(), "ride"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	v := screenB.View()
	if containsID(v.Active, "ride") {
		t.Fatal("other screen's active partition still holds the ride")
	}
	if !containsID(v.Completed, "ride") {
		t.Fatal("other screen's completed partition missing the ride")
	}
	if apiB.callCount("GET /bookings/driver/d1") != 1 {
		t.Fatal("convergence must not trigger a refetch")
	}
}

func TestCompletedSignalDeduplicated(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("ride", models.StatusAccepted, "2026-01-01T00:00:00"),
	})
	bus := signal.NewBus()
	s := loadedDriverScreen(t, api, bus)

	u := signal.BookingUpdate{BookingID: "ride", Status: models.StatusCompleted}
	bus.PublishBookingUpdated(u)
	bus.PublishBookingUpdated(u)

	v := s.View()
	count := 0
	for _, b := range v.Completed {
		if b.BookingID == "ride" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("ride appears %d times in completed partition", count)
	}
}

func TestCompletedSignalForUnknownBookingAddsStub(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{})
	bus := signal.NewBus()
	s := loadedDriverScreen(t, api, bus)

	bus.PublishBookingUpdated(signal.BookingUpdate{BookingID: "elsewhere", Status: models.StatusCompleted})
	v := s.View()
	if !containsID(v.Completed, "elsewhere") {
		t.Fatal("minimal record expected in completed partition")
	}
}

func TestCompleteRejectsIllegalLocalTransition(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("stale", models.StatusRequested, "2026-01-01T00:00:00"),
	})
	s := loadedDriverScreen(t, api, signal.NewBus())

	_, err := s.Complete(context.Background(), "stale")
	if !gateway.IsConflict(err) {
		t.Fatalf("want Conflict, got %v", err)
	}
	if api.callCount("POST /bookings/stale/complete") != 0 {
		t.Fatal("illegal transition must not reach the network")
	}
}

func TestCompleteWritesThroughArchive(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{})
	api.respond("GET /bookings/driver/d1", []models.Booking{
		driverBooking("ride", models.StatusAccepted, "2026-01-01T00:00:00"),
	})
	store := archive.NewMemoryArchive()
	s := NewDriverScreen(api, signal.NewBus(), "d1", nil).WithArchive(store)
	s.Mount()
	defer s.Unmount()
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Complete(context.Background(), "ride"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, ok := store.Get("ride")
	if !ok || got.Status != models.StatusCompleted {
		t.Fatalf("archived copy = %+v, ok=%v", got, ok)
	}
}

func TestDeclineDropsFromQueueOnly(t *testing.T) {
	api := newFakeAPI()
	api.respond("GET /bookings/status/requested", []models.Booking{
		driverBooking("open", models.StatusRequested, "2026-01-01T00:00:00"),
	})
	api.respond("GET /bookings/driver/d1", []models.Booking{})
	s := loadedDriverScreen(t, api, signal.NewBus())

	s.Decline("open")
	if containsID(s.View().Requested, "open") {
		t.Fatal("declined request still in queue")
	}
	// Nothing but the two loads must have gone out.
	if len(api.calls) != 2 {
		t.Fatalf("unexpected traffic: %v", api.calls)
	}
}
