package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/session"
	"github.com/example/tricy-client/internal/signal"
)

func newStore(t *testing.T, bus *signal.Bus) session.Store {
	t.Helper()
	s := session.NewFileStore(t.TempDir(), bus, nil)
	err := s.Save(&models.Session{
		User:  models.User{UserID: "u1", Role: models.RolePassenger},
		Token: "tok-abc",
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return s
}

func TestBearerHeaderAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, newStore(t, nil), nil)
	var out map[string]bool
	if err := c.Get(context.Background(), "/bookings", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestNoBearerWithoutSession(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(srv.URL, session.NewFileStore(t.TempDir(), nil, nil), nil)
	if err := c.Get(context.Background(), "/bookings", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
}

func TestUnauthorizedClearsSessionOnceAndSignals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	bus := signal.NewBus()
	var logouts int
	bus.SubscribeLogout(func() { logouts++ })
	store := newStore(t, bus)
	c := New(srv.URL, store, nil)

	err := c.Get(context.Background(), "/bookings", nil)
	if !IsUnauthorized(err) {
		t.Fatalf("want Unauthorized, got %v", err)
	}
	if sess, _ := store.Load(); sess != nil {
		t.Fatalf("session not cleared: %+v", sess)
	}
	// A second 401 must not signal again: the store is already empty.
	err = c.Get(context.Background(), "/bookings", nil)
	if !IsUnauthorized(err) {
		t.Fatalf("want Unauthorized, got %v", err)
	}
	if logouts != 1 {
		t.Fatalf("logout signalled %d times, want 1", logouts)
	}
}

func TestConflictCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"booking already assigned"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, newStore(t, nil), nil)
	err := c.Post(context.Background(), "/bookings/b1/assign/d1", nil, nil)
	if !IsConflict(err) {
		t.Fatalf("want Conflict, got %v", err)
	}
	if err.Error() != "booking already assigned" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestServerErrorDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"db down"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, newStore(t, nil), nil)
	err := c.Get(context.Background(), "/bookings", nil)
	if !IsServerError(err) {
		t.Fatalf("want ServerError, got %v", err)
	}
	var se *ServerError
	if !errors.As(err, &se) || se.Status != 500 || se.Message != "db down" {
		t.Fatalf("server error = %v", err)
	}
}

func TestServerErrorFallsBackToStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("plain text"))
	}))
	defer srv.Close()

	c := New(srv.URL, newStore(t, nil), nil)
	err := c.Get(context.Background(), "/bookings/missing", nil)
	var se *ServerError
	if !errors.As(err, &se) || se.Message != "Not Found" {
		t.Fatalf("want status text fallback, got %v", err)
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := New(srv.URL, newStore(t, nil), nil)
	err := c.Get(context.Background(), "/bookings", nil)
	if !IsNetworkError(err) {
		t.Fatalf("want NetworkError, got %v", err)
	}
}

func TestCancelledContextSurfacesAsContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := New(srv.URL, newStore(t, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Get(ctx, "/bookings", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}
