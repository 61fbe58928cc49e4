// Package booking keeps each screen's local view of bookings consistent.
// There is no central store: every screen owns its cache exclusively,
// reloads it from the API on mount, and converges early via the signal
// bus. Signals are an optimization only; a screen that misses every signal
// is still correct after its next reload.
package booking

import (
	"context"
	"sort"

	"github.com/example/tricy-client/internal/models"
)

// API is the slice of the gateway the synchronizer needs.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// SortForHistory orders a passenger's booking history: active rides before
// completed ones, newest first within each group. This ordering is a hard
// contract of the history screen, not a display nicety. The secondary key
// compares the raw ISO-8601 strings, which sort chronologically.
func SortForHistory(bs []models.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		gi, gj := historyGroup(bs[i].Status), historyGroup(bs[j].Status)
		if gi != gj {
			return gi < gj
		}
		return bs[i].CreatedAt > bs[j].CreatedAt
	})
}

func historyGroup(s models.Status) int {
	if s == models.StatusCompleted {
		return 1
	}
	return 0
}

func sortNewestFirst(bs []models.Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		return bs[i].CreatedAt > bs[j].CreatedAt
	})
}

func findByID(bs []models.Booking, id string) (models.Booking, bool) {
	for _, b := range bs {
		if b.BookingID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

func removeByID(bs []models.Booking, id string) []models.Booking {
	out := bs[:0]
	for _, b := range bs {
		if b.BookingID != id {
			out = append(out, b)
		}
	}
	return out
}

func containsID(bs []models.Booking, id string) bool {
	_, ok := findByID(bs, id)
	return ok
}

func snapshot(bs []models.Booking) []models.Booking {
	out := make([]models.Booking, len(bs))
	copy(out, bs)
	return out
}
