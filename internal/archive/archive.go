// Package archive is an optional write-behind of completed rides, kept for
// local reporting without refetching history. Never on the user's critical
// path: a failed archive write is logged by the caller and forgotten.
package archive

import (
	"context"
	"sync"

	"github.com/example/tricy-client/internal/models"
)

// BookingArchive persists completed bookings.
type BookingArchive interface {
	SaveCompleted(ctx context.Context, b *models.Booking) error
}

type MemoryArchive struct {
	mu   sync.RWMutex
	byID map[string]models.Booking
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{byID: make(map[string]models.Booking)}
}

func (m *MemoryArchive) SaveCompleted(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[b.BookingID] = *b
	return nil
}

func (m *MemoryArchive) Get(id string) (models.Booking, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.byID[id]
	return b, ok
}

func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
