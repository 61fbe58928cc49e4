// Package lifecycle holds the pure booking-lifecycle decision functions.
// The server remains the final authority: a transition the client believes
// legal may still be rejected in a race with another driver, and that
// rejection is an ordinary conflict, not a defect.
package lifecycle

import "github.com/example/tricy-client/internal/models"

// LegalTransition reports whether the status move is allowed:
//
//	requested -> accepted/ongoing, cancelled
//	accepted/ongoing -> completed
//	completed, cancelled -> nothing (terminal)
//
// Anything else must be rejected before a request is issued.
func LegalTransition(from, to models.Status) bool {
	switch from {
	case models.StatusRequested:
		return to == models.StatusAccepted || to == models.StatusOngoing || to == models.StatusCancelled
	case models.StatusAccepted, models.StatusOngoing:
		return to == models.StatusCompleted
	default:
		return false
	}
}

// CanAssign is the single-active-ride rule: a driver may take a new request
// only while holding no active booking. Advisory client-side; the server
// enforces it authoritatively on assignment.
func CanAssign(active []models.Booking) bool {
	return len(active) == 0
}
