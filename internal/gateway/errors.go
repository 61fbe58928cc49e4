package gateway

import (
	"errors"
	"fmt"
)

// The four error kinds every caller branches on. Unauthorized is fatal for
// the current screen; Conflict and ServerError are surfaced to the user;
// NetworkError degrades the view and the user retries by revisiting.

// Unauthorized means the credential was rejected. The session has already
// been cleared and the logout signal broadcast by the time a caller sees it.
type Unauthorized struct{}

func (*Unauthorized) Error() string { return "unauthorized" }

// Conflict is a business-rule violation: the driver already has an active
// ride, or the server rejected a stale transition (race with another
// driver). Recoverable; no state corruption.
type Conflict struct {
	Message string
}

func (e *Conflict) Error() string {
	if e.Message == "" {
		return "conflict"
	}
	return e.Message
}

// ServerError is any non-2xx response other than 401 and 409.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

// NetworkError is a transport failure: no response at all.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return "network error: " + e.Cause.Error() }
func (e *NetworkError) Unwrap() error { return e.Cause }

func IsUnauthorized(err error) bool {
	var u *Unauthorized
	return errors.As(err, &u)
}

func IsConflict(err error) bool {
	var c *Conflict
	return errors.As(err, &c)
}

func IsNetworkError(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

func IsServerError(err error) bool {
	var s *ServerError
	return errors.As(err, &s)
}
