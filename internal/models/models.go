package models

// Status is a booking's lifecycle stage. The enum moves strictly forward
// except for cancellation, which is only reachable from the requested stage.
type Status string

const (
	StatusRequested Status = "requested"
	StatusAccepted  Status = "accepted"
	// StatusOngoing is an alias stage some server responses use for an
	// accepted ride already underway. It is the same lifecycle step as
	// accepted for transition purposes.
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Roles of an authenticated identity.
const (
	RolePassenger = "passenger"
	RoleDriver    = "driver"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// User is the identity object persisted alongside the credential.
type User struct {
	UserID      string `json:"user_id"`
	DriverID    string `json:"driver_id,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Role        string `json:"role"`
}

// ActorID returns the identifier the booking endpoints expect for this
// user's role: drivers may carry a distinct driver_id, everyone else is
// addressed by user_id.
func (u User) ActorID() string {
	if u.Role == RoleDriver && u.DriverID != "" {
		return u.DriverID
	}
	return u.UserID
}

// Session is the process-wide authenticated state: identity plus the
// opaque bearer credential. Exactly one session is live at a time.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type Booking struct {
	BookingID       string   `json:"booking_id"`
	UserID          string   `json:"user_id"`
	DriverID        string   `json:"driver_id,omitempty"`
	PickupLocation  string   `json:"pickup_location"`
	DropoffLocation string   `json:"dropoff_location"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLng       *float64 `json:"pickup_lng,omitempty"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64 `json:"dropoff_lng,omitempty"`
	Fare            float64  `json:"fare"`
	Status          Status   `json:"status"`
	// CreatedAt stays a raw ISO-8601 string: the ordering contracts compare
	// it lexicographically, which for this format equals chronological order.
	CreatedAt string `json:"created_at"`
}

// BookingCreate is the request body for POST /bookings.
type BookingCreate struct {
	UserID          string   `json:"user_id"`
	PickupLocation  string   `json:"pickup_location"`
	DropoffLocation string   `json:"dropoff_location"`
	PickupLat       *float64 `json:"pickup_lat,omitempty"`
	PickupLng       *float64 `json:"pickup_lng,omitempty"`
	DropoffLat      *float64 `json:"dropoff_lat,omitempty"`
	DropoffLng      *float64 `json:"dropoff_lng,omitempty"`
	Fare            float64  `json:"fare"`
}

type Notification struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	Kind           string `json:"type"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

// Payment modes and statuses as the transaction endpoints report them.
const (
	PaymentModeCash   = "cash"
	PaymentModeOnline = "online"

	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
)

type Transaction struct {
	TransactionID string  `json:"transaction_id"`
	BookingID     string  `json:"booking_id"`
	UserID        string  `json:"user_id"`
	DriverID      string  `json:"driver_id"`
	PaymentMode   string  `json:"payment_mode"`
	PaymentStatus string  `json:"payment_status"`
	Amount        float64 `json:"amount"`
	CreatedAt     string  `json:"created_at"`
}

// Settled reports whether the transaction has reached a terminal success
// state. Settled transactions are immutable.
func (t Transaction) Settled() bool {
	return t.PaymentStatus == PaymentStatusSuccess || t.PaymentStatus == "completed"
}
