package models

import "encoding/json"

// bookingWire mirrors every field spelling the API has been observed to
// emit. Older server builds camel-cased the coordinate and timestamp
// fields; normalization happens here, once, instead of fallback chains at
// every call site.
type bookingWire struct {
	BookingID       string   `json:"booking_id"`
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	DriverID        string   `json:"driver_id"`
	PickupLocation  string   `json:"pickup_location"`
	Pickup          string   `json:"pickup"`
	DropoffLocation string   `json:"dropoff_location"`
	Dropoff         string   `json:"dropoff"`
	PickupLat       *float64 `json:"pickup_lat"`
	PickupLatAlt    *float64 `json:"pickupLat"`
	PickupLng       *float64 `json:"pickup_lng"`
	PickupLngAlt    *float64 `json:"pickupLng"`
	DropoffLat      *float64 `json:"dropoff_lat"`
	DropoffLatAlt   *float64 `json:"dropoffLat"`
	DropoffLng      *float64 `json:"dropoff_lng"`
	DropoffLngAlt   *float64 `json:"dropoffLng"`
	Fare            float64  `json:"fare"`
	Status          Status   `json:"status"`
	CreatedAt       string   `json:"created_at"`
	CreatedAtAlt    string   `json:"createdAt"`
}

func (b *Booking) UnmarshalJSON(data []byte) error {
	var w bookingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Booking{
		BookingID:       firstString(w.BookingID, w.ID),
		UserID:          w.UserID,
		DriverID:        w.DriverID,
		PickupLocation:  firstString(w.PickupLocation, w.Pickup),
		DropoffLocation: firstString(w.DropoffLocation, w.Dropoff),
		PickupLat:       firstFloat(w.PickupLat, w.PickupLatAlt),
		PickupLng:       firstFloat(w.PickupLng, w.PickupLngAlt),
		DropoffLat:      firstFloat(w.DropoffLat, w.DropoffLatAlt),
		DropoffLng:      firstFloat(w.DropoffLng, w.DropoffLngAlt),
		Fare:            w.Fare,
		Status:          w.Status,
		CreatedAt:       firstString(w.CreatedAt, w.CreatedAtAlt),
	}
	return nil
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
