package models

import "time"

// Booking is a confirmed reservation of one or more seats on a trip.
type Booking struct {
	ID            string    `json:"_id" bson:"_id"`
	TripID        string    `json:"tripId" bson:"tripId"`
	SeatNumbers   []string  `json:"seatNumbers" bson:"seatNumbers"`
	PassengerName string    `json:"passengerName" bson:"passengerName"`
	UserID        string    `json:"userId,omitempty" bson:"userId,omitempty"`
	TotalPrice    int64     `json:"totalPrice" bson:"totalPrice"`
	CreatedAt     time.Time `json:"bookingDate" bson:"bookingDate"`
}

// Clone copies the seat slice.
func (b Booking) Clone() Booking {
	out := b
	out.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	return out
}

// TripSummary is the part of a trip shown next to a booking.
type TripSummary struct {
	ID            string `json:"_id"`
	Source        string `json:"source"`
	Destination   string `json:"destination"`
	Date          string `json:"date"`
	DepartureTime string `json:"departureTime,omitempty"`
	Price         int64  `json:"price"`
}

// BookingDetail is a booking joined with its trip for display.
type BookingDetail struct {
	Booking
	Trip TripSummary `json:"trip"`
}

// SummaryOf extracts the display fields of a trip.
func SummaryOf(t Trip) TripSummary {
	return TripSummary{
		ID:            t.ID,
		Source:        t.Source,
		Destination:   t.Destination,
		Date:          t.Date,
		DepartureTime: t.DepartureTime,
		Price:         t.Price,
	}
}
