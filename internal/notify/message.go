package notify

import (
	"fmt"
	"time"

	"busyatri/internal/utils"
)

const (
	KindBookingConfirmed = "booking.confirmed"
	KindBookingCancelled = "booking.cancelled"
)

// Message is the payload handed to the notification queue after a booking
// changes state.
type Message struct {
	Ref           string    `json:"ref"`
	Kind          string    `json:"kind"`
	RequestID     string    `json:"requestId,omitempty"`
	BookingID     string    `json:"bookingId"`
	PassengerName string    `json:"passengerName"`
	Source        string    `json:"source"`
	Destination   string    `json:"destination"`
	Date          string    `json:"date,omitempty"`
	Seats         string    `json:"seats"`
	TotalPrice    int64     `json:"totalPrice"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Subject renders the e-mail style subject line.
func (m Message) Subject() string {
	if m.Kind == KindBookingCancelled {
		return fmt.Sprintf("Booking Cancelled: %s to %s", m.Source, m.Destination)
	}
	return fmt.Sprintf("Ticket Confirmed: %s to %s", m.Source, m.Destination)
}

// Text renders the plain-text body.
func (m Message) Text() string {
	if m.Kind == KindBookingCancelled {
		return fmt.Sprintf("Hello %s, your booking %s has been cancelled. Seats released: %s.",
			m.PassengerName, m.BookingID, m.Seats)
	}
	return fmt.Sprintf("Hello %s, your ticket is confirmed! Seats: %s. Total: %s",
		m.PassengerName, m.Seats, utils.FormatRupee(m.TotalPrice))
}
