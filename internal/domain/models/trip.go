package models

import "time"

// DefaultSeatCount matches the 40-seat coaches the fleet runs.
const DefaultSeatCount = 40

// Seat is one bookable unit of a trip's inventory.
type Seat struct {
	Number   string `json:"number" bson:"number"`
	IsBooked bool   `json:"isBooked" bson:"isBooked"`
}

// Trip is a scheduled bus journey with a fixed seat map.
type Trip struct {
	ID            string    `json:"_id" bson:"_id"`
	BusName       string    `json:"busName,omitempty" bson:"busName,omitempty"`
	BusType       string    `json:"busType,omitempty" bson:"busType,omitempty"`
	Source        string    `json:"source" bson:"source"`
	Destination   string    `json:"destination" bson:"destination"`
	Date          string    `json:"date" bson:"date"`
	DepartureTime string    `json:"departureTime,omitempty" bson:"departureTime,omitempty"`
	ArrivalTime   string    `json:"arrivalTime,omitempty" bson:"arrivalTime,omitempty"`
	Price         int64     `json:"price" bson:"price"`
	Seats         []Seat    `json:"seats" bson:"seats"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
}

// Seat returns the seat with the given number.
func (t Trip) Seat(number string) (Seat, bool) {
	for _, s := range t.Seats {
		if s.Number == number {
			return s, true
		}
	}
	return Seat{}, false
}

// BookedCount counts seats currently flagged as booked.
func (t Trip) BookedCount() int {
	n := 0
	for _, s := range t.Seats {
		if s.IsBooked {
			n++
		}
	}
	return n
}

// AvailableCount counts free seats.
func (t Trip) AvailableCount() int {
	return len(t.Seats) - t.BookedCount()
}

// Clone deep-copies the seat slice so callers can mutate freely.
func (t Trip) Clone() Trip {
	out := t
	out.Seats = append([]Seat(nil), t.Seats...)
	return out
}

// TripQuery filters trip listings; empty fields match everything.
type TripQuery struct {
	Source      string
	Destination string
	Date        string
}
