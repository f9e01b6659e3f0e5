package handlers

import (
	"busyatri/internal/services"
)

// Handler holds the services the HTTP endpoints call into.
type Handler struct {
	Reservations *services.ReservationService
	Trips        services.TripService
	Auth         services.AuthService
	Tickets      services.TicketService
	// Ping reports backend health; nil means always healthy.
	Ping func() error
}
