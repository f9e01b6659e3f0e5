package handlers

import (
	"net/http"
	"strings"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/services"

	"github.com/gin-gonic/gin"
)

type reserveRequest struct {
	TripID        string   `json:"tripId" binding:"required"`
	SeatNumbers   []string `json:"seatNumbers" binding:"required,min=1,dive,required"`
	PassengerName string   `json:"passengerName" binding:"required,max=255"`
	// TotalPrice is what the client displayed; the server recomputes it.
	TotalPrice *int64 `json:"totalPrice" binding:"omitempty,gte=0"`
}

// populatedBooking is a booking with tripId replaced by the trip itself, the
// shape the booking pages read (booking.tripId.source).
type populatedBooking struct {
	models.Booking
	Trip models.TripSummary `json:"tripId"`
}

func populate(d models.BookingDetail) populatedBooking {
	return populatedBooking{Booking: d.Booking, Trip: d.Trip}
}

// Reserve handles POST /api/book and POST /api/bookings.
func (h Handler) Reserve(c *gin.Context) {
	var req reserveRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in := services.ReserveInput{
		TripID:        req.TripID,
		SeatNumbers:   req.SeatNumbers,
		PassengerName: req.PassengerName,
	}
	if req.TotalPrice != nil {
		in.ExpectedTotal = *req.TotalPrice
	}
	res, err := h.Reservations.Reserve(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	body := gin.H{
		"message": "Booking Successful!",
		"booking": res.Booking,
	}
	if res.NotificationRef != "" {
		body["notificationRef"] = res.NotificationRef
	}
	c.JSON(http.StatusCreated, body)
}

// MyBookings handles GET /api/my-bookings?name=. Without a name it lists
// the logged-in user's bookings.
func (h Handler) MyBookings(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if rc := domain.FromContext(c.Request.Context()); name == "" && rc.Authenticated() {
		name = rc.Name
	}
	if name == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}
	list, err := h.Reservations.ListBookingsFor(c.Request.Context(), name)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := make([]populatedBooking, 0, len(list))
	for _, d := range list {
		out = append(out, populate(d))
	}
	c.JSON(http.StatusOK, out)
}

// GetBooking handles GET /api/bookings/:id.
func (h Handler) GetBooking(c *gin.Context) {
	d, err := h.Reservations.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, populate(d))
}

// CancelBooking handles DELETE /api/bookings/:id.
func (h Handler) CancelBooking(c *gin.Context) {
	if err := h.Reservations.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking Cancelled Successfully"})
}
