package handlers

import (
	"net/http"

	"busyatri/internal/domain/models"
	"busyatri/internal/services"

	"github.com/gin-gonic/gin"
)

type createTripRequest struct {
	Source        string `json:"source" binding:"required,max=128"`
	Destination   string `json:"destination" binding:"required,max=128"`
	Date          string `json:"date" binding:"required"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	BusName       string `json:"busName" binding:"max=255"`
	BusType       string `json:"busType" binding:"omitempty,oneof=AC Non-AC Sleeper"`
	Price         int64  `json:"price" binding:"required,gt=0"`
	SeatCount     int    `json:"seatCount" binding:"omitempty,min=1"`
}

// ListTrips handles GET /api/trips?source=&destination=&date=.
func (h Handler) ListTrips(c *gin.Context) {
	trips, err := h.Trips.ListTrips(c.Request.Context(), models.TripQuery{
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
		Date:        c.Query("date"),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trips)
}

// GetTrip handles GET /api/trips/:id.
func (h Handler) GetTrip(c *gin.Context) {
	trip, err := h.Trips.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// CreateTrip handles POST /api/add-trip and POST /api/trips.
func (h Handler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	trip, err := h.Trips.CreateTrip(c.Request.Context(), services.CreateTripInput{
		Source:        req.Source,
		Destination:   req.Destination,
		Date:          req.Date,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		BusName:       req.BusName,
		BusType:       req.BusType,
		Price:         req.Price,
		SeatCount:     req.SeatCount,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Trip added", "trip": trip})
}
