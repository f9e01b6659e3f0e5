package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/utils"
)

const (
	maxSeatCount = 80
	// Column widths of the trips table.
	MaxPlaceLen   = 128
	MaxBusNameLen = 255
)

// CreateTripInput is the admin "add trip" payload after binding.
type CreateTripInput struct {
	Source        string
	Destination   string
	Date          string
	DepartureTime string
	ArrivalTime   string
	BusName       string
	BusType       string
	Price         int64
	SeatCount     int
}

// TripService manages trip inventory outside the reservation path.
type TripService struct {
	Store TripStore
}

func (s TripService) ListTrips(ctx context.Context, q models.TripQuery) ([]models.Trip, error) {
	q.Source = utils.NormalizeSpace(q.Source)
	q.Destination = utils.NormalizeSpace(q.Destination)
	q.Date = strings.TrimSpace(q.Date)
	if q.Date != "" && !utils.IsDate(q.Date) {
		return nil, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	trips, err := s.Store.ListTrips(ctx, q)
	if err != nil {
		return nil, storeErr("list trips", err)
	}
	return trips, nil
}

func (s TripService) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Trip{}, domain.ValidationError{Field: "id", Msg: "required"}
	}
	t, err := s.Store.GetTrip(ctx, id)
	if err != nil {
		return models.Trip{}, storeErr("get trip", err)
	}
	return t, nil
}

// CreateTrip validates the input and stores a trip with seats S1..Sn, all
// available.
func (s TripService) CreateTrip(ctx context.Context, in CreateTripInput) (models.Trip, error) {
	source := utils.NormalizeSpace(in.Source)
	dest := utils.NormalizeSpace(in.Destination)
	switch {
	case source == "":
		return models.Trip{}, domain.ValidationError{Field: "source", Msg: "required"}
	case dest == "":
		return models.Trip{}, domain.ValidationError{Field: "destination", Msg: "required"}
	case utf8.RuneCountInString(source) > MaxPlaceLen:
		return models.Trip{}, domain.ValidationError{Field: "source", Msg: fmt.Sprintf("at most %d characters", MaxPlaceLen)}
	case utf8.RuneCountInString(dest) > MaxPlaceLen:
		return models.Trip{}, domain.ValidationError{Field: "destination", Msg: fmt.Sprintf("at most %d characters", MaxPlaceLen)}
	case utf8.RuneCountInString(in.BusName) > MaxBusNameLen:
		return models.Trip{}, domain.ValidationError{Field: "busName", Msg: fmt.Sprintf("at most %d characters", MaxBusNameLen)}
	case strings.EqualFold(source, dest):
		return models.Trip{}, domain.ValidationError{Field: "destination", Msg: "must differ from source"}
	case !utils.IsDate(in.Date):
		return models.Trip{}, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	case in.Price <= 0:
		return models.Trip{}, domain.ValidationError{Field: "price", Msg: "must be positive"}
	}
	seatCount := in.SeatCount
	if seatCount == 0 {
		seatCount = models.DefaultSeatCount
	}
	if seatCount < 1 || seatCount > maxSeatCount {
		return models.Trip{}, domain.ValidationError{Field: "seatCount", Msg: fmt.Sprintf("must be between 1 and %d", maxSeatCount)}
	}

	t := models.Trip{
		ID:            idSource(s.Store)(),
		BusName:       utils.NormalizeSpace(in.BusName),
		BusType:       utils.NormalizeSpace(in.BusType),
		Source:        source,
		Destination:   dest,
		Date:          strings.TrimSpace(in.Date),
		DepartureTime: utils.NormalizeClock(in.DepartureTime),
		ArrivalTime:   utils.NormalizeClock(in.ArrivalTime),
		Price:         in.Price,
		Seats:         GenerateSeats(seatCount),
		CreatedAt:     utils.NowUTC(),
	}
	if err := s.Store.CreateTrip(ctx, t); err != nil {
		return models.Trip{}, storeErr("create trip", err)
	}
	utils.LogEvent(domain.FromContext(ctx).RequestID, "trips", "create",
		fmt.Sprintf("trip_id=%s %s->%s %s", t.ID, t.Source, t.Destination, t.Date))
	return t, nil
}

// GenerateSeats returns n free seats numbered S1..Sn.
func GenerateSeats(n int) []models.Seat {
	seats := make([]models.Seat, 0, n)
	for i := 1; i <= n; i++ {
		seats = append(seats, models.Seat{Number: fmt.Sprintf("S%d", i)})
	}
	return seats
}

type demoRoute struct {
	from, to, bus, busType string
	departure, arrival     string
	price                  int64
}

var demoRoutes = []demoRoute{
	{"Delhi", "Manali", "Laxmi Holidays (Volvo Multi-Axle)", "AC", "20:30", "09:00", 1450},
	{"Delhi", "Jaipur", "Orbit Aviation (Scania Sleeper)", "AC", "07:15", "12:45", 900},
	{"Mumbai", "Goa", "VRL Logistics (Ashok Leyland)", "Non-AC", "21:00", "08:30", 650},
	{"Mumbai", "Pune", "Purple Metrolink (Mercedes Benz)", "AC", "06:00", "09:30", 500},
	{"Bangalore", "Hyderabad", "Orange Travels (Bharat Benz)", "AC", "22:00", "06:00", 1200},
	{"Bangalore", "Chennai", "Jabbar Travels (Tata Pushback)", "Non-AC", "23:15", "05:30", 450},
	{"Kolkata", "Siliguri", "Greenline (Eicher Starline)", "Non-AC", "19:45", "07:00", 700},
	{"Indore", "Bhopal", "Hans Travels (Volvo Multi-Axle)", "AC", "08:30", "12:00", 550},
}

// SeedDemo stores a small fixed inventory on date when the store has no
// trips yet. It returns the number of trips created.
func (s TripService) SeedDemo(ctx context.Context, date string) (int, error) {
	existing, err := s.Store.ListTrips(ctx, models.TripQuery{})
	if err != nil {
		return 0, storeErr("seed", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	n := 0
	for _, r := range demoRoutes {
		_, err := s.CreateTrip(ctx, CreateTripInput{
			Source:        r.from,
			Destination:   r.to,
			Date:          date,
			DepartureTime: r.departure,
			ArrivalTime:   r.arrival,
			BusName:       r.bus,
			BusType:       r.busType,
			Price:         r.price,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
