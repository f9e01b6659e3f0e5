package repositories

import (
	"context"
	"testing"
	"time"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var tripCols = []string{"id", "bus_name", "bus_type", "source", "destination", "trip_date", "departure_time", "arrival_time", "price", "created_at"}

func TestTripRepoGetByIDLoadsSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM trips WHERE id=\\?").WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("t-1", "Zingbus", "AC", "Delhi", "Shimla", "2025-02-10", "21:00", "06:00", int64(500), created))
	mock.ExpectQuery("SELECT seat_number, is_booked FROM trip_seats WHERE trip_id=\\? ORDER BY position").WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"seat_number", "is_booked"}).
			AddRow("S1", true).AddRow("S2", false))

	trip, err := TripRepo{DB: db}.GetByID(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if trip.Price != 500 || len(trip.Seats) != 2 || !trip.Seats[0].IsBooked {
		t.Fatalf("unexpected trip: %+v", trip)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripRepoGetByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM trips WHERE id=\\?").WithArgs("nope").
		WillReturnRows(sqlmock.NewRows(tripCols))

	if _, err := (TripRepo{DB: db}).GetByID(context.Background(), "nope"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestTripRepoCreateInsertsSeatMap(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	trip := models.Trip{
		ID:          "t-9",
		Source:      "Mumbai",
		Destination: "Goa",
		Date:        "2025-02-10",
		Price:       900,
		Seats:       []models.Seat{{Number: "S1"}, {Number: "S2"}},
		CreatedAt:   time.Now(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO trips").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO trip_seats").
		WithArgs("t-9", "S1", 0, false, "t-9", "S2", 1, false).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	if err := (TripRepo{DB: db}).Create(context.Background(), trip); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTripRepoListFiltersAndAttachesSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM trips WHERE 1=1 AND source=\\? AND trip_date=\\?").WithArgs("Delhi", "2025-02-10").
		WillReturnRows(sqlmock.NewRows(tripCols).
			AddRow("t-1", "", "", "Delhi", "Manali", "2025-02-10", "20:00", "06:00", int64(1200), created).
			AddRow("t-2", "", "", "Delhi", "Jaipur", "2025-02-10", "22:00", "04:00", int64(600), created))
	mock.ExpectQuery("FROM trip_seats WHERE trip_id IN \\(\\?,\\?\\)").WithArgs("t-1", "t-2").
		WillReturnRows(sqlmock.NewRows([]string{"trip_id", "seat_number", "is_booked"}).
			AddRow("t-1", "S1", false).
			AddRow("t-2", "S1", true).
			AddRow("t-2", "S2", false))

	trips, err := TripRepo{DB: db}.List(context.Background(), models.TripQuery{Source: "Delhi", Date: "2025-02-10"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("expected 2 trips, got %d", len(trips))
	}
	if len(trips[0].Seats) != 1 || len(trips[1].Seats) != 2 || !trips[1].Seats[0].IsBooked {
		t.Fatalf("seats not attached correctly: %+v", trips)
	}
}
