package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intconfig "busyatri/internal/config"
	intdb "busyatri/internal/db"
	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
)

const tripColumns = `id, bus_name, bus_type, source, destination, trip_date, departure_time, arrival_time, price, created_at`

type TripRepo struct {
	DB *sql.DB
}

func (r TripRepo) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID,
		&t.BusName,
		&t.BusType,
		&t.Source,
		&t.Destination,
		&t.Date,
		&t.DepartureTime,
		&t.ArrivalTime,
		&t.Price,
		&t.CreatedAt,
	)
	return t, err
}

// GetByID loads a trip together with its seat map in seat order.
func (r TripRepo) GetByID(ctx context.Context, id string) (models.Trip, error) {
	db := r.db()
	t, err := scanTrip(db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Trip{}, domain.NotFoundError{Resource: "trip", ID: id}
		}
		return models.Trip{}, mapMySQLError("get trip", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT seat_number, is_booked FROM trip_seats WHERE trip_id=? ORDER BY position ASC`, id)
	if err != nil {
		return models.Trip{}, mapMySQLError("get trip seats", err)
	}
	defer rows.Close()

	t.Seats = []models.Seat{}
	for rows.Next() {
		var s models.Seat
		if err := rows.Scan(&s.Number, &s.IsBooked); err != nil {
			return models.Trip{}, err
		}
		t.Seats = append(t.Seats, s)
	}
	return t, mapMySQLError("get trip seats", rows.Err())
}

// List returns trips matching q ordered by date, with seat maps attached.
func (r TripRepo) List(ctx context.Context, q models.TripQuery) ([]models.Trip, error) {
	db := r.db()

	where := []string{"1=1"}
	args := []any{}
	if v := strings.TrimSpace(q.Source); v != "" {
		where = append(where, "source=?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(q.Destination); v != "" {
		where = append(where, "destination=?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(q.Date); v != "" {
		where = append(where, "trip_date=?")
		args = append(args, v)
	}

	rows, err := db.QueryContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE `+strings.Join(where, " AND ")+` ORDER BY trip_date ASC, departure_time ASC, created_at ASC`, args...)
	if err != nil {
		return nil, mapMySQLError("list trips", err)
	}
	out := []models.Trip{}
	index := map[string]int{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		t.Seats = []models.Seat{}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, mapMySQLError("list trips", err)
	}
	rows.Close()
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(out))
	for _, t := range out {
		ids = append(ids, t.ID)
	}
	seatRows, err := db.QueryContext(ctx, `SELECT trip_id, seat_number, is_booked FROM trip_seats WHERE trip_id IN (`+intdb.Placeholders(len(ids))+`) ORDER BY trip_id ASC, position ASC`, ids...)
	if err != nil {
		return nil, mapMySQLError("list trip seats", err)
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var tripID string
		var s models.Seat
		if err := seatRows.Scan(&tripID, &s.Number, &s.IsBooked); err != nil {
			return nil, err
		}
		if i, ok := index[tripID]; ok {
			out[i].Seats = append(out[i].Seats, s)
		}
	}
	return out, mapMySQLError("list trip seats", seatRows.Err())
}

// Create inserts the trip row and its seat map in one transaction.
func (r TripRepo) Create(ctx context.Context, t models.Trip) error {
	tx, err := r.db().BeginTx(ctx, nil)
	if err != nil {
		return mapMySQLError("create trip", err)
	}
	committed := false
	defer rollback(tx, &committed)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID,
		t.BusName,
		t.BusType,
		t.Source,
		t.Destination,
		t.Date,
		t.DepartureTime,
		t.ArrivalTime,
		t.Price,
		t.CreatedAt,
	); err != nil {
		if isDuplicateEntry(err) {
			return domain.ValidationError{Field: "id", Msg: "trip already exists"}
		}
		return mapMySQLError("create trip", err)
	}

	if len(t.Seats) > 0 {
		values := make([]string, 0, len(t.Seats))
		args := make([]any, 0, len(t.Seats)*4)
		for i, s := range t.Seats {
			values = append(values, "(?,?,?,?)")
			args = append(args, t.ID, s.Number, i, s.IsBooked)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO trip_seats (trip_id, seat_number, position, is_booked) VALUES `+strings.Join(values, ","), args...); err != nil {
			return mapMySQLError("create trip seats", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return mapMySQLError("create trip", err)
	}
	committed = true
	return nil
}
