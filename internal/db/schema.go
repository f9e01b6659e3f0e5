package db

import (
	"context"
	"database/sql"
	"fmt"

	"busyatri/internal/utils"
)

type tableDDL struct {
	name string
	ddl  string
}

var schema = []tableDDL{
	{"trips", `
CREATE TABLE IF NOT EXISTS trips (
	id CHAR(36) NOT NULL PRIMARY KEY,
	bus_name VARCHAR(255) NOT NULL DEFAULT '',
	bus_type VARCHAR(32) NOT NULL DEFAULT '',
	source VARCHAR(128) NOT NULL,
	destination VARCHAR(128) NOT NULL,
	trip_date VARCHAR(10) NOT NULL,
	departure_time VARCHAR(5) NOT NULL DEFAULT '',
	arrival_time VARCHAR(5) NOT NULL DEFAULT '',
	price BIGINT NOT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_route_date (source, destination, trip_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"trip_seats", `
CREATE TABLE IF NOT EXISTS trip_seats (
	trip_id CHAR(36) NOT NULL,
	seat_number VARCHAR(16) NOT NULL,
	position INT NOT NULL,
	is_booked TINYINT(1) NOT NULL DEFAULT 0,
	booking_id CHAR(36) NULL,
	PRIMARY KEY (trip_id, seat_number),
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id CHAR(36) NOT NULL PRIMARY KEY,
	trip_id CHAR(36) NOT NULL,
	passenger_name VARCHAR(255) NOT NULL,
	user_id VARCHAR(64) NULL,
	seat_numbers VARCHAR(1024) NOT NULL,
	total_price BIGINT NOT NULL,
	created_at DATETIME NOT NULL,
	KEY idx_passenger (passenger_name),
	KEY idx_trip (trip_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"users", `
CREATE TABLE IF NOT EXISTS users (
	id CHAR(36) NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	email VARCHAR(255) NOT NULL,
	password_hash VARCHAR(255) NOT NULL,
	role VARCHAR(32) NOT NULL DEFAULT 'user',
	created_at DATETIME NOT NULL,
	UNIQUE KEY uniq_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

type columnDDL struct {
	table, column, ddl string
}

// columns added after the first release; tables created above already have them.
var upgrades = []columnDDL{
	{"trips", "bus_type", `ALTER TABLE trips ADD COLUMN bus_type VARCHAR(32) NOT NULL DEFAULT '' AFTER bus_name`},
	{"bookings", "user_id", `ALTER TABLE bookings ADD COLUMN user_id VARCHAR(64) NULL AFTER passenger_name`},
}

// EnsureSchema creates any missing table and adds columns missing from
// tables created by older builds.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("db not available")
	}
	existed := map[string]bool{}
	for _, t := range schema {
		if HasTable(ctx, db, t.name) {
			existed[t.name] = true
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
		utils.LogEvent("", "db", "ensure_schema", "created table "+t.name)
	}
	for _, u := range upgrades {
		if !existed[u.table] || HasColumn(ctx, db, u.table, u.column) {
			continue
		}
		if _, err := db.ExecContext(ctx, u.ddl); err != nil {
			return fmt.Errorf("add column %s.%s: %w", u.table, u.column, err)
		}
		utils.LogEvent("", "db", "ensure_schema", "added column "+u.table+"."+u.column)
	}
	return nil
}
