package repositories

import (
	"context"
	"errors"
	"strings"
	"testing"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestSeatsFreeFilterRequiresEverySeatFree(t *testing.T) {
	f := seatsFreeFilter("t-1", []string{"S1", "S2"})
	if f["_id"] != "t-1" {
		t.Fatalf("filter _id = %v", f["_id"])
	}
	seats, ok := f["seats"].(bson.M)
	if !ok {
		t.Fatalf("seats clause missing: %v", f)
	}
	all, ok := seats["$all"].(bson.A)
	if !ok || len(all) != 2 {
		t.Fatalf("$all clause = %v", seats["$all"])
	}
	first := all[0].(bson.M)["$elemMatch"].(bson.M)
	if first["number"] != "S1" || first["isBooked"] != false {
		t.Fatalf("elemMatch = %v", first)
	}
}

func TestSeatArrayFiltersTargetsRequestedSeats(t *testing.T) {
	af := seatArrayFilters([]string{"S3"})
	if len(af.Filters) != 1 {
		t.Fatalf("expected one array filter, got %d", len(af.Filters))
	}
	in := af.Filters[0].(bson.M)["s.number"].(bson.M)["$in"].([]string)
	if len(in) != 1 || in[0] != "S3" {
		t.Fatalf("array filter seats = %v", in)
	}
	upd := setSeatsUpdate(true)["$set"].(bson.M)
	if upd["seats.$[s].isBooked"] != true {
		t.Fatalf("update = %v", upd)
	}
}

func TestTripFilterSkipsEmptyFields(t *testing.T) {
	f := tripFilter(models.TripQuery{Source: " Delhi ", Date: ""})
	if len(f) != 1 || f["source"] != "Delhi" {
		t.Fatalf("tripFilter = %v", f)
	}
}

func TestTripDocumentKeepsOriginalFieldNames(t *testing.T) {
	raw, err := bson.Marshal(models.Trip{ID: "t-1", Seats: []models.Seat{{Number: "S1", IsBooked: true}}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	seats := doc["seats"].(bson.A)
	seat := seats[0].(bson.M)
	if seat["number"] != "S1" || seat["isBooked"] != true {
		t.Fatalf("seat document = %v", seat)
	}
}

func TestIDValueKeepsObjectIDs(t *testing.T) {
	oid := primitive.NewObjectID()
	if got, ok := idValue(oid.Hex()).(primitive.ObjectID); !ok || got != oid {
		t.Fatalf("idValue(hex) = %#v, want ObjectID %s", idValue(oid.Hex()), oid.Hex())
	}
	if got := idValue("trip-1"); got != "trip-1" {
		t.Fatalf("idValue(non-hex) = %#v", got)
	}

	tripID := primitive.NewObjectID()
	doc, err := bookingDocument(models.Booking{ID: oid.Hex(), TripID: tripID.Hex(), SeatNumbers: []string{"S1"}, PassengerName: "Ana"})
	if err != nil {
		t.Fatalf("bookingDocument: %v", err)
	}
	m := doc.Map()
	if m["_id"] != oid || m["tripId"] != tripID || m["passengerName"] != "Ana" {
		t.Fatalf("booking document = %v", doc)
	}
}

const mockDB = "busyatri"

func newMockMongo(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func updated(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func inserted() bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1})
}

func duplicateKey() bson.D {
	return mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key"})
}

func refused(msg string) bson.D {
	return mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: msg})
}

func tripCursor(doc bson.D) bson.D {
	return mtest.CreateCursorResponse(0, mockDB+".trips", mtest.FirstBatch, doc)
}

func tripDoc(id primitive.ObjectID, booked map[string]bool) bson.D {
	seats := bson.A{}
	for _, n := range []string{"S1", "S2", "S3"} {
		seats = append(seats, bson.D{{Key: "number", Value: n}, {Key: "isBooked", Value: booked[n]}})
	}
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "busId", Value: primitive.NewObjectID()},
		{Key: "source", Value: "Delhi"},
		{Key: "destination", Value: "Jaipur"},
		{Key: "date", Value: "2025-02-10"},
		{Key: "price", Value: 900},
		{Key: "seats", Value: seats},
	}
}

func bookingDoc(id, tripID primitive.ObjectID) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "tripId", Value: tripID},
		{Key: "seatNumbers", Value: bson.A{"S2"}},
		{Key: "passengerName", Value: "Ana"},
		{Key: "totalPrice", Value: 900},
	}
}

func commandNames(mt *mtest.T) []string {
	var out []string
	for ev := mt.GetStartedEvent(); ev != nil; ev = mt.GetStartedEvent() {
		out = append(out, ev.CommandName)
	}
	return out
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMongoGetTripMatchesObjectIDs(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("get trip", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(tripCursor(tripDoc(oid, map[string]bool{"S1": true})))

		trip, err := store.GetTrip(context.Background(), oid.Hex())
		if err != nil {
			mt.Fatalf("GetTrip returned error: %v", err)
		}
		if trip.ID != oid.Hex() || trip.Source != "Delhi" || trip.BookedCount() != 1 {
			mt.Fatalf("unexpected trip: %+v", trip)
		}
		ev := mt.GetStartedEvent()
		if got := ev.Command.Lookup("filter", "_id").Type; got != bson.TypeObjectID {
			mt.Fatalf("find filter _id type = %v, want ObjectID", got)
		}
	})
	mt.Run("missing trip", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mockDB+".trips", mtest.FirstBatch))

		if _, err := store.GetTrip(context.Background(), primitive.NewObjectID().Hex()); !domain.IsNotFound(err) {
			mt.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestMongoListBookingsJoinsObjectIDTrips(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("join", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		tripID, bookingID := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, mockDB+".bookings", mtest.FirstBatch, bookingDoc(bookingID, tripID)),
			tripCursor(tripDoc(tripID, nil)),
		)

		list, err := store.ListBookingsByPassenger(context.Background(), "Ana")
		if err != nil {
			mt.Fatalf("ListBookingsByPassenger returned error: %v", err)
		}
		if len(list) != 1 || list[0].ID != bookingID.Hex() || list[0].TripID != tripID.Hex() || list[0].Trip.Source != "Delhi" {
			mt.Fatalf("unexpected bookings: %+v", list)
		}
		mt.GetStartedEvent()
		ev := mt.GetStartedEvent()
		if got := ev.Command.Lookup("filter", "_id", "$in", "0").Type; got != bson.TypeObjectID {
			mt.Fatalf("trip join $in type = %v, want ObjectID", got)
		}
	})
}

func TestMongoCommitReservation(t *testing.T) {
	tripID := primitive.NewObjectID()
	booking := models.Booking{
		ID:            primitive.NewObjectID().Hex(),
		TripID:        tripID.Hex(),
		SeatNumbers:   []string{"S2"},
		PassengerName: "Ana",
		TotalPrice:    900,
	}

	cases := []struct {
		name      string
		responses []bson.D
		check     func(error) bool
		commands  []string
	}{
		{
			name:      "claim and insert",
			responses: []bson.D{updated(1), inserted()},
			check:     func(err error) bool { return err == nil },
			commands:  []string{"update", "insert"},
		},
		{
			name:      "insert fails and seats are released",
			responses: []bson.D{updated(1), duplicateKey(), updated(1)},
			check:     mongo.IsDuplicateKeyError,
			commands:  []string{"update", "insert", "update"},
		},
		{
			name:      "insert and release both fail",
			responses: []bson.D{updated(1), duplicateKey(), refused("release refused")},
			check: func(err error) bool {
				var ie domain.InternalError
				return errors.As(err, &ie) && strings.Contains(err.Error(), "inconsistent") &&
					strings.Contains(err.Error(), "release refused")
			},
			commands: []string{"update", "insert", "update"},
		},
		{
			name:      "seat taken since read",
			responses: []bson.D{updated(0), tripCursor(tripDoc(tripID, map[string]bool{"S2": true}))},
			check: func(err error) bool {
				var c domain.SeatConflictError
				return errors.As(err, &c) && sameStrings(c.Seats, []string{"S2"})
			},
			commands: []string{"update", "find"},
		},
		{
			name: "seat not on trip",
			responses: []bson.D{updated(0), tripCursor(bson.D{
				{Key: "_id", Value: tripID},
				{Key: "seats", Value: bson.A{bson.D{{Key: "number", Value: "S1"}, {Key: "isBooked", Value: false}}}},
			})},
			check: func(err error) bool {
				var is domain.InvalidSeatError
				return errors.As(err, &is) && sameStrings(is.Seats, []string{"S2"})
			},
			commands: []string{"update", "find"},
		},
		{
			name:      "seat freed before re-read is claimed on retry",
			responses: []bson.D{updated(0), tripCursor(tripDoc(tripID, nil)), updated(1), inserted()},
			check:     func(err error) bool { return err == nil },
			commands:  []string{"update", "find", "update", "insert"},
		},
		{
			name: "repeated miss names the requested seats",
			responses: []bson.D{
				updated(0), tripCursor(tripDoc(tripID, nil)),
				updated(0), tripCursor(tripDoc(tripID, nil)),
			},
			check: func(err error) bool {
				var c domain.SeatConflictError
				return errors.As(err, &c) && sameStrings(c.Seats, []string{"S2"})
			},
			commands: []string{"update", "find", "update", "find"},
		},
	}

	mt := newMockMongo(t)
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			store := NewMongoStore(mt.Client, mockDB, false)
			mt.AddMockResponses(tc.responses...)

			err := store.CommitReservation(context.Background(), booking)
			if !tc.check(err) {
				mt.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			if got := commandNames(mt); !sameStrings(got, tc.commands) {
				mt.Fatalf("%s: commands = %v, want %v", tc.name, got, tc.commands)
			}
		})
	}
}

func TestMongoCommitReservationWritesObjectIDs(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("ids", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		tripID := primitive.NewObjectID()
		mt.AddMockResponses(updated(1), inserted())

		b := models.Booking{ID: store.NewID(), TripID: tripID.Hex(), SeatNumbers: []string{"S1", "S3"}, PassengerName: "Ana"}
		if err := store.CommitReservation(context.Background(), b); err != nil {
			mt.Fatalf("CommitReservation returned error: %v", err)
		}

		claim := mt.GetStartedEvent()
		if got := claim.Command.Lookup("updates", "0", "q", "_id").Type; got != bson.TypeObjectID {
			mt.Fatalf("claim filter _id type = %v", got)
		}
		if booked := claim.Command.Lookup("updates", "0", "u", "$set", "seats.$[s].isBooked").Boolean(); !booked {
			mt.Fatalf("claim update does not book seats: %s", claim.Command)
		}
		insert := mt.GetStartedEvent()
		for _, key := range []string{"_id", "tripId"} {
			if got := insert.Command.Lookup("documents", "0", key).Type; got != bson.TypeObjectID {
				mt.Fatalf("inserted %s type = %v, want ObjectID", key, got)
			}
		}
	})
}

func TestMongoCompensationReleasesClaimedSeats(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("release", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		tripID := primitive.NewObjectID()
		mt.AddMockResponses(updated(1), duplicateKey(), updated(1))

		b := models.Booking{ID: store.NewID(), TripID: tripID.Hex(), SeatNumbers: []string{"S2"}, PassengerName: "Ana"}
		if err := store.CommitReservation(context.Background(), b); err == nil {
			mt.Fatalf("expected insert error")
		}
		mt.GetStartedEvent()
		mt.GetStartedEvent()
		release := mt.GetStartedEvent()
		if release == nil || release.CommandName != "update" {
			mt.Fatalf("no release update after failed insert")
		}
		if booked := release.Command.Lookup("updates", "0", "u", "$set", "seats.$[s].isBooked").Boolean(); booked {
			mt.Fatalf("compensation booked seats instead of freeing them")
		}
		if got := release.Command.Lookup("updates", "0", "q", "_id").Type; got != bson.TypeObjectID {
			mt.Fatalf("release filter _id type = %v", got)
		}
	})
}

func TestMongoReleaseBooking(t *testing.T) {
	tripID, bookingID := primitive.NewObjectID(), primitive.NewObjectID()
	deleted := mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bookingDoc(bookingID, tripID)})

	cases := []struct {
		name      string
		responses []bson.D
		check     func(models.Booking, error) bool
		commands  []string
	}{
		{
			name:      "delete and free seats",
			responses: []bson.D{deleted, updated(1)},
			check: func(b models.Booking, err error) bool {
				return err == nil && b.ID == bookingID.Hex() && b.TripID == tripID.Hex() && sameStrings(b.SeatNumbers, []string{"S2"})
			},
			commands: []string{"findAndModify", "update"},
		},
		{
			name:      "already cancelled",
			responses: []bson.D{mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})},
			check:     func(_ models.Booking, err error) bool { return domain.IsNotFound(err) },
			commands:  []string{"findAndModify"},
		},
		{
			name:      "release fails and booking is restored",
			responses: []bson.D{deleted, refused("release refused"), inserted()},
			check: func(_ models.Booking, err error) bool {
				var ie domain.InternalError
				return err != nil && !errors.As(err, &ie) && strings.Contains(err.Error(), "release refused")
			},
			commands: []string{"findAndModify", "update", "insert"},
		},
		{
			name:      "release and restore both fail",
			responses: []bson.D{deleted, refused("release refused"), duplicateKey()},
			check: func(_ models.Booking, err error) bool {
				var ie domain.InternalError
				return errors.As(err, &ie) && strings.Contains(err.Error(), "inconsistent")
			},
			commands: []string{"findAndModify", "update", "insert"},
		},
	}

	mt := newMockMongo(t)
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			store := NewMongoStore(mt.Client, mockDB, false)
			mt.AddMockResponses(tc.responses...)

			b, err := store.ReleaseBooking(context.Background(), bookingID.Hex())
			if !tc.check(b, err) {
				mt.Fatalf("%s: unexpected result %+v, %v", tc.name, b, err)
			}
			if got := commandNames(mt); !sameStrings(got, tc.commands) {
				mt.Fatalf("%s: commands = %v, want %v", tc.name, got, tc.commands)
			}
		})
	}
}

func TestMongoReleaseRestoresBookingWithObjectIDs(t *testing.T) {
	mt := newMockMongo(t)
	mt.Run("restore", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, false)
		tripID, bookingID := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bookingDoc(bookingID, tripID)}),
			refused("release refused"),
			inserted(),
		)

		if _, err := store.ReleaseBooking(context.Background(), bookingID.Hex()); err == nil {
			mt.Fatalf("expected release error")
		}
		mt.GetStartedEvent()
		mt.GetStartedEvent()
		restore := mt.GetStartedEvent()
		if restore == nil || restore.CommandName != "insert" {
			mt.Fatalf("booking not restored after failed release")
		}
		if got := restore.Command.Lookup("documents", "0", "_id").ObjectID(); got != bookingID {
			mt.Fatalf("restored _id = %v, want %v", got, bookingID)
		}
		if got := restore.Command.Lookup("documents", "0", "tripId").ObjectID(); got != tripID {
			mt.Fatalf("restored tripId = %v, want %v", got, tripID)
		}
	})
}

func TestMongoTransactionalCommit(t *testing.T) {
	tripID := primitive.NewObjectID()
	booking := models.Booking{ID: primitive.NewObjectID().Hex(), TripID: tripID.Hex(), SeatNumbers: []string{"S2"}, PassengerName: "Ana"}

	mt := newMockMongo(t)
	mt.Run("commit", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, true)
		mt.AddMockResponses(updated(1), inserted(), mtest.CreateSuccessResponse())

		if err := store.CommitReservation(context.Background(), booking); err != nil {
			mt.Fatalf("CommitReservation returned error: %v", err)
		}
		claim := mt.GetStartedEvent()
		if v, err := claim.Command.LookupErr("startTransaction"); err != nil || !v.Boolean() {
			mt.Fatalf("claim did not start a transaction: %s", claim.Command)
		}
		if got := commandNames(mt); !sameStrings(got, []string{"insert", "commitTransaction"}) {
			mt.Fatalf("commands after claim = %v", got)
		}
	})
	mt.Run("conflict aborts", func(mt *mtest.T) {
		store := NewMongoStore(mt.Client, mockDB, true)
		mt.AddMockResponses(
			updated(0),
			tripCursor(tripDoc(tripID, map[string]bool{"S2": true})),
			mtest.CreateSuccessResponse(),
		)

		err := store.CommitReservation(context.Background(), booking)
		var c domain.SeatConflictError
		if !errors.As(err, &c) || !sameStrings(c.Seats, []string{"S2"}) {
			mt.Fatalf("expected seat conflict, got %v", err)
		}
		if got := commandNames(mt); !sameStrings(got, []string{"update", "find", "abortTransaction"}) {
			mt.Fatalf("commands = %v", got)
		}
	})
}
