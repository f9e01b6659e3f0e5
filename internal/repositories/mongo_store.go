package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"busyatri/internal/domain"
	"busyatri/internal/domain/models"
	"busyatri/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	compensateTimeout = 5 * time.Second
	claimAttempts     = 2
)

// MongoStore keeps the mongoose document layout: trips embed their seat map,
// bookings reference trips by ObjectId. Seat claims are a compare-and-swap on the
// trip document; when transactions are disabled a failed booking insert is
// compensated by releasing the claimed seats.
type MongoStore struct {
	client          *mongo.Client
	trips           *mongo.Collection
	bookings        *mongo.Collection
	users           *mongo.Collection
	useTransactions bool
}

func NewMongoStore(client *mongo.Client, dbName string, useTransactions bool) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:          client,
		trips:           db.Collection("trips"),
		bookings:        db.Collection("bookings"),
		users:           db.Collection("users"),
		useTransactions: useTransactions,
	}
}

// EnsureIndexes creates the lookup indexes the store relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return mapMongoError("ensure indexes", err)
	}
	if _, err := s.bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "passengerName", Value: 1}},
	}); err != nil {
		return mapMongoError("ensure indexes", err)
	}
	_, err := s.trips.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "source", Value: 1}, {Key: "destination", Value: 1}, {Key: "date", Value: 1}},
	})
	return mapMongoError("ensure indexes", err)
}

// NewID mints ObjectId hex strings so new documents are keyed like existing
// ones.
func (s *MongoStore) NewID() string {
	return primitive.NewObjectID().Hex()
}

// idValue is the stored form of an id: an ObjectId when the string is 24 hex
// characters, the string itself otherwise.
func idValue(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idFilter(id string) bson.M {
	return bson.M{"_id": idValue(id)}
}

// toDocument marshals v and stores the named string fields through idValue.
// Decoding needs no counterpart: the driver reads ObjectIds into strings as
// hex.
func toDocument(v interface{}, idKeys ...string) (bson.D, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	for i, e := range doc {
		str, ok := e.Value.(string)
		if !ok {
			continue
		}
		for _, k := range idKeys {
			if e.Key == k {
				doc[i].Value = idValue(str)
			}
		}
	}
	return doc, nil
}

func tripDocument(t models.Trip) (bson.D, error) {
	return toDocument(t, "_id")
}

func bookingDocument(b models.Booking) (bson.D, error) {
	return toDocument(b, "_id", "tripId", "userId")
}

func mapMongoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return domain.StoreTimeoutError{Op: op, Err: err}
	}
	return err
}

func (s *MongoStore) GetTrip(ctx context.Context, id string) (models.Trip, error) {
	var t models.Trip
	if err := s.trips.FindOne(ctx, idFilter(id)).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Trip{}, domain.NotFoundError{Resource: "trip", ID: id}
		}
		return models.Trip{}, mapMongoError("get trip", err)
	}
	return t, nil
}

func (s *MongoStore) ListTrips(ctx context.Context, q models.TripQuery) ([]models.Trip, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "departureTime", Value: 1}}).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})
	cur, err := s.trips.Find(ctx, tripFilter(q), opts)
	if err != nil {
		return nil, mapMongoError("list trips", err)
	}
	defer cur.Close(ctx)
	out := []models.Trip{}
	for cur.Next(ctx) {
		var t models.Trip
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, mapMongoError("list trips", cur.Err())
}

func tripFilter(q models.TripQuery) bson.M {
	f := bson.M{}
	if v := strings.TrimSpace(q.Source); v != "" {
		f["source"] = v
	}
	if v := strings.TrimSpace(q.Destination); v != "" {
		f["destination"] = v
	}
	if v := strings.TrimSpace(q.Date); v != "" {
		f["date"] = v
	}
	return f
}

func (s *MongoStore) CreateTrip(ctx context.Context, t models.Trip) error {
	doc, err := tripDocument(t)
	if err != nil {
		return err
	}
	if _, err := s.trips.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ValidationError{Field: "id", Msg: "trip already exists"}
		}
		return mapMongoError("create trip", err)
	}
	return nil
}

// seatsFreeFilter matches the trip only when every listed seat exists and is
// not booked.
func seatsFreeFilter(tripID string, seats []string) bson.M {
	all := make(bson.A, 0, len(seats))
	for _, n := range seats {
		all = append(all, bson.M{"$elemMatch": bson.M{"number": n, "isBooked": false}})
	}
	return bson.M{"_id": idValue(tripID), "seats": bson.M{"$all": all}}
}

func setSeatsUpdate(booked bool) bson.M {
	return bson.M{"$set": bson.M{"seats.$[s].isBooked": booked}}
}

func seatArrayFilters(seats []string) options.ArrayFilters {
	return options.ArrayFilters{Filters: []interface{}{bson.M{"s.number": bson.M{"$in": seats}}}}
}

// claimSeats flips the seats to booked only if all of them are still free.
// A miss is classified by re-reading the trip; when the re-read finds every
// seat free again the update is retried once.
func (s *MongoStore) claimSeats(ctx context.Context, tripID string, seats []string) error {
	for attempt := 1; ; attempt++ {
		res, err := s.trips.UpdateOne(ctx, seatsFreeFilter(tripID, seats), setSeatsUpdate(true),
			options.Update().SetArrayFilters(seatArrayFilters(seats)))
		if err != nil {
			return mapMongoError("claim seats", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}

		t, err := s.GetTrip(ctx, tripID)
		if err != nil {
			return err
		}
		var missing, taken []string
		for _, n := range seats {
			seat, ok := t.Seat(n)
			switch {
			case !ok:
				missing = append(missing, n)
			case seat.IsBooked:
				taken = append(taken, n)
			}
		}
		if len(missing) > 0 {
			return domain.InvalidSeatError{Seats: missing, Msg: "seats not on trip"}
		}
		if len(taken) > 0 {
			return domain.SeatConflictError{TripID: tripID, Seats: taken}
		}
		if attempt == claimAttempts {
			return domain.SeatConflictError{TripID: tripID, Seats: append([]string(nil), seats...)}
		}
	}
}

func (s *MongoStore) freeSeats(ctx context.Context, tripID string, seats []string) error {
	_, err := s.trips.UpdateOne(ctx, idFilter(tripID), setSeatsUpdate(false),
		options.Update().SetArrayFilters(seatArrayFilters(seats)))
	return mapMongoError("free seats", err)
}

func (s *MongoStore) CommitReservation(ctx context.Context, b models.Booking) error {
	if len(b.SeatNumbers) == 0 {
		return domain.InvalidSeatError{Msg: "no seats requested"}
	}
	doc, err := bookingDocument(b)
	if err != nil {
		return err
	}
	if s.useTransactions {
		return s.withTransaction(ctx, func(sc mongo.SessionContext) error {
			if err := s.claimSeats(sc, b.TripID, b.SeatNumbers); err != nil {
				return err
			}
			_, err := s.bookings.InsertOne(sc, doc)
			return mapMongoError("insert booking", err)
		})
	}

	if err := s.claimSeats(ctx, b.TripID, b.SeatNumbers); err != nil {
		return err
	}
	if _, err := s.bookings.InsertOne(ctx, doc); err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
		defer cancel()
		if cerr := s.freeSeats(cctx, b.TripID, b.SeatNumbers); cerr != nil {
			utils.Event("", "mongo", "reserve").WithError(cerr).
				Errorf("inconsistent: trip %s seats %v booked without booking %s", b.TripID, b.SeatNumbers, b.ID)
			return domain.InternalError{
				Msg: fmt.Sprintf("inconsistent reservation state for booking %s: insert failed (%v), seat release failed (%v)", b.ID, err, cerr),
				Err: err,
			}
		}
		return mapMongoError("insert booking", err)
	}
	return nil
}

func (s *MongoStore) ReleaseBooking(ctx context.Context, id string) (models.Booking, error) {
	var out models.Booking
	if s.useTransactions {
		err := s.withTransaction(ctx, func(sc mongo.SessionContext) error {
			b, err := s.deleteBooking(sc, id)
			if err != nil {
				return err
			}
			if err := s.freeSeats(sc, b.TripID, b.SeatNumbers); err != nil {
				return err
			}
			out = b
			return nil
		})
		return out, err
	}

	b, err := s.deleteBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if err := s.freeSeats(ctx, b.TripID, b.SeatNumbers); err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
		defer cancel()
		if ierr := s.restoreBooking(cctx, b); ierr != nil {
			utils.Event("", "mongo", "cancel").WithError(ierr).
				Errorf("inconsistent: booking %s removed but seats %v still booked", b.ID, b.SeatNumbers)
			return models.Booking{}, domain.InternalError{
				Msg: fmt.Sprintf("inconsistent cancellation state for booking %s: seat release failed (%v), booking restore failed (%v)", b.ID, err, ierr),
				Err: err,
			}
		}
		return models.Booking{}, err
	}
	return b, nil
}

func (s *MongoStore) restoreBooking(ctx context.Context, b models.Booking) error {
	doc, err := bookingDocument(b)
	if err != nil {
		return err
	}
	_, err = s.bookings.InsertOne(ctx, doc)
	return mapMongoError("restore booking", err)
}

func (s *MongoStore) deleteBooking(ctx context.Context, id string) (models.Booking, error) {
	var b models.Booking
	if err := s.bookings.FindOneAndDelete(ctx, idFilter(id)).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
		}
		return models.Booking{}, mapMongoError("delete booking", err)
	}
	return b, nil
}

func (s *MongoStore) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return mapMongoError("start session", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return mapMongoError("transaction", err)
}

func (s *MongoStore) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	var b models.Booking
	if err := s.bookings.FindOne(ctx, idFilter(id)).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
		}
		return models.Booking{}, mapMongoError("get booking", err)
	}
	return b, nil
}

func (s *MongoStore) ListBookingsByPassenger(ctx context.Context, name string) ([]models.BookingDetail, error) {
	cur, err := s.bookings.Find(ctx, bson.M{"passengerName": name},
		options.Find().SetSort(bson.D{{Key: "bookingDate", Value: 1}}))
	if err != nil {
		return nil, mapMongoError("list bookings", err)
	}
	defer cur.Close(ctx)

	var bookings []models.Booking
	tripIDs := bson.A{}
	seen := map[string]bool{}
	for cur.Next(ctx) {
		var b models.Booking
		if err := cur.Decode(&b); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
		if !seen[b.TripID] {
			seen[b.TripID] = true
			tripIDs = append(tripIDs, idValue(b.TripID))
		}
	}
	if err := cur.Err(); err != nil {
		return nil, mapMongoError("list bookings", err)
	}

	out := []models.BookingDetail{}
	if len(bookings) == 0 {
		return out, nil
	}

	trips := map[string]models.Trip{}
	tcur, err := s.trips.Find(ctx, bson.M{"_id": bson.M{"$in": tripIDs}},
		options.Find().SetProjection(bson.M{"seats": 0}))
	if err != nil {
		return nil, mapMongoError("list bookings", err)
	}
	defer tcur.Close(ctx)
	for tcur.Next(ctx) {
		var t models.Trip
		if err := tcur.Decode(&t); err != nil {
			return nil, err
		}
		trips[t.ID] = t
	}
	if err := tcur.Err(); err != nil {
		return nil, mapMongoError("list bookings", err)
	}

	for _, b := range bookings {
		d := models.BookingDetail{Booking: b}
		if t, ok := trips[b.TripID]; ok {
			d.Trip = models.SummaryOf(t)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *MongoStore) CreateUser(ctx context.Context, u models.User) error {
	u.Email = strings.ToLower(u.Email)
	doc, err := toDocument(u, "_id")
	if err != nil {
		return err
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ValidationError{Field: "email", Msg: "user already exists"}
		}
		return mapMongoError("create user", err)
	}
	return nil
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, domain.NotFoundError{Resource: "user"}
		}
		return models.User{}, mapMongoError("get user", err)
	}
	return u, nil
}
