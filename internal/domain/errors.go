package domain

import (
	"errors"
	"fmt"
	"strings"
)

type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource == "":
		return "not found"
	case e.ID != "":
		return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
	default:
		return fmt.Sprintf("%s not found", e.Resource)
	}
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// InvalidSeatError reports seats that do not exist on the trip or were
// requested more than once.
type InvalidSeatError struct {
	Seats []string
	Msg   string
}

func (e InvalidSeatError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "invalid seat"
	}
	if len(e.Seats) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(e.Seats, ", "))
}

// SeatConflictError lists the requested seats that are already booked.
type SeatConflictError struct {
	TripID string
	Seats  []string
}

func (e SeatConflictError) Error() string {
	if len(e.Seats) == 0 {
		return "one or more seats are already booked"
	}
	return fmt.Sprintf("seats already booked: %s", strings.Join(e.Seats, ", "))
}

// StoreTimeoutError means the backing store did not answer in time.
type StoreTimeoutError struct {
	Op  string
	Err error
}

func (e StoreTimeoutError) Error() string {
	if e.Op == "" {
		return "store timeout"
	}
	return fmt.Sprintf("store timeout during %s", e.Op)
}

func (e StoreTimeoutError) Unwrap() error { return e.Err }

type UnauthorizedError struct {
	Msg string
}

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsInvalidSeat(err error) bool {
	var target InvalidSeatError
	return errors.As(err, &target)
}

func IsSeatConflict(err error) bool {
	var target SeatConflictError
	return errors.As(err, &target)
}

func IsStoreTimeout(err error) bool {
	var target StoreTimeoutError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target UnauthorizedError
	return errors.As(err, &target)
}

// ConflictingSeats returns the seats carried by a SeatConflictError, if any.
func ConflictingSeats(err error) []string {
	var target SeatConflictError
	if errors.As(err, &target) {
		return target.Seats
	}
	return nil
}
