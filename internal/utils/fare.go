package utils

import (
	"fmt"
	"math"
)

// ComputeFare returns pricePerSeat × seatCount, refusing negative input and
// overflow.
func ComputeFare(pricePerSeat int64, seatCount int) (int64, error) {
	if pricePerSeat < 0 {
		return 0, fmt.Errorf("negative seat price %d", pricePerSeat)
	}
	if seatCount < 0 {
		return 0, fmt.Errorf("negative seat count %d", seatCount)
	}
	if seatCount > 0 && pricePerSeat > math.MaxInt64/int64(seatCount) {
		return 0, fmt.Errorf("fare overflow: %d x %d", pricePerSeat, seatCount)
	}
	return pricePerSeat * int64(seatCount), nil
}
