package fivehundred

import (
	"strconv"

	"github.com/gatismeikulis/card-game-app/internal/apperr"
)

// Seat is one of the three positions around a Five Hundred table. Seats
// form a ring: 1 → 2 → 3 → 1.
type Seat int

// ParseSeat validates a raw seat number.
func ParseSeat(number int) (Seat, error) {
	if number < 1 || number > MaxSeats {
		return 0, apperr.Parse("seat_number", "seat number must be between 1 and "+strconv.Itoa(MaxSeats))
	}
	return Seat(number), nil
}

// Next returns the seat to the left.
func (s Seat) Next() Seat {
	if s >= MaxSeats {
		return 1
	}
	return s + 1
}

// Prev returns the seat to the right.
func (s Seat) Prev() Seat {
	if s <= 1 {
		return MaxSeats
	}
	return s - 1
}

// Number returns the plain seat number.
func (s Seat) Number() int { return int(s) }

func (s Seat) String() string { return "seat " + strconv.Itoa(int(s)) }
