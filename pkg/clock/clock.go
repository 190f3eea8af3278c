package clock

import (
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the current calendar date to anything that depends on "today".
type Clock interface {
	Today() civil.Date
}

// System reads the wall clock in the given location. A nil location means local time.
type System struct {
	Location *time.Location
}

func (s System) Today() civil.Date {
	now := time.Now()
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return civil.DateOf(now)
}

// Fixed always returns the same date.
type Fixed civil.Date

func (f Fixed) Today() civil.Date {
	return civil.Date(f)
}

// Parse builds a clock from an optional yyyy-mm-dd override. An empty string
// yields the system clock.
func Parse(today string) (Clock, error) {
	if today == "" {
		return System{}, nil
	}
	d, err := civil.ParseDate(today)
	if err != nil {
		return nil, err
	}
	return Fixed(d), nil
}
