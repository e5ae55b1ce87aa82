package domain

import (
	"errors"
	"fmt"
	"time"
)

// WeeksPerYear is the number of weeks the decision calendar uses per year.
const WeeksPerYear = 52

var ErrInvalidWeek = errors.New("invalid week")

// WeekRef points at one (year, week) partition.
type WeekRef struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// CurrentWeek returns the ISO week containing t.
func CurrentWeek(t time.Time) WeekRef {
	year, week := t.ISOWeek()
	return WeekRef{Year: year, Week: week}
}

// NewWeekRef validates and builds a week reference.
func NewWeekRef(year, week int) (WeekRef, error) {
	if year < 2000 || year > 2100 {
		return WeekRef{}, fmt.Errorf("%w: year %d", ErrInvalidWeek, year)
	}
	if week < 1 || week > 53 {
		return WeekRef{}, fmt.Errorf("%w: week %d", ErrInvalidWeek, week)
	}
	return WeekRef{Year: year, Week: week}, nil
}

// Previous returns the week before w; week 1 wraps to week 52 of the previous year.
func (w WeekRef) Previous() WeekRef {
	if w.Week <= 1 {
		return WeekRef{Year: w.Year - 1, Week: WeeksPerYear}
	}
	return WeekRef{Year: w.Year, Week: w.Week - 1}
}

// Next returns the week after w; week 52 and above wrap to week 1 of the next year.
func (w WeekRef) Next() WeekRef {
	if w.Week >= WeeksPerYear {
		return WeekRef{Year: w.Year + 1, Week: 1}
	}
	return WeekRef{Year: w.Year, Week: w.Week + 1}
}

// Before reports whether w is strictly earlier than o.
func (w WeekRef) Before(o WeekRef) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Week < o.Week
}

// TwoDigit renders the week number as stored in document paths.
func (w WeekRef) TwoDigit() string {
	return fmt.Sprintf("%02d", w.Week)
}

func (w WeekRef) String() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.Week)
}

// WeeksBetween lists every week from start through end inclusive, oldest first.
func WeeksBetween(start, end WeekRef) []WeekRef {
	var weeks []WeekRef
	for cur := start; !end.Before(cur); cur = cur.Next() {
		weeks = append(weeks, cur)
	}
	return weeks
}
