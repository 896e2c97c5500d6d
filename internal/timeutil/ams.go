package timeutil

import (
	"fmt"
	"time"
)

// Amsterdam is the Europe/Amsterdam location; VAT periods follow Dutch local time.
var Amsterdam *time.Location

func init() {
	var err error
	Amsterdam, err = time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		// Fallback: fixed CET if tzdata is not available (ignores DST)
		Amsterdam = time.FixedZone("CET", 1*60*60)
	}
}

// Now returns the current time in Amsterdam
func Now() time.Time {
	return time.Now().In(Amsterdam)
}

// ToLocal converts any time to Amsterdam time
func ToLocal(t time.Time) time.Time {
	return t.In(Amsterdam)
}

// ParseLocal parses a time string in Amsterdam time
func ParseLocal(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, Amsterdam)
}

// Quarter returns 1..4 for the Amsterdam-local date of t
func Quarter(t time.Time) int {
	return (int(t.In(Amsterdam).Month())-1)/3 + 1
}

// QuarterBounds returns the first instant of the quarter containing t and the
// first instant of the next one.
func QuarterBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(Amsterdam)
	firstMonth := time.Month((Quarter(local)-1)*3 + 1)
	start := time.Date(local.Year(), firstMonth, 1, 0, 0, 0, 0, Amsterdam)
	return start, start.AddDate(0, 3, 0)
}

// QuarterLabel renders t's quarter as 2024-Q3
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.In(Amsterdam).Year(), Quarter(t))
}

// Common layouts
const (
	DateLayout        = "2006-01-02"
	DisplayDateLayout = "02-01-2006"
	DateTimeLayout    = "2006-01-02 15:04:05"
)
