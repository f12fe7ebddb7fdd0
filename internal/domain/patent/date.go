package patent

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/turtacn/grantsync/pkg/errors"
)

const (
	// ISOLayout is the calendar-date format used by the CLI, the stores and
	// JSON output.
	ISOLayout = "2006-01-02"

	// USLayout is the MM-DD-YYYY format the grant API uses for filingDate and
	// grantDate.
	USLayout = "01-02-2006"
)

// Date is a calendar date without time-of-day or zone.  It is comparable with
// == so Patent values compare structurally.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the Date for the given components.  Out-of-range components
// are normalised the same way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	return parseLayout(ISOLayout, s)
}

// ParseUSDate parses the grant API's MM-DD-YYYY form.
func ParseUSDate(s string) (Date, error) {
	return parseLayout(USLayout, s)
}

func parseLayout(layout, s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, errors.Wrap(err, errors.ErrCodeParse, fmt.Sprintf("invalid date %q, want %s", s, layout))
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate that panics on error.  Tests and constants only.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String renders d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Between reports whether d lies in the inclusive range [start, end].
func (d Date) Between(start, end Date) bool {
	return d.Compare(start) >= 0 && d.Compare(end) <= 0
}

// Ordinal returns d as the integer YYYYMMDD, which sorts like d.
func (d Date) Ordinal() int64 {
	return int64(d.Year)*10000 + int64(d.Month)*100 + int64(d.Day)
}

// MarshalJSON renders d as an ISO string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts an ISO string.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrap(err, errors.ErrCodeParse, "date must be a JSON string")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ValidateRange checks that end does not precede start.  A single-day range
// (start == end) is valid.
func ValidateRange(start, end Date) error {
	if end.Before(start) {
		return errors.InvalidRange("end date must not be earlier than start date").
			WithDetail(fmt.Sprintf("start=%s end=%s", start, end))
	}
	return nil
}
