package cv

import (
	"encoding/json"
	"fmt"
	"time"
)

// Accepted date layouts, most specific first.
var dateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// Date is a calendar date as written on a CV. Precision is usually a month.
type Date struct {
	time.Time
}

// NewDate returns the first day of the given month.
func NewDate(year int, month time.Month) *Date {
	return &Date{time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD", "YYYY-MM" or "YYYY".
func ParseDate(s string) (*Date, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &Date{t}, nil
		}
	}
	return nil, fmt.Errorf("invalid date: %q", s)
}

// String formats the date as "YYYY-MM", or "YYYY-MM-DD" when the day is not the first.
func (d Date) String() string {
	if d.Day() != 1 {
		return d.Format("2006-01-02")
	}
	return d.Format("2006-01")
}

// MarshalJSON writes the date as a string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads any of the accepted layouts.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// DatesEqual reports whether two nullable dates are equal. Two nils are equal.
func DatesEqual(a, b *Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b.Time)
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
