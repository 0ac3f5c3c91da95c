// Package postdate turns "posted N units ago" labels into calendar dates.
package postdate

import (
	"database/sql/driver"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const layout = "2006-01-02"

// maxCount bounds the leading integer so the offset stays a plausible
// calendar span.
const maxCount = 100000

// Date is a calendar date. The zero value means "unknown".
type Date struct {
	t time.Time
}

// DateOf truncates t to midnight in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func Parse(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(layout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores unknown dates as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// Normalize reads the leading integer of text and subtracts the unit it
// names from ref. The unit checks are independent substring tests applied
// in order month, week, day, hour; a "day" match replaces any day count a
// "month" match produced. Days are calendar days in ref's location. It
// reports false when no usable leading integer exists.
func Normalize(text string, ref time.Time) (Date, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Date{}, false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 || n > maxCount {
		return Date{}, false
	}

	lower := cases.Fold().String(text)
	var days, weeks, hours int
	if strings.Contains(lower, "month") {
		days = 30 * n
	}
	if strings.Contains(lower, "week") {
		weeks = n
	}
	if strings.Contains(lower, "day") {
		days = n
	}
	if strings.Contains(lower, "hour") {
		hours = n
	}

	t := ref.AddDate(0, 0, -(7*weeks + days)).Add(-time.Duration(hours) * time.Hour)
	return DateOf(t), true
}
