// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package db defines the calendar date and timestamp types used by the
// normalized tables, with JSON methods compatible with the formats emitted by
// the data provider and expected by the database uploader.
package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stockparfait/errors"
)

func parseTime(s string) (time.Time, error) {
	if s == "0000-00-00" || s == "0000-00-00T00:00:00.000" {
		return time.Time{}, nil
	}
	formats := []string{
		"2006-01-02 15:04:05.999",
		"2006-01-02T15:04:05.999",
		"2006-01-02T15:04:05.999Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var err error
	for _, f := range formats {
		var tm time.Time
		tm, err = time.Parse(f, s)
		if err == nil {
			return tm, nil
		}
	}
	return time.Time{}, err
}

// Date records a calendar date as year, month and day. The struct is designed
// to fit into 4 bytes.
type Date struct {
	YearVal  uint16
	MonthVal uint8
	DayVal   uint8
}

var _ json.Marshaler = Date{}
var _ json.Unmarshaler = &Date{}

// NewDate is the constructor for Date.
func NewDate(year uint16, month, day uint8) Date {
	return Date{year, month, day}
}

// NewDateFromTime creates a Date instance from a time.Time value in UTC.
func NewDateFromTime(t time.Time) Date {
	return Date{
		YearVal:  uint16(t.Year()),
		MonthVal: uint8(t.Month()),
		DayVal:   uint8(t.Day()),
	}
}

// NewDateFromString creates a Date instance from a string representation.
func NewDateFromString(s string) (Date, error) {
	t, err := parseTime(s)
	if err != nil {
		return Date{}, errors.Annotate(err, "failed to parse a Date string: '%s'", s)
	}
	return NewDateFromTime(t), nil
}

func (d Date) Year() uint16 { return d.YearVal }
func (d Date) Month() uint8 { return d.MonthVal }
func (d Date) Day() uint8   { return d.DayVal }

// String representation of the value.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. NOTE: unlike other methods, this
// is a pointer method.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Annotate(err, "Date JSON must be a string")
	}
	date, err := NewDateFromString(s)
	if err != nil {
		return errors.Annotate(err, "failed to parse Date string")
	}
	*d = date
	return nil
}

// ToTime converts Date to Time in UTC.
func (d Date) ToTime() time.Time {
	return time.Date(int(d.Year()), time.Month(d.Month()), int(d.Day()), 0, 0, 0, 0, time.UTC)
}

// Before compares two Date objects for strict inequality (self < d2).
func (d Date) Before(d2 Date) bool {
	if d.Year() != d2.Year() {
		return d.Year() < d2.Year()
	}
	if d.Month() != d2.Month() {
		return d.Month() < d2.Month()
	}
	return d.Day() < d2.Day()
}

// After compares two Date objects for strict inequality, self > d2.
func (d Date) After(d2 Date) bool {
	return d2.Before(d)
}

// IsZero checks whether the date has a zero value.
func (d Date) IsZero() bool {
	return d.Year() == 0 && d.Month() == 0 && d.Day() == 0
}

// InRange checks if d is in the inclusive date range. Any of the bounds may be
// zero value, in which case it's ignored.
func (d Date) InRange(start, end Date) bool {
	if d.IsZero() {
		return false
	}
	if !start.IsZero() && start.After(d) {
		return false
	}
	if !end.IsZero() && end.Before(d) {
		return false
	}
	return true
}

// Time is a wrapper around time.Time with JSON methods.
type Time time.Time

var _ json.Marshaler = &Time{}
var _ json.Unmarshaler = &Time{}

func NewTime(year, month, day, hour, minute, second int) *Time {
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	return (*Time)(&t)
}

// NewTimeFromTime creates a Time from a standard time.Time value.
func NewTimeFromTime(t time.Time) *Time {
	return (*Time)(&t)
}

// String representation of Time.
func (t *Time) String() string {
	return time.Time(*t).Format("2006-01-02 15:04:05")
}

// MarshalJSON implements json.Marshaler.
func (t *Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	var s string
	var err error
	if err = json.Unmarshal(data, &s); err != nil {
		return errors.Annotate(err, "Time JSON must be a string")
	}
	tm, err := parseTime(s)
	if err != nil {
		return errors.Annotate(err, "failed to parse time string: '%s'", s)
	}
	*t = Time(tm)
	return nil
}
