package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const dateLayout = "2006-01-02"

// Date is a calendar day without time-of-day. It is stored in a DATE column
// and serialized as "YYYY-MM-DD".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool {
	return d.In(time.UTC).Before(o.In(time.UTC))
}

func (d Date) After(o Date) bool {
	return o.Before(d)
}

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

// CalendarRange returns the days shown by a month calendar containing d:
// from the Monday on or before the 1st to the Sunday on or after the last day.
func CalendarRange(d Date) (from, to Date) {
	first := Date{Year: d.Year, Month: d.Month, Day: 1}
	last := DateOf(first.In(time.UTC).AddDate(0, 1, -1))

	back := (int(first.Weekday()) + 6) % 7
	forward := (7 - int(last.Weekday())) % 7
	return first.AddDays(-back), last.AddDays(forward)
}

func (Date) GormDataType() string {
	return "date"
}

func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	}
	return fmt.Errorf("cannot scan %T into Date", value)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ClockTime is a time of day, in seconds since midnight. It is stored in a
// TIME column and serialized as "HH:MM".
type ClockTime int

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*3600 + minute*60)
}

var clockLayouts = []string{"15:04:05.999999999", "15:04:05", "15:04", "3:04 PM", "3:04PM"}

func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	// drivers may hand back a full timestamp for TIME columns
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return clockOf(t), nil
		}
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return clockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
}

func clockOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (c ClockTime) Hour() int   { return int(c) / 3600 }
func (c ClockTime) Minute() int { return int(c) % 3600 / 60 }
func (c ClockTime) Second() int { return int(c) % 60 }

func (c ClockTime) Add(d time.Duration) ClockTime {
	return c + ClockTime(d/time.Second)
}

// Sub returns the duration c - o.
func (c ClockTime) Sub(o ClockTime) time.Duration {
	return time.Duration(c-o) * time.Second
}

func (c ClockTime) String() string {
	if c.Second() != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second())
	}
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Format12h renders c as "06:00 PM".
func (c ClockTime) Format12h() string {
	t := time.Date(2000, 1, 1, c.Hour(), c.Minute(), c.Second(), 0, time.UTC)
	return t.Format("03:04 PM")
}

// On returns the instant c on day d in loc.
func (c ClockTime) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, c.Hour(), c.Minute(), c.Second(), 0, loc)
}

// GormDBDataType declares a TIME column on every dialect. Returning it from
// GormDataType instead would make gorm treat the field as a timestamp.
func (ClockTime) GormDBDataType(*gorm.DB, *schema.Field) string {
	return "time"
}

func (c ClockTime) Value() (driver.Value, error) {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour(), c.Minute(), c.Second()), nil
}

func (c *ClockTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*c = clockOf(v)
		return nil
	case string:
		parsed, err := ParseClockTime(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case []byte:
		return c.Scan(string(v))
	case int64:
		// mysql may report TIME as microseconds when parseTime is off
		*c = ClockTime(v / 1_000_000)
		return nil
	}
	return fmt.Errorf("cannot scan %T into ClockTime", value)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultSlotDuration is assumed wherever a window has no explicit end.
const DefaultSlotDuration = time.Hour

// TimeWindow is a date with a start time and an optional end time.
type TimeWindow struct {
	Date  Date
	Start ClockTime
	End   *ClockTime
}

// EffectiveEnd is End, or Start plus DefaultSlotDuration when End is absent.
func (w TimeWindow) EffectiveEnd() ClockTime {
	if w.End != nil {
		return *w.End
	}
	return w.Start.Add(DefaultSlotDuration)
}

func (w TimeWindow) Duration() time.Duration {
	return w.EffectiveEnd().Sub(w.Start)
}

// Overlaps reports whether the half-open ranges [start, end) of w and o
// intersect on the same date.
func (w TimeWindow) Overlaps(o TimeWindow) bool {
	if w.Date != o.Date {
		return false
	}
	return w.Start < o.EffectiveEnd() && w.EffectiveEnd() > o.Start
}

func (w TimeWindow) StartAt(loc *time.Location) time.Time {
	return w.Start.On(w.Date, loc)
}

func (w TimeWindow) EndAt(loc *time.Location) time.Time {
	return w.EffectiveEnd().On(w.Date, loc)
}

// Done reports whether the window's effective end is before now.
func (w TimeWindow) Done(now time.Time, loc *time.Location) bool {
	if w.Date.IsZero() {
		return false
	}
	return w.EndAt(loc).Before(now)
}

// Label renders "2026-10-19 - 06:00 PM – 07:30 PM", or "Open-ended" when
// there is no end time.
func (w TimeWindow) Label() string {
	end := "Open-ended"
	if w.End != nil {
		end = w.End.Format12h()
	}
	return fmt.Sprintf("%s - %s – %s", w.Date, w.Start.Format12h(), end)
}
