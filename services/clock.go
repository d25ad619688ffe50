package services

import "time"

// Clock supplies "now" and the location timeslot dates and times are
// interpreted in.
type Clock struct {
	Location *time.Location
	now      func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Location: loc}
}

// FixedClock returns a clock whose Now is produced by now.
func FixedClock(loc *time.Location, now func() time.Time) Clock {
	c := NewClock(loc)
	c.now = now
	return c
}

func (c Clock) Now() time.Time {
	if c.now != nil {
		return c.now().In(c.loc())
	}
	return time.Now().In(c.loc())
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
