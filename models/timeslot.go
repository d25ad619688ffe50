package models

import "time"

// Timeslot is a bookable window. A nil TableID means the slot applies to any
// table.
type Timeslot struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Date      Date       `gorm:"not null;index:idx_timeslots_table_date,priority:2" json:"date"`
	StartTime ClockTime  `gorm:"not null" json:"start_time"`
	EndTime   *ClockTime `json:"end_time"`
	TableID   *uint      `gorm:"index:idx_timeslots_table_date,priority:1" json:"table_id"`
	Table     *Table     `gorm:"foreignKey:TableID" json:"table,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (ts Timeslot) Window() TimeWindow {
	return TimeWindow{Date: ts.Date, Start: ts.StartTime, End: ts.EndTime}
}

// Done reports whether the slot's effective end instant has passed.
func (ts Timeslot) Done(now time.Time, loc *time.Location) bool {
	return ts.Window().Done(now, loc)
}

func (ts Timeslot) Label() string {
	return ts.Window().Label()
}
