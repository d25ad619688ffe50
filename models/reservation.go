package models

import "time"

// Reservation binds a user to a table for a timeslot.
//
// OccupiedTimeslotID mirrors TimeslotID while the status occupies the slot and
// is NULL once cancelled. The two unique indexes over it are what keep two
// committed reservations from holding the same (table, timeslot) or
// (user, timeslot) pair; NULLs never collide, so cancelled rows drop out.
type Reservation struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	UserID             uint              `gorm:"not null;index;uniqueIndex:idx_reservations_user_slot,priority:1" json:"user_id"`
	TableID            uint              `gorm:"not null;index;uniqueIndex:idx_reservations_table_slot,priority:1" json:"table_id"`
	TimeslotID         uint              `gorm:"not null;index" json:"timeslot_id"`
	OccupiedTimeslotID *uint             `gorm:"uniqueIndex:idx_reservations_table_slot,priority:2;uniqueIndex:idx_reservations_user_slot,priority:2" json:"-"`
	NumPeople          int               `gorm:"not null" json:"num_people"`
	Status             ReservationStatus `gorm:"not null;default:0;index" json:"status"`
	User               *User             `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Table              *Table            `gorm:"constraint:OnDelete:RESTRICT" json:"table,omitempty"`
	Timeslot           *Timeslot         `gorm:"constraint:OnDelete:CASCADE" json:"timeslot,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

// SyncOccupancy sets OccupiedTimeslotID from Status. Call it before every
// full-row write.
func (r *Reservation) SyncOccupancy() {
	if r.Status.Occupies() {
		id := r.TimeslotID
		r.OccupiedTimeslotID = &id
		return
	}
	r.OccupiedTimeslotID = nil
}
