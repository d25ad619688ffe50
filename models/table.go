package models

import "time"

// Table is a kind of physical table. Quantity counts identical units, Capacity
// is the maximum party size per unit.
type Table struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Quantity  int        `gorm:"not null;default:1" json:"quantity"`
	Capacity  int        `gorm:"not null" json:"capacity"`
	Timeslots []Timeslot `gorm:"foreignKey:TableID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}
