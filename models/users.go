package models

import "time"

type User struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"type:varchar(255); not null" json:"name"`
	Email          string        `gorm:"type:varchar(255); uniqueIndex;not null" json:"email"`
	Phone          string        `gorm:"type:varchar(50)" json:"phone,omitempty"`
	PasswordDigest string        `gorm:"type:varchar(255); not null" json:"-"`
	Role           Role          `gorm:"not null;default:0;index" json:"role"`
	Reservations   []Reservation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
