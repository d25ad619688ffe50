package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Index names declared on models.Reservation and models.User.
const (
	tableSlotIndex = "idx_reservations_table_slot"
	userSlotIndex  = "idx_reservations_user_slot"
	userEmailIndex = "idx_users_email"
)

// uniqueViolation reports whether err is a unique-constraint failure and, if
// it can tell, which index fired. Drivers word this differently:
//
//	sqlite:   UNIQUE constraint failed: reservations.table_id, reservations.occupied_timeslot_id
//	mysql:    Error 1062: Duplicate entry '1-2' for key 'reservations.idx_reservations_table_slot'
//	postgres: duplicate key value violates unique constraint "idx_reservations_table_slot"
func uniqueViolation(err error) (index string, ok bool) {
	if err == nil {
		return "", false
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if !errors.Is(err, gorm.ErrDuplicatedKey) &&
		!strings.Contains(lower, "unique constraint") &&
		!strings.Contains(lower, "duplicate entry") &&
		!strings.Contains(lower, "duplicate key") {
		return "", false
	}

	switch {
	case strings.Contains(msg, tableSlotIndex), strings.Contains(msg, "reservations.table_id"):
		return tableSlotIndex, true
	case strings.Contains(msg, userSlotIndex), strings.Contains(msg, "reservations.user_id"):
		return userSlotIndex, true
	case strings.Contains(msg, userEmailIndex), strings.Contains(msg, "users.email"):
		return userEmailIndex, true
	}
	return "", true
}

// translateReservationConflict turns a unique violation raised at commit
// into the same validation error the admission check would have produced.
// A concurrent writer won the race; the caller sees "already booked".
func translateReservationConflict(err error) error {
	index, ok := uniqueViolation(err)
	if !ok {
		return err
	}
	if index == userSlotIndex {
		return ValidationErrors{{Field: BaseField, Message: MsgUserAlreadyBooked}}
	}
	return ValidationErrors{{Field: "table", Message: MsgTableBooked}}
}
