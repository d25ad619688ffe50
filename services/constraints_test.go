package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	cases := []struct {
		msg   string
		index string
		ok    bool
	}{
		{"UNIQUE constraint failed: reservations.table_id, reservations.occupied_timeslot_id", tableSlotIndex, true},
		{"UNIQUE constraint failed: reservations.user_id, reservations.occupied_timeslot_id", userSlotIndex, true},
		{"Error 1062 (23000): Duplicate entry '3-7' for key 'reservations.idx_reservations_user_slot'", userSlotIndex, true},
		{`ERROR: duplicate key value violates unique constraint "idx_reservations_table_slot" (SQLSTATE 23505)`, tableSlotIndex, true},
		{"UNIQUE constraint failed: users.email", userEmailIndex, true},
		{"database is locked", "", false},
	}
	for _, tc := range cases {
		index, ok := uniqueViolation(errors.New(tc.msg))
		assert.Equal(t, tc.ok, ok, tc.msg)
		assert.Equal(t, tc.index, index, tc.msg)
	}

	_, ok := uniqueViolation(nil)
	assert.False(t, ok)
}

func TestTranslateReservationConflict(t *testing.T) {
	err := translateReservationConflict(errors.New("UNIQUE constraint failed: reservations.user_id, reservations.occupied_timeslot_id"))
	verrs, ok := err.(ValidationErrors)
	assert.True(t, ok)
	assert.Equal(t, []string{MsgUserAlreadyBooked}, verrs.On(BaseField))

	plain := errors.New("boom")
	assert.Equal(t, plain, translateReservationConflict(plain))
}
