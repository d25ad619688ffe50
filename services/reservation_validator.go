package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/tablebook/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeadTime is how far ahead of a timeslot's start a reservation must be made,
// and the latest point at which it may still be cancelled.
const LeadTime = 2 * time.Hour

// ReservationValidator is the admission gate. It collects every failed rule
// instead of stopping at the first.
type ReservationValidator struct {
	clock Clock
}

func NewReservationValidator(clock Clock) *ReservationValidator {
	return &ReservationValidator{clock: clock}
}

// Admit checks r against the current state seen by tx. The timeslot row is
// locked first so concurrent admissions for the same slot serialize on it
// where the database supports row locks. The user row is locked too, so a
// concurrent account deletion cannot leave an orphan behind.
func (v *ReservationValidator) Admit(tx *gorm.DB, r *models.Reservation) (ValidationErrors, error) {
	var errs ValidationErrors

	var ts models.Timeslot
	tsFound, err := lockedFirst(tx, &ts, r.TimeslotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load timeslot: %w", err)
	}
	var table models.Table
	tableFound, err := lockedFirst(tx.Session(&gorm.Session{NewDB: true}), &table, r.TableID)
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	var user models.User
	userFound, err := lockedFirst(tx, &user, r.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !userFound {
		errs.Add("user", MsgMustExist)
	}
	if !tableFound {
		errs.Add("table", MsgMustExist)
	}
	if !tsFound {
		errs.Add("timeslot", MsgMustExist)
	}

	switch {
	case r.NumPeople <= 0:
		errs.Add("num_people", MsgGreaterThanZero)
	case tableFound && r.NumPeople > table.Capacity:
		errs.Add("num_people", MsgOverCapacity)
	}

	if tsFound {
		now := v.clock.Now()
		if ts.Window().StartAt(v.clock.Location).Before(now.Add(LeadTime)) {
			errs.Add("timeslot", MsgLeadTime)
		}
	}

	if tableFound && tsFound {
		taken, err := occupied(tx, r.ID, "reservations.table_id = ?", r.TableID, r.TimeslotID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add("table", MsgTableBooked)
		}
	}

	if userFound && tsFound {
		taken, err := occupied(tx, r.ID, "reservations.user_id = ?", r.UserID, r.TimeslotID)
		if err != nil {
			return nil, err
		}
		if taken {
			errs.Add(BaseField, MsgUserAlreadyBooked)
		}
	}

	return errs, nil
}

// occupied reports whether another reservation holds the timeslot for the
// column given in cond.
func occupied(tx *gorm.DB, selfID uint, cond string, value interface{}, timeslotID uint) (bool, error) {
	var ids []uint
	q := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.Reservation{}).
		Scopes(Occupying).
		Where(cond, value).
		Where("reservations.timeslot_id = ?", timeslotID)
	if selfID != 0 {
		q = q.Where("reservations.id <> ?", selfID)
	}
	if err := q.Limit(1).Pluck("reservations.id", &ids).Error; err != nil {
		return false, fmt.Errorf("failed to check occupancy: %w", err)
	}
	return len(ids) > 0, nil
}

func lockedFirst(tx *gorm.DB, dst interface{}, id uint) (bool, error) {
	if id == 0 {
		return false, nil
	}
	err := tx.Session(&gorm.Session{NewDB: true}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(dst, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}
