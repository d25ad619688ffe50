package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cancellation denial reasons.
const (
	ReasonAlreadyCancelled = "Reservation is already cancelled"
	ReasonNotCancellable   = "Reservation can no longer be cancelled"
	ReasonNotEditable      = "Reservation can no longer be changed"
	ReasonNotDone          = "Reservation cannot be completed before its timeslot ends"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uint
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// can reports whether the actor may see or act on a reservation of ownerID.
func (a Actor) can(ownerID uint) bool {
	return a.IsAdmin() || a.UserID == ownerID
}

// ReservationInput is a booking request. UserID is honoured for admins only.
type ReservationInput struct {
	UserID     uint `json:"user_id"`
	TableID    uint `json:"table_id"`
	TimeslotID uint `json:"timeslot_id"`
	NumPeople  int  `json:"num_people"`
}

// ReservationPatch changes any of the booking fields. Nil means unchanged.
type ReservationPatch struct {
	TableID    *uint `json:"table_id"`
	TimeslotID *uint `json:"timeslot_id"`
	NumPeople  *int  `json:"num_people"`
}

// CancelPreview tells whether Cancel would succeed right now.
type CancelPreview struct {
	Cancellable bool   `json:"cancellable"`
	Reason      string `json:"reason,omitempty"`
}

type ReservationService struct {
	db           *gorm.DB
	clock        Clock
	validator    *ReservationValidator
	availability *AvailabilityService
	events       Publisher
}

func NewReservationService(db *gorm.DB, clock Clock, validator *ReservationValidator, availability *AvailabilityService, events Publisher) *ReservationService {
	return &ReservationService{
		db:           db,
		clock:        clock,
		validator:    validator,
		availability: availability,
		events:       publisherOrNop(events),
	}
}

// Admit validates and persists a new pending reservation. A unique-index
// violation at commit means a concurrent admission won; it is reported as the
// same validation error the check would have produced.
func (s *ReservationService) Admit(ctx context.Context, actor Actor, in ReservationInput) (*models.Reservation, error) {
	r := models.Reservation{
		UserID:     actor.UserID,
		TableID:    in.TableID,
		TimeslotID: in.TimeslotID,
		NumPeople:  in.NumPeople,
		Status:     models.ReservationPending,
	}
	if actor.IsAdmin() && in.UserID != 0 {
		r.UserID = in.UserID
	}
	r.SyncOccupancy()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		errs, err := s.validator.Admit(tx, &r)
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			return errs
		}
		if err := tx.Create(&r).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.classify(err, "create")
	}

	utils.InfoLogger.Printf("Reservation %d admitted: user=%d table=%d timeslot=%d people=%d",
		r.ID, r.UserID, r.TableID, r.TimeslotID, r.NumPeople)
	s.committed(ctx, EventReservationCreated, &r)
	return &r, nil
}

// Update applies patch to a pending or confirmed reservation and re-runs
// admission when a booking field changed.
func (s *ReservationService) Update(ctx context.Context, actor Actor, id uint, patch ReservationPatch) (*models.Reservation, error) {
	var r models.Reservation
	changed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadForWrite(tx, actor, id, &r); err != nil {
			return err
		}
		if r.Status.IsTerminal() {
			return denied(ReasonNotEditable)
		}

		if patch.TableID != nil && *patch.TableID != r.TableID {
			r.TableID, changed = *patch.TableID, true
		}
		if patch.TimeslotID != nil && *patch.TimeslotID != r.TimeslotID {
			r.TimeslotID, changed = *patch.TimeslotID, true
		}
		if patch.NumPeople != nil && *patch.NumPeople != r.NumPeople {
			r.NumPeople, changed = *patch.NumPeople, true
		}
		if !changed {
			return nil
		}

		errs, err := s.validator.Admit(tx, &r)
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			return errs
		}
		r.SyncOccupancy()
		return tx.Save(&r).Error
	})
	if err != nil {
		return nil, s.classify(err, "update")
	}

	if changed {
		utils.InfoLogger.Printf("Reservation %d updated: table=%d timeslot=%d people=%d",
			r.ID, r.TableID, r.TimeslotID, r.NumPeople)
		s.committed(ctx, EventReservationUpdated, &r)
	}
	return &r, nil
}

// Cancel moves a pending or confirmed reservation to cancelled while its
// timeslot is still at least LeadTime away. The update is conditional on the
// status so a concurrent cancel or completion cannot be overwritten.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id uint) (*models.Reservation, error) {
	var r models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadForWrite(tx, actor, id, &r); err != nil {
			return err
		}
		return s.cancel(tx, &r)
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Reservation %d cancelled by user %d", r.ID, actor.UserID)
	s.committed(ctx, EventReservationCancelled, &r)
	return &r, nil
}

func (s *ReservationService) cancel(tx *gorm.DB, r *models.Reservation) error {
	var ts models.Timeslot
	if err := tx.First(&ts, r.TimeslotID).Error; err != nil {
		return notFound(err, "timeslot")
	}
	if reason := s.cancelDenial(r, &ts); reason != "" {
		return denied(reason)
	}

	now := s.clock.Now()
	res := tx.Model(&models.Reservation{}).
		Where("id = ? AND status IN ?", r.ID, models.ActiveStatuses).
		Updates(map[string]interface{}{
			"status":               models.ReservationCancelled,
			"occupied_timeslot_id": nil,
			"updated_at":           now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel reservation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return denied(ReasonNotCancellable)
	}

	r.Status = models.ReservationCancelled
	r.OccupiedTimeslotID = nil
	r.UpdatedAt = now
	return nil
}

// PreviewCancel reports whether Cancel would currently succeed. It never
// writes.
func (s *ReservationService) PreviewCancel(ctx context.Context, actor Actor, id uint) (CancelPreview, error) {
	r, err := s.Get(ctx, actor, id)
	if err != nil {
		return CancelPreview{}, err
	}
	if reason := s.cancelDenial(r, r.Timeslot); reason != "" {
		return CancelPreview{Reason: reason}, nil
	}
	return CancelPreview{Cancellable: true}, nil
}

// cancelDenial returns why r cannot be cancelled now, or "".
func (s *ReservationService) cancelDenial(r *models.Reservation, ts *models.Timeslot) string {
	if r.Status == models.ReservationCancelled {
		return ReasonAlreadyCancelled
	}
	if !r.Status.CanTransitionTo(models.ReservationCancelled) || ts == nil {
		return ReasonNotCancellable
	}
	now := s.clock.Now()
	start := ts.Window().StartAt(s.clock.Location)
	if !start.After(now) || start.Before(now.Add(LeadTime)) {
		return ReasonNotCancellable
	}
	return ""
}

// Transition moves a reservation along the lifecycle on an admin's request.
// Cancelling goes through the same rules as Cancel; completing requires the
// timeslot to be done.
func (s *ReservationService) Transition(ctx context.Context, actor Actor, id uint, next models.ReservationStatus) (*models.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	if !next.Valid() {
		return nil, ValidationErrors{{Field: "status", Message: "is not included in the list"}}
	}

	var r models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.loadForWrite(tx, actor, id, &r); err != nil {
			return err
		}
		if next == models.ReservationCancelled {
			return s.cancel(tx, &r)
		}
		if !r.Status.CanTransitionTo(next) {
			return denied(fmt.Sprintf("Reservation cannot move from %s to %s", r.Status, next))
		}
		if next == models.ReservationCompleted {
			var ts models.Timeslot
			if err := tx.First(&ts, r.TimeslotID).Error; err != nil {
				return notFound(err, "timeslot")
			}
			if !ts.Done(s.clock.Now(), s.clock.Location) {
				return denied(ReasonNotDone)
			}
		}

		now := s.clock.Now()
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", r.ID, r.Status).
			Updates(map[string]interface{}{"status": next, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("failed to update reservation status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return denied(fmt.Sprintf("Reservation cannot move from %s to %s", r.Status, next))
		}
		r.Status = next
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Reservation %d moved to %s by admin %d", r.ID, r.Status, actor.UserID)
	event := EventReservationUpdated
	if next == models.ReservationCancelled {
		event = EventReservationCancelled
	}
	s.committed(ctx, event, &r)
	return &r, nil
}

// Get returns a reservation with its table and timeslot. Reservations of
// other users are reported as not found unless the actor is an admin.
func (s *ReservationService) Get(ctx context.Context, actor Actor, id uint) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.db.WithContext(ctx).
		Preload("Table").
		Preload("Timeslot").
		First(&r, id).Error; err != nil {
		return nil, notFound(err, "reservation")
	}
	if !actor.can(r.UserID) {
		return nil, fmt.Errorf("reservation: %w", ErrNotFound)
	}
	return &r, nil
}

// ListForUser returns the actor's reservations whose timeslot falls in the
// calendar month view around startDate (today when zero).
func (s *ReservationService) ListForUser(ctx context.Context, actor Actor, startDate models.Date) ([]models.Reservation, error) {
	return s.list(ctx, startDate, &actor.UserID)
}

// ListAll is ListForUser over every user.
func (s *ReservationService) ListAll(ctx context.Context, actor Actor, startDate models.Date) ([]models.Reservation, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	return s.list(ctx, startDate, nil)
}

func (s *ReservationService) list(ctx context.Context, startDate models.Date, userID *uint) ([]models.Reservation, error) {
	if startDate.IsZero() {
		startDate = models.DateOf(s.clock.Now())
	}
	from, to := models.CalendarRange(startDate)

	q := s.db.WithContext(ctx).
		Joins("JOIN timeslots ON timeslots.id = reservations.timeslot_id").
		Where("timeslots.date BETWEEN ? AND ?", from, to).
		Preload("Table").
		Preload("Timeslot").
		Order("timeslots.date ASC, timeslots.start_time ASC, reservations.id ASC")
	if userID != nil {
		q = q.Where("reservations.user_id = ?", *userID)
	}

	reservations := []models.Reservation{}
	if err := q.Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func (s *ReservationService) loadForWrite(tx *gorm.DB, actor Actor, id uint, r *models.Reservation) error {
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(r, id).Error; err != nil {
		return notFound(err, "reservation")
	}
	if !actor.can(r.UserID) {
		return fmt.Errorf("reservation: %w", ErrNotFound)
	}
	return nil
}

// classify passes domain errors through and turns unique violations into
// the matching validation error.
func (s *ReservationService) classify(err error, op string) error {
	var verrs ValidationErrors
	var denial *DeniedError
	switch {
	case errors.As(err, &verrs), errors.As(err, &denial), errors.Is(err, ErrNotFound):
		return err
	}
	if _, ok := uniqueViolation(err); ok {
		utils.InfoLogger.Printf("Reservation %s lost a race on the unique index: %v", op, err)
		return translateReservationConflict(err)
	}
	return fmt.Errorf("failed to %s reservation: %w", op, err)
}

func (s *ReservationService) committed(ctx context.Context, event string, r *models.Reservation) {
	s.availability.Invalidate(ctx)
	s.events.Publish(event, r)
	s.events.Publish(EventAvailabilityChanged, map[string]interface{}{
		"table_id":    r.TableID,
		"timeslot_id": r.TimeslotID,
	})
}
