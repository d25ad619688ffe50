package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Operating window and minimum length of a timeslot.
var (
	OpeningTime     = models.NewClockTime(7, 0)
	ClosingTime     = models.NewClockTime(22, 0)
	MinSlotDuration = time.Hour
)

// TimeslotService is the timeslot catalog.
type TimeslotService struct {
	db           *gorm.DB
	availability *AvailabilityService
	completion   *CompletionService
	events       Publisher
}

func NewTimeslotService(db *gorm.DB, availability *AvailabilityService, completion *CompletionService, events Publisher) *TimeslotService {
	return &TimeslotService{
		db:           db,
		availability: availability,
		completion:   completion,
		events:       publisherOrNop(events),
	}
}

// ValidateWindow checks the candidate's own fields. Window errors are
// reported together; when any exists the duration rules are skipped.
func ValidateWindow(ts *models.Timeslot) ValidationErrors {
	var errs ValidationErrors
	if ts.Date.IsZero() {
		errs.Add("date", MsgBlank)
	}
	if ts.StartTime < OpeningTime || ts.StartTime >= ClosingTime {
		errs.Add("start_time", MsgOutsideHours)
	}
	if ts.EndTime != nil && (*ts.EndTime <= OpeningTime || *ts.EndTime > ClosingTime) {
		errs.Add("end_time", MsgOutsideHours)
	}
	if len(errs) > 0 || ts.EndTime == nil {
		return errs
	}

	switch d := ts.EndTime.Sub(ts.StartTime); {
	case d <= 0:
		errs.Add("end_time", MsgEndBeforeStart)
	case d < MinSlotDuration:
		errs.Add("end_time", MsgTooShort)
	}
	return errs
}

// Validate runs the window rules and, when they pass, the overlap rule
// against the other timeslots of the same table and date. Unscoped timeslots
// are exempt from the overlap rule.
func (s *TimeslotService) Validate(ctx context.Context, ts *models.Timeslot) error {
	return s.validate(s.db.WithContext(ctx), ts)
}

func (s *TimeslotService) validate(tx *gorm.DB, ts *models.Timeslot) error {
	errs := ValidateWindow(ts)
	if len(errs) > 0 || ts.TableID == nil {
		return errs.Err()
	}

	var siblings []models.Timeslot
	q := tx.Where("table_id = ? AND date = ?", *ts.TableID, ts.Date)
	if ts.ID != 0 {
		q = q.Where("id <> ?", ts.ID)
	}
	if err := q.Find(&siblings).Error; err != nil {
		return fmt.Errorf("failed to load timeslots: %w", err)
	}

	window := ts.Window()
	for _, other := range siblings {
		if window.Overlaps(other.Window()) {
			errs.Add(BaseField, MsgTimeslotOverlap)
			break
		}
	}
	return errs.Err()
}

// List returns timeslots ordered by date and start time. A non-zero from
// drops earlier dates.
func (s *TimeslotService) List(ctx context.Context, from models.Date) ([]models.Timeslot, error) {
	q := s.db.WithContext(ctx).Order("date ASC, start_time ASC, id ASC")
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	timeslots := []models.Timeslot{}
	if err := q.Find(&timeslots).Error; err != nil {
		return nil, fmt.Errorf("failed to list timeslots: %w", err)
	}
	return timeslots, nil
}

func (s *TimeslotService) Get(ctx context.Context, id uint) (*models.Timeslot, error) {
	var ts models.Timeslot
	if err := s.db.WithContext(ctx).First(&ts, id).Error; err != nil {
		return nil, notFound(err, "timeslot")
	}
	return &ts, nil
}

// Create validates and inserts ts. The owning table row is locked so two
// admins cannot insert overlapping slots for it concurrently.
func (s *TimeslotService) Create(ctx context.Context, ts *models.Timeslot) error {
	ts.ID = 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTable(tx, ts.TableID); err != nil {
			return err
		}
		if err := s.validate(tx, ts); err != nil {
			return err
		}
		if err := tx.Create(ts).Error; err != nil {
			return fmt.Errorf("failed to create timeslot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Printf("Timeslot %d created (%s)", ts.ID, ts.Label())
	s.afterSave(ctx, ts)
	return nil
}

// Update loads the timeslot, applies the caller's changes and validates the
// result before saving.
func (s *TimeslotService) Update(ctx context.Context, id uint, apply func(*models.Timeslot)) (*models.Timeslot, error) {
	var ts models.Timeslot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ts, id).Error; err != nil {
			return notFound(err, "timeslot")
		}
		apply(&ts)
		ts.ID = id
		if err := lockTable(tx, ts.TableID); err != nil {
			return err
		}
		if err := s.validate(tx, &ts); err != nil {
			return err
		}
		if err := tx.Save(&ts).Error; err != nil {
			return fmt.Errorf("failed to update timeslot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Timeslot %d updated (%s)", ts.ID, ts.Label())
	s.afterSave(ctx, &ts)
	return &ts, nil
}

// Delete removes the timeslot together with its reservations.
func (s *TimeslotService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ts models.Timeslot
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ts, id).Error; err != nil {
			return notFound(err, "timeslot")
		}
		if err := tx.Where("timeslot_id = ?", id).Delete(&models.Reservation{}).Error; err != nil {
			return fmt.Errorf("failed to delete reservations: %w", err)
		}
		if err := tx.Delete(&ts).Error; err != nil {
			return fmt.Errorf("failed to delete timeslot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Printf("Timeslot %d deleted", id)
	s.availability.Invalidate(ctx)
	s.events.Publish(EventTimeslotDeleted, map[string]interface{}{"id": id})
	s.events.Publish(EventAvailabilityChanged, map[string]interface{}{"timeslot_id": id})
	return nil
}

// afterSave retires reservations of a slot that is already over, then drops
// cached availability.
func (s *TimeslotService) afterSave(ctx context.Context, ts *models.Timeslot) {
	if _, err := s.completion.RunAutoComplete(ctx, ts.ID); err != nil {
		utils.ErrorLogger.Printf("Auto-complete after saving timeslot %d failed: %v", ts.ID, err)
	}
	s.availability.Invalidate(ctx)
	s.events.Publish(EventTimeslotSaved, ts)
	s.events.Publish(EventAvailabilityChanged, map[string]interface{}{"timeslot_id": ts.ID})
}

func lockTable(tx *gorm.DB, tableID *uint) error {
	if tableID == nil {
		return nil
	}
	var table models.Table
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&table, *tableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ValidationErrors{{Field: "table", Message: MsgMustExist}}
		}
		return fmt.Errorf("failed to load table: %w", err)
	}
	return nil
}
