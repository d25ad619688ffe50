package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
)

// CompletionService retires reservations whose timeslot has ended.
type CompletionService struct {
	db     *gorm.DB
	clock  Clock
	events Publisher
}

func NewCompletionService(db *gorm.DB, clock Clock, events Publisher) *CompletionService {
	return &CompletionService{db: db, clock: clock, events: publisherOrNop(events)}
}

// RunAutoComplete moves every reservation of a done timeslot that is neither
// cancelled nor completed to completed, in one conditional update. Running it
// again is a no-op. It returns the number of reservations moved.
func (s *CompletionService) RunAutoComplete(ctx context.Context, timeslotID uint) (int64, error) {
	db := s.db.WithContext(ctx)

	var ts models.Timeslot
	if err := db.First(&ts, timeslotID).Error; err != nil {
		return 0, notFound(err, "timeslot")
	}
	now := s.clock.Now()
	if !ts.Done(now, s.clock.Location) {
		return 0, nil
	}

	res := db.Model(&models.Reservation{}).
		Where("timeslot_id = ?", timeslotID).
		Where("status NOT IN ?", []models.ReservationStatus{models.ReservationCancelled, models.ReservationCompleted}).
		Updates(map[string]interface{}{
			"status":     models.ReservationCompleted,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to complete reservations: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		utils.InfoLogger.Printf("Completed %d reservation(s) for timeslot %d", res.RowsAffected, timeslotID)
		s.events.Publish(EventReservationsCompleted, map[string]interface{}{
			"timeslot_id": timeslotID,
			"count":       res.RowsAffected,
		})
	}
	return res.RowsAffected, nil
}

// Sweep runs RunAutoComplete for every done timeslot that still has active
// reservations and returns the total moved.
func (s *CompletionService) Sweep(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	today := models.DateOf(now)

	var slots []models.Timeslot
	active := s.db.WithContext(ctx).Model(&models.Reservation{}).
		Select("reservations.timeslot_id").
		Where("reservations.status IN ?", models.ActiveStatuses)
	if err := s.db.WithContext(ctx).
		Where("timeslots.date <= ?", today).
		Where("timeslots.id IN (?)", active).
		Order("timeslots.date ASC, timeslots.start_time ASC").
		Find(&slots).Error; err != nil {
		return 0, fmt.Errorf("failed to load elapsed timeslots: %w", err)
	}

	var total int64
	for _, ts := range slots {
		if !ts.Done(now, s.clock.Location) {
			continue
		}
		n, err := s.RunAutoComplete(ctx, ts.ID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
