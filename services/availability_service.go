package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/tablebook/models"
	"gorm.io/gorm"
)

// Occupying restricts a reservations query to rows that hold their slot
// under models.OccupyingStatuses. Admission and availability both go through
// it so the two can never disagree.
func Occupying(db *gorm.DB) *gorm.DB {
	return db.Where("reservations.status IN ?", models.OccupyingStatuses)
}

// TimeslotOption is one entry of a table-aware timeslot picker.
type TimeslotOption struct {
	ID        uint              `json:"id"`
	Date      models.Date       `json:"date"`
	StartTime models.ClockTime  `json:"start_time"`
	EndTime   *models.ClockTime `json:"end_time"`
	Label     string            `json:"label"`
}

// AvailabilityService answers which tables and timeslots are still free.
// It only reads.
type AvailabilityService struct {
	db    *gorm.DB
	cache AvailabilityCache
}

func NewAvailabilityService(db *gorm.DB, cache AvailabilityCache) *AvailabilityService {
	if cache == nil {
		cache = NoCache()
	}
	return &AvailabilityService{db: db, cache: cache}
}

// FreeTables returns every table with no occupying reservation for the
// timeslot, ordered by id.
func (s *AvailabilityService) FreeTables(ctx context.Context, timeslotID uint) ([]models.Table, error) {
	db := s.db.WithContext(ctx)

	var ts models.Timeslot
	if err := db.Select("id").First(&ts, timeslotID).Error; err != nil {
		return nil, notFound(err, "timeslot")
	}

	key := fmt.Sprintf("timeslot:%d:tables", timeslotID)
	var tables []models.Table
	if s.cache.Get(ctx, key, &tables) {
		return tables, nil
	}

	taken := db.Model(&models.Reservation{}).
		Scopes(Occupying).
		Select("reservations.table_id").
		Where("reservations.timeslot_id = ?", timeslotID)

	tables = []models.Table{}
	if err := db.Where("tables.id NOT IN (?)", taken).
		Order("tables.id ASC").
		Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to load free tables: %w", err)
	}

	s.cache.Set(ctx, key, tables)
	return tables, nil
}

// FreeTimeslots returns the timeslots dated on or after from that apply to the
// table (unscoped or scoped to it) and that the table is not booked for,
// ordered by date then start time.
func (s *AvailabilityService) FreeTimeslots(ctx context.Context, tableID uint, from models.Date) ([]TimeslotOption, error) {
	db := s.db.WithContext(ctx)

	var table models.Table
	if err := db.Select("id").First(&table, tableID).Error; err != nil {
		return nil, notFound(err, "table")
	}

	key := fmt.Sprintf("table:%d:timeslots:%s", tableID, from)
	var options []TimeslotOption
	if s.cache.Get(ctx, key, &options) {
		return options, nil
	}

	taken := db.Model(&models.Reservation{}).
		Scopes(Occupying).
		Select("reservations.timeslot_id").
		Where("reservations.table_id = ?", tableID)

	var slots []models.Timeslot
	if err := db.Where("timeslots.date >= ?", from).
		Where("(timeslots.table_id IS NULL OR timeslots.table_id = ?)", tableID).
		Where("timeslots.id NOT IN (?)", taken).
		Order("timeslots.date ASC, timeslots.start_time ASC").
		Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("failed to load free timeslots: %w", err)
	}

	options = make([]TimeslotOption, 0, len(slots))
	for _, ts := range slots {
		options = append(options, TimeslotOption{
			ID:        ts.ID,
			Date:      ts.Date,
			StartTime: ts.StartTime,
			EndTime:   ts.EndTime,
			Label:     ts.Label(),
		})
	}

	s.cache.Set(ctx, key, options)
	return options, nil
}

// Invalidate drops cached answers. Services call it after any commit that
// changes occupancy, tables or timeslots.
func (s *AvailabilityService) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
}
