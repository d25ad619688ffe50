package services

import (
	"context"
	"fmt"

	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TableService struct {
	db           *gorm.DB
	availability *AvailabilityService
	events       Publisher
}

func NewTableService(db *gorm.DB, availability *AvailabilityService, events Publisher) *TableService {
	return &TableService{db: db, availability: availability, events: publisherOrNop(events)}
}

func validateTable(t *models.Table) error {
	var errs ValidationErrors
	if t.Quantity <= 0 {
		errs.Add("quantity", MsgGreaterThanZero)
	}
	if t.Capacity <= 0 {
		errs.Add("capacity", MsgGreaterThanZero)
	}
	return errs.Err()
}

func (s *TableService) List(ctx context.Context) ([]models.Table, error) {
	tables := []models.Table{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *TableService) Get(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, notFound(err, "table")
	}
	return &table, nil
}

func (s *TableService) Create(ctx context.Context, table *models.Table) error {
	table.ID = 0
	if table.Quantity == 0 {
		table.Quantity = 1
	}
	if err := validateTable(table); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(table).Error; err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	utils.InfoLogger.Printf("New table created: %d (capacity=%d, quantity=%d)", table.ID, table.Capacity, table.Quantity)
	s.changed(ctx, EventTableSaved, table)
	return nil
}

func (s *TableService) Update(ctx context.Context, id uint, apply func(*models.Table)) (*models.Table, error) {
	var table models.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, id).Error; err != nil {
			return notFound(err, "table")
		}
		apply(&table)
		table.ID = id
		if err := validateTable(&table); err != nil {
			return err
		}
		return tx.Save(&table).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Printf("Table %d updated (capacity=%d, quantity=%d)", table.ID, table.Capacity, table.Quantity)
	s.changed(ctx, EventTableSaved, &table)
	return &table, nil
}

// Delete refuses while any reservation references the table. Otherwise the
// table's own timeslots go with it.
func (s *TableService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var table models.Table
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, id).Error; err != nil {
			return notFound(err, "table")
		}

		var refs []uint
		if err := tx.Model(&models.Reservation{}).Where("table_id = ?", id).Limit(1).Pluck("id", &refs).Error; err != nil {
			return fmt.Errorf("failed to check reservations: %w", err)
		}
		if len(refs) > 0 {
			return denied(MsgTableHasDependents)
		}

		owned := tx.Model(&models.Timeslot{}).Select("id").Where("table_id = ?", id)
		if err := tx.Where("timeslot_id IN (?)", owned).Delete(&models.Reservation{}).Error; err != nil {
			return fmt.Errorf("failed to delete reservations: %w", err)
		}
		if err := tx.Where("table_id = ?", id).Delete(&models.Timeslot{}).Error; err != nil {
			return fmt.Errorf("failed to delete timeslots: %w", err)
		}
		if err := tx.Delete(&table).Error; err != nil {
			return fmt.Errorf("failed to delete table: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	utils.InfoLogger.Printf("Table %d deleted", id)
	s.changed(ctx, EventTableDeleted, map[string]interface{}{"id": id})
	return nil
}

func (s *TableService) changed(ctx context.Context, event string, data interface{}) {
	s.availability.Invalidate(ctx)
	s.events.Publish(event, data)
	s.events.Publish(EventAvailabilityChanged, data)
}
