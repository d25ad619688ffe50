package services

import (
	"gorm.io/gorm"
)

// Options configures New. Zero values fall back to no cache, no event
// publishing and the local time zone.
type Options struct {
	Clock  Clock
	Cache  AvailabilityCache
	Events Publisher
}

// Services wires the engine together over one database handle.
type Services struct {
	Clock        Clock
	Availability *AvailabilityService
	Validator    *ReservationValidator
	Completion   *CompletionService
	Timeslots    *TimeslotService
	Reservations *ReservationService
	Tables       *TableService
	Users        *UserService
}

func New(db *gorm.DB, opts Options) *Services {
	clock := opts.Clock
	if clock.Location == nil {
		clock = NewClock(nil)
	}
	events := publisherOrNop(opts.Events)

	availability := NewAvailabilityService(db, opts.Cache)
	validator := NewReservationValidator(clock)
	completion := NewCompletionService(db, clock, events)

	return &Services{
		Clock:        clock,
		Availability: availability,
		Validator:    validator,
		Completion:   completion,
		Timeslots:    NewTimeslotService(db, availability, completion, events),
		Reservations: NewReservationService(db, clock, validator, availability, events),
		Tables:       NewTableService(db, availability, events),
		Users:        NewUserService(db, availability, events),
	}
}
