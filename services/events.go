package services

// Event names published after commits.
const (
	EventAvailabilityChanged   = "availability_changed"
	EventReservationCreated    = "reservation_created"
	EventReservationUpdated    = "reservation_updated"
	EventReservationCancelled  = "reservation_cancelled"
	EventReservationsCompleted = "reservations_completed"
	EventTimeslotSaved         = "timeslot_saved"
	EventTimeslotDeleted       = "timeslot_deleted"
	EventTableSaved            = "table_saved"
	EventTableDeleted          = "table_deleted"
)

// Publisher receives committed changes, e.g. the websocket hub.
type Publisher interface {
	Publish(event string, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
