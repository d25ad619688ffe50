package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ReservationStatus is persisted as an integer: pending=0, confirmed=1,
// cancelled=2, completed=3.
type ReservationStatus int

const (
	ReservationPending ReservationStatus = iota
	ReservationConfirmed
	ReservationCancelled
	ReservationCompleted
)

var reservationStatusNames = [...]string{"pending", "confirmed", "cancelled", "completed"}

// reservationTransitions is the complete lifecycle. Statuses without an
// entry are terminal.
var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:   {ReservationConfirmed, ReservationCancelled, ReservationCompleted},
	ReservationConfirmed: {ReservationCancelled, ReservationCompleted},
}

// OccupyingStatuses is the occupancy policy: a reservation in any of these
// statuses holds its (table, timeslot) pair and its (user, timeslot) pair.
// Pending reservations occupy exactly like confirmed ones; only cancelled
// reservations release the slot.
var OccupyingStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed, ReservationCompleted}

// ActiveStatuses are the non-terminal statuses, the ones auto-completion moves.
var ActiveStatuses = []ReservationStatus{ReservationPending, ReservationConfirmed}

func (s ReservationStatus) Valid() bool {
	return s >= ReservationPending && s <= ReservationCompleted
}

func (s ReservationStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("ReservationStatus(%d)", int(s))
	}
	return reservationStatusNames[s]
}

func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

func (s ReservationStatus) Occupies() bool {
	for _, o := range OccupyingStatuses {
		if s == o {
			return true
		}
	}
	return false
}

func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseReservationStatus(s string) (ReservationStatus, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range reservationStatusNames {
		if name == s {
			return ReservationStatus(i), nil
		}
	}
	return 0, fmt.Errorf("unknown reservation status %q", s)
}

func (s ReservationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReservationStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		var n int
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return err
		}
		if !ReservationStatus(n).Valid() {
			return fmt.Errorf("unknown reservation status %d", n)
		}
		*s = ReservationStatus(n)
		return nil
	}
	parsed, err := ParseReservationStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Role is persisted as an integer: user=0, admin=1.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseRole(name)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
