package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrNotAuthorized      = errors.New("you do not have permission")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// BaseField scopes a validation message to the whole record rather than one
// attribute.
const BaseField = "base"

const (
	MsgBlank              = "can't be blank"
	MsgMustExist          = "must exist"
	MsgGreaterThanZero    = "must be greater than 0"
	MsgOutsideHours       = "must be between 07:00 and 22:00"
	MsgEndBeforeStart     = "must be after the start time"
	MsgTooShort           = "must be at least 1 hour after the start time"
	MsgTimeslotOverlap    = "overlaps an existing timeslot for this table"
	MsgOverCapacity       = "exceeds the table's capacity"
	MsgLeadTime           = "must be booked at least 2 hours in advance"
	MsgTableBooked        = "is already booked for that timeslot"
	MsgUserAlreadyBooked  = "You already have a reservation for this timeslot"
	MsgLastAdminRole      = "cannot remove the last admin"
	MsgLastAdminDestroy   = "Cannot delete the last admin user"
	MsgTableHasDependents = "Cannot delete record because dependent reservations exist"
	MsgEmailTaken         = "has already been taken"
)

// ValidationError is a business-rule failure attached to a field, or to
// BaseField.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FullMessage is the message prefixed with the humanized field name, e.g.
// "Num people exceeds the table's capacity".
func (e ValidationError) FullMessage() string {
	if e.Field == BaseField || e.Field == "" {
		return e.Message
	}
	return humanize(e.Field) + " " + e.Message
}

// ValidationErrors collects every failed rule of one operation.
type ValidationErrors []ValidationError

func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

func (e ValidationErrors) Error() string {
	return strings.Join(e.FullMessages(), ", ")
}

func (e ValidationErrors) FullMessages() []string {
	out := make([]string, 0, len(e))
	for _, v := range e {
		out = append(out, v.FullMessage())
	}
	return out
}

// On returns the messages recorded for field.
func (e ValidationErrors) On(field string) []string {
	var out []string
	for _, v := range e {
		if v.Field == field {
			out = append(out, v.Message)
		}
	}
	return out
}

// Err returns nil when nothing was collected.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// DeniedError reports an operation refused by a lifecycle rule or an
// invariant guard. It is an expected outcome, not a failure of the system.
type DeniedError struct {
	Field  string
	Reason string
}

func (e *DeniedError) Error() string {
	if e.Field == "" || e.Field == BaseField {
		return e.Reason
	}
	return humanize(e.Field) + " " + e.Reason
}

func denied(reason string) *DeniedError {
	return &DeniedError{Field: BaseField, Reason: reason}
}

func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
