package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned for malformed input. it is always recoverable by the caller.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return strings.Join(msgs, "; ")
}

// OverpaymentError is returned when a payment exceeds the outstanding balance of a student.
type OverpaymentError struct {
	StudentID   string
	Amount      decimal.Decimal
	Outstanding decimal.Decimal
	TotalFees   decimal.Decimal
}

func (err OverpaymentError) Error() string {
	return fmt.Sprintf(
		"cannot collect more than the total fees of %s (student %s: amount %s, outstanding %s)",
		err.TotalFees.StringFixed(2), err.StudentID, err.Amount.StringFixed(2), err.Outstanding.StringFixed(2),
	)
}

// Conflict reasons
const (
	ConflictDuplicate = "duplicate"
	ConflictStale     = "stale"
)

// ConflictError is returned on duplicate keys (ConflictDuplicate) or concurrent modifications (ConflictStale).
type ConflictError struct {
	Entity string
	Key    string
	Reason string
	Err    error
}

func NewConflictError(entity, key string, err error) error {
	return &ConflictError{Entity: entity, Key: key, Reason: ConflictDuplicate, Err: err}
}

// NewStaleVersionError reports an update made from an outdated version of entity.
func NewStaleVersionError(entity, key string, err error) error {
	return &ConflictError{Entity: entity, Key: key, Reason: ConflictStale, Err: err}
}

func (err ConflictError) Error() string {
	var msg string
	if err.Reason == ConflictStale {
		msg = fmt.Sprintf("%s %q was modified concurrently", err.Entity, err.Key)
	} else {
		msg = fmt.Sprintf("%s %q already exists", err.Entity, err.Key)
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

// BatchItemError is the failure of one record of a batch operation.
type BatchItemError struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

func (e BatchItemError) Error() string { return e.ID + ": " + e.Err.Error() }

// PartialBatchFailure reports which records of a batch were written and which were not,
// so the operation can be resumed with the failed ids only.
type PartialBatchFailure struct {
	Op        string
	Succeeded []string
	Failed    []BatchItemError
}

func (err PartialBatchFailure) Error() string {
	total := len(err.Failed) + len(err.Succeeded)
	if len(err.Failed) == 0 {
		return fmt.Sprintf("%s: 0 of %d records failed", err.Op, total)
	}
	return fmt.Sprintf("%s: %d of %d records failed (first: %v)", err.Op, len(err.Failed), total, err.Failed[0])
}

// FailedIDs lists the ids of the failed records, in batch order.
func (err PartialBatchFailure) FailedIDs() []string {
	ids := make([]string, 0, len(err.Failed))
	for _, f := range err.Failed {
		ids = append(ids, f.ID)
	}
	return ids
}

// UpstreamUnavailable is returned when the ledger store (or another upstream service) cannot be reached.
type UpstreamUnavailable struct {
	Op  string
	Err error
}

func NewUpstreamUnavailable(op string, err error) error {
	return &UpstreamUnavailable{Op: op, Err: err}
}

func (err UpstreamUnavailable) Error() string {
	return fmt.Sprintf("%s: upstream unavailable: %v", err.Op, err.Err)
}

func IsUpstreamUnavailable(err error) bool {
	_, ok := errors.Cause(err).(*UpstreamUnavailable)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
