package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
	ErrorClassForeignKey
	ErrorClassCheck
	ErrorClassOutOfRange
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03", "57014":
			return ErrorClassTransient
		case "23503":
			return ErrorClassForeignKey
		case "23514":
			return ErrorClassCheck
		case "22003":
			return ErrorClassOutOfRange
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorClassTransient, ErrorClassDeadlock, ErrorClassSerialization:
		return true
	}
	return false
}

// IsForeignKeyViolation reports whether err references a row that does not
// exist, e.g. a cart line for an unknown product.
func IsForeignKeyViolation(err error) bool {
	return ClassifyError(err) == ErrorClassForeignKey
}

// IsCheckViolation reports whether err broke a CHECK constraint.
func IsCheckViolation(err error) bool {
	return ClassifyError(err) == ErrorClassCheck
}

// IsOutOfRange reports whether a value did not fit its column, e.g. a
// merged cart quantity past the INT range.
func IsOutOfRange(err error) bool {
	return ClassifyError(err) == ErrorClassOutOfRange
}

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrQuantityTooLarge = errors.New("quantity is too large")
	ErrEmptyOrder       = errors.New("order has no items")
	ErrInvalidAmount    = errors.New("Invalid amount")
)
