package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
)

var (
	ErrNotFound = errors.New("Resource not found")

	ErrInvalidRequest       = errors.New("invalid request")
	ErrInvalidSpotIDs       = errors.New("One or more spot IDs are invalid.")
	ErrSpotFull             = errors.New("spot is full")
	ErrInvalidCoupon        = errors.New("Invalid or inactive coupon code.")
	ErrCouponMinSpotsNotMet = errors.New("coupon minimum spot count not met")

	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
)

// SpotFullError names the first requested spot that has no slots left.
type SpotFullError struct {
	Spot model.Spot
}

func (e *SpotFullError) Error() string {
	return fmt.Sprintf("Spot %s is full.", e.Spot.String())
}

func (e *SpotFullError) Unwrap() error {
	return ErrSpotFull
}

type MinSpotsError struct {
	MinSpots uint16
}

func (e *MinSpotsError) Error() string {
	return fmt.Sprintf("This coupon requires at least %d spots.", e.MinSpots)
}

func (e *MinSpotsError) Unwrap() error {
	return ErrCouponMinSpotsNotMet
}

// RequestError lists field-level problems with a request's shape.
type RequestError struct {
	Fields map[string][]string
}

func NewRequestError(field, msg string) *RequestError {
	return &RequestError{Fields: map[string][]string{field: {msg}}}
}

func (e *RequestError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *RequestError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, field+": "+strings.Join(msgs, " "))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

// ClassifyStorageError wraps a storage error in ErrConstraintViolation when
// the database rejected the write for integrity reasons, and in
// ErrStorageUnavailable otherwise. Errors that are already classified, and
// nil, pass through unchanged.
func ClassifyStorageError(err error) error {
	if err == nil {
		return nil
	}
	if isClassified(err) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

func isClassified(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrInvalidRequest,
		ErrInvalidSpotIDs,
		ErrSpotFull,
		ErrInvalidCoupon,
		ErrCouponMinSpotsNotMet,
		ErrStorageUnavailable,
		ErrConstraintViolation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
