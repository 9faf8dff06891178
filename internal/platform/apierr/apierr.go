package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error codes returned to API callers. Everything except CodeInternal is
// deterministic for a given request and must not be retried.
const (
	CodeInvalidInput     = "invalid_input"
	CodeNotFound         = "not_found"
	CodeExpired          = "expired"
	CodeExhaustedUses    = "exhausted_uses"
	CodeInvalidReference = "invalid_reference"
	CodeConflict         = "conflict"
	CodeInsufficientPool = "insufficient_pool"
	CodeInternal         = "internal"
)

// Postgres SQLSTATE codes we classify at the repo boundary.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func InvalidInput(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidInput, err)
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return InvalidInput(fmt.Errorf(format, args...))
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return NotFound(fmt.Errorf(format, args...))
}

// Expired and ExhaustedUses are invitation-terminal states; the original
// surface reported both as 410 Gone.
func Expired(err error) *Error {
	return New(http.StatusGone, CodeExpired, err)
}

func ExhaustedUses(err error) *Error {
	return New(http.StatusGone, CodeExhaustedUses, err)
}

func InvalidReference(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidReference, err)
}

func Conflict(err error) *Error {
	return New(http.StatusConflict, CodeConflict, err)
}

func InsufficientPool(err error) *Error {
	return New(http.StatusBadRequest, CodeInsufficientPool, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// From returns err as *Error, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// IsCode reports whether err carries the given API error code.
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// FromDB classifies storage-layer failures. The unique-violation and
// foreign-key cases are load-bearing: duplicate evaluations and dangling
// study references are detected by the database, not by the application.
func FromDB(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict(err)
		case pgForeignKeyViolation:
			return InvalidReference(err)
		case pgCheckViolation:
			return InvalidInput(err)
		}
	}
	return Internal(err)
}
