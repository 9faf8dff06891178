package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestFromWrapsUnknownErrorsAsInternal(t *testing.T) {
	plain := errors.New("boom")
	ae := From(plain)
	if ae.Code != CodeInternal || ae.Status != http.StatusInternalServerError {
		t.Fatalf("want internal/500, got %s/%d", ae.Code, ae.Status)
	}
	if !errors.Is(ae, plain) {
		t.Fatalf("wrapped error lost the cause")
	}
}

func TestFromPassesThroughAPIErrors(t *testing.T) {
	orig := NotFoundf("nope")
	wrapped := fmt.Errorf("outer: %w", orig)

	ae := From(wrapped)
	if ae != orig {
		t.Fatalf("want the original *Error back, got %+v", ae)
	}
}

func TestFromDBClassifiesSQLStates(t *testing.T) {
	cases := []struct {
		sqlstate string
		code     string
		status   int
	}{
		{"23505", CodeConflict, http.StatusConflict},
		{"23503", CodeInvalidReference, http.StatusBadRequest},
		{"23514", CodeInvalidInput, http.StatusBadRequest},
	}
	for _, tc := range cases {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: tc.sqlstate})
		ae := FromDB(err)
		if ae.Code != tc.code || ae.Status != tc.status {
			t.Fatalf("sqlstate %s: want %s/%d, got %s/%d", tc.sqlstate, tc.code, tc.status, ae.Code, ae.Status)
		}
	}
}

func TestFromDBRecordNotFound(t *testing.T) {
	ae := FromDB(fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound))
	if ae.Code != CodeNotFound || ae.Status != http.StatusNotFound {
		t.Fatalf("want not_found/404, got %s/%d", ae.Code, ae.Status)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ExhaustedUses(errors.New("all used up")))
	if !IsCode(err, CodeExhaustedUses) {
		t.Fatalf("IsCode missed a wrapped exhausted_uses")
	}
	if IsCode(err, CodeExpired) {
		t.Fatalf("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeExpired) {
		t.Fatalf("IsCode matched nil")
	}
}

func TestGoneStatuses(t *testing.T) {
	if Expired(errors.New("x")).Status != http.StatusGone {
		t.Fatalf("expired should map to 410")
	}
	if ExhaustedUses(errors.New("x")).Status != http.StatusGone {
		t.Fatalf("exhausted_uses should map to 410")
	}
}
