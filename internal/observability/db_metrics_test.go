package observability

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

func TestClassifyDBErr(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{errors.New("context deadline exceeded"), "timeout"},
		{fmt.Errorf("find session: %w", context.DeadlineExceeded), "timeout"},
		{fmt.Errorf("find session: %w", context.Canceled), "canceled"},
		{&pgconn.PgError{Code: "23503"}, "foreign_key_violation"},
		{errors.New("connection refused"), "connection"},
		{errors.New("weird"), "unknown"},
	}

	for _, tc := range cases {
		if got := classifyDBErr(tc.err); got != tc.want {
			t.Fatalf("classifyDBErr(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func dbErrorCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	var total float64
	for _, mf := range mfs {
		if mf.GetName() != "fintrack_db_errors_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestObserveDB_NoRowsIsNotAnError(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	err := p.ObserveDB("users.get_by_id", func() error { return pgx.ErrNoRows })
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected ErrNoRows to pass through, got %v", err)
	}

	if n := dbErrorCount(t, reg); n != 0 {
		t.Fatalf("expected no db errors counted, got %v", n)
	}

	_ = p.ObserveDB("users.get_by_id", func() error { return errors.New("connection reset") })
	if got := dbErrorCount(t, reg); got != 1 {
		t.Fatalf("expected 1 connection error, got %v", got)
	}
}
