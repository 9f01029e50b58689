package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUserMessage_KnownCodes(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"23505", "already exists"},
		{"23503", "relationship violation"},
		{"23502", "missing required field"},
		{"08006", "database busy, retry"},
	}
	for _, tc := range cases {
		err := &pgconn.PgError{Code: tc.code}
		if got := UserMessage(err); got != tc.want {
			t.Errorf("UserMessage(%s) = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestIsTransient_ConnectionCodesOnly(t *testing.T) {
	if !IsTransient(&pgconn.PgError{Code: "57P01"}) {
		t.Fatal("expected 57P01 to be transient")
	}
	if IsTransient(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation must not be treated as transient")
	}
}

func TestWithRetry_StopsOnNonTransient(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		return &pgconn.PgError{Code: "23505"}
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 call for a non-transient error, got %d", calls)
	}
}

func TestWithRetry_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "08006"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	sentinel := &pgconn.PgError{Code: "08006"}
	err := WithRetry(context.Background(), 2, func(ctx context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the last transient error to propagate, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly maxAttempts=2 calls, got %d", calls)
	}
}
