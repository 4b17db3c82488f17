package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUniqueViolationMapsToSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "profiles email",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "profiles_email_key"},
			want: ErrDuplicateEmail,
		},
		{
			name: "profiles username",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "profiles_username_key"},
			want: ErrDuplicateUsername,
		},
		{
			name: "users email",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"},
			want: ErrDuplicateEmail,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "profiles_email_key"}),
			want: ErrDuplicateEmail,
		},
		{
			name: "other pg error code",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "analysis_results_user_fk"},
			want: nil,
		},
		{
			name: "plain error",
			err:  errors.New("connection reset"),
			want: nil,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := uniqueViolation(tc.err)
			if !errors.Is(got, tc.want) {
				t.Fatalf("uniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
