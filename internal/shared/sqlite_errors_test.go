package shared

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsSQLiteConflictError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "busy text", err: errors.New("exec: SQLITE_BUSY"), want: true},
		{name: "locked text", err: fmt.Errorf("save: %w", errors.New("database is locked")), want: true},
		{name: "other", err: errors.New("UNIQUE constraint failed"), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsSQLiteConflictError(tc.err); got != tc.want {
				t.Fatalf("IsSQLiteConflictError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
