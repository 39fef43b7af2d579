package core

import (
	"testing"
	"time"
)

func TestParseTimeExpression(t *testing.T) {
	now := time.Date(2024, 5, 10, 15, 30, 0, 0, time.UTC)
	today := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		expr string
		want time.Time
	}{
		{"", time.Time{}},
		{"30m", now.Add(-30 * time.Minute)},
		{"2h", now.Add(-2 * time.Hour)},
		{"1d", now.Add(-24 * time.Hour)},
		{"1w", now.Add(-7 * 24 * time.Hour)},
		{"today", today},
		{"Yesterday", today.Add(-24 * time.Hour)},
		{"2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-05-01 09:15", time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := ParseTimeExpression(tc.expr, now)
		if err != nil {
			t.Fatalf("%q: %v", tc.expr, err)
		}
		want := int64(0)
		if !tc.want.IsZero() {
			want = tc.want.UnixMilli()
		}
		if got != want {
			t.Fatalf("%q: expected %d, got %d", tc.expr, want, got)
		}
	}

	for _, bad := range []string{"0h", "h", "3x", "soon"} {
		if _, err := ParseTimeExpression(bad, now); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
