package core

import (
	"strings"
	"testing"
)

func TestGenerateGUID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := GenerateGUID("msg-")
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !strings.HasPrefix(id, "msg-") || len(id) != len("msg-")+guidLength {
			t.Fatalf("unexpected id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestOptimisticIDs(t *testing.T) {
	id := NewOptimisticID()
	if !IsOptimisticID(id) {
		t.Fatalf("expected %q to be optimistic", id)
	}
	if IsOptimisticID("msg-abc12345") {
		t.Fatal("server id reported as optimistic")
	}
	if NewClientID() == NewClientID() {
		t.Fatal("expected distinct client ids")
	}
}

func TestShortID(t *testing.T) {
	cases := []struct {
		guid   string
		length int
		want   string
	}{
		{"msg-abc12345", 4, "abc1"},
		{"msg-abc", 8, "abc"},
		{"plain", 3, "pla"},
		{"msg-abc", 0, ""},
		{"trailing-", 3, "tra"},
	}
	for _, tc := range cases {
		if got := ShortID(tc.guid, tc.length); got != tc.want {
			t.Fatalf("ShortID(%q, %d) = %q, want %q", tc.guid, tc.length, got, tc.want)
		}
	}
}
