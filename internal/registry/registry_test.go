package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
)

func summaries() []types.RoomSummary {
	return []types.RoomSummary{
		{ID: "r-alice", Name: "Alice", UnreadCount: 2, LastMessage: &types.Message{ID: "a1", CreatedAt: 300}},
		{ID: "r-bob", Name: "bob", Type: types.RoomTypeGroup, LastMessage: &types.Message{ID: "b1", CreatedAt: 100}},
		{ID: "r-carol", Name: "Carol", IsPinned: true},
		{ID: "r-dave", Name: "Dave", LastMessage: &types.Message{ID: "d1", CreatedAt: 300}},
	}
}

func roomIDs(rooms []types.Room) string {
	out := make([]string, len(rooms))
	for i, room := range rooms {
		out[i] = room.ID
	}
	return fmt.Sprint(out)
}

func TestRoomsSortOrder(t *testing.T) {
	reg := New(core.ModePanel)
	added, _ := reg.Upsert(summaries())
	if len(added) != 4 {
		t.Fatalf("expected 4 added rooms, got %v", added)
	}

	if got := roomIDs(reg.Rooms()); got != "[r-carol r-alice r-dave r-bob]" {
		t.Fatalf("unexpected order: %s", got)
	}

	room, _ := reg.Room("r-bob")
	if room.Type != types.RoomTypeGroup {
		t.Fatalf("expected group room, got %q", room.Type)
	}
	room, _ = reg.Room("r-alice")
	if room.Type != types.RoomTypeDirect || !room.HasNew || room.UnreadCount != 2 {
		t.Fatalf("unexpected alice room: %+v", room)
	}
}

func TestActivateClearsUnread(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())

	prev, err := reg.Activate("r-alice")
	if err != nil || prev != "" {
		t.Fatalf("activate: prev=%q err=%v", prev, err)
	}
	room, _ := reg.Room("r-alice")
	if room.UnreadCount != 0 || room.HasNew {
		t.Fatalf("expected cleared unread state: %+v", room)
	}
	if reg.MarkNew("r-alice", 3) {
		t.Fatal("active room must not accumulate unread")
	}

	if _, err := reg.Activate("missing"); !errors.Is(err, ErrUnknownRoom) {
		t.Fatalf("expected ErrUnknownRoom, got %v", err)
	}
	if reg.Active() != "r-alice" {
		t.Fatalf("failed activation changed active room to %q", reg.Active())
	}
}

func TestMarkNewBackgroundRoom(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())
	reg.Activate("r-alice")

	reg.MarkNew("r-bob", 1)
	reg.MarkNew("r-bob", 2)
	room, _ := reg.Room("r-bob")
	if room.UnreadCount != 3 || !room.HasNew {
		t.Fatalf("unexpected background room state: %+v", room)
	}
	if reg.MarkNew("r-bob", 0) {
		t.Fatal("zero arrivals must not raise the badge")
	}
}

func TestUpsertPreservesLocalState(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())
	reg.Activate("r-alice")
	reg.SetMuted("r-bob", true)
	reg.MarkNew("r-bob", 4)

	refreshed := summaries()
	refreshed[1].Name = "Bobby"
	_, removed := reg.Upsert(refreshed[:3])

	alice, _ := reg.Room("r-alice")
	if alice.UnreadCount != 0 {
		t.Fatalf("refresh resurrected cleared badge: %+v", alice)
	}
	bob, _ := reg.Room("r-bob")
	if !bob.IsMuted || bob.UnreadCount != 4 || bob.Name != "Bobby" {
		t.Fatalf("unexpected bob after refresh: %+v", bob)
	}
	if fmt.Sprint(removed) != "[r-dave]" || reg.Has("r-dave") {
		t.Fatalf("expected r-dave removed, got %v", removed)
	}
}

func TestUpsertKeepsActiveRoom(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())
	reg.Activate("r-dave")
	if _, removed := reg.Upsert(nil); reg.Has("r-dave") == false || len(removed) != 3 {
		t.Fatalf("active room should survive refresh, removed=%v", removed)
	}
}

func TestTouchKeepsNewestMessage(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())

	reg.Touch("r-bob", types.Message{ID: "b2", CreatedAt: 500})
	reg.Touch("r-bob", types.Message{ID: "b0", CreatedAt: 50})
	room, _ := reg.Room("r-bob")
	if room.LastMessage == nil || room.LastMessage.ID != "b2" || room.LastActivity != 500 {
		t.Fatalf("unexpected last message: %+v", room.LastMessage)
	}
	if got := roomIDs(reg.Rooms()); got != "[r-carol r-bob r-alice r-dave]" {
		t.Fatalf("unexpected order after touch: %s", got)
	}
}

func TestPinnedAndMutedFlags(t *testing.T) {
	reg := New(core.ModePanel)
	reg.Upsert(summaries())

	if err := reg.SetPinned("r-bob", true); err != nil {
		t.Fatalf("pin: %v", err)
	}
	if got := roomIDs(reg.Rooms()); got != "[r-bob r-carol r-alice r-dave]" {
		t.Fatalf("unexpected order after pin: %s", got)
	}
	if err := reg.SetMuted("nope", true); !errors.Is(err, ErrUnknownRoom) {
		t.Fatalf("expected ErrUnknownRoom, got %v", err)
	}
}

func TestShouldPollByMode(t *testing.T) {
	tests := []struct {
		mode string
		want string
	}{
		{core.ModePanel, "[r-alice r-bob r-carol r-dave]"},
		{core.ModeWidget, "[r-bob]"},
		{"bogus", "[r-alice r-bob r-carol r-dave]"},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			reg := New(tt.mode)
			reg.Upsert(summaries())
			reg.Activate("r-bob")
			if got := fmt.Sprint(reg.Polled()); got != tt.want {
				t.Fatalf("polled = %s, want %s", got, tt.want)
			}
			if reg.ShouldPoll("missing") {
				t.Fatal("unknown rooms never poll")
			}
		})
	}
}
