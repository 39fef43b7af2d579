package command

import (
	"strings"
	"testing"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

func TestFormatMessage(t *testing.T) {
	now := time.Now()
	edited := now.UnixMilli()
	msg := types.Message{
		ID:        "msg-abc12345",
		SenderID:  "carol",
		Body:      "see attached",
		CreatedAt: now.Add(-2 * time.Minute).UnixMilli(),
		EditedAt:  &edited,
		Attachment: &types.Attachment{
			Name: "q3.pdf",
			Size: 2_500_000,
		},
		Reactions: map[string][]string{"👍": {"alice", "bob"}},
	}

	out := FormatMessage(msg, "carol", now)
	for _, want := range []string{"msg-abc12345 (edited)", "2 minutes ago", "you", "see attached", "📎 q3.pdf (2.5 MB)", "👍 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	msg.IsDeleted = true
	out = FormatMessage(msg, "dana", now)
	if !strings.Contains(out, "message deleted") || strings.Contains(out, "see attached") || strings.Contains(out, "👍") {
		t.Fatalf("unexpected deleted rendering %q", out)
	}
	if !strings.Contains(out, "carol") {
		t.Fatalf("expected sender name for other users, got %q", out)
	}
}

func TestFormatRoom(t *testing.T) {
	now := time.Now()
	room := types.RoomSummary{
		ID:          "room-1",
		Name:        "Operations",
		Type:        types.RoomTypeGroup,
		UnreadCount: 3,
		IsMuted:     true,
	}
	out := FormatRoom(room, now)
	for _, want := range []string{"#Operations", "(3)", "no messages", "[muted]", "room-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
