package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bizportal/portalchat/internal/types"
)

func ids(messages []types.Message) string {
	out := make([]string, len(messages))
	for i, msg := range messages {
		out[i] = msg.Body
	}
	return fmt.Sprint(out)
}

func TestOpenIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	if err := InitSchema(conn); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestCreateMessageAssignsIncreasingTimestamps(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me")

	var prev int64
	for i := 0; i < 5; i++ {
		msg := postTestMessage(t, conn, room.ID, "me", fmt.Sprintf("m%d", i))
		if msg.CreatedAt <= prev {
			t.Fatalf("createdAt not strictly increasing: %d after %d", msg.CreatedAt, prev)
		}
		if !strings.HasPrefix(msg.ID, "msg-") {
			t.Fatalf("unexpected id %q", msg.ID)
		}
		prev = msg.CreatedAt
	}
}

func TestCreateMessageIsIdempotentPerClientID(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me")

	first, err := CreateMessage(conn, types.Message{RoomID: room.ID, SenderID: "me", Body: "hi", ClientID: "c-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	again, err := CreateMessage(conn, types.Message{RoomID: room.ID, SenderID: "me", Body: "hi", ClientID: "c-1"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if again.ID != first.ID || again.ClientID != "c-1" {
		t.Fatalf("retry created a new message: %s vs %s", again.ID, first.ID)
	}
	messages, _, _ := GetMessages(conn, room.ID, types.FetchOptions{})
	if len(messages) != 1 {
		t.Fatalf("expected one stored message, got %d", len(messages))
	}
}

func TestCreateMessageValidation(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me")

	if _, err := CreateMessage(conn, types.Message{RoomID: room.ID, SenderID: "me", Body: "  "}); err == nil {
		t.Fatal("expected empty body error")
	}
	if _, err := CreateMessage(conn, types.Message{RoomID: "room-missing", SenderID: "me", Body: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msg, err := CreateMessage(conn, types.Message{RoomID: room.ID, SenderID: "me", Attachment: &types.Attachment{URL: "https://f/1", Name: "a.pdf", Size: 10}})
	if err != nil {
		t.Fatalf("attachment only: %v", err)
	}
	stored, _ := GetMessage(conn, msg.ID)
	if stored.Attachment == nil || stored.Attachment.Name != "a.pdf" || stored.Attachment.Size != 10 {
		t.Fatalf("attachment not stored: %+v", stored.Attachment)
	}
}

func TestGetMessagesWindows(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me")
	var stored []types.Message
	for i := 1; i <= 5; i++ {
		stored = append(stored, postTestMessage(t, conn, room.ID, "bob", fmt.Sprintf("m%d", i)))
	}

	tests := []struct {
		name    string
		opts    types.FetchOptions
		want    string
		hasMore bool
	}{
		{"latest", types.FetchOptions{Limit: 2}, "[m4 m5]", true},
		{"all", types.FetchOptions{}, "[m1 m2 m3 m4 m5]", false},
		{"before", types.FetchOptions{Before: stored[3].CreatedAt, Limit: 2}, "[m2 m3]", true},
		{"before exhausts", types.FetchOptions{Before: stored[1].CreatedAt, Limit: 2}, "[m1]", false},
		{"exact page", types.FetchOptions{Before: stored[2].CreatedAt, Limit: 2}, "[m1 m2]", false},
		{"since", types.FetchOptions{Since: stored[2].CreatedAt}, "[m4 m5]", false},
		{"since limited", types.FetchOptions{Since: stored[0].CreatedAt, Limit: 2}, "[m2 m3]", false},
		{"since newest", types.FetchOptions{Since: stored[4].CreatedAt}, "[]", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages, hasMore, err := GetMessages(conn, room.ID, tt.opts)
			if err != nil {
				t.Fatalf("get messages: %v", err)
			}
			if got := ids(messages); got != tt.want || hasMore != tt.hasMore {
				t.Fatalf("got %s hasMore=%v, want %s hasMore=%v", got, hasMore, tt.want, tt.hasMore)
			}
		})
	}
}

func TestListRoomsUnreadAndLastMessage(t *testing.T) {
	conn := openTestDB(t)
	ops := createTestRoom(t, conn, "ops", "me", "bob")
	createTestRoom(t, conn, "other", "bob")

	postTestMessage(t, conn, ops.ID, "bob", "one")
	postTestMessage(t, conn, ops.ID, "me", "mine")
	postTestMessage(t, conn, ops.ID, "bob", "two")

	rooms, err := ListRooms(conn, "me")
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 1 {
		t.Fatalf("expected only member rooms, got %d", len(rooms))
	}
	room := rooms[0]
	if room.UnreadCount != 2 || room.LastMessage == nil || room.LastMessage.Body != "two" {
		t.Fatalf("unexpected room summary: %+v", room)
	}
	if fmt.Sprint(room.Participants) != "[me bob]" && fmt.Sprint(room.Participants) != "[bob me]" {
		t.Fatalf("unexpected participants: %v", room.Participants)
	}

	if err := MarkRead(conn, ops.ID, "me"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	rooms, _ = ListRooms(conn, "me")
	if rooms[0].UnreadCount != 0 {
		t.Fatalf("expected zero unread after mark read, got %d", rooms[0].UnreadCount)
	}
	if err := MarkRead(conn, ops.ID, "stranger"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-member, got %v", err)
	}
}

func TestToggleReaction(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me", "bob")
	msg := postTestMessage(t, conn, room.ID, "bob", "hi")

	steps := []struct {
		user, symbol, active string
		want                 string
	}{
		{"me", "+1", "+1", "map[+1:[me]]"},
		{"bob", "+1", "+1", "map[+1:[me bob]]"},
		{"me", "heart", "heart", "map[+1:[bob] heart:[me]]"},
		{"me", "heart", "", "map[+1:[bob]]"},
	}
	for i, step := range steps {
		active, err := ToggleReaction(conn, msg.ID, step.user, step.symbol)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		stored, _ := GetMessage(conn, msg.ID)
		if active != step.active || fmt.Sprint(stored.Reactions) != step.want {
			t.Fatalf("step %d: active=%q reactions=%v", i, active, stored.Reactions)
		}
	}
}

func TestDeleteAndEditOwnership(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me", "bob")
	msg := postTestMessage(t, conn, room.ID, "me", "draft")
	if _, err := ToggleReaction(conn, msg.ID, "bob", "+1"); err != nil {
		t.Fatalf("react: %v", err)
	}

	if _, err := EditMessage(conn, msg.ID, "bob", "hijack"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	edited, err := EditMessage(conn, msg.ID, "me", "final")
	if err != nil || edited.Body != "final" || edited.EditedAt == nil {
		t.Fatalf("edit: %+v err=%v", edited, err)
	}

	if err := DeleteMessage(conn, msg.ID, "bob"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := DeleteMessage(conn, msg.ID, "me"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	stored, _ := GetMessage(conn, msg.ID)
	if !stored.IsDeleted || stored.Body != "" || len(stored.Reactions) != 0 {
		t.Fatalf("unexpected deleted message: %+v", stored)
	}
	if _, err := ToggleReaction(conn, msg.ID, "bob", "+1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound reacting to deleted message, got %v", err)
	}
}

func TestServiceActsAsUser(t *testing.T) {
	conn := openTestDB(t)
	room := createTestRoom(t, conn, "ops", "me", "bob")
	private := createTestRoom(t, conn, "private", "bob")
	svc := NewService(conn, "me")
	ctx := context.Background()

	sent, err := svc.SendMessage(ctx, room.ID, types.Draft{Body: "hello"}, "c-9")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.SenderID != "me" || sent.ClientID != "c-9" {
		t.Fatalf("unexpected sent message: %+v", sent)
	}

	result, err := svc.FetchMessages(ctx, room.ID, types.FetchOptions{Limit: 10})
	if err != nil || len(result.Messages) != 1 || result.HasMore == nil || *result.HasMore {
		t.Fatalf("fetch: %+v err=%v", result, err)
	}
	delta, _ := svc.FetchMessages(ctx, room.ID, types.FetchOptions{Since: sent.CreatedAt})
	if len(delta.Messages) != 0 || delta.HasMore != nil {
		t.Fatalf("unexpected delta: %+v", delta)
	}

	if _, err := svc.FetchMessages(ctx, private.ID, types.FetchOptions{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign room, got %v", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := svc.ListRooms(canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSeedAndPost(t *testing.T) {
	conn := openTestDB(t)
	rooms, err := Seed(conn, "me")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}

	found, err := FindRoom(conn, "me", "alice")
	if err != nil {
		t.Fatalf("find room: %v", err)
	}
	if found.UnreadCount != 1 {
		t.Fatalf("expected seeded unread, got %d", found.UnreadCount)
	}

	if _, err := Post(conn, found.ID, "carol", "joining in"); err != nil {
		t.Fatalf("post: %v", err)
	}
	found, _ = FindRoom(conn, "me", found.ID)
	if found.UnreadCount != 2 || len(found.Participants) != 3 {
		t.Fatalf("unexpected room after post: %+v", found)
	}
	if _, err := FindRoom(conn, "me", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
