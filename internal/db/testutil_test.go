package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bizportal/portalchat/internal/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func createTestRoom(t *testing.T, db *sql.DB, name string, members ...string) types.Room {
	t.Helper()
	room, err := CreateRoom(db, types.Room{Name: name, Participants: members})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room
}

func postTestMessage(t *testing.T, db *sql.DB, roomID, sender, body string) types.Message {
	t.Helper()
	msg, err := CreateMessage(db, types.Message{RoomID: roomID, SenderID: sender, Body: body})
	if err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}
