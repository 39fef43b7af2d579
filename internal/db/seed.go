package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

type seedMessage struct {
	sender string
	body   string
}

// Seed creates a small set of demo rooms for userID: a group room and two
// direct conversations with a few messages each. It returns the created rooms.
func Seed(db *sql.DB, userID string) ([]types.Room, error) {
	fixtures := []struct {
		room     types.Room
		messages []seedMessage
	}{
		{
			room: types.Room{Name: "Operations", Type: types.RoomTypeGroup, Participants: []string{userID, "alice", "bob"}},
			messages: []seedMessage{
				{"alice", "Morning all. The supplier portal is back up."},
				{"bob", "Thanks. Orders from yesterday are syncing now."},
				{userID, "Great, I'll check the invoices after lunch."},
			},
		},
		{
			room: types.Room{Name: "alice", Type: types.RoomTypeDirect, Participants: []string{userID, "alice"}},
			messages: []seedMessage{
				{"alice", "Do you have the Q3 numbers?"},
			},
		},
		{
			room:     types.Room{Name: "bob", Type: types.RoomTypeDirect, Participants: []string{userID, "bob"}},
			messages: nil,
		},
	}

	base := time.Now().Add(-2 * time.Hour).UnixMilli()
	var rooms []types.Room
	for _, fixture := range fixtures {
		room, err := CreateRoom(db, fixture.room)
		if err != nil {
			return nil, fmt.Errorf("seed room %s: %w", fixture.room.Name, err)
		}
		for i, m := range fixture.messages {
			if _, err := CreateMessage(db, types.Message{
				RoomID:    room.ID,
				SenderID:  m.sender,
				Body:      m.body,
				CreatedAt: base + int64(i)*60_000,
			}); err != nil {
				return nil, fmt.Errorf("seed message: %w", err)
			}
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

// Post writes a message into a room as senderID, joining them to the room
// if needed. It is how other users are simulated against a local database.
func Post(db *sql.DB, roomID, senderID, body string) (types.Message, error) {
	if err := AddMember(db, roomID, senderID); err != nil {
		return types.Message{}, err
	}
	return CreateMessage(db, types.Message{RoomID: roomID, SenderID: senderID, Body: body})
}

// FindRoom resolves a room by id or, failing that, by case-sensitive name
// among the rooms userID belongs to.
func FindRoom(db *sql.DB, userID, ref string) (types.RoomSummary, error) {
	rooms, err := ListRooms(db, userID)
	if err != nil {
		return types.RoomSummary{}, err
	}
	for _, room := range rooms {
		if room.ID == ref {
			return room, nil
		}
	}
	for _, room := range rooms {
		if room.Name == ref {
			return room, nil
		}
	}
	return types.RoomSummary{}, fmt.Errorf("room %q: %w", ref, ErrNotFound)
}
