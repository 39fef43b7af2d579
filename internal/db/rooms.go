package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
)

var (
	// ErrNotFound is returned for missing rooms and messages.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when a user acts on something they do not own.
	ErrForbidden = errors.New("forbidden")
)

// CreateRoom inserts a room and its members. An empty ID is generated.
func CreateRoom(db *sql.DB, room types.Room) (types.Room, error) {
	if strings.TrimSpace(room.Name) == "" {
		return types.Room{}, fmt.Errorf("room name cannot be empty")
	}
	if room.ID == "" {
		id, err := core.GenerateGUID("room")
		if err != nil {
			return types.Room{}, err
		}
		room.ID = id
	}
	if room.Type == "" {
		room.Type = types.RoomTypeDirect
	}
	now := time.Now().UnixMilli()

	tx, err := db.Begin()
	if err != nil {
		return types.Room{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO pc_rooms (id, name, type, created_at) VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, string(room.Type), now); err != nil {
		return types.Room{}, err
	}
	for _, member := range room.Participants {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO pc_room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
		`, room.ID, member, now); err != nil {
			return types.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return types.Room{}, err
	}
	return room, nil
}

// AddMember adds userID to a room. Adding an existing member is a no-op.
func AddMember(db *sql.DB, roomID, userID string) error {
	if _, err := getRoomName(db, roomID); err != nil {
		return err
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO pc_room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
	`, roomID, userID, time.Now().UnixMilli())
	return err
}

func getRoomName(db *sql.DB, roomID string) (string, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM pc_rooms WHERE id = ?`, roomID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

// IsMember reports whether userID belongs to roomID.
func IsMember(db *sql.DB, roomID, userID string) (bool, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pc_room_members WHERE room_id = ? AND user_id = ?`, roomID, userID).Scan(&n)
	return n > 0, err
}

// ListRooms returns the rooms userID belongs to with their unread count
// (messages from others newer than the member's read marker) and latest
// message.
func ListRooms(db *sql.DB, userID string) ([]types.RoomSummary, error) {
	rows, err := db.Query(`
		SELECT r.id, r.name, r.type, m.is_pinned, m.is_muted,
		  (SELECT COUNT(*) FROM pc_messages msg
		   WHERE msg.room_id = r.id AND msg.sender_id != m.user_id
		     AND msg.deleted_at IS NULL AND msg.created_at > m.last_read_at)
		FROM pc_rooms r
		JOIN pc_room_members m ON m.room_id = r.id
		WHERE m.user_id = ?
		ORDER BY r.created_at ASC, r.id ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []types.RoomSummary
	for rows.Next() {
		var (
			room          types.RoomSummary
			roomType      string
			pinned, muted int
		)
		if err := rows.Scan(&room.ID, &room.Name, &roomType, &pinned, &muted, &room.UnreadCount); err != nil {
			return nil, err
		}
		room.Type = types.RoomType(roomType)
		room.IsPinned = pinned != 0
		room.IsMuted = muted != 0
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range rooms {
		participants, err := roomParticipants(db, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].Participants = participants
		last, err := latestMessage(db, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		rooms[i].LastMessage = last
	}
	return rooms, nil
}

func roomParticipants(db *sql.DB, roomID string) ([]string, error) {
	rows, err := db.Query(`SELECT user_id FROM pc_room_members WHERE room_id = ? ORDER BY joined_at ASC, user_id ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// MarkRead moves the member's read marker to the room's newest message.
func MarkRead(db *sql.DB, roomID, userID string) error {
	res, err := db.Exec(`
		UPDATE pc_room_members
		SET last_read_at = MAX(last_read_at, COALESCE((SELECT MAX(created_at) FROM pc_messages WHERE room_id = ?), 0))
		WHERE room_id = ? AND user_id = ?
	`, roomID, roomID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
