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

// messageColumns is the explicit column list for SELECT queries.
const messageColumns = `id, room_id, sender_id, body, attachment_url, attachment_name, attachment_size, created_at, edited_at, deleted_at, client_id`

// CreateMessage stores a message for its sender. createdAt is assigned here
// and is strictly greater than every earlier createdAt in the room, so an
// exclusive since cursor never skips a message. A repeated client id from
// the same sender returns the stored message instead of a duplicate.
func CreateMessage(db *sql.DB, message types.Message) (types.Message, error) {
	if strings.TrimSpace(message.Body) == "" && message.Attachment == nil {
		return types.Message{}, fmt.Errorf("message body cannot be empty")
	}
	if message.SenderID == "" {
		return types.Message{}, fmt.Errorf("message sender cannot be empty")
	}
	if message.ClientID != "" {
		existing, err := messageByClientID(db, message.RoomID, message.SenderID, message.ClientID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return types.Message{}, err
		}
	}
	if _, err := getRoomName(db, message.RoomID); err != nil {
		return types.Message{}, err
	}

	id, err := core.GenerateGUID("msg")
	if err != nil {
		return types.Message{}, err
	}

	tx, err := db.Begin()
	if err != nil {
		return types.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var latest int64
	if err := tx.QueryRow(`SELECT COALESCE(MAX(created_at), 0) FROM pc_messages WHERE room_id = ?`, message.RoomID).Scan(&latest); err != nil {
		return types.Message{}, err
	}
	createdAt := message.CreatedAt
	if createdAt <= 0 {
		createdAt = time.Now().UnixMilli()
	}
	if createdAt <= latest {
		createdAt = latest + 1
	}

	var attURL, attName sql.NullString
	var attSize sql.NullInt64
	if att := message.Attachment; att != nil {
		attURL = sql.NullString{String: att.URL, Valid: true}
		attName = sql.NullString{String: att.Name, Valid: true}
		attSize = sql.NullInt64{Int64: att.Size, Valid: true}
	}
	var clientID sql.NullString
	if message.ClientID != "" {
		clientID = sql.NullString{String: message.ClientID, Valid: true}
	}

	if _, err := tx.Exec(`
		INSERT INTO pc_messages (id, room_id, sender_id, body, attachment_url, attachment_name, attachment_size, created_at, client_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, message.RoomID, message.SenderID, message.Body, attURL, attName, attSize, createdAt, clientID); err != nil {
		return types.Message{}, err
	}
	if err := tx.Commit(); err != nil {
		return types.Message{}, err
	}

	out := types.Message{
		ID:        id,
		RoomID:    message.RoomID,
		SenderID:  message.SenderID,
		Body:      message.Body,
		CreatedAt: createdAt,
		Status:    types.MessageStatusConfirmed,
		ClientID:  message.ClientID,
	}
	if message.Attachment != nil {
		att := *message.Attachment
		out.Attachment = &att
	}
	return out, nil
}

// GetMessage returns a single message with its reactions.
func GetMessage(db *sql.DB, messageID string) (types.Message, error) {
	rows, err := db.Query(`SELECT `+messageColumns+` FROM pc_messages WHERE id = ?`, messageID)
	if err != nil {
		return types.Message{}, err
	}
	defer rows.Close()
	messages, err := scanMessagesWithReactions(db, rows)
	if err != nil {
		return types.Message{}, err
	}
	if len(messages) == 0 {
		return types.Message{}, ErrNotFound
	}
	return messages[0], nil
}

func messageByClientID(db *sql.DB, roomID, senderID, clientID string) (types.Message, error) {
	rows, err := db.Query(`SELECT `+messageColumns+` FROM pc_messages WHERE room_id = ? AND sender_id = ? AND client_id = ?`,
		roomID, senderID, clientID)
	if err != nil {
		return types.Message{}, err
	}
	defer rows.Close()
	messages, err := scanMessagesWithReactions(db, rows)
	if err != nil {
		return types.Message{}, err
	}
	if len(messages) == 0 {
		return types.Message{}, ErrNotFound
	}
	return messages[0], nil
}

func latestMessage(db *sql.DB, roomID string) (*types.Message, error) {
	messages, _, err := GetMessages(db, roomID, types.FetchOptions{Limit: 1})
	if err != nil || len(messages) == 0 {
		return nil, err
	}
	return &messages[0], nil
}

// GetMessages returns messages in chronological order. Since and Before are
// exclusive; without either, the latest Limit messages are returned. The
// boolean reports whether older messages remain before the returned window;
// it is only meaningful for Before and latest queries.
func GetMessages(db *sql.DB, roomID string, opts types.FetchOptions) ([]types.Message, bool, error) {
	if opts.Since > 0 {
		query := `SELECT ` + messageColumns + ` FROM pc_messages WHERE room_id = ? AND created_at > ? ORDER BY created_at ASC, id ASC`
		params := []any{roomID, opts.Since}
		if opts.Limit > 0 {
			query += ` LIMIT ?`
			params = append(params, opts.Limit)
		}
		rows, err := db.Query(query, params...)
		if err != nil {
			return nil, false, err
		}
		defer rows.Close()
		messages, err := scanMessagesWithReactions(db, rows)
		return messages, false, err
	}

	conditions := []string{"room_id = ?"}
	params := []any{roomID}
	if opts.Before > 0 {
		conditions = append(conditions, "created_at < ?")
		params = append(params, opts.Before)
	}
	query := `SELECT ` + messageColumns + ` FROM pc_messages WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC, id DESC`
	if opts.Limit > 0 {
		// One extra row tells whether older history remains.
		query += ` LIMIT ?`
		params = append(params, opts.Limit+1)
	}
	query = `SELECT ` + messageColumns + ` FROM (` + query + `) ORDER BY created_at ASC, id ASC`

	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()
	messages, err := scanMessagesWithReactions(db, rows)
	if err != nil {
		return nil, false, err
	}
	hasMore := false
	if opts.Limit > 0 && len(messages) > opts.Limit {
		hasMore = true
		messages = messages[1:]
	}
	return messages, hasMore, nil
}

// DeleteMessage soft-deletes a message owned by userID: its body,
// attachment and reactions are cleared and the row is kept.
func DeleteMessage(db *sql.DB, messageID, userID string) error {
	msg, err := GetMessage(db, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return ErrForbidden
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`
		UPDATE pc_messages
		SET body = '', attachment_url = NULL, attachment_name = NULL, attachment_size = NULL,
		    deleted_at = COALESCE(deleted_at, ?)
		WHERE id = ?
	`, time.Now().UnixMilli(), messageID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM pc_reactions WHERE message_id = ?`, messageID); err != nil {
		return err
	}
	return tx.Commit()
}

// EditMessage replaces the body of a message owned by userID.
func EditMessage(db *sql.DB, messageID, userID, body string) (types.Message, error) {
	if strings.TrimSpace(body) == "" {
		return types.Message{}, fmt.Errorf("message body cannot be empty")
	}
	msg, err := GetMessage(db, messageID)
	if err != nil {
		return types.Message{}, err
	}
	if msg.SenderID != userID {
		return types.Message{}, ErrForbidden
	}
	if msg.IsDeleted {
		return types.Message{}, ErrNotFound
	}
	editedAt := time.Now().UnixMilli()
	if _, err := db.Exec(`UPDATE pc_messages SET body = ?, edited_at = ? WHERE id = ?`, body, editedAt, messageID); err != nil {
		return types.Message{}, err
	}
	msg.Body = body
	msg.EditedAt = &editedAt
	return msg, nil
}

// scanMessagesWithReactions scans messages from rows and loads their reactions.
func scanMessagesWithReactions(db *sql.DB, rows *sql.Rows) ([]types.Message, error) {
	messages, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if err := loadReactionsForMessages(db, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func scanMessages(rows *sql.Rows) ([]types.Message, error) {
	var messages []types.Message
	for rows.Next() {
		var (
			msg               types.Message
			attURL, attName   sql.NullString
			attSize           sql.NullInt64
			editedAt, deleted sql.NullInt64
			clientID          sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.Body, &attURL, &attName, &attSize,
			&msg.CreatedAt, &editedAt, &deleted, &clientID); err != nil {
			return nil, err
		}
		msg.Status = types.MessageStatusConfirmed
		if attURL.Valid || attName.Valid {
			msg.Attachment = &types.Attachment{URL: attURL.String, Name: attName.String, Size: attSize.Int64}
		}
		if editedAt.Valid {
			ts := editedAt.Int64
			msg.EditedAt = &ts
		}
		msg.IsDeleted = deleted.Valid
		msg.ClientID = clientID.String
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}
