package db

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

// ToggleReaction applies symbol for userID on a message. A user holds at
// most one reaction per message: a different symbol replaces the previous
// one and the same symbol removes it. It returns the symbol now active for
// the user, or "" when the reaction was removed.
func ToggleReaction(db *sql.DB, messageID, userID, symbol string) (string, error) {
	msg, err := GetMessage(db, messageID)
	if err != nil {
		return "", err
	}
	if msg.IsDeleted {
		return "", ErrNotFound
	}

	var current string
	err = db.QueryRow(`SELECT symbol FROM pc_reactions WHERE message_id = ? AND user_id = ?`, messageID, userID).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return "", err
	case current == symbol:
		_, err := db.Exec(`DELETE FROM pc_reactions WHERE message_id = ? AND user_id = ?`, messageID, userID)
		return "", err
	}

	_, err = db.Exec(`
		INSERT INTO pc_reactions (message_id, user_id, symbol, reacted_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(message_id, user_id) DO UPDATE SET symbol = excluded.symbol, reacted_at = excluded.reacted_at
	`, messageID, userID, symbol, time.Now().UnixMilli())
	if err != nil {
		return "", err
	}
	return symbol, nil
}

// GetReactionsForMessages loads reactions for multiple messages, keyed by
// message id then symbol, reactors in reaction order.
func GetReactionsForMessages(db *sql.DB, messageIDs []string) (map[string]map[string][]string, error) {
	result := make(map[string]map[string][]string)
	if len(messageIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(messageIDs))
	args := make([]any, len(messageIDs))
	for i, id := range messageIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := db.Query(`
		SELECT message_id, symbol, user_id
		FROM pc_reactions
		WHERE message_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY reacted_at ASC, rowid ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var messageID, symbol, userID string
		if err := rows.Scan(&messageID, &symbol, &userID); err != nil {
			return nil, err
		}
		if result[messageID] == nil {
			result[messageID] = make(map[string][]string)
		}
		result[messageID][symbol] = append(result[messageID][symbol], userID)
	}
	return result, rows.Err()
}

func loadReactionsForMessages(db *sql.DB, messages []types.Message) error {
	if len(messages) == 0 {
		return nil
	}
	ids := make([]string, len(messages))
	for i, msg := range messages {
		ids[i] = msg.ID
	}
	reactions, err := GetReactionsForMessages(db, ids)
	if err != nil {
		return err
	}
	for i := range messages {
		if r, ok := reactions[messages[i].ID]; ok {
			messages[i].Reactions = r
		}
	}
	return nil
}
