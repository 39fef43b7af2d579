package store

import (
	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
)

// Propose appends an optimistic message for a local draft and returns it.
// Every call creates a distinct entry; concurrent sends are never merged.
func (s *Store) Propose(roomID string, draft types.Draft, sender string, now int64) types.Message {
	rs := s.room(roomID)
	createdAt := now
	if n := len(rs.messages); n > 0 && rs.messages[n-1].CreatedAt > createdAt {
		// Keep the tail ordered even if the server clock runs ahead of ours.
		createdAt = rs.messages[n-1].CreatedAt
	}
	msg := types.Message{
		ID:        core.NewOptimisticID(),
		RoomID:    roomID,
		SenderID:  sender,
		Body:      draft.Body,
		CreatedAt: createdAt,
		Status:    types.MessageStatusOptimistic,
		ClientID:  core.NewClientID(),
	}
	if draft.Attachment != nil {
		att := *draft.Attachment
		msg.Attachment = &att
	}
	rs.insert(msg)
	return msg.Clone()
}

// Discard removes a specific optimistic entry, e.g. after its send failed.
// Confirmed messages are never removed this way.
func (s *Store) Discard(roomID, messageID string) bool {
	rs, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	idx := rs.indexOf(messageID)
	if idx < 0 || !rs.messages[idx].IsOptimistic() {
		return false
	}
	rs.removeAt(idx)
	return true
}

// Pending returns the room's optimistic entries in order.
func (s *Store) Pending(roomID string) []types.Message {
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	var out []types.Message
	for _, msg := range rs.messages {
		if msg.IsOptimistic() {
			out = append(out, msg.Clone())
		}
	}
	return out
}
