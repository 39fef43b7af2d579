package store

import "sort"

// ApplyReaction toggles symbol for reactor on a message. A reactor holds at
// most one reaction per message: choosing a new symbol clears the previous
// one, choosing the same symbol again removes it. It returns the symbol now
// active for the reactor ("" if none) and whether the message was found.
func (s *Store) ApplyReaction(roomID, messageID, reactor, symbol string) (string, bool) {
	rs, ok := s.rooms[roomID]
	if !ok {
		return "", false
	}
	idx := rs.indexOf(messageID)
	if idx < 0 {
		return "", false
	}
	msg := &rs.messages[idx]
	if msg.IsDeleted {
		return "", true
	}

	previous := ""
	for existing, reactors := range msg.Reactions {
		for i, id := range reactors {
			if id != reactor {
				continue
			}
			previous = existing
			remaining := append(append([]string(nil), reactors[:i]...), reactors[i+1:]...)
			if len(remaining) == 0 {
				delete(msg.Reactions, existing)
			} else {
				msg.Reactions[existing] = remaining
			}
			break
		}
	}
	if previous == symbol {
		return "", true
	}
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]string)
	}
	msg.Reactions[symbol] = append(msg.Reactions[symbol], reactor)
	return symbol, true
}

// ApplyDelete soft-deletes a message: body, attachment and reactions are
// cleared, the id is kept.
func (s *Store) ApplyDelete(roomID, messageID string) bool {
	rs, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	idx := rs.indexOf(messageID)
	if idx < 0 {
		return false
	}
	msg := &rs.messages[idx]
	msg.IsDeleted = true
	msg.Body = ""
	msg.Attachment = nil
	msg.Reactions = nil
	return true
}

// ApplyEdit replaces a message body and stamps editedAt.
func (s *Store) ApplyEdit(roomID, messageID, body string, editedAt int64) bool {
	rs, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	idx := rs.indexOf(messageID)
	if idx < 0 || rs.messages[idx].IsDeleted {
		return false
	}
	msg := &rs.messages[idx]
	msg.Body = body
	msg.EditedAt = &editedAt
	return true
}

// ReactionSymbols returns a message's reaction symbols in a stable order.
func ReactionSymbols(reactions map[string][]string) []string {
	symbols := make([]string, 0, len(reactions))
	for symbol := range reactions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
