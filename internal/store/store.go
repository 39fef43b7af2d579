// Package store holds the per-room message collections, their cursors and
// the optimistic ledger. A Store is not safe for concurrent use; the sync
// engine owns it from a single goroutine.
package store

import (
	"sort"

	"github.com/bizportal/portalchat/internal/types"
)

// Epoch is the beforeCursor sentinel meaning "nothing older known".
const Epoch int64 = 0

type roomState struct {
	messages []types.Message
	ids      map[string]struct{}
	since    int64
	before   int64
	hasMore  bool
	loaded   bool
}

// Cursors is a read-only view of a room's pagination bookkeeping.
type Cursors struct {
	Since   int64
	Before  int64
	HasMore bool
	Loaded  bool
}

// Store is an in-memory, per-room ordered collection of messages.
type Store struct {
	rooms map[string]*roomState
}

// New returns an empty store.
func New() *Store {
	return &Store{rooms: make(map[string]*roomState)}
}

func (s *Store) room(roomID string) *roomState {
	rs, ok := s.rooms[roomID]
	if !ok {
		rs = &roomState{ids: make(map[string]struct{})}
		s.rooms[roomID] = rs
	}
	return rs
}

// Loaded reports whether the room has completed its initial fetch.
func (s *Store) Loaded(roomID string) bool {
	rs, ok := s.rooms[roomID]
	return ok && rs.loaded
}

// Len returns the number of messages held for the room.
func (s *Store) Len(roomID string) int {
	rs, ok := s.rooms[roomID]
	if !ok {
		return 0
	}
	return len(rs.messages)
}

// Messages returns a deep copy of the room's messages in display order.
func (s *Store) Messages(roomID string) []types.Message {
	rs, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]types.Message, len(rs.messages))
	for i, msg := range rs.messages {
		out[i] = msg.Clone()
	}
	return out
}

// Message returns a copy of a single message.
func (s *Store) Message(roomID, messageID string) (types.Message, bool) {
	rs, ok := s.rooms[roomID]
	if !ok {
		return types.Message{}, false
	}
	idx := rs.indexOf(messageID)
	if idx < 0 {
		return types.Message{}, false
	}
	return rs.messages[idx].Clone(), true
}

// Locate finds the room holding messageID.
func (s *Store) Locate(messageID string) (string, bool) {
	for roomID, rs := range s.rooms {
		if _, ok := rs.ids[messageID]; ok {
			return roomID, true
		}
	}
	return "", false
}

// Cursors returns the room's cursor state.
func (s *Store) Cursors(roomID string) Cursors {
	rs, ok := s.rooms[roomID]
	if !ok {
		return Cursors{}
	}
	return Cursors{Since: rs.since, Before: rs.before, HasMore: rs.hasMore, Loaded: rs.loaded}
}

// Init installs the result of a room's initial full fetch and sets both
// cursors from it. An empty result leaves the room with since=now,
// before=Epoch and hasMore=false.
func (s *Store) Init(roomID string, batch []types.Message, limit int, hasMore *bool, opts MatchOptions, now int64) Result {
	result := s.Reconcile(roomID, batch, opts)
	rs := s.room(roomID)
	rs.loaded = true
	s.Advance(roomID, result.Valid, now)
	s.ExtendBackward(roomID, result.Valid)
	switch {
	case len(result.Valid) == 0:
		rs.hasMore = false
	case hasMore != nil:
		rs.hasMore = *hasMore
	default:
		rs.hasMore = limit > 0 && len(result.Valid) >= limit
	}
	return result
}

// Clear drops every message held for the room and resets its cursors, as
// "clear chat" does. The room must be fetched again to repopulate.
func (s *Store) Clear(roomID string) {
	delete(s.rooms, roomID)
}

func (rs *roomState) indexOf(messageID string) int {
	if _, ok := rs.ids[messageID]; !ok {
		return -1
	}
	for i := range rs.messages {
		if rs.messages[i].ID == messageID {
			return i
		}
	}
	return -1
}

func (rs *roomState) insert(msg types.Message) {
	rs.messages = append(rs.messages, msg)
	rs.ids[msg.ID] = struct{}{}
}

func (rs *roomState) removeAt(idx int) types.Message {
	msg := rs.messages[idx]
	rs.messages = append(rs.messages[:idx], rs.messages[idx+1:]...)
	delete(rs.ids, msg.ID)
	return msg
}

// sortStable orders by createdAt, keeping prior order for equal timestamps.
func (rs *roomState) sortStable() {
	sort.SliceStable(rs.messages, func(i, j int) bool {
		return rs.messages[i].CreatedAt < rs.messages[j].CreatedAt
	})
}
