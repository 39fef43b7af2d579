package store

import (
	"sort"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

// DefaultMatchWindow bounds how far apart an optimistic entry and its server
// echo may be timestamped and still be considered the same message.
const DefaultMatchWindow = 60 * time.Second

// MatchOptions controls how confirmed messages retire optimistic entries.
type MatchOptions struct {
	// Window is the maximum createdAt distance for a heuristic match.
	// Zero means DefaultMatchWindow.
	Window time.Duration
	// LocalIDs are the sender ids that denote the local user, typically
	// types.LocalSender plus the real account id.
	LocalIDs []string
}

// Result describes what a merge did to a room.
type Result struct {
	// Valid is the sanitized batch, duplicates included.
	Valid []types.Message
	// Added are the confirmed messages inserted into the room.
	Added []types.Message
	// Replaced are the ids of optimistic entries retired by the batch.
	Replaced []string
	// Duplicates counts confirmed messages dropped because their id was known.
	Duplicates int
	// Malformed counts entries dropped by Sanitize.
	Malformed int
}

// Sanitize drops entries a room cannot hold: missing ids, missing
// timestamps, optimistic ids from the server, or another room's messages.
func Sanitize(roomID string, batch []types.Message) ([]types.Message, int) {
	valid := make([]types.Message, 0, len(batch))
	dropped := 0
	for _, msg := range batch {
		if msg.ID == "" || msg.CreatedAt <= 0 || strings.HasPrefix(msg.ID, types.OptimisticPrefix) {
			dropped++
			continue
		}
		if msg.RoomID == "" {
			msg.RoomID = roomID
		} else if msg.RoomID != roomID {
			dropped++
			continue
		}
		msg.Status = types.MessageStatusConfirmed
		if msg.IsDeleted {
			msg.Body = ""
			msg.Attachment = nil
			msg.Reactions = nil
		}
		valid = append(valid, msg)
	}
	return valid, dropped
}

// Reconcile merges a batch of confirmed messages into the room. Each
// confirmed message first retires at most one optimistic entry it
// supersedes, then is dropped if its id is already present, otherwise
// inserted; the room is finally re-sorted by createdAt. Applying the same
// batch twice leaves the room as applying it once.
func (s *Store) Reconcile(roomID string, batch []types.Message, opts MatchOptions) Result {
	valid, malformed := Sanitize(roomID, batch)
	result := Result{Valid: valid, Malformed: malformed}
	if len(valid) == 0 {
		return result
	}
	rs := s.room(roomID)
	window := opts.Window
	if window <= 0 {
		window = DefaultMatchWindow
	}

	for _, confirmed := range valid {
		if _, known := rs.ids[confirmed.ID]; known {
			// A poll may have stored the copy before the send answered; the
			// exact correlation still retires the optimistic entry.
			if idx := rs.matchClientID(confirmed.ClientID); idx >= 0 {
				retired := rs.removeAt(idx)
				result.Replaced = append(result.Replaced, retired.ID)
			}
			result.Duplicates++
			continue
		}
		if idx := rs.matchOptimistic(confirmed, window, opts.LocalIDs); idx >= 0 {
			retired := rs.removeAt(idx)
			result.Replaced = append(result.Replaced, retired.ID)
		}
		rs.insert(confirmed.Clone())
		result.Added = append(result.Added, confirmed.Clone())
	}
	if len(result.Added) > 0 {
		rs.sortStable()
	}
	return result
}

// MergeOlder inserts a page of older history before the current earliest
// message, dropping ids already present.
func (s *Store) MergeOlder(roomID string, batch []types.Message) Result {
	valid, malformed := Sanitize(roomID, batch)
	result := Result{Valid: valid, Malformed: malformed}
	if len(valid) == 0 {
		return result
	}
	rs := s.room(roomID)
	older := make([]types.Message, 0, len(valid))
	for _, msg := range valid {
		if _, known := rs.ids[msg.ID]; known {
			result.Duplicates++
			continue
		}
		rs.ids[msg.ID] = struct{}{}
		older = append(older, msg.Clone())
	}
	if len(older) == 0 {
		return result
	}
	sort.SliceStable(older, func(i, j int) bool {
		return older[i].CreatedAt < older[j].CreatedAt
	})
	result.Added = older
	merged := make([]types.Message, 0, len(older)+len(rs.messages))
	merged = append(merged, older...)
	merged = append(merged, rs.messages...)
	rs.messages = merged
	rs.sortStable()
	return result
}

// matchOptimistic returns the index of the optimistic entry superseded by
// confirmed, or -1. An echoed client id is an exact match; otherwise sender,
// body and a createdAt window decide.
func (rs *roomState) matchOptimistic(confirmed types.Message, window time.Duration, localIDs []string) int {
	if idx := rs.matchClientID(confirmed.ClientID); idx >= 0 {
		return idx
	}
	limit := window.Milliseconds()
	for i := range rs.messages {
		candidate := rs.messages[i]
		if !candidate.IsOptimistic() {
			continue
		}
		if !sameSender(candidate.SenderID, confirmed.SenderID, localIDs) {
			continue
		}
		if !equivalentBody(candidate, confirmed) {
			continue
		}
		delta := confirmed.CreatedAt - candidate.CreatedAt
		if delta < 0 {
			delta = -delta
		}
		if delta < limit {
			return i
		}
	}
	return -1
}

// matchClientID returns the optimistic entry carrying clientID, or -1.
func (rs *roomState) matchClientID(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i := range rs.messages {
		if rs.messages[i].IsOptimistic() && rs.messages[i].ClientID == clientID {
			return i
		}
	}
	return -1
}

func sameSender(a, b string, localIDs []string) bool {
	if a == b {
		return true
	}
	return isLocal(a, localIDs) && isLocal(b, localIDs)
}

func isLocal(id string, localIDs []string) bool {
	if id == types.LocalSender {
		return true
	}
	for _, local := range localIDs {
		if local != "" && id == local {
			return true
		}
	}
	return false
}

func equivalentBody(a, b types.Message) bool {
	if normalizeBody(a.Body) != normalizeBody(b.Body) {
		return false
	}
	switch {
	case a.Attachment == nil && b.Attachment == nil:
		return true
	case a.Attachment == nil || b.Attachment == nil:
		return false
	case a.Attachment.URL != "" && b.Attachment.URL != "":
		return a.Attachment.URL == b.Attachment.URL
	default:
		return a.Attachment.Name == b.Attachment.Name && a.Attachment.Size == b.Attachment.Size
	}
}

func normalizeBody(body string) string {
	return strings.Join(strings.Fields(body), " ")
}
