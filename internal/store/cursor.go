package store

import "github.com/bizportal/portalchat/internal/types"

// Advance moves sinceCursor forward to the newest createdAt in batch, or to
// now when the batch is empty so an idle room stops re-scanning its history.
// It never moves the cursor backward.
func (s *Store) Advance(roomID string, batch []types.Message, now int64) {
	rs := s.room(roomID)
	target := now
	if len(batch) > 0 {
		target = rs.since
		for _, msg := range batch {
			if msg.CreatedAt > target {
				target = msg.CreatedAt
			}
		}
	}
	if target > rs.since {
		rs.since = target
	}
}

// ExtendBackward moves beforeCursor back to the oldest createdAt in batch.
// An Epoch cursor is undefined and takes the batch minimum directly; a
// defined cursor never moves forward.
func (s *Store) ExtendBackward(roomID string, batch []types.Message) {
	if len(batch) == 0 {
		return
	}
	rs := s.room(roomID)
	oldest := batch[0].CreatedAt
	for _, msg := range batch[1:] {
		if msg.CreatedAt < oldest {
			oldest = msg.CreatedAt
		}
	}
	if rs.before == Epoch || oldest < rs.before {
		rs.before = oldest
	}
}

// SetHasMore records whether older history remains on the server.
func (s *Store) SetHasMore(roomID string, hasMore bool) {
	s.room(roomID).hasMore = hasMore
}
