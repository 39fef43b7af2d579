package chatsync

import (
	"context"
	"fmt"

	"github.com/bizportal/portalchat/internal/types"
)

// LoadOlder fetches the page of history before the oldest held message and
// prepends it. It is a no-op returning the current HasMore when the room is
// empty, exhausted, or already loading a page. On error HasMore is left as
// it was so the caller may retry.
func (e *Engine) LoadOlder(ctx context.Context, roomID string) (types.Page, error) {
	var (
		noop    bool
		hasMore bool
		before  int64
		epoch   uint64
		err     error
	)
	if callErr := e.call(func() {
		if !e.rooms.Has(roomID) {
			err = ErrUnknownRoom
			return
		}
		cursors := e.store.Cursors(roomID)
		hasMore = cursors.HasMore
		if !cursors.Loaded || e.store.Len(roomID) == 0 || !cursors.HasMore || e.loading[roomID] {
			noop = true
			return
		}
		e.loading[roomID] = true
		before = cursors.Before
		epoch = e.clears[roomID]
	}); callErr != nil {
		return types.Page{}, callErr
	}
	if err != nil {
		return types.Page{}, err
	}
	if noop {
		return types.Page{HasMore: hasMore}, nil
	}

	fetched, fetchErr := e.backend.FetchMessages(ctx, roomID, types.FetchOptions{Before: before, Limit: e.cfg.PageSize})

	var page types.Page
	if callErr := e.call(func() {
		delete(e.loading, roomID)
		if fetchErr != nil {
			e.metrics.PollError()
			return
		}
		e.metrics.Poll("older")
		if e.clears[roomID] != epoch || !e.store.Loaded(roomID) {
			page.HasMore = e.store.Cursors(roomID).HasMore
			return
		}
		result := e.store.MergeOlder(roomID, fetched.Messages)
		e.store.ExtendBackward(roomID, result.Valid)
		switch {
		case len(result.Valid) == 0:
			page.HasMore = false
		case fetched.HasMore != nil:
			page.HasMore = *fetched.HasMore
		default:
			page.HasMore = len(fetched.Messages) >= e.cfg.PageSize
		}
		e.store.SetHasMore(roomID, page.HasMore)
		e.logMalformed(roomID, result)
		e.metrics.Merged(len(result.Added))
		page.Messages = result.Added
		e.publish(Event{Kind: EventMessages, RoomID: roomID, Older: true})
	}); callErr != nil {
		return types.Page{}, callErr
	}
	if fetchErr != nil {
		e.log.Warn("load older failed", "room", roomID, "error", fetchErr)
		return types.Page{}, fmt.Errorf("load older %s: %w", roomID, fetchErr)
	}
	return page, nil
}
