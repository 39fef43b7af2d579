package chatsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/bizportal/portalchat/internal/types"
)

// Send posts a draft to the active room. See SendTo.
func (e *Engine) Send(draft types.Draft) (types.Message, error) {
	var roomID string
	if err := e.call(func() { roomID = e.rooms.Active() }); err != nil {
		return types.Message{}, err
	}
	if roomID == "" {
		return types.Message{}, ErrNoActiveRoom
	}
	return e.SendTo(roomID, draft)
}

// SendTo appends an optimistic message for draft and returns it at once.
// The backend call runs in the background: on success the confirmed echo
// replaces the optimistic entry and the room is nudged; on failure the entry
// is discarded and EventSendFailed is published.
func (e *Engine) SendTo(roomID string, draft types.Draft) (types.Message, error) {
	if draft.Empty() {
		return types.Message{}, ErrEmptyDraft
	}
	var (
		msg types.Message
		err error
	)
	if callErr := e.call(func() {
		if !e.rooms.Has(roomID) {
			err = ErrUnknownRoom
			return
		}
		msg = e.store.Propose(roomID, draft, types.LocalSender, e.nowMs())
		e.metrics.Optimistic("proposed", 1)
		e.rooms.Touch(roomID, msg)
		e.publish(Event{Kind: EventMessages, RoomID: roomID})
		if roomID == e.rooms.Active() {
			e.publish(Event{Kind: EventScrollToBottom, RoomID: roomID})
		}
		e.goBackground(func(ctx context.Context) { e.deliver(ctx, roomID, draft, msg) })
	}); callErr != nil {
		return types.Message{}, callErr
	}
	return msg, err
}

func (e *Engine) deliver(ctx context.Context, roomID string, draft types.Draft, pending types.Message) {
	confirmed, err := e.backend.SendMessage(ctx, roomID, draft, pending.ClientID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.log.Warn("send failed", "room", roomID, "id", pending.ID, "error", err)
		_ = e.do(func() {
			e.metrics.SendFailure()
			if e.store.Discard(roomID, pending.ID) {
				e.metrics.Optimistic("discarded", 1)
			}
			failed := pending
			e.publish(Event{Kind: EventSendFailed, RoomID: roomID, Message: &failed, Err: err})
			e.publish(Event{Kind: EventMessages, RoomID: roomID})
		})
		return
	}
	_ = e.do(func() {
		if confirmed != nil {
			echo := *confirmed
			if echo.ClientID == "" {
				// The response answers this request, so it correlates exactly.
				echo.ClientID = pending.ClientID
			}
			// The echo is merged but sinceCursor is left to the next poll so
			// messages written before it are not skipped.
			result := e.store.Reconcile(roomID, []types.Message{echo}, e.matchOptions())
			e.metrics.Merged(len(result.Added))
			e.metrics.Optimistic("matched", len(result.Replaced))
			if len(result.Added) > 0 || len(result.Replaced) > 0 {
				e.publish(Event{Kind: EventMessages, RoomID: roomID})
			}
		}
		e.nudge(roomID)
	})
}

// locate finds a confirmed message by id; it must run on the state goroutine.
func (e *Engine) locate(messageID string) (string, types.Message, error) {
	roomID, ok := e.store.Locate(messageID)
	if !ok {
		return "", types.Message{}, ErrNotFound
	}
	msg, _ := e.store.Message(roomID, messageID)
	if msg.IsOptimistic() {
		return "", types.Message{}, ErrPending
	}
	return roomID, msg, nil
}

// React toggles the local user's reaction on a message and returns the
// symbol now active for them, or "" if the reaction was removed.
func (e *Engine) React(ctx context.Context, messageID, symbol string) (string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", fmt.Errorf("react: empty reaction")
	}
	var (
		roomID string
		err    error
	)
	if callErr := e.call(func() { roomID, _, err = e.locate(messageID) }); callErr != nil {
		return "", callErr
	}
	if err != nil {
		return "", err
	}
	if err := e.backend.AddReaction(ctx, messageID, symbol); err != nil {
		return "", fmt.Errorf("react: %w", err)
	}
	var active string
	if callErr := e.call(func() {
		active, _ = e.store.ApplyReaction(roomID, messageID, e.reactor(), symbol)
		e.publish(Event{Kind: EventMessages, RoomID: roomID})
	}); callErr != nil {
		return "", callErr
	}
	return active, nil
}

// Delete soft-deletes a message.
func (e *Engine) Delete(ctx context.Context, messageID string) error {
	var (
		roomID string
		err    error
	)
	if callErr := e.call(func() { roomID, _, err = e.locate(messageID) }); callErr != nil {
		return callErr
	}
	if err != nil {
		return err
	}
	if err := e.backend.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return e.call(func() {
		if e.store.ApplyDelete(roomID, messageID) {
			e.publish(Event{Kind: EventMessages, RoomID: roomID})
		}
	})
}

// Edit replaces a message body. Ownership is enforced by the backend.
func (e *Engine) Edit(ctx context.Context, messageID, body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyDraft
	}
	var (
		roomID string
		msg    types.Message
		err    error
	)
	if callErr := e.call(func() { roomID, msg, err = e.locate(messageID) }); callErr != nil {
		return callErr
	}
	if err != nil {
		return err
	}
	if msg.IsDeleted {
		return ErrNotFound
	}
	if err := e.backend.EditMessage(ctx, messageID, body); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	return e.call(func() {
		if e.store.ApplyEdit(roomID, messageID, body, e.nowMs()) {
			e.publish(Event{Kind: EventMessages, RoomID: roomID})
		}
	})
}
