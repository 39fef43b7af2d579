package chatsync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bizportal/portalchat/internal/store"
	"github.com/bizportal/portalchat/internal/types"
)

type pollKind string

const (
	pollInitial pollKind = "initial"
	pollDelta   pollKind = "delta"
	pollPeek    pollKind = "peek"
)

// poller is one room's loop. gen identifies the loop instance; results
// carrying an older generation are discarded.
type poller struct {
	roomID   string
	gen      uint64
	cancel   context.CancelFunc
	nudge    chan struct{}
	inFlight atomic.Bool
}

type pollPlan struct {
	kind      pollKind
	opts      types.FetchOptions
	startedAt int64
}

// syncPollers starts and stops loops so exactly the rooms that should poll
// in the current mode do.
func (e *Engine) syncPollers() {
	for roomID := range e.pollers {
		if !e.rooms.ShouldPoll(roomID) {
			e.stopPoller(roomID)
		}
	}
	for _, roomID := range e.rooms.Polled() {
		e.startPoller(roomID)
	}
}

func (e *Engine) startPoller(roomID string) {
	if _, ok := e.pollers[roomID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.nextGen++
	p := &poller{
		roomID: roomID,
		gen:    e.nextGen,
		cancel: cancel,
		nudge:  make(chan struct{}, 1),
	}
	e.pollers[roomID] = p
	e.metrics.PollLoops(1)
	e.wg.Add(1)
	go e.pollLoop(ctx, p)
}

func (e *Engine) stopPoller(roomID string) {
	p, ok := e.pollers[roomID]
	if !ok {
		return
	}
	p.cancel()
	delete(e.pollers, roomID)
	e.metrics.PollLoops(-1)
}

func (e *Engine) restartPoller(roomID string) {
	e.stopPoller(roomID)
	if e.rooms.ShouldPoll(roomID) {
		e.startPoller(roomID)
	}
}

// Nudge asks a room's loop to poll now. A nudge that lands while a fetch is
// in flight is skipped like any other tick.
func (e *Engine) Nudge(roomID string) error {
	return e.do(func() { e.nudge(roomID) })
}

// NudgeAll nudges every running loop.
func (e *Engine) NudgeAll() error {
	return e.do(func() {
		for roomID := range e.pollers {
			e.nudge(roomID)
		}
	})
}

func (e *Engine) nudge(roomID string) {
	p, ok := e.pollers[roomID]
	if !ok {
		return
	}
	select {
	case p.nudge <- struct{}{}:
	default:
	}
}

func (e *Engine) pollLoop(ctx context.Context, p *poller) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	e.tick(ctx, p)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, p)
		case <-p.nudge:
			e.tick(ctx, p)
		}
	}
}

// tick starts a fetch unless one is already in flight for the room.
func (e *Engine) tick(ctx context.Context, p *poller) {
	if !p.inFlight.CompareAndSwap(false, true) {
		e.metrics.SkippedTick()
		e.log.Debug("poll skipped; previous fetch in flight", "room", p.roomID)
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer p.inFlight.Store(false)
		e.poll(ctx, p)
	}()
}

func (e *Engine) poll(ctx context.Context, p *poller) {
	var plan pollPlan
	if err := e.call(func() { plan = e.planPoll(p) }); err != nil || plan.kind == "" {
		return
	}

	result, err := e.backend.FetchMessages(ctx, p.roomID, plan.opts)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		e.metrics.PollError()
		e.log.Warn("poll failed", "room", p.roomID, "kind", plan.kind, "error", err)
		return
	}
	e.metrics.Poll(string(plan.kind))

	// Delivery is synchronous so the in-flight guard covers the merge too.
	_ = e.call(func() { e.applyPoll(p.roomID, p.gen, plan, result) })
}

// planPoll decides what the next fetch for a room is.
func (e *Engine) planPoll(p *poller) pollPlan {
	if cur, ok := e.pollers[p.roomID]; !ok || cur.gen != p.gen || !e.rooms.Has(p.roomID) {
		return pollPlan{}
	}
	plan := pollPlan{startedAt: e.nowMs()}
	switch {
	case e.store.Loaded(p.roomID):
		plan.kind = pollDelta
		plan.opts = types.FetchOptions{Since: e.store.Cursors(p.roomID).Since}
	case p.roomID == e.rooms.Active():
		plan.kind = pollInitial
		plan.opts = types.FetchOptions{Limit: e.cfg.InitialLimit}
	default:
		plan.kind = pollPeek
		plan.opts = types.FetchOptions{Since: e.peekCursor(p.roomID), Limit: e.cfg.PeekLimit}
	}
	return plan
}

// peekCursor starts at the room's last known activity, or at engine start
// so history that predates the session is not counted as new.
func (e *Engine) peekCursor(roomID string) int64 {
	if cursor, ok := e.peeks[roomID]; ok {
		return cursor
	}
	cursor := e.startedAt
	if room, ok := e.rooms.Room(roomID); ok && room.LastActivity > 0 {
		cursor = room.LastActivity
	}
	e.peeks[roomID] = cursor
	return cursor
}

func (e *Engine) applyPoll(roomID string, gen uint64, plan pollPlan, fetched types.FetchResult) {
	if cur, ok := e.pollers[roomID]; !ok || cur.gen != gen {
		e.log.Debug("discarding stale poll result", "room", roomID, "kind", plan.kind)
		return
	}

	loaded := e.store.Loaded(roomID)
	switch {
	case plan.kind == pollPeek && loaded:
		return
	case plan.kind == pollPeek:
		e.applyPeek(roomID, plan, fetched)
	case plan.kind == pollInitial && !loaded:
		result := e.store.Init(roomID, fetched.Messages, plan.opts.Limit, fetched.HasMore, e.matchOptions(), plan.startedAt)
		delete(e.peeks, roomID)
		e.logMalformed(roomID, result)
		e.handleArrivals(roomID, result, true)
	default:
		result := e.store.Reconcile(roomID, fetched.Messages, e.matchOptions())
		e.store.Advance(roomID, result.Valid, plan.startedAt)
		e.logMalformed(roomID, result)
		e.handleArrivals(roomID, result, false)
	}
}

// applyPeek updates only the badge of a room that was never loaded.
func (e *Engine) applyPeek(roomID string, plan pollPlan, fetched types.FetchResult) {
	valid, _ := store.Sanitize(roomID, fetched.Messages)
	cursor := e.peeks[roomID]
	next := cursor
	var fresh []types.Message
	for _, msg := range valid {
		if msg.CreatedAt <= cursor {
			continue
		}
		if msg.CreatedAt > next {
			next = msg.CreatedAt
		}
		fresh = append(fresh, msg)
	}
	if len(valid) == 0 && plan.startedAt > next {
		next = plan.startedAt
	}
	e.peeks[roomID] = next
	if len(fresh) == 0 {
		return
	}
	e.rooms.Touch(roomID, fresh[len(fresh)-1])
	e.raiseBadge(roomID, fresh)
	e.publish(Event{Kind: EventRooms, RoomID: roomID})
}

// handleArrivals publishes the consequences of a merge: repaint, scroll the
// active room, or badge a background one.
func (e *Engine) handleArrivals(roomID string, result store.Result, initial bool) {
	e.metrics.Merged(len(result.Added))
	e.metrics.Optimistic("matched", len(result.Replaced))
	if !initial && len(result.Added) == 0 && len(result.Replaced) == 0 {
		return
	}
	if n := len(result.Added); n > 0 {
		e.rooms.Touch(roomID, latest(result.Added))
	}
	e.publish(Event{Kind: EventMessages, RoomID: roomID})

	if roomID == e.rooms.Active() {
		if len(result.Added) > 0 || initial {
			e.publish(Event{Kind: EventScrollToBottom, RoomID: roomID})
		}
		e.publish(Event{Kind: EventRooms, RoomID: roomID})
		return
	}
	if !initial {
		e.raiseBadge(roomID, result.Added)
	}
	e.publish(Event{Kind: EventRooms, RoomID: roomID})
}

// raiseBadge counts messages from other senders as unread in a background
// room and announces the newest one unless the room is muted.
func (e *Engine) raiseBadge(roomID string, arrivals []types.Message) {
	var (
		count  int
		newest *types.Message
	)
	for i := range arrivals {
		if e.isLocal(arrivals[i].SenderID) || arrivals[i].IsDeleted {
			continue
		}
		count++
		if newest == nil || arrivals[i].CreatedAt >= newest.CreatedAt {
			msg := arrivals[i].Clone()
			newest = &msg
		}
	}
	if !e.rooms.MarkNew(roomID, count) {
		return
	}
	if room, ok := e.rooms.Room(roomID); ok && !room.IsMuted {
		e.publish(Event{Kind: EventNewMessage, RoomID: roomID, Message: newest})
	}
}

func (e *Engine) logMalformed(roomID string, result store.Result) {
	if result.Malformed > 0 {
		e.log.Warn("dropped malformed messages", "room", roomID, "count", result.Malformed)
	}
}

func latest(messages []types.Message) types.Message {
	out := messages[0]
	for _, msg := range messages[1:] {
		if msg.CreatedAt >= out.CreatedAt {
			out = msg
		}
	}
	return out
}
