// Package chatsync keeps a local view of many chat rooms consistent with a
// remote message store. One goroutine owns the message store and the room
// registry; poll loops, sends and pagination hand their results to it as
// closures, so every state transition is applied in a single order.
package chatsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/metrics"
	"github.com/bizportal/portalchat/internal/registry"
	"github.com/bizportal/portalchat/internal/store"
	"github.com/bizportal/portalchat/internal/types"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithMetrics records engine activity on m.
func WithMetrics(m *metrics.Sync) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine synchronizes rooms against a Backend.
type Engine struct {
	backend Backend
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Sync
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	ops    chan func()
	wg     sync.WaitGroup
	once   sync.Once
	hub    *hub

	// Owned by the run goroutine.
	store     *store.Store
	rooms     *registry.Registry
	pollers   map[string]*poller
	nextGen   uint64
	peeks     map[string]int64
	loading   map[string]bool
	clears    map[string]uint64
	startedAt int64
}

// New creates an engine and starts its state goroutine. Call Start to load
// the room list and begin polling, and Close to stop everything.
func New(backend Backend, cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		backend: backend,
		cfg:     cfg,
		log:     logger.Nop(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		ops:     make(chan func()),
		store:   store.New(),
		rooms:   registry.New(cfg.Mode),
		pollers: make(map[string]*poller),
		peeks:   make(map[string]int64),
		loading: make(map[string]bool),
		clears:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "chatsync")
	e.hub = newHub(e.log, e.metrics)
	e.startedAt = e.nowMs()

	e.wg.Add(1)
	go e.run()
	return e
}

func (e *Engine) run() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case fn := <-e.ops:
			fn()
		}
	}
}

// do schedules fn on the state goroutine without waiting for it.
func (e *Engine) do(fn func()) error {
	select {
	case e.ops <- fn:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	}
}

// call runs fn on the state goroutine and waits for it to finish.
func (e *Engine) call(fn func()) error {
	done := make(chan struct{})
	if err := e.do(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-e.ctx.Done():
		return ErrClosed
	}
}

// goBackground runs fn on its own goroutine, tracked by Close.
func (e *Engine) goBackground(fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn(e.ctx)
	}()
}

func (e *Engine) nowMs() int64 {
	return e.now().UnixMilli()
}

func (e *Engine) matchOptions() store.MatchOptions {
	return store.MatchOptions{Window: e.cfg.MatchWindow, LocalIDs: []string{e.cfg.UserID}}
}

func (e *Engine) isLocal(senderID string) bool {
	return senderID == types.LocalSender || (e.cfg.UserID != "" && senderID == e.cfg.UserID)
}

// reactor is the id recorded for the local user's reactions.
func (e *Engine) reactor() string {
	if e.cfg.UserID != "" {
		return e.cfg.UserID
	}
	return types.LocalSender
}

// Start fetches the room list, activates the initial room and starts the
// poll loops for the current mode.
func (e *Engine) Start(ctx context.Context) error {
	summaries, err := e.backend.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	return e.call(func() {
		e.applyRooms(summaries)
		if e.rooms.Active() != "" {
			return
		}
		target := e.cfg.InitialRoom
		if !e.rooms.Has(target) {
			target = ""
			if listed := e.rooms.Rooms(); len(listed) > 0 {
				target = listed[0].ID
			}
		}
		if target != "" {
			e.activate(target)
		}
		e.log.Info("engine started", "rooms", e.rooms.Len(), "mode", e.rooms.Mode(), "active", e.rooms.Active())
	})
}

// RefreshRooms re-reads the room list and starts or stops poll loops for
// rooms that appeared or disappeared.
func (e *Engine) RefreshRooms(ctx context.Context) error {
	summaries, err := e.backend.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	return e.call(func() { e.applyRooms(summaries) })
}

func (e *Engine) applyRooms(summaries []types.RoomSummary) {
	added, removed := e.rooms.Upsert(summaries)
	for _, id := range removed {
		e.stopPoller(id)
		delete(e.peeks, id)
	}
	if len(added) > 0 || len(removed) > 0 {
		e.log.Debug("room list changed", "added", added, "removed", removed)
	}
	e.syncPollers()
	e.publish(Event{Kind: EventRooms})
}

// Close stops every loop and closes all subscriptions. It is safe to call
// more than once.
func (e *Engine) Close() {
	e.once.Do(func() {
		e.cancel()
		e.wg.Wait()
		e.hub.close()
		e.log.Debug("engine closed")
	})
}

// Subscribe returns a subscription receiving every event published after
// the call. buffer <= 0 selects a default size.
func (e *Engine) Subscribe(buffer int) *Subscription {
	return e.hub.subscribe(buffer)
}

func (e *Engine) publish(ev Event) {
	e.hub.publish(ev)
}

// Mode returns the sync mode the engine runs in.
func (e *Engine) Mode() string {
	return e.cfg.Mode
}

// Rooms returns the rooms in display order.
func (e *Engine) Rooms() []types.Room {
	var out []types.Room
	_ = e.call(func() { out = e.rooms.Rooms() })
	return out
}

// Room returns a single room.
func (e *Engine) Room(roomID string) (types.Room, bool) {
	var (
		room types.Room
		ok   bool
	)
	_ = e.call(func() { room, ok = e.rooms.Room(roomID) })
	return room, ok
}

// Active returns the active room id.
func (e *Engine) Active() string {
	var id string
	_ = e.call(func() { id = e.rooms.Active() })
	return id
}

// Messages returns a snapshot of a room's messages in display order.
func (e *Engine) Messages(roomID string) []types.Message {
	var out []types.Message
	_ = e.call(func() { out = e.store.Messages(roomID) })
	return out
}

// Loaded reports whether the room finished its initial fetch.
func (e *Engine) Loaded(roomID string) bool {
	var ok bool
	_ = e.call(func() { ok = e.store.Loaded(roomID) })
	return ok
}

// HasMore reports whether older history may remain for the room.
func (e *Engine) HasMore(roomID string) bool {
	var ok bool
	_ = e.call(func() { ok = e.store.Cursors(roomID).HasMore })
	return ok
}

// Activate makes roomID the active room: its unread state is cleared at
// once and the server is told asynchronously. In widget mode the previous
// room stops polling.
func (e *Engine) Activate(roomID string) error {
	var err error
	if callErr := e.call(func() { err = e.activate(roomID) }); callErr != nil {
		return callErr
	}
	return err
}

func (e *Engine) activate(roomID string) error {
	prev, err := e.rooms.Activate(roomID)
	if err != nil {
		return err
	}
	e.goBackground(func(ctx context.Context) {
		if err := e.backend.MarkRead(ctx, roomID); err != nil && ctx.Err() == nil {
			e.log.Warn("mark read failed", "room", roomID, "error", err)
		}
	})
	_, running := e.pollers[roomID]
	e.syncPollers()
	if running && !e.store.Loaded(roomID) {
		// Restart so the initial fetch runs now and a pending peek is discarded.
		e.restartPoller(roomID)
	}
	e.log.Debug("room activated", "room", roomID, "previous", prev)
	e.publish(Event{Kind: EventRooms, RoomID: roomID})
	e.publish(Event{Kind: EventMessages, RoomID: roomID})
	return nil
}

// SetPinned pins or unpins a room.
func (e *Engine) SetPinned(roomID string, pinned bool) error {
	var err error
	if callErr := e.call(func() {
		if err = e.rooms.SetPinned(roomID, pinned); err == nil {
			e.publish(Event{Kind: EventRooms, RoomID: roomID})
		}
	}); callErr != nil {
		return callErr
	}
	return err
}

// SetMuted mutes or unmutes a room. Muted rooms still count unread messages
// but never raise EventNewMessage.
func (e *Engine) SetMuted(roomID string, muted bool) error {
	var err error
	if callErr := e.call(func() {
		if err = e.rooms.SetMuted(roomID, muted); err == nil {
			e.publish(Event{Kind: EventRooms, RoomID: roomID})
		}
	}); callErr != nil {
		return callErr
	}
	return err
}

// ClearRoom drops the room's messages and resets it to the empty-room
// state, so only messages arriving from now on are shown.
func (e *Engine) ClearRoom(roomID string) error {
	var err error
	if callErr := e.call(func() {
		if !e.rooms.Has(roomID) {
			err = ErrUnknownRoom
			return
		}
		e.store.Clear(roomID)
		e.store.Init(roomID, nil, 0, nil, e.matchOptions(), e.nowMs())
		e.clears[roomID]++
		delete(e.peeks, roomID)
		if _, running := e.pollers[roomID]; running {
			e.restartPoller(roomID)
		}
		e.publish(Event{Kind: EventMessages, RoomID: roomID})
	}); callErr != nil {
		return callErr
	}
	return err
}
