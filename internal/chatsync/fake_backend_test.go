package chatsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

// fakeBackend is an in-memory Backend with hooks to block or fail calls.
type fakeBackend struct {
	mu       sync.Mutex
	userID   string
	rooms    []types.RoomSummary
	messages map[string][]types.Message
	last     int64
	seq      int

	fetches      map[string][]types.FetchOptions
	inFlight     map[string]int
	maxInFlight  map[string]int
	block        map[string]chan struct{}
	ignoreCancel bool
	fetchErr     map[string]error

	sendErr    error
	sendBlock  chan struct{}
	sendResult *types.Message
	echoID     bool

	reads     []string
	reactions []string
	deleted   []string
	edits     map[string]string
}

func newFakeBackend(userID string, roomIDs ...string) *fakeBackend {
	f := &fakeBackend{
		userID:      userID,
		messages:    make(map[string][]types.Message),
		fetches:     make(map[string][]types.FetchOptions),
		inFlight:    make(map[string]int),
		maxInFlight: make(map[string]int),
		block:       make(map[string]chan struct{}),
		fetchErr:    make(map[string]error),
		edits:       make(map[string]string),
	}
	for _, id := range roomIDs {
		f.rooms = append(f.rooms, types.RoomSummary{ID: id, Name: id, Type: types.RoomTypeDirect})
	}
	return f
}

// stamp returns a strictly increasing createdAt never older than now.
func (f *fakeBackend) stamp() int64 {
	ts := time.Now().UnixMilli() + 1
	if ts <= f.last {
		ts = f.last + 1
	}
	f.last = ts
	return ts
}

// seed stores historical messages an hour in the past, one second apart.
func (f *fakeBackend) seed(roomID string, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := time.Now().Add(-time.Hour).UnixMilli()
	for i, id := range ids {
		ts := base + int64(i)*1000
		f.messages[roomID] = append(f.messages[roomID], types.Message{
			ID: id, RoomID: roomID, SenderID: "bob", Body: "body " + id, CreatedAt: ts,
		})
		if ts > f.last {
			f.last = ts
		}
	}
}

func (f *fakeBackend) add(roomID, sender, body string) types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	msg := types.Message{
		ID:        fmt.Sprintf("srv-%d", f.seq),
		RoomID:    roomID,
		SenderID:  sender,
		Body:      body,
		CreatedAt: f.stamp(),
	}
	f.messages[roomID] = append(f.messages[roomID], msg)
	return msg
}

// store appends msg as if another request had already persisted it.
func (f *fakeBackend) store(msg types.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.RoomID] = append(f.messages[msg.RoomID], msg)
	if msg.CreatedAt > f.last {
		f.last = msg.CreatedAt
	}
}

func (f *fakeBackend) setBlock(roomID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.block[roomID] = ch
	return ch
}

func (f *fakeBackend) clearBlock(roomID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.block, roomID)
}

func (f *fakeBackend) setFetchErr(roomID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fetchErr, roomID)
		return
	}
	f.fetchErr[roomID] = err
}

func (f *fakeBackend) fetchCount(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetches[roomID])
}

func (f *fakeBackend) olderFetches(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, opts := range f.fetches[roomID] {
		if opts.Before > 0 {
			n++
		}
	}
	return n
}

func (f *fakeBackend) peakInFlight(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight[roomID]
}

func (f *fakeBackend) readRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reads...)
}

func (f *fakeBackend) ListRooms(ctx context.Context) ([]types.RoomSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.RoomSummary, len(f.rooms))
	for i, room := range f.rooms {
		if msgs := f.messages[room.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			room.LastMessage = &last
		}
		out[i] = room
	}
	return out, nil
}

func (f *fakeBackend) FetchMessages(ctx context.Context, roomID string, opts types.FetchOptions) (types.FetchResult, error) {
	f.mu.Lock()
	f.fetches[roomID] = append(f.fetches[roomID], opts)
	f.inFlight[roomID]++
	if f.inFlight[roomID] > f.maxInFlight[roomID] {
		f.maxInFlight[roomID] = f.inFlight[roomID]
	}
	block := f.block[roomID]
	ignoreCancel := f.ignoreCancel
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight[roomID]--
		f.mu.Unlock()
	}()

	if block != nil {
		if ignoreCancel {
			<-block
		} else {
			select {
			case <-block:
			case <-ctx.Done():
				return types.FetchResult{}, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fetchErr[roomID]; err != nil {
		return types.FetchResult{}, err
	}
	var out []types.Message
	for _, msg := range f.messages[roomID] {
		switch {
		case opts.Since > 0 && msg.CreatedAt <= opts.Since:
			continue
		case opts.Before > 0 && msg.CreatedAt >= opts.Before:
			continue
		}
		out = append(out, msg.Clone())
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return types.FetchResult{Messages: out}, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, roomID string, draft types.Draft, clientID string) (*types.Message, error) {
	f.mu.Lock()
	block := f.sendBlock
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResult != nil {
		out := f.sendResult.Clone()
		return &out, nil
	}
	f.seq++
	msg := types.Message{
		ID:         fmt.Sprintf("srv-%d", f.seq),
		RoomID:     roomID,
		SenderID:   f.userID,
		Body:       draft.Body,
		Attachment: draft.Attachment,
		CreatedAt:  f.stamp(),
	}
	if f.echoID {
		msg.ClientID = clientID
	}
	f.messages[roomID] = append(f.messages[roomID], msg)
	out := msg.Clone()
	return &out, nil
}

func (f *fakeBackend) MarkRead(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, roomID)
	return nil
}

func (f *fakeBackend) find(messageID string) (*types.Message, error) {
	for roomID := range f.messages {
		for i := range f.messages[roomID] {
			if f.messages[roomID][i].ID == messageID {
				return &f.messages[roomID][i], nil
			}
		}
	}
	return nil, errors.New("no such message")
}

func (f *fakeBackend) AddReaction(ctx context.Context, messageID, symbol string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.find(messageID); err != nil {
		return err
	}
	f.reactions = append(f.reactions, messageID+":"+symbol)
	return nil
}

func (f *fakeBackend) DeleteMessage(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, err := f.find(messageID)
	if err != nil {
		return err
	}
	msg.IsDeleted = true
	msg.Body = ""
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeBackend) EditMessage(ctx context.Context, messageID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, err := f.find(messageID)
	if err != nil {
		return err
	}
	msg.Body = body
	f.edits[messageID] = body
	return nil
}
