// Package registry tracks the rooms visible to the local user, which one is
// active and the per-room unread, pinned, muted and new-message flags.
package registry

import (
	"errors"
	"sort"
	"strings"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
)

// ErrUnknownRoom is returned for operations on a room the registry does not hold.
var ErrUnknownRoom = errors.New("unknown room")

// Registry is not safe for concurrent use; the sync engine owns it.
type Registry struct {
	mode   string
	rooms  map[string]*types.Room
	active string
}

// New returns an empty registry running in the given sync mode.
func New(mode string) *Registry {
	if mode != core.ModeWidget {
		mode = core.ModePanel
	}
	return &Registry{mode: mode, rooms: make(map[string]*types.Room)}
}

// Mode returns core.ModePanel or core.ModeWidget.
func (r *Registry) Mode() string {
	return r.mode
}

// Len returns the number of known rooms.
func (r *Registry) Len() int {
	return len(r.rooms)
}

// Has reports whether roomID is known.
func (r *Registry) Has(roomID string) bool {
	_, ok := r.rooms[roomID]
	return ok
}

// Room returns a copy of a single room.
func (r *Registry) Room(roomID string) (types.Room, bool) {
	room, ok := r.rooms[roomID]
	if !ok {
		return types.Room{}, false
	}
	return room.Clone(), true
}

// Active returns the active room id, or "" when none is selected.
func (r *Registry) Active() string {
	return r.active
}

// Upsert merges a room listing. New rooms take the server's counts and flags;
// rooms already known keep their local unread, new-message and flag state so
// a refresh never resurrects a badge the user already cleared. Rooms missing
// from the listing are removed, except the active one.
func (r *Registry) Upsert(summaries []types.RoomSummary) (added, removed []string) {
	seen := make(map[string]bool, len(summaries))
	for _, summary := range summaries {
		if summary.ID == "" {
			continue
		}
		seen[summary.ID] = true
		room, ok := r.rooms[summary.ID]
		if !ok {
			room = &types.Room{
				ID:          summary.ID,
				UnreadCount: summary.UnreadCount,
				IsPinned:    summary.IsPinned,
				IsMuted:     summary.IsMuted,
				HasNew:      summary.UnreadCount > 0 && summary.ID != r.active,
			}
			r.rooms[summary.ID] = room
			added = append(added, summary.ID)
		}
		room.Name = summary.Name
		room.Type = summary.Type
		if room.Type == "" {
			room.Type = types.RoomTypeDirect
		}
		room.Participants = append([]string(nil), summary.Participants...)
		if summary.LastMessage != nil {
			r.touch(room, *summary.LastMessage)
		}
	}
	for id := range r.rooms {
		if !seen[id] && id != r.active {
			delete(r.rooms, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Rooms returns the rooms in display order: pinned first, then by most recent
// activity, then by name.
func (r *Registry) Rooms() []types.Room {
	out := make([]types.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if a.LastActivity != b.LastActivity {
			return a.LastActivity > b.LastActivity
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
	return out
}

// Activate makes roomID the active room and clears its unread state. It
// returns the previously active room id.
func (r *Registry) Activate(roomID string) (string, error) {
	room, ok := r.rooms[roomID]
	if !ok {
		return "", ErrUnknownRoom
	}
	prev := r.active
	r.active = roomID
	room.UnreadCount = 0
	room.HasNew = false
	return prev, nil
}

// SetPinned updates a room's pinned flag.
func (r *Registry) SetPinned(roomID string, pinned bool) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	room.IsPinned = pinned
	return nil
}

// SetMuted updates a room's muted flag.
func (r *Registry) SetMuted(roomID string, muted bool) error {
	room, ok := r.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	room.IsMuted = muted
	return nil
}

// MarkNew records unread arrivals in a background room and raises its badge.
// The active room never accumulates unread counts.
func (r *Registry) MarkNew(roomID string, count int) bool {
	room, ok := r.rooms[roomID]
	if !ok || count <= 0 || roomID == r.active {
		return false
	}
	room.UnreadCount += count
	room.HasNew = true
	return true
}

// Touch records msg as the room's latest message if it is newer than the
// one already held.
func (r *Registry) Touch(roomID string, msg types.Message) {
	if room, ok := r.rooms[roomID]; ok {
		r.touch(room, msg)
	}
}

func (r *Registry) touch(room *types.Room, msg types.Message) {
	if room.LastMessage != nil && msg.CreatedAt < room.LastMessage.CreatedAt {
		return
	}
	last := msg.Clone()
	room.LastMessage = &last
	if msg.CreatedAt > room.LastActivity {
		room.LastActivity = msg.CreatedAt
	}
}

// ShouldPoll reports whether roomID runs a poll loop in the current mode:
// every room in panel mode, only the active room in widget mode.
func (r *Registry) ShouldPoll(roomID string) bool {
	if !r.Has(roomID) {
		return false
	}
	if r.mode == core.ModeWidget {
		return roomID == r.active
	}
	return true
}

// Polled returns the ids of every room that should poll, sorted.
func (r *Registry) Polled() []string {
	var out []string
	for id := range r.rooms {
		if r.ShouldPoll(id) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
