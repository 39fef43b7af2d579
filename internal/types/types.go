package types

import "strings"

// LocalSender is the reserved sender id used to render the local user's own
// messages, independent of the real account id.
const LocalSender = "me"

// OptimisticPrefix marks client-generated ids. Servers never issue ids with it.
const OptimisticPrefix = "tmp-"

// MessageStatus tracks whether a message has been confirmed by the remote store.
type MessageStatus string

const (
	MessageStatusOptimistic MessageStatus = "optimistic"
	MessageStatusConfirmed  MessageStatus = "confirmed"
)

// RoomType distinguishes one-to-one conversations from group rooms.
type RoomType string

const (
	RoomTypeDirect RoomType = "direct"
	RoomTypeGroup  RoomType = "group"
)

// Attachment references an uploaded file.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Message represents a room message.
type Message struct {
	ID         string              `json:"id"`
	RoomID     string              `json:"room_id"`
	SenderID   string              `json:"sender_id"`
	Body       string              `json:"body,omitempty"`
	Attachment *Attachment         `json:"attachment,omitempty"`
	CreatedAt  int64               `json:"created_at"`
	Status     MessageStatus       `json:"status"`
	IsDeleted  bool                `json:"is_deleted,omitempty"`
	EditedAt   *int64              `json:"edited_at,omitempty"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
	ClientID   string              `json:"client_id,omitempty"`
}

// IsOptimistic reports whether the message is still awaiting confirmation.
func (m Message) IsOptimistic() bool {
	return m.Status == MessageStatusOptimistic
}

// Clone returns a deep copy so snapshots never share mutable state with the store.
func (m Message) Clone() Message {
	out := m
	if m.Attachment != nil {
		att := *m.Attachment
		out.Attachment = &att
	}
	if m.EditedAt != nil {
		ts := *m.EditedAt
		out.EditedAt = &ts
	}
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for symbol, reactors := range m.Reactions {
			out.Reactions[symbol] = append([]string(nil), reactors...)
		}
	}
	return out
}

// Draft is a locally composed message before it is sent.
type Draft struct {
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// Empty reports whether the draft has neither text nor attachment.
func (d Draft) Empty() bool {
	return strings.TrimSpace(d.Body) == "" && d.Attachment == nil
}

// Room represents a conversation partner or group as seen by the local user.
type Room struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         RoomType `json:"type"`
	Participants []string `json:"participants"`
	UnreadCount  int      `json:"unread_count"`
	IsPinned     bool     `json:"is_pinned"`
	IsMuted      bool     `json:"is_muted"`
	HasNew       bool     `json:"has_new"`
	LastMessage  *Message `json:"last_message,omitempty"`
	LastActivity int64    `json:"last_activity,omitempty"`
}

// Clone returns a deep copy of the room.
func (r Room) Clone() Room {
	out := r
	out.Participants = append([]string(nil), r.Participants...)
	if r.LastMessage != nil {
		last := r.LastMessage.Clone()
		out.LastMessage = &last
	}
	return out
}

// RoomSummary is what the remote store returns when listing rooms.
type RoomSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Type         RoomType `json:"type"`
	Participants []string `json:"participants"`
	UnreadCount  int      `json:"unread_count"`
	IsPinned     bool     `json:"is_pinned"`
	IsMuted      bool     `json:"is_muted"`
	LastMessage  *Message `json:"last_message,omitempty"`
}

// FetchOptions bounds a message query. Since and Before are exclusive unix-ms
// cursors; zero means unset.
type FetchOptions struct {
	Since  int64 `json:"since,omitempty"`
	Before int64 `json:"before,omitempty"`
	Limit  int   `json:"limit,omitempty"`
}

// FetchResult is an ordered batch of confirmed messages. HasMore is nil when
// the server did not say whether older history remains.
type FetchResult struct {
	Messages []Message `json:"messages"`
	HasMore  *bool     `json:"has_more,omitempty"`
}

// Page is the outcome of loading older history for a room.
type Page struct {
	Messages []Message `json:"messages"`
	HasMore  bool      `json:"has_more"`
}
