package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/types"
)

// Decoding is lenient about shape: list endpoints may answer with an
// envelope object or a bare array, ids may be numbers, and timestamps may be
// unix seconds, unix milliseconds or RFC 3339 strings.

// secondsCutoff separates unix seconds from unix milliseconds.
const secondsCutoff = 100_000_000_000

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*s = flexString(n.String())
	}
	return nil
}

// flexTime decodes to unix milliseconds.
type flexTime int64

func (t *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		ms, err := parseTimestamp(v)
		if err != nil {
			return err
		}
		*t = flexTime(ms)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	ms, err := numberToMillis(n.String())
	if err != nil {
		return err
	}
	*t = flexTime(ms)
	return nil
}

func parseTimestamp(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if ms, err := numberToMillis(v); err == nil {
		return ms, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", v, err)
	}
	return parsed.UnixMilli(), nil
}

func numberToMillis(v string) (int64, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > 0 && n < secondsCutoff {
			return n * 1000, nil
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q: %w", v, err)
	}
	if f > 0 && f < secondsCutoff {
		return int64(f * 1000), nil
	}
	return int64(f), nil
}

type wireMessage types.Message

func (m *wireMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         flexString          `json:"id"`
		RoomID     flexString          `json:"room_id"`
		SenderID   flexString          `json:"sender_id"`
		Body       *string             `json:"body"`
		Text       string              `json:"text"`
		Attachment *types.Attachment   `json:"attachment"`
		CreatedAt  flexTime            `json:"created_at"`
		IsDeleted  bool                `json:"is_deleted"`
		EditedAt   *flexTime           `json:"edited_at"`
		Reactions  map[string][]string `json:"reactions"`
		ClientID   string              `json:"client_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = wireMessage{
		ID:         string(raw.ID),
		RoomID:     string(raw.RoomID),
		SenderID:   string(raw.SenderID),
		Body:       raw.Text,
		Attachment: raw.Attachment,
		CreatedAt:  int64(raw.CreatedAt),
		Status:     types.MessageStatusConfirmed,
		IsDeleted:  raw.IsDeleted,
		Reactions:  raw.Reactions,
		ClientID:   raw.ClientID,
	}
	if raw.Body != nil {
		m.Body = *raw.Body
	}
	if raw.EditedAt != nil && *raw.EditedAt > 0 {
		ts := int64(*raw.EditedAt)
		m.EditedAt = &ts
	}
	return nil
}

// decodeMessages decodes each entry on its own. An entry that fails to
// decode becomes an empty message, which the store drops as malformed, so
// one bad entry never costs the rest of the batch.
func decodeMessages(in []json.RawMessage) []types.Message {
	out := make([]types.Message, len(in))
	for i, data := range in {
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		out[i] = types.Message(msg)
	}
	return out
}

type wireRoom types.RoomSummary

func (r *wireRoom) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           flexString      `json:"id"`
		Name         string          `json:"name"`
		Type         string          `json:"type"`
		Participants []flexString    `json:"participants"`
		UnreadCount  int             `json:"unread_count"`
		IsPinned     bool            `json:"is_pinned"`
		IsMuted      bool            `json:"is_muted"`
		LastMessage  json.RawMessage `json:"last_message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = wireRoom{
		ID:          string(raw.ID),
		Name:        raw.Name,
		Type:        types.RoomType(strings.ToLower(raw.Type)),
		UnreadCount: raw.UnreadCount,
		IsPinned:    raw.IsPinned,
		IsMuted:     raw.IsMuted,
	}
	for _, p := range raw.Participants {
		r.Participants = append(r.Participants, string(p))
	}
	// A last message that does not decode only costs the preview.
	var last wireMessage
	if len(raw.LastMessage) > 0 && json.Unmarshal(raw.LastMessage, &last) == nil && last.ID != "" {
		msg := types.Message(last)
		r.LastMessage = &msg
	}
	return nil
}

// isArray reports whether data holds a bare JSON array.
func isArray(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '['
}

type roomList struct {
	Rooms []types.RoomSummary
}

func (l *roomList) UnmarshalJSON(data []byte) error {
	var rooms []wireRoom
	if isArray(data) {
		if err := json.Unmarshal(data, &rooms); err != nil {
			return err
		}
	} else {
		var env struct {
			Rooms []wireRoom `json:"rooms"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		rooms = env.Rooms
	}
	l.Rooms = make([]types.RoomSummary, len(rooms))
	for i, room := range rooms {
		l.Rooms[i] = types.RoomSummary(room)
	}
	return nil
}

type messageBatch struct {
	Messages []types.Message
	HasMore  *bool
}

func (b *messageBatch) UnmarshalJSON(data []byte) error {
	var messages []json.RawMessage
	if isArray(data) {
		if err := json.Unmarshal(data, &messages); err != nil {
			return err
		}
	} else {
		var env struct {
			Messages []json.RawMessage `json:"messages"`
			HasMore  *bool             `json:"has_more"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return err
		}
		messages = env.Messages
		b.HasMore = env.HasMore
	}
	b.Messages = decodeMessages(messages)
	return nil
}

type sentMessage struct {
	Message *wireMessage
}

func (s *sentMessage) UnmarshalJSON(data []byte) error {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	payload := data
	if nested, ok := env["message"]; ok {
		payload = nested
	}
	if bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		return nil
	}
	var msg wireMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	if msg.ID == "" {
		return nil
	}
	s.Message = &msg
	return nil
}
