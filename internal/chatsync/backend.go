package chatsync

import (
	"context"

	"github.com/bizportal/portalchat/internal/types"
)

// Backend is the remote message store the engine synchronizes against.
// FetchMessages returns confirmed messages in ascending createdAt order:
// strictly newer than Since when set, strictly older than Before when set,
// otherwise the latest Limit messages.
type Backend interface {
	ListRooms(ctx context.Context) ([]types.RoomSummary, error)
	FetchMessages(ctx context.Context, roomID string, opts types.FetchOptions) (types.FetchResult, error)
	// SendMessage persists a draft. clientID correlates the request with
	// its echo; servers may return it on the stored message.
	SendMessage(ctx context.Context, roomID string, draft types.Draft, clientID string) (*types.Message, error)
	MarkRead(ctx context.Context, roomID string) error
	AddReaction(ctx context.Context, messageID, symbol string) error
	DeleteMessage(ctx context.Context, messageID string) error
	EditMessage(ctx context.Context, messageID, body string) error
}
