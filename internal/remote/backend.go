package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/types"
)

var _ chatsync.Backend = (*Client)(nil)

// SendRequest is the body of POST /v1/rooms/{room}/messages.
type SendRequest struct {
	Body       string            `json:"body,omitempty"`
	Attachment *types.Attachment `json:"attachment,omitempty"`
	ClientID   string            `json:"client_id,omitempty"`
}

// ReactionRequest is the body of POST /v1/messages/{id}/reactions.
type ReactionRequest struct {
	Symbol string `json:"symbol"`
}

// EditRequest is the body of PATCH /v1/messages/{id}.
type EditRequest struct {
	Body string `json:"body"`
}

func roomPath(roomID string, rest string) string {
	return "/v1/rooms/" + url.PathEscape(roomID) + rest
}

func messagePath(messageID string, rest string) string {
	return "/v1/messages/" + url.PathEscape(messageID) + rest
}

// ListRooms fetches the rooms visible to the token's user.
func (c *Client) ListRooms(ctx context.Context) ([]types.RoomSummary, error) {
	var resp roomList
	if err := c.doJSON(ctx, http.MethodGet, "/v1/rooms", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// FetchMessages fetches a window of confirmed messages.
func (c *Client) FetchMessages(ctx context.Context, roomID string, opts types.FetchOptions) (types.FetchResult, error) {
	query := url.Values{}
	if opts.Since > 0 {
		query.Set("since", strconv.FormatInt(opts.Since, 10))
	}
	if opts.Before > 0 {
		query.Set("before", strconv.FormatInt(opts.Before, 10))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	var resp messageBatch
	if err := c.doJSON(ctx, http.MethodGet, roomPath(roomID, "/messages"), query, nil, &resp); err != nil {
		return types.FetchResult{}, err
	}
	return types.FetchResult{Messages: resp.Messages, HasMore: resp.HasMore}, nil
}

// SendMessage posts a draft and returns the stored message, if the server
// included it in the response.
func (c *Client) SendMessage(ctx context.Context, roomID string, draft types.Draft, clientID string) (*types.Message, error) {
	req := SendRequest{Body: draft.Body, Attachment: draft.Attachment, ClientID: clientID}
	var resp sentMessage
	if err := c.doJSON(ctx, http.MethodPost, roomPath(roomID, "/messages"), nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, nil
	}
	msg := types.Message(*resp.Message)
	return &msg, nil
}

// MarkRead tells the server every message in the room has been seen.
func (c *Client) MarkRead(ctx context.Context, roomID string) error {
	return c.doJSON(ctx, http.MethodPost, roomPath(roomID, "/read"), nil, struct{}{}, nil)
}

// AddReaction toggles the token user's reaction on a message.
func (c *Client) AddReaction(ctx context.Context, messageID, symbol string) error {
	return c.doJSON(ctx, http.MethodPost, messagePath(messageID, "/reactions"), nil, ReactionRequest{Symbol: symbol}, nil)
}

// DeleteMessage soft-deletes a message.
func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.doJSON(ctx, http.MethodDelete, messagePath(messageID, ""), nil, nil, nil)
}

// EditMessage replaces a message body.
func (c *Client) EditMessage(ctx context.Context, messageID, body string) error {
	return c.doJSON(ctx, http.MethodPatch, messagePath(messageID, ""), nil, EditRequest{Body: body}, nil)
}
