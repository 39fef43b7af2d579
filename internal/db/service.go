package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/types"
)

var _ chatsync.Backend = (*Service)(nil)

// Service serves one user's view of the local database as a chat backend.
type Service struct {
	db     *sql.DB
	userID string
}

// NewService returns a backend acting as userID.
func NewService(db *sql.DB, userID string) *Service {
	return &Service{db: db, userID: userID}
}

// UserID returns the user the service acts as.
func (s *Service) UserID() string {
	return s.userID
}

func (s *Service) requireMember(roomID string) error {
	ok, err := IsMember(s.db, roomID, s.userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	return nil
}

func (s *Service) requireMessageAccess(messageID string) (types.Message, error) {
	msg, err := GetMessage(s.db, messageID)
	if err != nil {
		return types.Message{}, err
	}
	if err := s.requireMember(msg.RoomID); err != nil {
		return types.Message{}, err
	}
	return msg, nil
}

func (s *Service) ListRooms(ctx context.Context) ([]types.RoomSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ListRooms(s.db, s.userID)
}

func (s *Service) FetchMessages(ctx context.Context, roomID string, opts types.FetchOptions) (types.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return types.FetchResult{}, err
	}
	if err := s.requireMember(roomID); err != nil {
		return types.FetchResult{}, err
	}
	messages, hasMore, err := GetMessages(s.db, roomID, opts)
	if err != nil {
		return types.FetchResult{}, err
	}
	result := types.FetchResult{Messages: messages}
	if opts.Since == 0 && opts.Limit > 0 {
		result.HasMore = &hasMore
	}
	return result, nil
}

func (s *Service) SendMessage(ctx context.Context, roomID string, draft types.Draft, clientID string) (*types.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.requireMember(roomID); err != nil {
		return nil, err
	}
	msg, err := CreateMessage(s.db, types.Message{
		RoomID:     roomID,
		SenderID:   s.userID,
		Body:       draft.Body,
		Attachment: draft.Attachment,
		ClientID:   clientID,
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *Service) MarkRead(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return MarkRead(s.db, roomID, s.userID)
}

func (s *Service) AddReaction(ctx context.Context, messageID, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requireMessageAccess(messageID); err != nil {
		return err
	}
	_, err := ToggleReaction(s.db, messageID, s.userID, symbol)
	return err
}

func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requireMessageAccess(messageID); err != nil {
		return err
	}
	return DeleteMessage(s.db, messageID, s.userID)
}

func (s *Service) EditMessage(ctx context.Context, messageID, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requireMessageAccess(messageID); err != nil {
		return err
	}
	_, err := EditMessage(s.db, messageID, s.userID, body)
	return err
}
