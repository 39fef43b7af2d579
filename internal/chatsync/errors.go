package chatsync

import (
	"errors"

	"github.com/bizportal/portalchat/internal/registry"
)

var (
	// ErrClosed is returned once the engine has been closed.
	ErrClosed = errors.New("chatsync: engine closed")
	// ErrNoActiveRoom is returned by Send when no room is active.
	ErrNoActiveRoom = errors.New("chatsync: no active room")
	// ErrUnknownRoom is returned for rooms missing from the listing.
	ErrUnknownRoom = registry.ErrUnknownRoom
	// ErrNotFound is returned for messages the engine does not hold.
	ErrNotFound = errors.New("chatsync: message not found")
	// ErrPending is returned for actions on messages not yet confirmed.
	ErrPending = errors.New("chatsync: message not yet confirmed")
	// ErrEmptyDraft is returned when sending or editing to an empty body.
	ErrEmptyDraft = errors.New("chatsync: empty message")
)
