// Package chat is the terminal UI over a chatsync engine: a room sidebar,
// the active room's history and a composer.
package chat

import (
	"context"
	"fmt"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options configure chat.
type Options struct {
	Engine *chatsync.Engine
	UserID string
	Title  string
	Notify bool
	Log    *logger.Logger
}

// Run starts the chat UI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	model, err := NewModel(opts)
	if err != nil {
		return err
	}
	defer model.Close()

	title := "portalchat"
	if opts.Title != "" {
		title = "portalchat · " + opts.Title
	}
	fmt.Printf("\033]0;%s\007", title)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = program.Run()
	return err
}

// Model implements the chat UI.
type Model struct {
	engine   *chatsync.Engine
	sub      *chatsync.Subscription
	log      *logger.Logger
	userID   string
	notify   bool
	notifier func(types.Room, types.Message) error

	viewport viewport.Model
	input    textarea.Model
	width    int
	height   int
	status   string

	rooms    []types.Room
	activeID string
	messages []types.Message
	hasMore  bool
	loading  bool
	rendered int // height of the last rendered history

	sidebarOpen  bool
	sidebarFocus bool
	sidebarIndex int

	colorMap          map[string]lipgloss.Color
	newMessageAuthors []string
	initialScroll     bool
}

// NewModel creates a chat model over a started engine.
func NewModel(opts Options) (*Model, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("chat: engine is required")
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	m := &Model{
		engine:        opts.Engine,
		sub:           opts.Engine.Subscribe(0),
		log:           log.With("component", "chat"),
		userID:        opts.UserID,
		notify:        opts.Notify,
		notifier:      SendNotification,
		viewport:      viewport.New(0, 0),
		input:         newInputModel(),
		colorMap:      make(map[string]lipgloss.Color),
		sidebarOpen:   opts.Engine.Mode() == core.ModePanel,
		initialScroll: true,
	}
	m.syncRooms()
	m.reloadMessages(false)
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.sub))
}

// Close ends the engine subscription. The engine itself belongs to the caller.
func (m *Model) Close() {
	if m.sub != nil {
		m.sub.Close()
	}
}

func (m *Model) syncRooms() {
	m.rooms = m.engine.Rooms()
	m.activeID = m.engine.Active()
	if m.sidebarIndex >= len(m.rooms) {
		m.sidebarIndex = len(m.rooms) - 1
	}
	if m.sidebarIndex < 0 {
		m.sidebarIndex = 0
	}
}

func (m *Model) activeRoom() (types.Room, bool) {
	for _, room := range m.rooms {
		if room.ID == m.activeID {
			return room, true
		}
	}
	return types.Room{}, false
}

func (m *Model) roomByID(roomID string) (types.Room, bool) {
	for _, room := range m.rooms {
		if room.ID == roomID {
			return room, true
		}
	}
	return types.Room{}, false
}

// isOwn reports whether senderID is the local user.
func (m *Model) isOwn(senderID string) bool {
	return senderID == types.LocalSender || (m.userID != "" && senderID == m.userID)
}
