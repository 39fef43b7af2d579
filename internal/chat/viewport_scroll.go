package chat

import (
	"context"
	"time"

	"github.com/bizportal/portalchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const olderTimeout = 15 * time.Second

type olderLoadedMsg struct {
	roomID string
	page   types.Page
	err    error
}

func (m *Model) refreshViewport(scrollToBottom bool) {
	content := m.renderMessages()
	m.rendered = lipgloss.Height(content)
	m.viewport.SetContent(content)
	if scrollToBottom {
		m.viewport.GotoBottom()
		m.clearNewMessageNotification()
		return
	}
	if m.viewport.Height <= 0 {
		return
	}
	maxOffset := m.rendered - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if m.viewport.YOffset > maxOffset {
		m.viewport.SetYOffset(maxOffset)
	}
}

// reloadMessages pulls the active room's snapshot from the engine. Older
// history is prepended, so the offset moves down by the added height to
// keep the same lines on screen.
func (m *Model) reloadMessages(older bool) {
	prevHeight := m.rendered
	wasAtBottom := m.atBottom()
	if m.activeID == "" {
		m.messages = nil
		m.hasMore = false
	} else {
		m.messages = m.engine.Messages(m.activeID)
		m.hasMore = m.engine.HasMore(m.activeID)
	}
	if !older {
		m.refreshViewport(wasAtBottom)
		return
	}
	offset := m.viewport.YOffset
	m.refreshViewport(false)
	if delta := m.rendered - prevHeight; delta > 0 {
		m.viewport.SetYOffset(offset + delta)
	}
}

func (m *Model) nearTop() bool {
	return m.viewport.YOffset <= 2
}

// atBottom returns true if the viewport is scrolled to (or near) the bottom.
func (m *Model) atBottom() bool {
	if m.viewport.Height <= 0 {
		return true
	}
	maxOffset := m.rendered - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	return m.viewport.YOffset >= maxOffset-2
}

func (m *Model) addNewMessageAuthor(author string) {
	for _, existing := range m.newMessageAuthors {
		if existing == author {
			return
		}
	}
	m.newMessageAuthors = append(m.newMessageAuthors, author)
}

func (m *Model) clearNewMessageNotification() {
	m.newMessageAuthors = nil
}

// loadOlderCmd asks the engine for the previous page of the active room.
// At most one request is outstanding.
func (m *Model) loadOlderCmd() tea.Cmd {
	if m.loading || !m.hasMore || m.activeID == "" {
		return nil
	}
	m.loading = true
	engine := m.engine
	roomID := m.activeID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), olderTimeout)
		defer cancel()
		page, err := engine.LoadOlder(ctx, roomID)
		return olderLoadedMsg{roomID: roomID, page: page, err: err}
	}
}

func (m *Model) handleOlderLoaded(msg olderLoadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.roomID != m.activeID {
		return m, nil
	}
	if msg.err != nil {
		m.status = "load older failed: " + msg.err.Error()
		return m, nil
	}
	m.hasMore = msg.page.HasMore
	if !m.hasMore {
		m.status = "start of conversation"
	}
	return m, nil
}
