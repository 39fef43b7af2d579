package chat

import (
	"context"
	"time"

	"github.com/bizportal/portalchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

const actionTimeout = 15 * time.Second

type actionResultMsg struct {
	status string
	err    error
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case engineEventMsg:
		return m.handleEngineEvent(msg)
	case subscriptionClosedMsg:
		return m, tea.Quit
	case olderLoadedMsg:
		return m.handleOlderLoaded(msg)
	case actionResultMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if handled, cmd := m.handleSidebarKeys(msg); handled {
		return m, cmd
	}
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() != "" {
			m.resetInput()
			return m, nil
		}
		return m, tea.Quit
	case tea.KeyTab:
		if m.sidebarOpen {
			m.focusSidebar(true)
		}
		return m, nil
	case tea.KeyCtrlB:
		m.toggleSidebar()
		return m, nil
	case tea.KeyCtrlN:
		return m, m.cycleRoom(1)
	case tea.KeyCtrlP:
		return m, m.cycleRoom(-1)
	case tea.KeyPgUp, tea.KeyCtrlU:
		m.scrollBy(-m.halfPage())
		if m.nearTop() {
			return m, m.loadOlderCmd()
		}
		return m, nil
	case tea.KeyPgDown, tea.KeyCtrlD:
		m.scrollBy(m.halfPage())
		if m.atBottom() {
			m.clearNewMessageNotification()
		}
		return m, nil
	case tea.KeyEnd:
		if m.input.Value() == "" {
			m.refreshViewport(true)
			return m, nil
		}
	case tea.KeyUp:
		if m.input.Value() == "" && m.prefillEditCommand() {
			return m, nil
		}
	case tea.KeyCtrlJ:
		m.insertInputText("\n")
		return m, nil
	case tea.KeyEnter:
		return m.submit()
	}
	if msg.Type == tea.KeyRunes && msg.Paste {
		m.insertInputText(normalizeNewlines(string(msg.Runes)))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.resize()
	return m, cmd
}

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	sidebarWidth := m.sidebarWidth()
	if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && m.sidebarOpen && msg.X < sidebarWidth {
		// Rows start below the header and its spacer.
		if idx := msg.Y - 2; idx >= 0 && idx < len(m.rooms) {
			m.sidebarIndex = idx
			return m, m.switchRoom(m.rooms[idx].ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	if msg.Button == tea.MouseButtonWheelUp && m.nearTop() {
		return m, tea.Batch(cmd, m.loadOlderCmd())
	}
	if m.atBottom() {
		m.clearNewMessageNotification()
	}
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	value := normalizeNewlines(m.input.Value())
	if isCommand(value) {
		m.resetInput()
		return m, m.runCommand(value)
	}
	if _, err := m.engine.Send(types.Draft{Body: value}); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.resetInput()
	m.refreshViewport(true)
	return m, nil
}

func (m *Model) scrollBy(delta int) {
	m.viewport.SetYOffset(m.viewport.YOffset + delta)
}

func (m *Model) halfPage() int {
	return max(1, m.viewport.Height/2)
}

// switchRoom activates roomID and shows its history from the bottom.
func (m *Model) switchRoom(roomID string) tea.Cmd {
	if roomID == m.activeID {
		return nil
	}
	if err := m.engine.Activate(roomID); err != nil {
		m.status = err.Error()
		return nil
	}
	m.syncRooms()
	m.loading = false
	m.clearNewMessageNotification()
	m.reloadMessages(false)
	m.refreshViewport(true)
	m.status = ""
	return nil
}

func (m *Model) cycleRoom(step int) tea.Cmd {
	if len(m.rooms) == 0 {
		return nil
	}
	current := 0
	for i, room := range m.rooms {
		if room.ID == m.activeID {
			current = i
			break
		}
	}
	next := (current + step + len(m.rooms)) % len(m.rooms)
	m.sidebarIndex = next
	return m.switchRoom(m.rooms[next].ID)
}

// prefillEditCommand puts "/edit #id body" for the user's last message into
// an empty composer.
func (m *Model) prefillEditCommand() bool {
	msg, ok := m.lastOwnMessage()
	if !ok {
		return false
	}
	m.input.SetValue("/edit #" + shortRef(msg.ID) + " " + msg.Body)
	m.input.CursorEnd()
	m.resize()
	return true
}

// runAction runs fn off the update loop and reports its outcome in the
// status line.
func (m *Model) runAction(fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		status, err := fn()
		return actionResultMsg{status: status, err: err}
	}
}

func actionContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), actionTimeout)
}
