package chat

import (
	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

type engineEventMsg struct {
	event chatsync.Event
}

type subscriptionClosedMsg struct{}

// waitForEvent blocks on the subscription; Update re-arms it after each event.
func waitForEvent(sub *chatsync.Subscription) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return subscriptionClosedMsg{}
		}
		return engineEventMsg{event: ev}
	}
}

func (m *Model) handleEngineEvent(msg engineEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.event
	cmds := []tea.Cmd{waitForEvent(m.sub)}

	switch ev.Kind {
	case chatsync.EventRooms:
		prevActive := m.activeID
		m.syncRooms()
		if m.activeID != prevActive {
			m.reloadMessages(false)
			m.refreshViewport(true)
		}
	case chatsync.EventMessages:
		if ev.RoomID == "" || ev.RoomID == m.activeID {
			m.applyMessages(ev.Older)
		}
	case chatsync.EventScrollToBottom:
		if ev.RoomID == m.activeID {
			m.refreshViewport(true)
		}
	case chatsync.EventNewMessage:
		room, _ := m.roomByID(ev.RoomID)
		if room.Name != "" {
			m.status = "new message in " + room.Name
		}
		if m.notify && ev.Message != nil {
			cmds = append(cmds, m.notifyCmd(room, *ev.Message))
		}
	case chatsync.EventSendFailed:
		m.status = "send failed"
		if ev.Err != nil {
			m.status += ": " + ev.Err.Error()
		}
		if ev.Message != nil && m.input.Value() == "" && ev.RoomID == m.activeID {
			m.input.SetValue(ev.Message.Body)
			m.input.CursorEnd()
			m.resize()
		}
	}
	return m, tea.Batch(cmds...)
}

// applyMessages repaints the active room. When the user has scrolled up,
// new messages from others are announced in the bar instead of scrolling.
func (m *Model) applyMessages(older bool) {
	prevLast := lastMessageID(m.messages)
	wasAtBottom := m.atBottom()
	m.reloadMessages(older)
	if older || wasAtBottom || len(m.messages) == 0 {
		return
	}
	last := m.messages[len(m.messages)-1]
	if last.ID != prevLast && !m.isOwn(last.SenderID) {
		m.addNewMessageAuthor(m.senderLabel(last))
	}
}

func (m *Model) notifyCmd(room types.Room, msg types.Message) tea.Cmd {
	notifier := m.notifier
	log := m.log
	return func() tea.Msg {
		if notifier == nil {
			return nil
		}
		if err := notifier(room, msg); err != nil {
			log.Warn("notification failed", "room", room.ID, "error", err)
		}
		return nil
	}
}

func lastMessageID(messages []types.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].ID
}
