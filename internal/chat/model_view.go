package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m *Model) View() string {
	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderNewMessagesBar(),
		m.input.View(),
		m.renderStatusLine(),
	)
	if !m.sidebarOpen {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), main)
}

func (m *Model) renderHeader() string {
	room, ok := m.activeRoom()
	if !ok {
		return lipgloss.NewStyle().Foreground(metaColor).Render("portalchat")
	}
	label, _ := formatRoomLabel(room)
	title := lipgloss.NewStyle().Foreground(userColor).Bold(true).Render(label)
	var detail string
	if len(room.Participants) > 0 {
		detail = fmt.Sprintf("%d members", len(room.Participants))
	}
	if m.loading {
		detail = strings.TrimPrefix(detail+" · loading older…", " · ")
	}
	if detail == "" {
		return title
	}
	return title + " " + lipgloss.NewStyle().Foreground(metaColor).Render(detail)
}

func (m *Model) renderNewMessagesBar() string {
	if len(m.newMessageAuthors) == 0 {
		return ""
	}
	text := fmt.Sprintf(" ↓ new messages from %s ", strings.Join(m.newMessageAuthors, ", "))
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("231")).
		Background(newBarBg).
		Render(truncateLine(text, m.mainWidth()))
}

func (m *Model) renderStatusLine() string {
	left := m.status
	style := lipgloss.NewStyle().Foreground(statusColor)
	if strings.Contains(left, "failed") {
		style = style.Foreground(errorColor)
	}
	if left == "" {
		left = "enter send · tab rooms · ctrl+n/p switch · pgup older · /help"
	}
	right := m.engine.Mode()
	if m.userID != "" {
		right = m.userID + " · " + right
	}
	return style.Render(alignStatusLine(left, right, m.mainWidth()))
}

func alignStatusLine(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncateLine(left, width)
	}
	return left + strings.Repeat(" ", gap) + right
}
