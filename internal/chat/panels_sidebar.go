package chat

import (
	"fmt"
	"strings"

	"github.com/bizportal/portalchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m *Model) renderSidebar() string {
	width := m.sidebarWidth()
	if width <= 0 {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	itemStyle := lipgloss.NewStyle().Foreground(blurText)
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	selectedStyle := activeStyle.Background(selectedBg)
	badgeStyle := lipgloss.NewStyle().Foreground(badgeColor).Bold(true)

	lines := []string{headerStyle.Render(" Rooms "), ""}
	if len(m.rooms) == 0 {
		lines = append(lines, itemStyle.Render(" (none)"))
	}
	for i, room := range m.rooms {
		label, badge := formatRoomLabel(room)
		name := truncateLine(" "+label, width-len([]rune(badge))-2)
		line := name
		if badge != "" {
			pad := width - 1 - lipgloss.Width(name) - len([]rune(badge))
			if pad < 1 {
				pad = 1
			}
			line = name + strings.Repeat(" ", pad) + badgeStyle.Render(badge)
		}

		style := itemStyle
		switch {
		case m.sidebarFocus && i == m.sidebarIndex:
			style = selectedStyle
		case room.ID == m.activeID:
			style = activeStyle
		}
		lines = append(lines, style.Render(line))
	}

	if m.sidebarFocus {
		lines = append(lines, "", itemStyle.Render(" ↑↓ enter · p pin · m mute"))
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height).
		BorderRight(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		Render(strings.Join(lines, "\n"))
}

// formatRoomLabel returns the display name with pin and mute markers, and
// the unread badge: the count when known, "•" for a bare new-message flag.
func formatRoomLabel(room types.Room) (string, string) {
	label := room.Name
	if label == "" {
		label = room.ID
	}
	if room.Type == types.RoomTypeGroup {
		label = "#" + label
	}
	if room.IsPinned {
		label = "★ " + label
	}
	if room.IsMuted {
		label += " ∅"
	}
	switch {
	case room.UnreadCount > 99:
		return label, "99+"
	case room.UnreadCount > 0:
		return label, fmt.Sprintf("%d", room.UnreadCount)
	case room.HasNew:
		return label, "•"
	}
	return label, ""
}

func (m *Model) handleSidebarKeys(msg tea.KeyMsg) (bool, tea.Cmd) {
	if !m.sidebarFocus {
		return false, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.sidebarIndex > 0 {
			m.sidebarIndex--
		}
		return true, nil
	case "down", "j":
		if m.sidebarIndex < len(m.rooms)-1 {
			m.sidebarIndex++
		}
		return true, nil
	case "enter":
		if m.sidebarIndex < len(m.rooms) {
			cmd := m.switchRoom(m.rooms[m.sidebarIndex].ID)
			m.focusSidebar(false)
			return true, cmd
		}
		return true, nil
	case "p":
		if m.sidebarIndex < len(m.rooms) {
			room := m.rooms[m.sidebarIndex]
			return true, m.runAction(func() (string, error) {
				return pinStatus(room, !room.IsPinned), m.engine.SetPinned(room.ID, !room.IsPinned)
			})
		}
		return true, nil
	case "m":
		if m.sidebarIndex < len(m.rooms) {
			room := m.rooms[m.sidebarIndex]
			return true, m.runAction(func() (string, error) {
				return muteStatus(room, !room.IsMuted), m.engine.SetMuted(room.ID, !room.IsMuted)
			})
		}
		return true, nil
	case "esc", "tab":
		m.focusSidebar(false)
		return true, nil
	}
	return true, nil
}

func pinStatus(room types.Room, pinned bool) string {
	if pinned {
		return "pinned " + room.Name
	}
	return "unpinned " + room.Name
}

func muteStatus(room types.Room, muted bool) string {
	if muted {
		return "muted " + room.Name
	}
	return "unmuted " + room.Name
}
