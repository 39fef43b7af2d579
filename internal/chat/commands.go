package chat

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

const helpText = "/react #id 👍 · /edit #id text · /rm #id · /pin · /unpin · /mute · /unmute · /clear · /older · /refresh · /room name · /quit"

func isCommand(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "/")
}

// parseCommand splits "/name rest of line" into its name and argument text.
func parseCommand(value string) (string, string) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "/")
	name, args, _ := strings.Cut(value, " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (m *Model) runCommand(value string) tea.Cmd {
	name, args := parseCommand(value)
	switch name {
	case "help", "?":
		m.status = helpText
		return nil
	case "quit", "q":
		return tea.Quit
	case "react":
		return m.reactCommand(args)
	case "edit":
		return m.editCommand(args)
	case "rm", "delete":
		return m.deleteCommand(args)
	case "pin", "unpin":
		return m.roomFlagCommand(name == "pin", true)
	case "mute", "unmute":
		return m.roomFlagCommand(name == "mute", false)
	case "clear":
		roomID := m.activeID
		return m.runAction(func() (string, error) {
			return "cleared", m.engine.ClearRoom(roomID)
		})
	case "older":
		if !m.hasMore {
			m.status = "start of conversation"
			return nil
		}
		return m.loadOlderCmd()
	case "refresh":
		return m.runAction(func() (string, error) {
			ctx, cancel := actionContext()
			defer cancel()
			return "rooms refreshed", m.engine.RefreshRooms(ctx)
		})
	case "room":
		return m.roomCommand(args)
	}
	m.status = fmt.Sprintf("unknown command /%s (try /help)", name)
	return nil
}

func (m *Model) reactCommand(args string) tea.Cmd {
	ref, symbol, _ := strings.Cut(args, " ")
	symbol = strings.TrimSpace(symbol)
	if ref == "" || symbol == "" {
		m.status = "usage: /react #id <emoji>"
		return nil
	}
	msg, err := m.findMessage(ref)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	return m.runAction(func() (string, error) {
		ctx, cancel := actionContext()
		defer cancel()
		active, err := m.engine.React(ctx, msg.ID, symbol)
		if err != nil {
			return "", err
		}
		if active == "" {
			return "removed " + symbol, nil
		}
		return "reacted " + active, nil
	})
}

func (m *Model) editCommand(args string) tea.Cmd {
	ref, body, _ := strings.Cut(args, " ")
	if ref == "" || strings.TrimSpace(body) == "" {
		m.status = "usage: /edit #id <new text>"
		return nil
	}
	msg, err := m.findMessage(ref)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	if !m.isOwn(msg.SenderID) {
		m.status = "you can only edit your own messages"
		return nil
	}
	return m.runAction(func() (string, error) {
		ctx, cancel := actionContext()
		defer cancel()
		return "edited #" + shortRef(msg.ID), m.engine.Edit(ctx, msg.ID, strings.TrimSpace(body))
	})
}

func (m *Model) deleteCommand(args string) tea.Cmd {
	msg, err := m.findMessage(args)
	if err != nil {
		m.status = err.Error()
		return nil
	}
	if !m.isOwn(msg.SenderID) {
		m.status = "you can only delete your own messages"
		return nil
	}
	return m.runAction(func() (string, error) {
		ctx, cancel := actionContext()
		defer cancel()
		return "deleted #" + shortRef(msg.ID), m.engine.Delete(ctx, msg.ID)
	})
}

func (m *Model) roomFlagCommand(on, pin bool) tea.Cmd {
	room, ok := m.activeRoom()
	if !ok {
		m.status = "no room selected"
		return nil
	}
	return m.runAction(func() (string, error) {
		if pin {
			return pinStatus(room, on), m.engine.SetPinned(room.ID, on)
		}
		return muteStatus(room, on), m.engine.SetMuted(room.ID, on)
	})
}

func (m *Model) roomCommand(args string) tea.Cmd {
	if args == "" {
		m.status = "usage: /room <name>"
		return nil
	}
	target := strings.ToLower(strings.TrimPrefix(args, "#"))
	for i, room := range m.rooms {
		if room.ID == args || strings.ToLower(room.Name) == target {
			m.sidebarIndex = i
			return m.switchRoom(room.ID)
		}
	}
	m.status = fmt.Sprintf("no room %q", args)
	return nil
}
