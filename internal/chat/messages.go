package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/store"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const shortIDLength = 6

var (
	errNoMessageRef   = errors.New("no message matches")
	errAmbiguousRef   = errors.New("message reference is ambiguous")
	errPendingMessage = errors.New("message is still sending")
)

func (m *Model) renderMessages() string {
	metaStyle := lipgloss.NewStyle().Foreground(metaColor)
	if m.activeID == "" {
		return metaStyle.Render("no room selected")
	}
	if len(m.messages) == 0 {
		return metaStyle.Render("no messages yet")
	}

	chunks := make([]string, 0, len(m.messages)+1)
	if m.hasMore {
		chunks = append(chunks, metaStyle.Render("↑ scroll up for older messages"))
	} else {
		chunks = append(chunks, metaStyle.Render("· start of conversation ·"))
	}
	now := time.Now()
	for _, msg := range m.messages {
		chunks = append(chunks, m.formatMessage(msg, now))
	}
	return strings.Join(chunks, "\n\n")
}

func (m *Model) formatMessage(msg types.Message, now time.Time) string {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	metaStyle := lipgloss.NewStyle().Foreground(metaColor)
	bodyStyle := lipgloss.NewStyle().Foreground(textColor).Width(width)

	header := renderByline(m.senderLabel(msg), m.colorForSender(msg.SenderID))
	meta := []string{humanize.RelTime(time.UnixMilli(msg.CreatedAt), now, "ago", "from now")}
	if msg.IsOptimistic() {
		meta = append(meta, lipgloss.NewStyle().Foreground(pendingColor).Render("sending…"))
	} else {
		meta = append(meta, "#"+shortRef(msg.ID))
	}
	if msg.EditedAt != nil && !msg.IsDeleted {
		meta = append(meta, "edited")
	}
	header += " " + metaStyle.Render(strings.Join(meta, " · "))

	if msg.IsDeleted {
		tombstone := lipgloss.NewStyle().Foreground(tombstoneText).Italic(true)
		return header + "\n" + tombstone.Render("message deleted")
	}

	lines := []string{header}
	if body := strings.TrimRight(msg.Body, "\n"); body != "" {
		lines = append(lines, bodyStyle.Render(body))
	}
	if att := msg.Attachment; att != nil {
		lines = append(lines, metaStyle.Render(formatAttachment(*att)))
	}
	if summary := formatReactionSummary(msg.Reactions); summary != "" {
		lines = append(lines, summary)
	}
	return strings.Join(lines, "\n")
}

func shortRef(id string) string {
	return core.ShortID(id, shortIDLength)
}

func (m *Model) senderLabel(msg types.Message) string {
	if m.isOwn(msg.SenderID) {
		return "you"
	}
	return msg.SenderID
}

func renderByline(sender string, color lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(sender)
}

func formatAttachment(att types.Attachment) string {
	name := att.Name
	if name == "" {
		name = att.URL
	}
	if att.Size > 0 {
		return fmt.Sprintf("📎 %s (%s)", name, humanize.Bytes(uint64(att.Size)))
	}
	return "📎 " + name
}

// formatReactionSummary renders reactions as chips, "👍 2  🎉 1", ordered by
// symbol so the line does not jump between repaints.
func formatReactionSummary(reactions map[string][]string) string {
	symbols := store.ReactionSymbols(reactions)
	if len(symbols) == 0 {
		return ""
	}
	chip := lipgloss.NewStyle().Foreground(contrastTextColor(selectedBg)).Background(selectedBg).Padding(0, 1)
	parts := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		parts = append(parts, chip.Render(fmt.Sprintf("%s %d", symbol, len(reactions[symbol]))))
	}
	return strings.Join(parts, " ")
}

// findMessage resolves a user-typed reference ("#ab12cd", "ab12", or a full
// id) against the loaded messages of the active room.
func (m *Model) findMessage(ref string) (types.Message, error) {
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	if ref == "" {
		return types.Message{}, errNoMessageRef
	}
	var matches []types.Message
	for _, msg := range m.messages {
		if msg.ID == ref {
			if msg.IsOptimistic() {
				return types.Message{}, errPendingMessage
			}
			return msg, nil
		}
		if msg.IsOptimistic() {
			continue
		}
		if strings.HasPrefix(core.ShortID(msg.ID, len(msg.ID)), ref) {
			matches = append(matches, msg)
		}
	}
	switch len(matches) {
	case 0:
		return types.Message{}, fmt.Errorf("%w %q", errNoMessageRef, ref)
	case 1:
		return matches[0], nil
	default:
		return types.Message{}, fmt.Errorf("%w: %q", errAmbiguousRef, ref)
	}
}

// lastOwnMessage returns the newest confirmed, undeleted message sent by the
// local user.
func (m *Model) lastOwnMessage() (types.Message, bool) {
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if m.isOwn(msg.SenderID) && !msg.IsOptimistic() && !msg.IsDeleted {
			return msg, true
		}
	}
	return types.Message{}, false
}

func truncateLine(value string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= maxLen {
		return value
	}
	if maxLen == 1 {
		return "…"
	}
	return string(runes[:maxLen-1]) + "…"
}
