package chat

import (
	"hash/fnv"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

var senderPalette = []lipgloss.Color{
	lipgloss.Color("111"),
	lipgloss.Color("157"),
	lipgloss.Color("216"),
	lipgloss.Color("36"),
	lipgloss.Color("183"),
	lipgloss.Color("230"),
}

var (
	userColor     = lipgloss.Color("231")
	textColor     = lipgloss.Color("252")
	blurText      = lipgloss.Color("245")
	metaColor     = lipgloss.Color("242")
	statusColor   = lipgloss.Color("241")
	errorColor    = lipgloss.Color("203")
	pendingColor  = lipgloss.Color("220")
	badgeColor    = lipgloss.Color("204")
	caretColor    = lipgloss.Color("39")
	inputBg       = lipgloss.Color("236")
	selectedBg    = lipgloss.Color("238")
	newBarBg      = lipgloss.Color("24")
	tombstoneText = lipgloss.Color("239")
)

// colorForSender keeps a sender's color stable for the whole session.
func (m *Model) colorForSender(senderID string) lipgloss.Color {
	if m.isOwn(senderID) {
		return userColor
	}
	if color, ok := m.colorMap[senderID]; ok {
		return color
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	color := senderPalette[int(h.Sum32()%uint32(len(senderPalette)))]
	m.colorMap[senderID] = color
	return color
}

func contrastTextColor(color lipgloss.Color) lipgloss.Color {
	code, err := strconv.Atoi(string(color))
	if err != nil {
		return lipgloss.Color("231")
	}
	// Light entries of the 256-color cube need dark text.
	if code >= 186 && code <= 231 || code >= 250 {
		return lipgloss.Color("16")
	}
	return lipgloss.Color("231")
}
