package command

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/store"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/dustin/go-humanize"
)

var (
	noColor = os.Getenv("NO_COLOR") != ""

	dim    = ansiCode("\x1b[2m")
	bold   = ansiCode("\x1b[1m")
	gray   = ansiCode("\x1b[38;5;240m")
	reset  = ansiCode("\x1b[0m")
	yellow = ansiCode("\x1b[38;5;221m")
)

var senderColors = []string{
	ansiCode("\x1b[38;5;111m"),
	ansiCode("\x1b[38;5;157m"),
	ansiCode("\x1b[38;5;216m"),
	ansiCode("\x1b[38;5;36m"),
	ansiCode("\x1b[38;5;183m"),
	ansiCode("\x1b[38;5;230m"),
}

func ansiCode(code string) string {
	if noColor {
		return ""
	}
	return code
}

func senderColor(senderID, userID string) string {
	if noColor || senderID == userID || senderID == types.LocalSender {
		return ""
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(senderID))
	return senderColors[int(h.Sum32())%len(senderColors)]
}

// FormatMessage formats a message as one or more terminal lines.
func FormatMessage(msg types.Message, userID string, now time.Time) string {
	sender := msg.SenderID
	if sender == userID || sender == types.LocalSender {
		sender = "you"
	}
	when := humanize.RelTime(time.UnixMilli(msg.CreatedAt), now, "ago", "from now")

	meta := fmt.Sprintf("%s[%s", dim, msg.ID)
	if msg.EditedAt != nil {
		meta += " (edited)"
	}
	meta += " · " + when + "]" + reset

	var body string
	switch {
	case msg.IsDeleted:
		body = gray + "message deleted" + reset
	default:
		body = msg.Body
		if msg.Attachment != nil {
			att := fmt.Sprintf("📎 %s (%s)", msg.Attachment.Name, humanize.Bytes(uint64(max(msg.Attachment.Size, 0))))
			if body == "" {
				body = att
			} else {
				body += "\n  " + att
			}
		}
	}

	line := fmt.Sprintf("%s %s%s%s%s: %s", meta, bold, senderColor(msg.SenderID, userID), sender, reset, body)
	if reactions := formatReactions(msg.Reactions); reactions != "" && !msg.IsDeleted {
		line += "\n  " + reactions
	}
	return line
}

func formatReactions(reactions map[string][]string) string {
	if len(reactions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(reactions))
	for _, symbol := range store.ReactionSymbols(reactions) {
		parts = append(parts, fmt.Sprintf("%s %d", symbol, len(reactions[symbol])))
	}
	return strings.Join(parts, "  ")
}

// FormatRoom formats a room listing row.
func FormatRoom(room types.RoomSummary, now time.Time) string {
	name := room.Name
	if room.Type == types.RoomTypeGroup {
		name = "#" + name
	}
	var flags []string
	if room.IsPinned {
		flags = append(flags, "pinned")
	}
	if room.IsMuted {
		flags = append(flags, "muted")
	}
	badge := ""
	if room.UnreadCount > 0 {
		badge = fmt.Sprintf(" %s(%d)%s", yellow, room.UnreadCount, reset)
	}
	last := gray + "no messages" + reset
	if room.LastMessage != nil {
		last = fmt.Sprintf("%s%s%s", dim, humanize.RelTime(time.UnixMilli(room.LastMessage.CreatedAt), now, "ago", "from now"), reset)
	}
	suffix := ""
	if len(flags) > 0 {
		sort.Strings(flags)
		suffix = " " + dim + "[" + strings.Join(flags, ",") + "]" + reset
	}
	return fmt.Sprintf("%s%-24s%s%s  %s%s  %s%s%s", bold, name, reset, badge, last, suffix, dim, room.ID, reset)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
