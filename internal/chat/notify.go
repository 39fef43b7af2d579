package chat

import (
	"strings"

	"github.com/bizportal/portalchat/internal/types"
	"github.com/gen2brain/beeep"
)

const notificationBodyLen = 100

// SendNotification sends an OS notification for a message in a background room.
func SendNotification(room types.Room, msg types.Message) error {
	return beeep.Notify(notificationTitle(room, msg), notificationBody(msg), "")
}

func notificationTitle(room types.Room, msg types.Message) string {
	name := room.Name
	if name == "" {
		name = msg.RoomID
	}
	if room.Type == types.RoomTypeGroup && msg.SenderID != "" {
		return "#" + name + " · " + msg.SenderID
	}
	return name
}

func notificationBody(msg types.Message) string {
	body := msg.Body
	if strings.TrimSpace(body) == "" && msg.Attachment != nil {
		body = "sent " + msg.Attachment.Name
	}
	return truncateNotification(body, notificationBodyLen)
}

func truncateNotification(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
