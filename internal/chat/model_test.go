package chat

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/db"
	"github.com/bizportal/portalchat/internal/types"
	tea "github.com/charmbracelet/bubbletea"
)

const testUser = "carol"

// newTestModel opens a database, lets setup create rooms and return the one
// to open, and starts an engine and model over it.
func newTestModel(t *testing.T, cfg chatsync.Config, setup func(conn *sql.DB) string) (*Model, *sql.DB) {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	cfg.UserID = testUser
	cfg.InitialRoom = setup(conn)
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 50 * time.Millisecond
	}
	engine := chatsync.New(db.NewService(conn, testUser), cfg)
	t.Cleanup(engine.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, "initial load", func() bool { return engine.Loaded(cfg.InitialRoom) })

	m, err := NewModel(Options{Engine: engine, UserID: testUser})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	m.notifier = nil
	t.Cleanup(m.Close)
	return m, conn
}

func seededRoom(t *testing.T, name string) func(conn *sql.DB) string {
	return func(conn *sql.DB) string {
		rooms, err := db.Seed(conn, testUser)
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		for _, room := range rooms {
			if room.Name == name {
				return room.ID
			}
		}
		t.Fatalf("seeded room %q missing", name)
		return ""
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func messageBodies(messages []types.Message) []string {
	out := make([]string, 0, len(messages))
	for _, msg := range messages {
		out = append(out, msg.Body)
	}
	return out
}

func TestModelShowsActiveRoom(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	if len(m.messages) != 3 {
		t.Fatalf("expected 3 seeded messages, got %d", len(m.messages))
	}
	if !m.sidebarOpen {
		t.Fatalf("expected the sidebar open in panel mode")
	}
	view := m.View()
	for _, want := range []string{"#Operations", "Rooms", "supplier portal"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelSubmitSends(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	typeText(m, "on my way")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.input.Value() != "" {
		t.Fatalf("expected the composer cleared, got %q", m.input.Value())
	}
	waitFor(t, "confirmed send", func() bool {
		msgs := m.engine.Messages(m.activeID)
		last := msgs[len(msgs)-1]
		return last.Body == "on my way" && !last.IsOptimistic()
	})

	m.Update(engineEventMsg{event: chatsync.Event{Kind: chatsync.EventMessages, RoomID: m.activeID}})
	bodies := messageBodies(m.messages)
	if bodies[len(bodies)-1] != "on my way" || len(bodies) != 4 {
		t.Fatalf("unexpected messages after send: %v", bodies)
	}
}

func TestModelSwitchRoom(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	start := m.activeID

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlN})
	if m.activeID == start {
		t.Fatalf("expected ctrl+n to switch rooms")
	}
	if m.engine.Active() != m.activeID {
		t.Fatalf("engine active %q, model active %q", m.engine.Active(), m.activeID)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlP})
	if m.activeID != start {
		t.Fatalf("expected ctrl+p to return to %s, got %s", start, m.activeID)
	}
}

func TestModelSidebarNavigation(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if !m.sidebarFocus {
		t.Fatalf("expected tab to focus the sidebar")
	}
	typeText(m, "j")
	if m.input.Value() != "" {
		t.Fatalf("sidebar keys leaked into the composer: %q", m.input.Value())
	}
	target := m.rooms[m.sidebarIndex].ID
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeID != target || m.sidebarFocus {
		t.Fatalf("expected enter to open %s and return focus, got %s focus=%v", target, m.activeID, m.sidebarFocus)
	}
}

func TestModelLoadOlderKeepsAnchor(t *testing.T) {
	cfg := chatsync.Config{PageSize: 5, InitialLimit: 5}
	m, _ := newTestModel(t, cfg, func(conn *sql.DB) string {
		room, err := db.CreateRoom(conn, types.Room{Name: "history", Participants: []string{testUser, "bob"}})
		if err != nil {
			t.Fatalf("create room: %v", err)
		}
		for i := 1; i <= 12; i++ {
			if _, err := db.Post(conn, room.ID, "bob", fmt.Sprintf("message %d", i)); err != nil {
				t.Fatalf("post: %v", err)
			}
		}
		return room.ID
	})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})

	if got := messageBodies(m.messages); len(got) != 5 || got[0] != "message 8" {
		t.Fatalf("expected the latest page, got %v", got)
	}
	if !m.hasMore {
		t.Fatalf("expected more history")
	}

	anchor := -1
	for i, line := range strings.Split(m.renderMessages(), "\n") {
		if strings.Contains(line, "message 8") {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		t.Fatalf("anchor line not rendered")
	}
	m.viewport.SetYOffset(anchor)

	cmd := m.loadOlderCmd()
	if cmd == nil {
		t.Fatalf("expected a load command")
	}
	if again := m.loadOlderCmd(); again != nil {
		t.Fatalf("expected a single outstanding load")
	}
	m.Update(cmd())
	m.Update(engineEventMsg{event: chatsync.Event{Kind: chatsync.EventMessages, RoomID: m.activeID, Older: true}})

	if got := messageBodies(m.messages); len(got) != 10 || got[0] != "message 3" {
		t.Fatalf("expected older page prepended, got %v", got)
	}
	top := strings.Split(m.viewport.View(), "\n")[0]
	if !strings.Contains(top, "message 8") {
		t.Fatalf("expected the anchor to stay on top, got %q", top)
	}
}

func TestModelSendFailureRestoresDraft(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})

	failed := types.Message{RoomID: m.activeID, Body: "lost words"}
	m.Update(engineEventMsg{event: chatsync.Event{
		Kind:    chatsync.EventSendFailed,
		RoomID:  m.activeID,
		Message: &failed,
		Err:     fmt.Errorf("boom"),
	}})
	if m.input.Value() != "lost words" {
		t.Fatalf("expected the draft restored, got %q", m.input.Value())
	}
	if !strings.Contains(m.status, "boom") {
		t.Fatalf("expected the error in the status line, got %q", m.status)
	}
}

func TestModelNotifiesBackgroundRooms(t *testing.T) {
	m, _ := newTestModel(t, chatsync.Config{}, seededRoom(t, "Operations"))
	m.notify = true
	var got []string
	m.notifier = func(room types.Room, msg types.Message) error {
		got = append(got, room.Name+":"+msg.Body)
		return nil
	}

	var alice types.Room
	for _, room := range m.rooms {
		if room.Name == "alice" {
			alice = room
		}
	}
	msg := types.Message{ID: "msg-x", RoomID: alice.ID, SenderID: "alice", Body: "ping"}
	_, cmd := m.Update(engineEventMsg{event: chatsync.Event{Kind: chatsync.EventNewMessage, RoomID: alice.ID, Message: &msg}})
	if cmd == nil {
		t.Fatalf("expected commands")
	}
	// The batch also holds the blocking event wait, so run the notifier alone.
	_ = m.notifyCmd(alice, msg)()
	if len(got) != 1 || got[0] != "alice:ping" {
		t.Fatalf("unexpected notifications: %v", got)
	}
	if m.status != "new message in alice" {
		t.Fatalf("unexpected status %q", m.status)
	}
}
