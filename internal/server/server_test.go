package server

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/db"
	"github.com/bizportal/portalchat/internal/metrics"
	"github.com/bizportal/portalchat/internal/remote"
	"github.com/bizportal/portalchat/internal/types"
)

const testUser = "carol"

type fixture struct {
	conn  *sql.DB
	srv   *httptest.Server
	rooms map[string]types.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	seeded, err := db.Seed(conn, testUser)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	rooms := make(map[string]types.Room, len(seeded))
	for _, room := range seeded {
		rooms[room.Name] = room
	}

	srv := httptest.NewServer(New(conn, nil, metrics.New()))
	t.Cleanup(srv.Close)
	return &fixture{conn: conn, srv: srv, rooms: rooms}
}

func (f *fixture) client(t *testing.T, token string) *remote.Client {
	t.Helper()
	client, err := remote.NewClient(f.srv.URL, token, time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func apiStatus(err error) int {
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func TestRequiresBearerToken(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/v1/rooms")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(f.srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if path == "/metrics" && !strings.Contains(string(body), "portalchat_") {
			t.Fatalf("metrics output missing namespace:\n%s", body)
		}
	}
}

func TestClientRoundTrip(t *testing.T) {
	f := newFixture(t)
	client := f.client(t, testUser)
	ctx := context.Background()
	ops := f.rooms["Operations"]

	rooms, err := client.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}

	page, err := client.FetchMessages(ctx, ops.ID, types.FetchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page.Messages))
	}
	if page.HasMore == nil || !*page.HasMore {
		t.Fatalf("expected has_more=true, got %v", page.HasMore)
	}
	if page.Messages[0].CreatedAt >= page.Messages[1].CreatedAt {
		t.Fatalf("expected ascending order, got %d then %d", page.Messages[0].CreatedAt, page.Messages[1].CreatedAt)
	}

	older, err := client.FetchMessages(ctx, ops.ID, types.FetchOptions{Before: page.Messages[0].CreatedAt, Limit: 2})
	if err != nil {
		t.Fatalf("fetch older: %v", err)
	}
	if len(older.Messages) != 1 || older.HasMore == nil || *older.HasMore {
		t.Fatalf("expected the last older message and has_more=false, got %d %v", len(older.Messages), older.HasMore)
	}

	sent, err := client.SendMessage(ctx, ops.ID, types.Draft{Body: "hello from carol"}, "client-1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent == nil || sent.ClientID != "client-1" || sent.SenderID != testUser {
		t.Fatalf("unexpected echo: %+v", sent)
	}
	again, err := client.SendMessage(ctx, ops.ID, types.Draft{Body: "hello from carol"}, "client-1")
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if again.ID != sent.ID {
		t.Fatalf("expected retried send to return %s, got %s", sent.ID, again.ID)
	}

	since, err := client.FetchMessages(ctx, ops.ID, types.FetchOptions{Since: page.Messages[1].CreatedAt})
	if err != nil {
		t.Fatalf("fetch since: %v", err)
	}
	if len(since.Messages) != 1 || since.Messages[0].ID != sent.ID {
		t.Fatalf("expected only the sent message, got %+v", since.Messages)
	}

	if err := client.AddReaction(ctx, sent.ID, "👍"); err != nil {
		t.Fatalf("react: %v", err)
	}
	if err := client.EditMessage(ctx, sent.ID, "edited"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	since, err = client.FetchMessages(ctx, ops.ID, types.FetchOptions{Since: page.Messages[1].CreatedAt})
	if err != nil {
		t.Fatalf("fetch after edit: %v", err)
	}
	got := since.Messages[0]
	if got.Body != "edited" || got.EditedAt == nil {
		t.Fatalf("expected edited body, got %+v", got)
	}
	if reactors := got.Reactions["👍"]; len(reactors) != 1 || reactors[0] != testUser {
		t.Fatalf("expected reaction from %s, got %v", testUser, got.Reactions)
	}

	if err := client.DeleteMessage(ctx, sent.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := client.MarkRead(ctx, ops.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ops := f.rooms["Operations"]

	alice, err := db.Post(f.conn, ops.ID, "alice", "mine")
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	client := f.client(t, testUser)
	if err := client.EditMessage(ctx, alice.ID, "not yours"); apiStatus(err) != http.StatusForbidden {
		t.Fatalf("expected 403 editing another user's message, got %v", err)
	}
	if _, err := client.FetchMessages(ctx, "room-missing", types.FetchOptions{}); !remote.IsNotFound(err) {
		t.Fatalf("expected 404 for unknown room, got %v", err)
	}

	outsider := f.client(t, "mallory")
	if _, err := outsider.FetchMessages(ctx, ops.ID, types.FetchOptions{}); !remote.IsNotFound(err) {
		t.Fatalf("expected 404 for non-member, got %v", err)
	}
	if _, err := client.SendMessage(ctx, ops.ID, types.Draft{Body: "   "}, ""); apiStatus(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %v", err)
	}
}

func TestEngineOverHTTP(t *testing.T) {
	f := newFixture(t)
	ops := f.rooms["Operations"]

	engine := chatsync.New(f.client(t, testUser), chatsync.Config{
		UserID:       testUser,
		InitialRoom:  ops.ID,
		PollInterval: 20 * time.Millisecond,
	})
	t.Cleanup(engine.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, "initial load", func() bool { return len(engine.Messages(ops.ID)) == 3 })

	if _, err := db.Post(f.conn, ops.ID, "alice", "ping"); err != nil {
		t.Fatalf("post: %v", err)
	}
	waitFor(t, "remote message", func() bool { return len(engine.Messages(ops.ID)) == 4 })

	if _, err := engine.Send(types.Draft{Body: "pong"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	waitFor(t, "confirmed send", func() bool {
		msgs := engine.Messages(ops.ID)
		if len(msgs) != 5 {
			return false
		}
		last := msgs[len(msgs)-1]
		return last.Body == "pong" && !last.IsOptimistic()
	})

	// Later polls must not duplicate the echoed message.
	time.Sleep(100 * time.Millisecond)
	if n := len(engine.Messages(ops.ID)); n != 5 {
		t.Fatalf("expected 5 messages after further polls, got %d", n)
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
