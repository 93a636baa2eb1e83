package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"quiz_engine_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWatcher(t *testing.T, hub *Hub, initial Event) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Watch(w, r, "t-1", initial)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Watchers(initial.SessionID) == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubDeliversInitialThenPublished(t *testing.T) {
	hub := NewHub(nil)
	conn := dialWatcher(t, hub, Event{Type: EventAuthoring, SessionID: "s-42", Data: "hello"})

	first := readEvent(t, conn)
	assert.Equal(t, EventAuthoring, first["type"])
	assert.Equal(t, "hello", first["data"])

	hub.Publish(Event{Type: EventAuthoring, SessionID: "other", Data: "not for us"})
	hub.Publish(Event{Type: EventAuthoring, SessionID: "s-42", Data: "changed"})
	assert.Equal(t, "changed", readEvent(t, conn)["data"])

	hub.CloseSession("s-42")
	assert.Equal(t, EventClosed, readEvent(t, conn)["type"])
	assert.Zero(t, hub.Watchers("s-42"))

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestManagerPublishesSessionChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.manager.OpenAuthoring(ctx, teacher, "geo")
	require.NoError(t, err)
	require.NoError(t, s.StartFromScratch(ctx))

	conn := dialWatcher(t, f.manager.Hub, Event{Type: EventAuthoring, SessionID: s.ID, Data: s.View()})
	readEvent(t, conn)

	require.NoError(t, s.SetMeta(ctx, "Geography", ""))
	ev := readEvent(t, conn)
	assert.Equal(t, EventAuthoring, ev["type"])
	draft := ev["data"].(map[string]interface{})["draft"].(map[string]interface{})
	assert.Equal(t, "Geography", draft["title"])

	require.NoError(t, f.manager.CloseAuthoring(ctx, teacher, s.ID))
	assert.Equal(t, EventClosed, readEvent(t, conn)["type"])
}

func TestFailedGenerateClearsBusyForWatchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, err := f.manager.OpenAuthoring(ctx, teacher, "empty-subject")
	require.NoError(t, err)

	conn := dialWatcher(t, f.manager.Hub, Event{Type: EventAuthoring, SessionID: s.ID, Data: s.View()})
	readEvent(t, conn)

	require.ErrorIs(t, s.Generate(ctx), util.ErrInsufficientSource)

	started := readEvent(t, conn)["data"].(map[string]interface{})
	assert.Equal(t, true, started["busy"])
	settled := readEvent(t, conn)["data"].(map[string]interface{})
	assert.Equal(t, false, settled["busy"])
	assert.Equal(t, string(AuthoringDrafting), settled["state"])
	assert.False(t, s.View().Busy)
}
