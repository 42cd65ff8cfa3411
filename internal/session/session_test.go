package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"snakebattle/internal/game"
	"snakebattle/internal/protocol"
)

type fakeRoom struct {
	mu          sync.Mutex
	outs        map[string]chan<- protocol.ServerMessage
	intents     chan protocol.ClientMessage
	left        chan string
	disconnects int
}

func newFakeRoom() *fakeRoom {
	return &fakeRoom{
		outs:    make(map[string]chan<- protocol.ServerMessage),
		intents: make(chan protocol.ClientMessage, 16),
		left:    make(chan string, 4),
	}
}

func (f *fakeRoom) Connect(_ context.Context, id string, out chan<- protocol.ServerMessage) error {
	f.mu.Lock()
	f.outs[id] = out
	f.mu.Unlock()
	out <- protocol.WelcomeMsg(id)
	return nil
}

func (f *fakeRoom) Disconnect(_ context.Context, id string) error {
	f.mu.Lock()
	f.disconnects++
	delete(f.outs, id)
	f.mu.Unlock()
	f.left <- id
	return nil
}

func (f *fakeRoom) Dispatch(_ context.Context, _ string, msg protocol.ClientMessage) error {
	f.intents <- msg
	return nil
}

func (f *fakeRoom) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func serve(t *testing.T, room Room, cfg Config) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		codec := protocol.ForEncoding(r.URL.Query().Get("encoding"))
		_ = New(conn, room, codec, cfg).Run(context.Background())
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readServer(t *testing.T, conn *websocket.Conn, codec *protocol.Codec) (int, protocol.Envelope) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	env, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return frame, env
}

func waitLeft(t *testing.T, room *fakeRoom) string {
	t.Helper()
	select {
	case id := <-room.left:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("room was not told about the disconnect")
		return ""
	}
}

func TestSession_WelcomeAndIntent(t *testing.T) {
	room := newFakeRoom()
	conn := dial(t, serve(t, room, Config{}))

	frame, env := readServer(t, conn, protocol.JSON)
	if frame != websocket.TextMessage {
		t.Fatalf("frame = %d, want text", frame)
	}
	if env.Type != protocol.TypeWelcome {
		t.Fatalf("type = %q, want Welcome", env.Type)
	}
	var w protocol.Welcome
	if err := env.Payload(&w); err != nil || w.PlayerID == "" {
		t.Fatalf("welcome payload = %+v err=%v", w, err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Direction","payload":{"direction":"Left"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case msg := <-room.intents:
		if msg.Type != protocol.TypeDirection || msg.Direction != game.Left {
			t.Fatalf("intent = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("intent not dispatched")
	}
}

func TestSession_BadFrameGetsError(t *testing.T) {
	room := newFakeRoom()
	conn := dial(t, serve(t, room, Config{}))
	readServer(t, conn, protocol.JSON)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Teleport"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, env := readServer(t, conn, protocol.JSON)
	if env.Type != protocol.TypeError {
		t.Fatalf("type = %q, want Error", env.Type)
	}
	select {
	case msg := <-room.intents:
		t.Fatalf("bad frame reached the room: %+v", msg)
	default:
	}

	// The session survives a bad frame.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Ready"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case msg := <-room.intents:
		if msg.Type != protocol.TypeReady {
			t.Fatalf("intent = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("intent not dispatched after bad frame")
	}
}

func TestSession_CloseDisconnectsOnce(t *testing.T) {
	room := newFakeRoom()
	conn := dial(t, serve(t, room, Config{}))
	_, env := readServer(t, conn, protocol.JSON)
	var w protocol.Welcome
	_ = env.Payload(&w)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	if id := waitLeft(t, room); id != w.PlayerID {
		t.Fatalf("left = %q, want %q", id, w.PlayerID)
	}
	time.Sleep(50 * time.Millisecond)
	if n := room.disconnectCount(); n != 1 {
		t.Fatalf("disconnects = %d, want 1", n)
	}
}

func TestSession_SilentClientTimesOut(t *testing.T) {
	room := newFakeRoom()
	cfg := Config{HeartbeatInterval: 10 * time.Millisecond, ClientTimeout: 50 * time.Millisecond}
	dial(t, serve(t, room, cfg))

	// The client never reads, so it never answers pings.
	waitLeft(t, room)
	if n := room.disconnectCount(); n != 1 {
		t.Fatalf("disconnects = %d, want 1", n)
	}
}

func TestSession_ResponsiveClientStays(t *testing.T) {
	room := newFakeRoom()
	cfg := Config{HeartbeatInterval: 10 * time.Millisecond, ClientTimeout: 50 * time.Millisecond}
	conn := dial(t, serve(t, room, cfg))

	// Reading processes pings and answers them with pongs.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-room.left:
		t.Fatal("responsive client was dropped")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSession_MsgPackUsesBinaryFrames(t *testing.T) {
	room := newFakeRoom()
	conn := dial(t, serve(t, room, Config{})+"?encoding=msgpack")

	frame, env := readServer(t, conn, protocol.MsgPack)
	if frame != websocket.BinaryMessage {
		t.Fatalf("frame = %d, want binary", frame)
	}
	if env.Type != protocol.TypeWelcome {
		t.Fatalf("type = %q, want Welcome", env.Type)
	}

	data, err := protocol.MsgPack.EncodeClient(protocol.ClientMessage{
		Type: protocol.TypeJoin,
		Join: protocol.Join{Name: "ana"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case msg := <-room.intents:
		if msg.Type != protocol.TypeJoin || msg.Join.Name != "ana" {
			t.Fatalf("intent = %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("intent not dispatched")
	}
}
