package room

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"snakebattle/internal/game"
	"snakebattle/internal/protocol"
	"snakebattle/internal/scores"
)

const testTick = 5 * time.Millisecond

type memRecorder struct {
	mu  sync.Mutex
	got []scores.Result
}

func (m *memRecorder) Record(r scores.Result) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, r)
	return true
}

func (m *memRecorder) results() []scores.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]scores.Result(nil), m.got...)
}

func newTestRoom(t *testing.T, opts Options) *Room {
	t.Helper()
	if opts.TickInterval == 0 {
		opts.TickInterval = testTick
	}
	if opts.Settings == (game.Settings{}) {
		opts.Settings = game.DefaultSettings()
	}
	opts.Settings.PowerUpsEnabled = false
	opts.Seed = 1
	r := New("room-id", "ABCDEF", opts)
	t.Cleanup(r.Stop)
	return r
}

func attach(t *testing.T, r *Room, id string) chan protocol.ServerMessage {
	t.Helper()
	out := make(chan protocol.ServerMessage, 1024)
	if err := r.Connect(context.Background(), id, out); err != nil {
		t.Fatalf("Connect %s: %v", id, err)
	}
	return out
}

func dispatch(t *testing.T, r *Room, id string, msg protocol.ClientMessage) {
	t.Helper()
	if err := r.Dispatch(context.Background(), id, msg); err != nil {
		t.Fatalf("Dispatch %s %s: %v", id, msg.Type, err)
	}
}

// next reads from out until a message of the given type arrives.
func next(t *testing.T, out <-chan protocol.ServerMessage, typ string) protocol.ServerMessage {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case m := <-out:
			if m.Type == typ {
				return m
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func join(t *testing.T, r *Room, id, name string) chan protocol.ServerMessage {
	t.Helper()
	out := attach(t, r, id)
	dispatch(t, r, id, protocol.ClientMessage{Type: protocol.TypeJoin, Join: protocol.Join{Name: name}})
	next(t, out, protocol.TypePlayerJoined)
	return out
}

func snapshot(t *testing.T, r *Room) protocol.GameState {
	t.Helper()
	gs, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return gs
}

func TestRoom_ConnectSendsWelcomeAndState(t *testing.T) {
	r := newTestRoom(t, Options{})
	out := attach(t, r, "p1")
	first := <-out
	if first.Type != protocol.TypeWelcome || first.Payload.(protocol.Welcome).PlayerID != "p1" {
		t.Errorf("first message %+v, want Welcome p1", first)
	}
	second := <-out
	if second.Type != protocol.TypeGameState {
		t.Errorf("second message %s, want GameState", second.Type)
	}
}

func TestRoom_CountdownThenPlaying(t *testing.T) {
	r := newTestRoom(t, Options{})
	a := join(t, r, "a", "alice")
	b := join(t, r, "b", "bob")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "b", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})

	var countdown []int
	for {
		m := <-a
		if m.Type == protocol.TypeGameStarted {
			break
		}
		if m.Type != protocol.TypeGameState {
			continue
		}
		gs := m.Payload.(protocol.GameState)
		if gs.Phase == game.Countdown {
			if len(countdown) == 0 || countdown[len(countdown)-1] != gs.Countdown {
				countdown = append(countdown, gs.Countdown)
			}
		}
	}
	want := []int{3, 2, 1, 0}
	if len(countdown) != len(want) {
		t.Fatalf("countdown %v, want %v", countdown, want)
	}
	for i := range want {
		if countdown[i] != want[i] {
			t.Fatalf("countdown %v, want %v", countdown, want)
		}
	}
	gs := next(t, a, protocol.TypeGameState).Payload.(protocol.GameState)
	if gs.Phase != game.Playing || gs.Countdown != 0 {
		t.Errorf("phase %v countdown %d, want Playing 0", gs.Phase, gs.Countdown)
	}
	next(t, b, protocol.TypeGameStarted)
}

func TestRoom_StartBeforeReadyIsRejected(t *testing.T) {
	r := newTestRoom(t, Options{})
	a := join(t, r, "a", "alice")
	b := join(t, r, "b", "bob")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})

	m := next(t, a, protocol.TypeError)
	if msg := m.Payload.(protocol.Error).Message; msg != game.ErrNotReady.Error() {
		t.Errorf("error %q", msg)
	}
	if gs := snapshot(t, r); gs.Phase != game.Lobby {
		t.Errorf("phase %v, want Lobby", gs.Phase)
	}
	// The error went to the offender only.
	for len(b) > 0 {
		if m := <-b; m.Type == protocol.TypeError {
			t.Error("bystander received the error")
		}
	}
}

func TestRoom_JoinFull(t *testing.T) {
	settings := game.DefaultSettings()
	settings.MaxPlayers = 1
	r := newTestRoom(t, Options{Settings: settings})
	join(t, r, "a", "alice")
	out := attach(t, r, "b")
	dispatch(t, r, "b", protocol.ClientMessage{Type: protocol.TypeJoin, Join: protocol.Join{Name: "bob"}})
	m := next(t, out, protocol.TypeError)
	if !strings.Contains(m.Payload.(protocol.Error).Message, "full") {
		t.Errorf("error %+v", m.Payload)
	}
	if gs := snapshot(t, r); len(gs.Players) != 1 {
		t.Errorf("players %d, want 1", len(gs.Players))
	}
}

func TestRoom_JoinWhilePlaying(t *testing.T) {
	r := newTestRoom(t, Options{})
	a := join(t, r, "a", "alice")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})
	next(t, a, protocol.TypeGameStarted)

	out := attach(t, r, "late")
	dispatch(t, r, "late", protocol.ClientMessage{Type: protocol.TypeJoin, Join: protocol.Join{Name: "late"}})
	m := next(t, out, protocol.TypeError)
	if m.Payload.(protocol.Error).Message != game.ErrInProgress.Error() {
		t.Errorf("error %+v", m.Payload)
	}
}

func TestRoom_LoneSnakeGameOver(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec := &memRecorder{}
	r := newTestRoom(t, Options{Scores: rec, Now: func() time.Time { return now }})
	out := attach(t, r, "a")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeJoin, Join: protocol.Join{
		Name: "alice", UserID: "user-1", AccessToken: token,
	}})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})

	m := next(t, out, protocol.TypeGameOver)
	if w := m.Payload.(protocol.GameOver).Winner; w != nil {
		t.Errorf("winner %q, want none", *w)
	}
	if gs := snapshot(t, r); gs.Phase != game.GameOver || gs.Winner != nil {
		t.Errorf("phase %v winner %v", gs.Phase, gs.Winner)
	}
	got := rec.results()
	if len(got) != 1 {
		t.Fatalf("recorded %d results, want 1", len(got))
	}
	if got[0].UserID != "user-1" || got[0].GameID != scores.GameID || got[0].AccessToken != token {
		t.Errorf("result %+v", got[0])
	}
	if got[0].CreatedAt != "2026-05-01T10:00:00Z" {
		t.Errorf("created_at %q", got[0].CreatedAt)
	}
}

func TestRoom_UnlinkedPlayerNotRecorded(t *testing.T) {
	rec := &memRecorder{}
	r := newTestRoom(t, Options{Scores: rec})
	out := attach(t, r, "a")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeJoin, Join: protocol.Join{
		Name: "alice", UserID: "user-1", AccessToken: "garbage",
	}})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})
	next(t, out, protocol.TypeGameOver)
	if got := rec.results(); len(got) != 0 {
		t.Errorf("recorded %+v for an unlinked player", got)
	}
}

func TestRoom_PlayAgainAndRestart(t *testing.T) {
	r := newTestRoom(t, Options{})
	out := join(t, r, "a", "alice")
	if gs := snapshot(t, r); gs.Phase != game.Lobby {
		t.Fatalf("phase %v, want Lobby", gs.Phase)
	}
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeRestart})
	next(t, out, protocol.TypeError)

	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})
	next(t, out, protocol.TypeGameOver)

	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypePlayAgain})
	gs := snapshot(t, r)
	if gs.Phase != game.Lobby || !gs.Players["a"].Ready {
		t.Errorf("after PlayAgain phase %v ready %v, want Lobby true", gs.Phase, gs.Players["a"].Ready)
	}
}

func TestRoom_LastDisconnectResets(t *testing.T) {
	interval := 10 * time.Millisecond
	r := newTestRoom(t, Options{TickInterval: interval})
	out := join(t, r, "a", "alice")
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeReady})
	dispatch(t, r, "a", protocol.ClientMessage{Type: protocol.TypeStartGame})
	next(t, out, protocol.TypeGameStarted)

	if err := r.Disconnect(context.Background(), "a"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	gs := snapshot(t, r)
	if gs.Phase != game.Lobby || len(gs.Food) != 0 || len(gs.PowerUps) != 0 || gs.Winner != nil || gs.Countdown != 0 {
		t.Errorf("not reset: %+v", gs)
	}
	if len(gs.Players) != 0 {
		t.Errorf("players %d, want 0", len(gs.Players))
	}
	if !r.loop.Running() {
		t.Error("tick loop should keep running")
	}

	out = join(t, r, "b", "bob")
	dispatch(t, r, "b", protocol.ClientMessage{Type: protocol.TypeReady})
	start := time.Now()
	dispatch(t, r, "b", protocol.ClientMessage{Type: protocol.TypeStartGame})
	next(t, out, protocol.TypeGameStarted)
	// Countdown is CountdownFrom seconds of ticks; a second timer would halve it.
	ticks := game.CountdownFrom * game.RulesFor(game.DefaultSettings()).TicksPerSecond
	if elapsed := time.Since(start); elapsed < time.Duration(ticks-1)*interval {
		t.Errorf("countdown took %v, want at least %v", elapsed, time.Duration(ticks-1)*interval)
	}
}

func TestRoom_LeaveBroadcastsPlayerLeft(t *testing.T) {
	r := newTestRoom(t, Options{})
	a := join(t, r, "a", "alice")
	join(t, r, "b", "bob")
	if err := r.Disconnect(context.Background(), "b"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	m := next(t, a, protocol.TypePlayerLeft)
	if m.Payload.(protocol.PlayerLeft).PlayerID != "b" {
		t.Errorf("left %+v", m.Payload)
	}
	info, err := r.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.PlayerCount != 1 || info.OwnerName == nil || *info.OwnerName != "alice" {
		t.Errorf("info %+v", info)
	}
}

func TestRoom_SurvivesPanic(t *testing.T) {
	r := newTestRoom(t, Options{})
	// A nil reply channel makes the connect handler panic.
	r.inbox <- connectMsg{id: "x", out: make(chan protocol.ServerMessage, 4)}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := r.Info(ctx); err != nil {
		t.Fatalf("room stopped answering after a panic: %v", err)
	}
}

func TestRoom_StoppedRoomRejects(t *testing.T) {
	r := newTestRoom(t, Options{})
	r.Stop()
	if _, err := r.Info(context.Background()); err == nil {
		t.Error("stopped room still answers")
	}
	r.Stop()
}
