// Package room runs game rooms and the registry that hands them out.
//
// A Room is an actor: one goroutine owns its game.State and handles inbox
// messages one at a time. Sessions talk to it only through its methods and
// receive events on the outbox they registered with Connect.
package room

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"snakebattle/internal/account"
	"snakebattle/internal/game"
	"snakebattle/internal/protocol"
	"snakebattle/internal/scores"
	"snakebattle/pkg/realtime"
)

const inboxSize = 256

var ErrClosed = errors.New("room closed")

// Recorder accepts finished-game results without blocking.
type Recorder interface {
	Record(r scores.Result) bool
}

// Options configure a new room.
type Options struct {
	Settings game.Settings
	Public   bool
	// TickInterval overrides the interval implied by Settings.Speed. Tick
	// counts still follow the speed tier.
	TickInterval time.Duration
	Scores       Recorder
	// Seed fixes the room's random source; zero seeds from the clock.
	Seed int64
	// Now is the clock used for account checks and score timestamps.
	Now func() time.Time
}

// Info is a room summary for listings.
type Info struct {
	ID          string        `json:"id"`
	Code        string        `json:"code"`
	OwnerName   *string       `json:"owner_name"`
	PlayerCount int           `json:"player_count"`
	MaxPlayers  int           `json:"max_players"`
	Settings    game.Settings `json:"settings"`
	Status      game.Phase    `json:"status"`
	Public      bool          `json:"is_public"`
}

// Room is one arena and its tick loop.
type Room struct {
	ID     string
	Code   string
	Public bool

	interval time.Duration
	scores   Recorder
	now      func() time.Time

	inbox chan any
	hub   *realtime.Broadcaster[protocol.ServerMessage]
	loop  realtime.Loop
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	// Owned by the room goroutine.
	state    *game.State
	rng      *rand.Rand
	sessions map[string]bool
	owner    string
}

// New creates a room and starts its goroutine.
func New(id, code string, opts Options) *Room {
	state := game.NewState(opts.Settings)
	interval := opts.TickInterval
	if interval <= 0 {
		interval = state.Rules.TickInterval
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := &Room{
		ID:       id,
		Code:     code,
		Public:   opts.Public,
		interval: interval,
		scores:   opts.Scores,
		now:      now,
		inbox:    make(chan any, inboxSize),
		hub:      realtime.NewBroadcaster[protocol.ServerMessage](),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		state:    state,
		rng:      rand.New(rand.NewSource(seed)),
		sessions: make(map[string]bool),
	}
	go r.run()
	return r
}

// Stop halts the tick loop and the room goroutine. It is safe to call more
// than once.
func (r *Room) Stop() {
	r.once.Do(func() {
		r.loop.Stop()
		close(r.quit)
		<-r.done
	})
}

// Connect attaches a session. The room sends Welcome and a snapshot to out
// before Connect returns.
func (r *Room) Connect(ctx context.Context, id string, out chan<- protocol.ServerMessage) error {
	reply := make(chan struct{})
	if err := r.send(ctx, connectMsg{id: id, out: out, reply: reply}); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

// Disconnect detaches a session and removes its player.
func (r *Room) Disconnect(ctx context.Context, id string) error {
	return r.send(ctx, disconnectMsg{id: id})
}

// Dispatch queues a client intent from session id.
func (r *Room) Dispatch(ctx context.Context, id string, msg protocol.ClientMessage) error {
	return r.send(ctx, actionMsg{id: id, msg: msg})
}

// SpawnBot adds a ready bot of the given difficulty.
func (r *Room) SpawnBot(ctx context.Context, d game.Difficulty) error {
	reply := make(chan error, 1)
	if err := r.send(ctx, spawnBotMsg{difficulty: d, reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

// Info returns a summary of the room.
func (r *Room) Info(ctx context.Context) (Info, error) {
	reply := make(chan Info, 1)
	if err := r.send(ctx, infoMsg{reply: reply}); err != nil {
		return Info{}, err
	}
	select {
	case info := <-reply:
		return info, nil
	case <-ctx.Done():
		return Info{}, ctx.Err()
	case <-r.done:
		return Info{}, ErrClosed
	}
}

// Snapshot returns a copy of the current game state.
func (r *Room) Snapshot(ctx context.Context) (protocol.GameState, error) {
	reply := make(chan protocol.GameState, 1)
	if err := r.send(ctx, snapshotMsg{reply: reply}); err != nil {
		return protocol.GameState{}, err
	}
	select {
	case gs := <-reply:
		return gs, nil
	case <-ctx.Done():
		return protocol.GameState{}, ctx.Err()
	case <-r.done:
		return protocol.GameState{}, ErrClosed
	}
}

func (r *Room) send(ctx context.Context, m any) error {
	select {
	case r.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case <-r.quit:
			return
		case m := <-r.inbox:
			r.handle(m)
		}
	}
}

// fire is the tick loop body. It waits for the room to finish the tick so
// ticks never overlap.
func (r *Room) fire(ctx context.Context) {
	done := make(chan struct{})
	select {
	case r.inbox <- tickMsg{done: done}:
	case <-ctx.Done():
		return
	case <-r.done:
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	case <-r.done:
	}
}

func (r *Room) handle(m any) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("room panic room=%s msg=%T err=%v", r.Code, m, p)
		}
	}()

	switch m := m.(type) {
	case tickMsg:
		defer close(m.done)
		r.tick()
	case connectMsg:
		r.connect(m)
	case disconnectMsg:
		r.disconnect(m.id)
	case actionMsg:
		r.action(m.id, m.msg)
	case spawnBotMsg:
		m.reply <- r.spawnBot(m.difficulty)
	case infoMsg:
		m.reply <- r.info()
	case snapshotMsg:
		m.reply <- protocol.NewGameState(r.state)
	default:
		log.Printf("room unknown message room=%s msg=%T", r.Code, m)
	}
}

func (r *Room) publish(msg protocol.ServerMessage) {
	if dropped := r.hub.Publish(msg); dropped > 0 {
		log.Printf("room broadcast dropped room=%s type=%s sessions=%d", r.Code, msg.Type, dropped)
	}
}

func (r *Room) publishState() {
	r.publish(protocol.StateMsg(r.state))
}

func (r *Room) sendTo(id string, msg protocol.ServerMessage) {
	if !r.hub.Send(id, msg) {
		log.Printf("room send dropped room=%s player=%s type=%s", r.Code, id, msg.Type)
	}
}

func (r *Room) connect(m connectMsg) {
	defer close(m.reply)
	r.sessions[m.id] = true
	r.hub.Subscribe(m.id, m.out)
	r.sendTo(m.id, protocol.WelcomeMsg(m.id))
	r.sendTo(m.id, protocol.StateMsg(r.state))
	log.Printf("session attached room=%s player=%s sessions=%d", r.Code, m.id, len(r.sessions))
}

func (r *Room) disconnect(id string) {
	if !r.sessions[id] {
		return
	}
	delete(r.sessions, id)
	r.hub.Unsubscribe(id)
	if r.state.RemovePlayer(id) {
		r.publish(protocol.PlayerLeftMsg(id))
	}
	if id == r.owner {
		r.owner = r.nextOwner()
	}
	if len(r.sessions) == 0 {
		r.state.Reset()
		log.Printf("room emptied room=%s", r.Code)
	}
	r.publishState()
	log.Printf("session detached room=%s player=%s sessions=%d", r.Code, id, len(r.sessions))
}

func (r *Room) nextOwner() string {
	for _, id := range r.state.PlayerIDs() {
		if !r.state.Players[id].Bot {
			return id
		}
	}
	return ""
}

func (r *Room) action(id string, msg protocol.ClientMessage) {
	if !r.sessions[id] {
		return
	}
	switch msg.Type {
	case protocol.TypeJoin:
		r.join(id, msg.Join)
	case protocol.TypeReady:
		p, ok := r.state.Players[id]
		if !ok {
			r.sendTo(id, protocol.ErrorMsg(game.ErrNotJoined.Error()))
			return
		}
		p.Ready = true
		r.publishState()
	case protocol.TypeDirection:
		if p, ok := r.state.Players[id]; ok && p.Snake.Alive {
			p.Snake.SetDirection(msg.Direction)
		}
	case protocol.TypeStartGame:
		r.startGame(id)
	case protocol.TypeRestart, protocol.TypePlayAgain:
		if err := r.state.ReturnToLobby(); err != nil {
			r.sendTo(id, protocol.ErrorMsg(err.Error()))
			return
		}
		if p, ok := r.state.Players[id]; ok && msg.Type == protocol.TypePlayAgain {
			p.Ready = true
		}
		r.publishState()
	}
}

func (r *Room) join(id string, j protocol.Join) {
	userID, token := j.UserID, j.AccessToken
	if userID != "" || token != "" {
		if err := account.Link(userID, token, r.now()); err != nil {
			log.Printf("account not linked room=%s player=%s err=%v", r.Code, id, err)
			userID, token = "", ""
		}
	}
	p, err := r.state.AddPlayer(id, j.Name, userID, token)
	if err != nil {
		r.sendTo(id, protocol.ErrorMsg(err.Error()))
		return
	}
	if r.owner == "" {
		r.owner = id
	}
	log.Printf("player joined room=%s player=%s name=%q linked=%t", r.Code, id, p.Name, p.Linked())
	r.publish(protocol.PlayerJoinedMsg(id, p.Name))
	r.publishState()
}

func (r *Room) startGame(id string) {
	if err := r.state.StartCountdown(r.rng); err != nil {
		r.sendTo(id, protocol.ErrorMsg(err.Error()))
		return
	}
	if r.loop.Start(r.interval, r.fire) {
		log.Printf("tick loop started room=%s interval=%s", r.Code, r.interval)
	}
	r.publishState()
}

func (r *Room) spawnBot(d game.Difficulty) error {
	p, err := r.state.AddBot(d)
	if err != nil {
		return err
	}
	r.publish(protocol.PlayerJoinedMsg(p.ID, p.Name))
	r.publishState()
	return nil
}

func (r *Room) tick() {
	out := r.state.Step(r.rng)
	if out.Started {
		// Step has already flipped to Playing; clients still see the
		// countdown reach zero first.
		zero := protocol.NewGameState(r.state)
		zero.Phase = game.Countdown
		r.publish(protocol.SnapshotMsg(zero))
		r.publish(protocol.GameStartedMsg())
	}
	if out.Ended {
		r.publish(protocol.GameOverMsg(out.Winner))
		r.recordScores()
		log.Printf("game over room=%s winner=%q", r.Code, out.Winner)
	}
	if out.Broadcast {
		r.publishState()
	}
}

func (r *Room) recordScores() {
	if r.scores == nil {
		return
	}
	at := r.now().UTC().Format(time.RFC3339)
	for _, id := range r.state.PlayerIDs() {
		p := r.state.Players[id]
		if !p.Linked() {
			continue
		}
		r.scores.Record(scores.Result{
			UserID:      p.UserID,
			GameID:      scores.GameID,
			Score:       p.Snake.Score,
			CreatedAt:   at,
			AccessToken: p.AccessToken,
		})
	}
}

func (r *Room) info() Info {
	info := Info{
		ID:          r.ID,
		Code:        r.Code,
		PlayerCount: len(r.state.Players),
		MaxPlayers:  r.state.Settings.MaxPlayers,
		Settings:    r.state.Settings,
		Status:      r.state.Phase,
		Public:      r.Public,
	}
	if p, ok := r.state.Players[r.owner]; ok {
		name := p.Name
		info.OwnerName = &name
	}
	return info
}
