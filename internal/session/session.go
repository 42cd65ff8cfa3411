// Package session binds one websocket connection to one room.
//
// A session runs three goroutines: a reader that decodes intents and forwards
// them to the room, a writer that encodes room events onto the socket, and a
// heartbeat that pings the client and drops it when it goes quiet. None of
// them hold game state.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"snakebattle/internal/protocol"
)

const (
	readLimit      = 64 << 10
	leaveTimeout   = 5 * time.Second
	defaultOutbox  = 256
	defaultWriteTO = 5 * time.Second
)

// Room is the part of a room a session talks to.
type Room interface {
	Connect(ctx context.Context, id string, out chan<- protocol.ServerMessage) error
	Disconnect(ctx context.Context, id string) error
	Dispatch(ctx context.Context, id string, msg protocol.ClientMessage) error
}

// Config tunes liveness checking.
type Config struct {
	// HeartbeatInterval is how often the server pings.
	HeartbeatInterval time.Duration
	// ClientTimeout is how long the client may stay silent before it is dropped.
	ClientTimeout time.Duration
	WriteTimeout  time.Duration
	OutboxSize    int
}

// DefaultConfig pings every 5s and drops clients silent for 10s.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 5 * time.Second,
		ClientTimeout:     10 * time.Second,
		WriteTimeout:      defaultWriteTO,
		OutboxSize:        defaultOutbox,
	}
}

// Session is one connected client. Its ID doubles as the player id.
type Session struct {
	ID string

	conn  *websocket.Conn
	room  Room
	codec *protocol.Codec
	cfg   Config

	out      chan protocol.ServerMessage
	lastSeen atomic.Int64
	done     chan struct{}
	stopOnce sync.Once
}

// New wraps an upgraded connection.
func New(conn *websocket.Conn, room Room, codec *protocol.Codec, cfg Config) *Session {
	def := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = def.ClientTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = def.OutboxSize
	}
	if codec == nil {
		codec = protocol.JSON
	}
	return &Session{
		ID:    uuid.NewString(),
		conn:  conn,
		room:  room,
		codec: codec,
		cfg:   cfg,
		out:   make(chan protocol.ServerMessage, cfg.OutboxSize),
		done:  make(chan struct{}),
	}
}

// Run attaches to the room and blocks until the connection ends. The room is
// told about the departure exactly once, however the session ended.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()
	s.touch()
	if err := s.room.Connect(ctx, s.ID, s.out); err != nil {
		return err
	}
	defer s.leave()

	s.conn.SetReadLimit(readLimit)
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	s.conn.SetPingHandler(func(data string) error {
		s.touch()
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(s.cfg.WriteTimeout))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.writeLoop() }()
	go func() { defer wg.Done(); s.heartbeat() }()
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.done:
		}
	}()

	err := s.readLoop(ctx)
	s.stop()
	wg.Wait()
	return err
}

func (s *Session) leave() {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()
	if err := s.room.Disconnect(ctx, s.ID); err != nil {
		log.Printf("session leave failed player=%s err=%v", s.ID, err)
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Session) silentFor() time.Duration {
	return time.Since(time.Unix(0, s.lastSeen.Load()))
}

func (s *Session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		s.touch()

		msg, err := s.codec.DecodeClient(data)
		if err != nil {
			log.Printf("session bad frame player=%s err=%v", s.ID, err)
			s.deliver(protocol.ErrorMsg("invalid message: " + err.Error()))
			continue
		}
		if err := s.room.Dispatch(ctx, s.ID, msg); err != nil {
			return err
		}
	}
}

// deliver queues a message for this session only.
func (s *Session) deliver(msg protocol.ServerMessage) {
	select {
	case s.out <- msg:
	default:
		log.Printf("session outbox full player=%s type=%s", s.ID, msg.Type)
	}
}

func (s *Session) writeLoop() {
	frame := websocket.TextMessage
	if s.codec.Binary {
		frame = websocket.BinaryMessage
	}
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.out:
			data, err := s.codec.EncodeServer(msg)
			if err != nil {
				log.Printf("session encode failed player=%s type=%s err=%v", s.ID, msg.Type, err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(frame, data); err != nil {
				s.stop()
				return
			}
		}
	}
}

func (s *Session) heartbeat() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if quiet := s.silentFor(); quiet > s.cfg.ClientTimeout {
				log.Printf("session timed out player=%s silent=%s", s.ID, quiet.Round(time.Millisecond))
				s.stop()
				return
			}
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				s.stop()
				return
			}
		}
	}
}
