package room

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"snakebattle/internal/game"
)

const (
	// CodeAlphabet omits look-alike characters (I, O, 0, 1).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6
	MaxSoloBots  = 3
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidBots  = errors.New("number of bots must be between 1 and 3")
	ErrRegistryDone = errors.New("registry closed")
)

type createReq struct {
	settings game.Settings
	public   bool
	reply    chan *Room
}

type joinReq struct {
	code  string
	reply chan *Room
}

type listReq struct {
	reply chan []*Room
}

// Registry creates rooms and resolves join codes. Its maps are owned by a
// single goroutine; callers use request/reply messages.
type Registry struct {
	opts Options

	reqs chan any
	quit chan struct{}
	done chan struct{}
	once sync.Once

	rooms map[string]*Room // by join code
}

// NewRegistry starts a registry. opts is the template for every room it
// creates; Settings and Public are taken from each request.
func NewRegistry(opts Options) *Registry {
	reg := &Registry{
		opts:  opts,
		reqs:  make(chan any),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		rooms: make(map[string]*Room),
	}
	go reg.run()
	return reg
}

// Close stops every room and the registry goroutine.
func (g *Registry) Close() {
	g.once.Do(func() {
		close(g.quit)
		<-g.done
	})
}

// Create opens a new room.
func (g *Registry) Create(ctx context.Context, settings game.Settings, public bool) (*Room, error) {
	reply := make(chan *Room, 1)
	if err := g.send(ctx, createReq{settings: settings, public: public, reply: reply}); err != nil {
		return nil, err
	}
	return g.await(ctx, reply)
}

// Join resolves a join code. Codes are case-insensitive.
func (g *Registry) Join(ctx context.Context, code string) (*Room, error) {
	reply := make(chan *Room, 1)
	norm := strings.ToUpper(strings.TrimSpace(code))
	if err := g.send(ctx, joinReq{code: norm, reply: reply}); err != nil {
		return nil, err
	}
	r, err := g.await(ctx, reply)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, norm)
	}
	return r, nil
}

// QuickMatch always opens a fresh public room with default settings.
func (g *Registry) QuickMatch(ctx context.Context) (*Room, error) {
	return g.Create(ctx, game.DefaultSettings(), true)
}

// Solo opens a private room with bots ready to play.
func (g *Registry) Solo(ctx context.Context, d game.Difficulty, bots int) (*Room, error) {
	if bots < 1 || bots > MaxSoloBots {
		return nil, ErrInvalidBots
	}
	r, err := g.Create(ctx, game.DefaultSettings(), false)
	if err != nil {
		return nil, err
	}
	for range bots {
		if err := r.SpawnBot(ctx, d); err != nil {
			return nil, fmt.Errorf("spawn bot: %w", err)
		}
	}
	return r, nil
}

// List summarizes public rooms ordered by code.
func (g *Registry) List(ctx context.Context) ([]Info, error) {
	reply := make(chan []*Room, 1)
	if err := g.send(ctx, listReq{reply: reply}); err != nil {
		return nil, err
	}
	var rooms []*Room
	select {
	case rooms = <-reply:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		info, err := r.Info(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

func (g *Registry) send(ctx context.Context, req any) error {
	select {
	case g.reqs <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return ErrRegistryDone
	}
}

func (g *Registry) await(ctx context.Context, reply chan *Room) (*Room, error) {
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Registry) run() {
	defer close(g.done)
	for {
		select {
		case <-g.quit:
			for _, r := range g.rooms {
				r.Stop()
			}
			return
		case req := <-g.reqs:
			g.handle(req)
		}
	}
}

func (g *Registry) handle(req any) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("registry panic req=%T err=%v", req, p)
		}
	}()

	switch req := req.(type) {
	case createReq:
		req.reply <- g.create(req.settings, req.public)
	case joinReq:
		r, ok := g.rooms[req.code]
		if !ok {
			log.Printf("room not found code=%s", req.code)
		}
		req.reply <- r
	case listReq:
		codes := make([]string, 0, len(g.rooms))
		for code, r := range g.rooms {
			if r.Public {
				codes = append(codes, code)
			}
		}
		sort.Strings(codes)
		out := make([]*Room, len(codes))
		for i, code := range codes {
			out[i] = g.rooms[code]
		}
		req.reply <- out
	}
}

func (g *Registry) create(settings game.Settings, public bool) *Room {
	code := NewCode()
	for g.rooms[code] != nil {
		code = NewCode()
	}
	opts := g.opts
	opts.Settings = settings
	opts.Public = public
	r := New(uuid.NewString(), code, opts)
	g.rooms[code] = r
	log.Printf("room created code=%s id=%s public=%t", code, r.ID, public)
	return r
}

// NewCode returns a random join code drawn from CodeAlphabet.
func NewCode() string {
	// 256 is a multiple of len(CodeAlphabet), so the modulo is unbiased.
	var b [CodeLength]byte
	_, _ = rand.Read(b[:])
	for i := range b {
		b[i] = CodeAlphabet[int(b[i])%len(CodeAlphabet)]
	}
	return string(b[:])
}
