package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"snakebattle/internal/protocol"
	"snakebattle/internal/room"
	"snakebattle/internal/session"
)

// WSHandler upgrades game connections and hands them to a session.
type WSHandler struct {
	rooms    *room.Registry
	cfg      session.Config
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *room.Registry, cfg session.Config) *WSHandler {
	return &WSHandler{
		rooms: rooms,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) RegisterRoutes(r chi.Router) {
	r.Get("/games/snake/ws/{code}", h.connect)
}

func (h *WSHandler) connect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rm, err := h.rooms.Join(r.Context(), code)
	if errors.Is(err, room.ErrRoomNotFound) {
		notFound(w, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		log.Printf("ws upgrade failed room=%s err=%v", rm.Code, err)
		return
	}
	codec := protocol.ForEncoding(r.URL.Query().Get("encoding"))
	s := session.New(conn, rm, codec, h.cfg)
	log.Printf("session opened room=%s player=%s encoding=%s", rm.Code, s.ID, codec.Name)
	if err := s.Run(r.Context()); err != nil {
		log.Printf("session ended room=%s player=%s err=%v", rm.Code, s.ID, err)
		return
	}
	log.Printf("session closed room=%s player=%s", rm.Code, s.ID)
}
