package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"snakebattle/internal/game"
	"snakebattle/internal/room"
	"snakebattle/internal/scores"
)

const maxBody = 16 << 10

// RoomsHandler serves room creation, lookup and listing.
type RoomsHandler struct {
	rooms *room.Registry
}

func NewRoomsHandler(rooms *room.Registry) *RoomsHandler {
	return &RoomsHandler{rooms: rooms}
}

func (h *RoomsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Route("/games/snake", func(r chi.Router) {
		r.Post("/rooms", h.createRoom)
		r.Get("/rooms", h.listRooms)
		r.Get("/rooms/{code}", h.getRoom)
		r.Post("/quick-match", h.quickMatch)
		r.Post("/solo", h.solo)
	})
}

type createRoomRequest struct {
	Settings *game.Settings `json:"settings"`
	Public   bool           `json:"is_public"`
}

type soloRequest struct {
	Difficulty string `json:"difficulty"`
	Bots       int    `json:"num_bots"`
}

type roomCreated struct {
	Code   string `json:"code"`
	RoomID string `json:"room_id"`
}

func (h *RoomsHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": scores.GameID})
}

func (h *RoomsHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	// Fields the client leaves out keep their defaults.
	settings := game.DefaultSettings()
	req := createRoomRequest{Settings: &settings}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Settings != nil {
		settings = req.Settings.Normalize()
	} else {
		settings = game.DefaultSettings()
	}
	rm, err := h.rooms.Create(r.Context(), settings, req.Public)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomCreated{Code: rm.Code, RoomID: rm.ID})
}

func (h *RoomsHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	infos, err := h.rooms.List(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *RoomsHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.Join(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, room.ErrRoomNotFound) {
		notFound(w, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	info, err := rm.Info(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *RoomsHandler) quickMatch(w http.ResponseWriter, r *http.Request) {
	rm, err := h.rooms.QuickMatch(r.Context())
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomCreated{Code: rm.Code, RoomID: rm.ID})
}

func (h *RoomsHandler) solo(w http.ResponseWriter, r *http.Request) {
	var req soloRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = game.BotMedium.String()
	}
	difficulty, err := game.ParseDifficulty(req.Difficulty)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rm, err := h.rooms.Solo(r.Context(), difficulty, req.Bots)
	if errors.Is(err, room.ErrInvalidBots) {
		badRequest(w, err.Error())
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, roomCreated{Code: rm.Code, RoomID: rm.ID})
}

// decodeBody reads a JSON body. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
