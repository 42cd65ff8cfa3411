package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"snakebattle/internal/game"
	"snakebattle/internal/room"
	"snakebattle/internal/viewmodel"
	"snakebattle/views/pages"
)

type HomeHandler struct {
	rooms *room.Registry
}

func NewHomeHandler(rooms *room.Registry) *HomeHandler {
	return &HomeHandler{rooms: rooms}
}

func (h *HomeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
}

func (h *HomeHandler) home(w http.ResponseWriter, r *http.Request) {
	infos, err := h.rooms.List(r.Context())
	if err != nil {
		http.Error(w, "failed to list rooms", http.StatusInternalServerError)
		return
	}
	render(w, r, pages.LobbyPage(viewmodel.LobbyPage{
		Title: "Snake Battle",
		Rooms: toRoomSummaries(infos),
	}))
}

func toRoomSummaries(infos []room.Info) []viewmodel.RoomSummary {
	out := make([]viewmodel.RoomSummary, 0, len(infos))
	for _, info := range infos {
		owner := ""
		if info.OwnerName != nil {
			owner = *info.OwnerName
		}
		out = append(out, viewmodel.RoomSummary{
			Code:       info.Code,
			Owner:      owner,
			Players:    info.PlayerCount,
			MaxPlayers: info.MaxPlayers,
			Status:     info.Status.String(),
			Speed:      info.Settings.Speed.String(),
			MapSize:    info.Settings.MapSize.String(),
			PowerUps:   info.Settings.PowerUpsEnabled,
			JoinPath:   "/api/v1/games/snake/ws/" + info.Code,
			Open:       info.Status == game.Lobby && info.PlayerCount < info.MaxPlayers,
		})
	}
	return out
}
