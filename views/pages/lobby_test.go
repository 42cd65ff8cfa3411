package pages

import (
	"context"
	"strings"
	"testing"

	"snakebattle/internal/viewmodel"
)

func TestLobbyPage_Render(t *testing.T) {
	var b strings.Builder
	err := LobbyPage(viewmodel.LobbyPage{
		Title: "Snake Battle",
		Rooms: []viewmodel.RoomSummary{{
			Code:       "ABC234",
			Owner:      "<b>eve</b>",
			Players:    1,
			MaxPlayers: 4,
			Status:     "Lobby",
			Speed:      "Normal",
			MapSize:    "Medium",
			PowerUps:   true,
			JoinPath:   "/api/v1/games/snake/ws/ABC234",
			Open:       true,
		}},
	}).Render(context.Background(), &b)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := b.String()
	for _, want := range []string{"<title>Snake Battle</title>", "ABC234", "1/4", "&lt;b&gt;eve&lt;/b&gt;", `data-state="open"`} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "<b>eve</b>") {
		t.Error("owner name was not escaped")
	}
}

func TestLobbyPage_Empty(t *testing.T) {
	var b strings.Builder
	if err := LobbyPage(viewmodel.LobbyPage{Title: "Snake Battle"}).Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(b.String(), "No public rooms yet.") {
		t.Fatalf("page = %s", b.String())
	}
}
