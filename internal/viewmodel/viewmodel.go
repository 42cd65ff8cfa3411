package viewmodel

// LobbyPage holds data for the lobby page template.
type LobbyPage struct {
	Title string
	Rooms []RoomSummary
}

// RoomSummary is one public room row.
type RoomSummary struct {
	Code       string
	Owner      string
	Players    int
	MaxPlayers int
	Status     string
	Speed      string
	MapSize    string
	PowerUps   bool
	// JoinPath is the websocket path a client connects to.
	JoinPath string
	// Open is set while the room still accepts joins.
	Open bool
}
