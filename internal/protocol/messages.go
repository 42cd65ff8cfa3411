// Package protocol defines the messages exchanged between a client and its
// room, and the codecs that put them on the wire.
//
// Every frame is an envelope {"type": name, "payload": object}. Unit messages
// carry no payload.
package protocol

import "snakebattle/internal/game"

// Client intents.
const (
	TypeJoin      = "Join"
	TypeReady     = "Ready"
	TypeDirection = "Direction"
	TypeStartGame = "StartGame"
	TypeRestart   = "Restart"
	TypePlayAgain = "PlayAgain"
)

// Room events.
const (
	TypeWelcome      = "Welcome"
	TypeGameState    = "GameState"
	TypePlayerJoined = "PlayerJoined"
	TypePlayerLeft   = "PlayerLeft"
	TypeGameStarted  = "GameStarted"
	TypeGameOver     = "GameOver"
	TypeError        = "Error"
)

// Join asks to enter the room. UserID and AccessToken link the player to an
// external account for score submission.
type Join struct {
	Name        string `json:"name"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// Steer carries a Direction intent.
type Steer struct {
	Direction game.Direction `json:"direction"`
}

// ClientMessage is a decoded client intent. Join and Direction are only
// meaningful for their own Type.
type ClientMessage struct {
	Type      string
	Join      Join
	Direction game.Direction
}

func (m ClientMessage) payload() any {
	switch m.Type {
	case TypeJoin:
		return m.Join
	case TypeDirection:
		return Steer{Direction: m.Direction}
	}
	return nil
}

type Welcome struct {
	PlayerID string `json:"player_id"`
}

type PlayerJoined struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

type GameOver struct {
	Winner *string `json:"winner"`
}

type Error struct {
	Message string `json:"message"`
}

// ServerMessage is a room event. Payload is nil for GameStarted and must be
// treated as read-only once published, since sessions encode it concurrently.
type ServerMessage struct {
	Type    string
	Payload any
}

func WelcomeMsg(playerID string) ServerMessage {
	return ServerMessage{Type: TypeWelcome, Payload: Welcome{PlayerID: playerID}}
}

func StateMsg(s *game.State) ServerMessage {
	return ServerMessage{Type: TypeGameState, Payload: NewGameState(s)}
}

// SnapshotMsg publishes an already built snapshot.
func SnapshotMsg(gs GameState) ServerMessage {
	return ServerMessage{Type: TypeGameState, Payload: gs}
}

func PlayerJoinedMsg(playerID, name string) ServerMessage {
	return ServerMessage{Type: TypePlayerJoined, Payload: PlayerJoined{PlayerID: playerID, Name: name}}
}

func PlayerLeftMsg(playerID string) ServerMessage {
	return ServerMessage{Type: TypePlayerLeft, Payload: PlayerLeft{PlayerID: playerID}}
}

func GameStartedMsg() ServerMessage {
	return ServerMessage{Type: TypeGameStarted}
}

// GameOverMsg reports the winner's player id; an empty id means no winner.
func GameOverMsg(winner string) ServerMessage {
	var w *string
	if winner != "" {
		w = &winner
	}
	return ServerMessage{Type: TypeGameOver, Payload: GameOver{Winner: w}}
}

func ErrorMsg(message string) ServerMessage {
	return ServerMessage{Type: TypeError, Payload: Error{Message: message}}
}
