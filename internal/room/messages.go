package room

import (
	"snakebattle/internal/game"
	"snakebattle/internal/protocol"
)

// Inbox messages. Everything that touches a room's state arrives as one of
// these and is handled on the room goroutine.

type connectMsg struct {
	id    string
	out   chan<- protocol.ServerMessage
	reply chan struct{}
}

type disconnectMsg struct {
	id string
}

type actionMsg struct {
	id  string
	msg protocol.ClientMessage
}

type tickMsg struct {
	done chan struct{}
}

type spawnBotMsg struct {
	difficulty game.Difficulty
	reply      chan error
}

type infoMsg struct {
	reply chan Info
}

type snapshotMsg struct {
	reply chan protocol.GameState
}
