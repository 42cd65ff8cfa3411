// Package scores persists finished-game results. Submission is fire-and-forget:
// a Dispatcher queues results and a single worker hands them to a Sink.
package scores

import (
	"context"
	"errors"
)

// GameID identifies this game in the shared score table.
const GameID = "snake-battle"

// Result is one player's final score.
type Result struct {
	UserID    string `json:"user_id"`
	GameID    string `json:"game_id"`
	Score     int    `json:"score"`
	CreatedAt string `json:"created_at"`

	// AccessToken authorizes the write on the player's behalf.
	AccessToken string `json:"-"`
}

// Sink stores results.
type Sink interface {
	Submit(ctx context.Context, r Result) error
	Close() error
}

// Multi submits every result to each of its sinks.
type Multi []Sink

func (m Multi) Submit(ctx context.Context, r Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Submit(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
