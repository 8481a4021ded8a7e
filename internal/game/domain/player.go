package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptyPlayerName indicates a missing player display name.
	ErrEmptyPlayerName = errors.New("player name is required")
)

// Player is a participant in a campaign.
//
// Connected is presence status, not membership: a detached player stays in
// the campaign as offline. Ready resets at the start of each combat round.
type Player struct {
	ID        string
	Name      string
	IsDM      bool
	Connected bool
	Ready     bool
	JoinedAt  time.Time
}

// CreatePlayerInput describes the input for creating a player.
type CreatePlayerInput struct {
	Name string
	IsDM bool
}

// CreatePlayer creates a new player with a generated ID.
func CreatePlayer(input CreatePlayerInput, now func() time.Time, idGenerator func() (string, error)) (Player, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Player{}, ErrEmptyPlayerName
	}

	playerID, err := idGenerator()
	if err != nil {
		return Player{}, fmt.Errorf("generate player id: %w", err)
	}

	return Player{
		ID:       playerID,
		Name:     input.Name,
		IsDM:     input.IsDM,
		JoinedAt: now().UTC(),
	}, nil
}
