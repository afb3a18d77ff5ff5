package core

import (
	"github.com/google/uuid"

	"llmchess/internal/board"
)

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerOracle
)

func (t PlayerType) String() string {
	switch t {
	case PlayerHuman:
		return "human"
	case PlayerOracle:
		return "oracle"
	default:
		return "unknown"
	}
}

// Player is one side of a game
type Player struct {
	ID     string     `json:"id"`
	Color  string     `json:"color"` // "w" or "b"
	Type   PlayerType `json:"type"`
	Name   string     `json:"name,omitempty"`
	Oracle string     `json:"oracle,omitempty"` // Only for oracle players
}

// PlayerConfig for API requests
type PlayerConfig struct {
	Type PlayerType `json:"type" validate:"required,oneof=1 2"`
	Name string     `json:"name,omitempty" validate:"omitempty,max=64"`
}

type PlayersResponse struct {
	White *Player `json:"white"`
	Black *Player `json:"black"`
}

// NewPlayer creates a Player from PlayerConfig; oracleName is recorded for oracle players
func NewPlayer(config PlayerConfig, color board.Color, oracleName string) *Player {
	player := &Player{
		ID:    uuid.New().String(),
		Color: color.String(),
		Type:  config.Type,
		Name:  config.Name,
	}
	if config.Type == PlayerOracle {
		player.Oracle = oracleName
	}
	return player
}

func (p *Player) IsOracle() bool {
	return p != nil && p.Type == PlayerOracle
}
