package model

// MiniGame names an embedded mini-game.
type MiniGame string

const (
	MiniGameCPR   MiniGame = "cpr"
	MiniGameRelay MiniGame = "relay"
)

// Valid reports whether g is a known mini-game.
func (g MiniGame) Valid() bool {
	return g == MiniGameCPR || g == MiniGameRelay
}

// MiniGameOutcome is what a mini-game hands back: either a result or a cancellation.
type MiniGameOutcome struct {
	Completed bool           `json:"completed"`
	Score     int            `json:"score"`
	Stats     map[string]int `json:"stats,omitempty"`
}
