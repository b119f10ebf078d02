package events

import "time"

// Event payload types published on the room lifecycle stream.

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	Name     string    `json:"name"`
	Players  int       `json:"players"`
	JoinedAt time.Time `json:"joined_at"`
}

// PlayerLeftPayload is the payload for a PlayerLeft event
type PlayerLeftPayload struct {
	Name    string    `json:"name"`
	Players int       `json:"players"`
	LeftAt  time.Time `json:"left_at"`
}

// GameStartedPayload is the payload for a GameStarted event
type GameStartedPayload struct {
	Mode        string    `json:"mode"`
	Players     int       `json:"players"`
	PoolSize    int       `json:"pool_size"`
	DurationSec int       `json:"duration_sec"`
	StartedAt   time.Time `json:"started_at"`
}

// RankEntry is one row of a final ranking
type RankEntry struct {
	Rank  int    `json:"rank"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// GameFinishedPayload is the payload for a GameFinished event
type GameFinishedPayload struct {
	Ranking    []RankEntry `json:"ranking"`
	LeftOver   int         `json:"left_over"`
	FinishedAt time.Time   `json:"finished_at"`
}
