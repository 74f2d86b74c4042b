package models

// Room status values
const (
	StatusWaiting   = "waiting"
	StatusCountdown = "countdown"
	StatusRacing    = "racing"
	StatusFinished  = "finished"
)

// Tournament status values
const (
	TournamentWaiting  = "waiting"
	TournamentActive   = "active"
	TournamentFinished = "finished"
)

// Player is a participant in a single race. It is owned by the Room that
// contains it and mutated only by the race coordinator.
type Player struct {
	ID           string  `json:"id"`
	Username     string  `json:"username"`
	Progress     float64 `json:"progress"` // 0-100
	WPM          float64 `json:"wpm"`
	Finished     bool    `json:"finished"`
	FinishTimeMs *int64  `json:"finishTime,omitempty"` // ms since race start
}

// Room is a single race's container of players and shared race text.
// Text is fixed at creation and never changes for the life of the room.
type Room struct {
	ID           string   `json:"id"`
	HostID       string   `json:"hostId"`
	Players      []Player `json:"players"`
	Status       string   `json:"status"`
	Text         string   `json:"text"`
	StartTimeMs  *int64   `json:"startTime,omitempty"` // unix ms
	TournamentID string   `json:"tournamentId,omitempty"`
}

// Clone returns a deep copy of the room. Broadcast payloads are always
// clones so receivers never observe a mid-mutation state.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]Player, len(r.Players))
	copy(c.Players, r.Players)
	for i := range c.Players {
		if r.Players[i].FinishTimeMs != nil {
			t := *r.Players[i].FinishTimeMs
			c.Players[i].FinishTimeMs = &t
		}
	}
	if r.StartTimeMs != nil {
		t := *r.StartTimeMs
		c.StartTimeMs = &t
	}
	return &c
}

// Player returns the player with the given id, if present.
func (r *Room) Player(id string) (*Player, bool) {
	for i := range r.Players {
		if r.Players[i].ID == id {
			return &r.Players[i], true
		}
	}
	return nil, false
}

// Match is a single tournament pairing. A match with Player2 == "" is a
// bye: its occupant advances without a race. Winner and RoomID, once set,
// never change.
type Match struct {
	ID      string `json:"id"`
	Player1 string `json:"player1,omitempty"`
	Player2 string `json:"player2,omitempty"`
	Winner  string `json:"winner,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Bye reports whether the match is a bye.
func (m *Match) Bye() bool {
	return m.Player1 != "" && m.Player2 == ""
}

// Tournament is a single-elimination bracket of races.
type Tournament struct {
	ID           string            `json:"id"`
	HostID       string            `json:"hostId"`
	Players      []string          `json:"players"`
	PlayerNames  map[string]string `json:"playerNames"`
	MaxPlayers   int               `json:"maxPlayers"`
	CurrentRound int               `json:"currentRound"`
	Status       string            `json:"status"`
	Bracket      [][]Match         `json:"bracket"`
}

// Clone returns a deep copy of the tournament.
func (t *Tournament) Clone() *Tournament {
	c := *t
	c.Players = append([]string(nil), t.Players...)
	c.PlayerNames = make(map[string]string, len(t.PlayerNames))
	for k, v := range t.PlayerNames {
		c.PlayerNames[k] = v
	}
	c.Bracket = make([][]Match, len(t.Bracket))
	for i, round := range t.Bracket {
		c.Bracket[i] = append([]Match(nil), round...)
	}
	return &c
}

// HighScore is one leaderboard entry.
type HighScore struct {
	Username   string  `json:"username"`
	WPM        float64 `json:"wpm"`
	RecordedAt int64   `json:"date"` // unix ms
}

// WSMessage is the envelope for every WebSocket event in both directions.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
