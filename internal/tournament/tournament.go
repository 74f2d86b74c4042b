// Package tournament owns single-elimination tournaments: registration,
// bracket generation, winner propagation, and round advancement. Rooms
// for pairable matches are created through the room service via a
// privileged internal call, never by impersonating a player connection.
package tournament

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/SuryaXyz-art/Type-Arena/internal/errors"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

// DefaultMaxPlayers is the bracket size used when the caller does not
// ask for one. This deployment runs 4-player tournaments.
const DefaultMaxPlayers = 4

// Broadcaster fans out events to connected clients. Tournament ids share
// the hub's channel namespace with room ids.
type Broadcaster interface {
	ToRoom(roomID, event string, payload interface{})
}

// RoomCreator creates race rooms for scheduled matches. Implemented by
// the game service.
type RoomCreator interface {
	CreateMatchRoom(tournamentID, player1ID, player1Name string) *models.Room
}

type tournamentState struct {
	mu sync.Mutex
	t  *models.Tournament
}

// Service is the tournament registry and bracket scheduler.
type Service struct {
	log         logger.Logger
	rooms       RoomCreator
	broadcaster Broadcaster

	mu          sync.RWMutex
	tournaments map[string]*tournamentState
}

// NewService creates the tournament service. The room creator and
// broadcaster are wired afterwards, mirroring the game service.
func NewService(log logger.Logger) *Service {
	return &Service{
		log:         log,
		tournaments: make(map[string]*tournamentState),
	}
}

// SetRoomCreator wires the game service in.
func (s *Service) SetRoomCreator(rc RoomCreator) {
	s.rooms = rc
}

// SetBroadcaster wires the websocket hub in.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

func newCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// Create creates a tournament with the creator as first player.
// maxPlayers <= 0 falls back to DefaultMaxPlayers.
func (s *Service) Create(hostID, username string, maxPlayers int) *models.Tournament {
	if maxPlayers <= 0 {
		maxPlayers = DefaultMaxPlayers
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := newCode()
	for {
		if _, taken := s.tournaments[code]; !taken {
			break
		}
		code = newCode()
	}

	t := &models.Tournament{
		ID:           code,
		HostID:       hostID,
		Players:      []string{hostID},
		PlayerNames:  map[string]string{hostID: username},
		MaxPlayers:   maxPlayers,
		CurrentRound: 1,
		Status:       models.TournamentWaiting,
	}
	s.tournaments[code] = &tournamentState{t: t}

	s.log.Info("tournament created", "tournament", code, "host", username, "max_players", maxPlayers)
	return t.Clone()
}

func (s *Service) state(id string) (*tournamentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.tournaments[id]
	return ts, ok
}

// Get returns a snapshot of the tournament, if it exists.
func (s *Service) Get(id string) (*models.Tournament, bool) {
	ts, ok := s.state(id)
	if !ok {
		return nil, false
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.t.Clone(), true
}

// Join adds a player to a waiting tournament. A second join by the same
// player is rejected, not re-applied.
func (s *Service) Join(id, userID, username string) (*models.Tournament, error) {
	ts, ok := s.state(id)
	if !ok {
		return nil, errors.NotFoundf("tournament %s not found", id)
	}

	ts.mu.Lock()
	t := ts.t
	if t.Status != models.TournamentWaiting {
		ts.mu.Unlock()
		return nil, errors.Conflict("tournament already started")
	}
	if len(t.Players) >= t.MaxPlayers {
		ts.mu.Unlock()
		return nil, errors.Conflict("tournament is full")
	}
	for _, p := range t.Players {
		if p == userID {
			ts.mu.Unlock()
			return nil, errors.Conflict("already joined")
		}
	}

	t.Players = append(t.Players, userID)
	t.PlayerNames[userID] = username
	snapshot := t.Clone()
	ts.mu.Unlock()

	s.log.Info("player joined tournament", "tournament", id, "user", username)
	s.broadcast(id, "tournament_updated", snapshot)
	return snapshot, nil
}

// Start transitions a waiting tournament to active, generates round 1 by
// pairing players strictly in join order, and creates rooms for every
// pairable match. An odd trailing player receives a bye.
func (s *Service) Start(id string) (*models.Tournament, error) {
	ts, ok := s.state(id)
	if !ok {
		return nil, errors.NotFoundf("tournament %s not found", id)
	}

	ts.mu.Lock()
	t := ts.t
	if t.Status != models.TournamentWaiting {
		ts.mu.Unlock()
		return nil, errors.Conflict("tournament already started")
	}

	t.Status = models.TournamentActive
	t.Bracket = append(t.Bracket, pairRound(t.Players))
	s.scheduleRooms(t)
	// A solo bracket is one bye; it completes without a single race.
	if roundComplete(t.Bracket[0]) {
		s.advanceRound(t)
	}
	snapshot := t.Clone()
	ts.mu.Unlock()

	s.log.Info("tournament started", "tournament", id, "players", len(snapshot.Players))
	s.broadcast(id, "tournament_updated", snapshot)
	return snapshot, nil
}

// RaceFinished implements the game service's MatchReporter: the winner
// of a finished tournament-linked race is recorded against its match.
func (s *Service) RaceFinished(tournamentID, roomID, winnerID string) {
	if t, ok := s.RecordMatchWinner(tournamentID, roomID, winnerID); ok {
		s.broadcast(tournamentID, "tournament_updated", t)
	}
}

// RecordMatchWinner sets the winner on the newest round's match bound to
// roomID. A winner, once set, never changes. When the round completes,
// the next round is generated from its winners and rooms are created for
// the newly pairable matches; a single surviving player finishes the
// tournament.
func (s *Service) RecordMatchWinner(tournamentID, roomID, winnerID string) (*models.Tournament, bool) {
	ts, ok := s.state(tournamentID)
	if !ok {
		return nil, false
	}

	ts.mu.Lock()
	t := ts.t
	if len(t.Bracket) == 0 {
		ts.mu.Unlock()
		return nil, false
	}

	round := t.Bracket[len(t.Bracket)-1]
	matched := false
	for i := range round {
		if round[i].RoomID == roomID && round[i].Winner == "" {
			round[i].Winner = winnerID
			matched = true
			break
		}
	}

	if matched && roundComplete(round) {
		s.advanceRound(t)
	}
	snapshot := t.Clone()
	ts.mu.Unlock()

	if matched {
		s.log.Info("match winner recorded",
			"tournament", tournamentID, "room", roomID, "winner", winnerID)
	}
	return snapshot, true
}

// AssignRoom binds a room to a match. The binding, once made, never
// changes.
func (s *Service) AssignRoom(tournamentID, matchID, roomID string) {
	ts, ok := s.state(tournamentID)
	if !ok {
		return
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	assignRoom(ts.t, matchID, roomID)
}

func assignRoom(t *models.Tournament, matchID, roomID string) {
	for _, round := range t.Bracket {
		for i := range round {
			if round[i].ID == matchID {
				if round[i].RoomID == "" {
					round[i].RoomID = roomID
				}
				return
			}
		}
	}
}

// advanceRound derives the next round from the just-completed one.
// Winners are taken in round order, not reseeded; byes advance their
// occupant.
func (s *Service) advanceRound(t *models.Tournament) {
	prev := t.Bracket[len(t.Bracket)-1]
	winners := make([]string, 0, len(prev))
	for i := range prev {
		if prev[i].Winner != "" {
			winners = append(winners, prev[i].Winner)
		} else {
			winners = append(winners, prev[i].Player1)
		}
	}

	if len(winners) <= 1 {
		t.Status = models.TournamentFinished
		s.log.Info("tournament finished", "tournament", t.ID, "winner", winners)
		return
	}

	t.Bracket = append(t.Bracket, pairRound(winners))
	t.CurrentRound++
	s.scheduleRooms(t)
}

// scheduleRooms scans the newest round for matches that have both
// players, no room, and no winner, and creates a race room for each.
// Runs after every bracket mutation that can produce pairable matches.
func (s *Service) scheduleRooms(t *models.Tournament) {
	if s.rooms == nil {
		return
	}
	round := t.Bracket[len(t.Bracket)-1]
	for i := range round {
		m := &round[i]
		if m.Player1 == "" || m.Player2 == "" || m.RoomID != "" || m.Winner != "" {
			continue
		}
		room := s.rooms.CreateMatchRoom(t.ID, m.Player1, t.PlayerNames[m.Player1])
		assignRoom(t, m.ID, room.ID)
		s.log.Info("match room created",
			"tournament", t.ID, "match", m.ID, "room", room.ID)
	}
}

// pairRound pairs players two at a time in the order given; an odd tail
// becomes a bye.
func pairRound(players []string) []models.Match {
	matches := make([]models.Match, 0, (len(players)+1)/2)
	for i := 0; i < len(players); i += 2 {
		m := models.Match{
			ID:      uuid.New().String(),
			Player1: players[i],
		}
		if i+1 < len(players) {
			m.Player2 = players[i+1]
		}
		matches = append(matches, m)
	}
	return matches
}

// roundComplete reports whether every match has a winner or is a bye.
func roundComplete(round []models.Match) bool {
	for i := range round {
		if round[i].Winner == "" && !round[i].Bye() {
			return false
		}
	}
	return true
}

func (s *Service) broadcast(id, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.ToRoom(id, event, payload)
	}
}
