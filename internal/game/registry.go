// Package game owns active race rooms: their lifecycle, the race state
// machine, and the anti-cheat validation applied to progress reports.
// All mutation of a room goes through this package and is serialized by
// a per-room lock.
package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SuryaXyz-art/Type-Arena/internal/errors"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
	"github.com/SuryaXyz-art/Type-Arena/pkg/arena"
)

const (
	// MaxPlayers is the room capacity ceiling.
	MaxPlayers = 25

	// CountdownTime is the fixed delay between a start request and the
	// race actually starting.
	CountdownTime = 5 * time.Second
)

// Broadcaster fans out events to connected clients. Implemented by the
// websocket hub.
type Broadcaster interface {
	ToRoom(roomID, event string, payload interface{})
	ToAll(event string, payload interface{})
}

// ScoreRecorder is the leaderboard collaborator. Persistence behind it
// is opaque to the race engine.
type ScoreRecorder interface {
	Record(ctx context.Context, username string, wpm float64) error
	TopScores(ctx context.Context, n int) ([]models.HighScore, error)
}

// MatchReporter receives the winner of a finished tournament-linked
// race. Implemented by the tournament service.
type MatchReporter interface {
	RaceFinished(tournamentID, roomID, winnerID string)
}

// roomState pairs a room with the lock that serializes all mutation of
// it. Timers are keyed here so a deleted room's pending countdown can be
// stopped.
type roomState struct {
	mu             sync.Mutex
	room           *models.Room
	gone           bool // room emptied and removed from the registry
	countdownTimer *time.Timer
	raceTimer      *time.Timer
}

// Service is the room registry and race coordinator.
type Service struct {
	log    logger.Logger
	scores ScoreRecorder
	mirror arena.Client

	countdown time.Duration
	raceLimit time.Duration // 0 disables the racing timeout

	broadcaster Broadcaster
	matches     MatchReporter

	mu    sync.RWMutex
	rooms map[string]*roomState
}

// NewService creates the room service. Broadcaster and match reporter
// are wired afterwards to break the construction cycle with the hub and
// the tournament service.
func NewService(log logger.Logger, scores ScoreRecorder, mirror arena.Client) *Service {
	if mirror == nil {
		mirror = arena.NewNopClient()
	}
	return &Service{
		log:       log,
		scores:    scores,
		mirror:    mirror,
		countdown: CountdownTime,
		rooms:     make(map[string]*roomState),
	}
}

// SetBroadcaster wires the websocket hub in.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetMatchReporter wires the tournament service in.
func (s *Service) SetMatchReporter(r MatchReporter) {
	s.matches = r
}

// SetCountdown overrides the race countdown duration.
func (s *Service) SetCountdown(d time.Duration) {
	s.countdown = d
}

// SetRaceTimeLimit enables the racing timeout: a room still racing after
// d is force-finished so a disconnected player cannot hold the room in
// racing forever. Zero disables it.
func (s *Service) SetRaceTimeLimit(d time.Duration) {
	s.raceLimit = d
}

// newRoomCode allocates a 6-character human-typeable room code.
func newRoomCode() string {
	return strings.ToUpper(uuid.New().String()[:6])
}

// CreateRoom creates a room with the creator as sole player and host.
func (s *Service) CreateRoom(hostID, username string) *models.Room {
	return s.createRoom(hostID, username, "")
}

// CreateMatchRoom creates a room owned by a tournament match. The
// match's first player is seeded as nominal host under their tournament
// display name; the room is system-created, no user is impersonated.
func (s *Service) CreateMatchRoom(tournamentID, player1ID, player1Name string) *models.Room {
	return s.createRoom(player1ID, player1Name, tournamentID)
}

func (s *Service) createRoom(hostID, username, tournamentID string) *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := newRoomCode()
	for {
		if _, taken := s.rooms[code]; !taken {
			break
		}
		code = newRoomCode()
	}

	room := &models.Room{
		ID:     code,
		HostID: hostID,
		Players: []models.Player{{
			ID:       hostID,
			Username: username,
		}},
		Status:       models.StatusWaiting,
		Text:         pickText(),
		TournamentID: tournamentID,
	}
	s.rooms[code] = &roomState{room: room}

	s.log.Info("room created", "room", code, "host", username, "tournament", tournamentID)
	return room.Clone()
}

// state fetches the lockable state for a room id.
func (s *Service) state(roomID string) (*roomState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.rooms[roomID]
	return rs, ok
}

// Room returns a snapshot of the room, if it exists.
func (s *Service) Room(roomID string) (*models.Room, bool) {
	rs, ok := s.state(roomID)
	if !ok {
		return nil, false
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.gone {
		return nil, false
	}
	return rs.room.Clone(), true
}

// JoinRoom adds a player to a waiting room. Joining a room the player is
// already in claims the existing seat (refreshes the display name)
// instead of duplicating it; that is how a tournament player takes over
// the seat the scheduler reserved for them.
func (s *Service) JoinRoom(roomID, userID, username string) (*models.Room, error) {
	rs, ok := s.state(roomID)
	if !ok {
		return nil, errors.NotFoundf("room %s not found", roomID)
	}

	rs.mu.Lock()
	if rs.gone {
		rs.mu.Unlock()
		return nil, errors.NotFoundf("room %s not found", roomID)
	}

	room := rs.room
	if p, ok := room.Player(userID); ok {
		p.Username = username
		snapshot := room.Clone()
		rs.mu.Unlock()
		s.broadcast(roomID, "player_joined", snapshot)
		return snapshot, nil
	}

	if room.Status != models.StatusWaiting {
		rs.mu.Unlock()
		return nil, errors.Conflict("race already started")
	}
	if len(room.Players) >= MaxPlayers {
		rs.mu.Unlock()
		return nil, errors.Conflictf("room is full (%d players)", MaxPlayers)
	}

	room.Players = append(room.Players, models.Player{
		ID:       userID,
		Username: username,
	})
	snapshot := room.Clone()
	rs.mu.Unlock()

	s.log.Info("player joined", "room", roomID, "user", username)
	s.broadcast(roomID, "player_joined", snapshot)
	return snapshot, nil
}

// LeavePlayer removes a player from a room. The emptied room is
// destroyed; otherwise a departing host hands the role to the first
// remaining player in join order.
func (s *Service) LeavePlayer(roomID, userID string) (*models.Room, bool) {
	rs, ok := s.state(roomID)
	if !ok {
		return nil, false
	}

	rs.mu.Lock()
	if rs.gone {
		rs.mu.Unlock()
		return nil, false
	}

	room := rs.room
	players := room.Players[:0]
	removed := false
	for _, p := range room.Players {
		if p.ID == userID {
			removed = true
			continue
		}
		players = append(players, p)
	}
	room.Players = players

	if !removed {
		snapshot := room.Clone()
		rs.mu.Unlock()
		return snapshot, true
	}

	if len(room.Players) == 0 {
		rs.gone = true
		if rs.countdownTimer != nil {
			rs.countdownTimer.Stop()
		}
		if rs.raceTimer != nil {
			rs.raceTimer.Stop()
		}
		rs.mu.Unlock()

		s.mu.Lock()
		delete(s.rooms, roomID)
		s.mu.Unlock()

		s.log.Info("room destroyed", "room", roomID)
		return nil, false
	}

	if room.HostID == userID {
		room.HostID = room.Players[0].ID
	}
	snapshot := room.Clone()
	rs.mu.Unlock()

	s.log.Info("player left", "room", roomID, "user", userID)
	s.broadcast(roomID, "player_left", snapshot)
	return snapshot, true
}

func (s *Service) broadcast(roomID, event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.ToRoom(roomID, event, payload)
	}
}

func (s *Service) broadcastAll(event string, payload interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.ToAll(event, payload)
	}
}
