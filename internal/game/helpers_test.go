package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
	"github.com/SuryaXyz-art/Type-Arena/pkg/arena"
)

// stubBroadcaster records every broadcast for later inspection.
type stubBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	ChannelID string // empty for ToAll
	Event     string
	Payload   interface{}
}

func (b *stubBroadcaster) ToRoom(roomID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{ChannelID: roomID, Event: event, Payload: payload})
}

func (b *stubBroadcaster) ToAll(event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{Event: event, Payload: payload})
}

func (b *stubBroadcaster) count(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (b *stubBroadcaster) last(event string) (broadcastEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Event == event {
			return b.events[i], true
		}
	}
	return broadcastEvent{}, false
}

// stubScores is an in-memory ScoreRecorder.
type stubScores struct {
	mu      sync.Mutex
	records []models.HighScore
}

func (s *stubScores) Record(ctx context.Context, username string, wpm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, models.HighScore{Username: username, WPM: wpm})
	return nil
}

func (s *stubScores) TopScores(ctx context.Context, n int) ([]models.HighScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]models.HighScore(nil), s.records...)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *stubScores) recorded() []models.HighScore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.HighScore(nil), s.records...)
}

// stubReporter records RaceFinished calls.
type stubReporter struct {
	mu    sync.Mutex
	calls []reportedMatch
}

type reportedMatch struct {
	TournamentID string
	RoomID       string
	WinnerID     string
}

func (r *stubReporter) RaceFinished(tournamentID, roomID, winnerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reportedMatch{tournamentID, roomID, winnerID})
}

func (r *stubReporter) reported() []reportedMatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]reportedMatch(nil), r.calls...)
}

func newTestService(t *testing.T) (*Service, *stubBroadcaster, *stubScores) {
	t.Helper()
	scores := &stubScores{}
	svc := NewService(logger.New(), scores, arena.NewNopClient())
	b := &stubBroadcaster{}
	svc.SetBroadcaster(b)
	return svc, b, scores
}

// waitFor polls cond until it is true or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// backdateStart moves a racing room's start time into the past so a
// completion claim computed against the real clock looks plausible.
func backdateStart(t *testing.T, svc *Service, roomID string, ago time.Duration) {
	t.Helper()
	rs, ok := svc.state(roomID)
	if !ok {
		t.Fatalf("room %s not found", roomID)
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()
	start := time.Now().Add(-ago).UnixMilli()
	rs.room.StartTimeMs = &start
}
