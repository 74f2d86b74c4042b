package tournament

import (
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/SuryaXyz-art/Type-Arena/internal/errors"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

// stubRoomCreator hands out sequential room ids and records what was
// asked for.
type stubRoomCreator struct {
	mu      sync.Mutex
	next    int
	created []createdRoom
}

type createdRoom struct {
	TournamentID string
	Player1ID    string
	Player1Name  string
	RoomID       string
}

func (c *stubRoomCreator) CreateMatchRoom(tournamentID, player1ID, player1Name string) *models.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next++
	id := fmt.Sprintf("ROOM%02d", c.next)
	c.created = append(c.created, createdRoom{tournamentID, player1ID, player1Name, id})
	return &models.Room{
		ID:           id,
		HostID:       player1ID,
		Players:      []models.Player{{ID: player1ID, Username: player1Name}},
		Status:       models.StatusWaiting,
		TournamentID: tournamentID,
	}
}

func (c *stubRoomCreator) rooms() []createdRoom {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]createdRoom(nil), c.created...)
}

type stubBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *stubBroadcaster) ToRoom(roomID, event string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func newTestService(t *testing.T) (*Service, *stubRoomCreator) {
	t.Helper()
	svc := NewService(logger.New())
	rc := &stubRoomCreator{}
	svc.SetRoomCreator(rc)
	svc.SetBroadcaster(&stubBroadcaster{})
	return svc, rc
}

// seedTournament creates a tournament and joins n-1 extra players p2..pn.
func seedTournament(t *testing.T, svc *Service, n int) *models.Tournament {
	t.Helper()
	tn := svc.Create("p1", "player1", n)
	for i := 2; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		if _, err := svc.Join(tn.ID, id, "player"+id[1:]); err != nil {
			t.Fatalf("join %s failed: %v", id, err)
		}
	}
	return tn
}

// TestCreate_Defaults tests creation and the max-player fallback
func TestCreate_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	tn := svc.Create("p1", "player1", 0)
	if tn.MaxPlayers != DefaultMaxPlayers {
		t.Errorf("expected default max players %d, got %d", DefaultMaxPlayers, tn.MaxPlayers)
	}
	if tn.Status != models.TournamentWaiting || tn.CurrentRound != 1 {
		t.Errorf("unexpected initial state: %+v", tn)
	}
	if len(tn.Players) != 1 || tn.PlayerNames["p1"] != "player1" {
		t.Errorf("expected creator registered, got %+v", tn)
	}
}

// TestJoin_DuplicateRejected tests that a second join by the same player
// is an error, not a refresh
func TestJoin_DuplicateRejected(t *testing.T) {
	svc, _ := newTestService(t)
	tn := svc.Create("p1", "player1", 4)

	if _, err := svc.Join(tn.ID, "p2", "player2"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	_, err := svc.Join(tn.ID, "p2", "player2")
	if err == nil {
		t.Fatal("expected duplicate join to fail")
	}
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) || appErr.Kind != errors.ErrConflict {
		t.Errorf("expected conflict error, got %v", err)
	}
}

// TestJoin_FullRejected tests the registration cap
func TestJoin_FullRejected(t *testing.T) {
	svc, _ := newTestService(t)
	tn := seedTournament(t, svc, 2)

	if _, err := svc.Join(tn.ID, "p3", "player3"); err == nil {
		t.Fatal("expected join into full tournament to fail")
	}
}

// TestStart_PairsInJoinOrderWithBye tests bracket generation for an odd
// field: (p1,p2) (p3,p4) (p5 bye)
func TestStart_PairsInJoinOrderWithBye(t *testing.T) {
	svc, rc := newTestService(t)
	tn := seedTournament(t, svc, 5)

	started, err := svc.Start(tn.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != models.TournamentActive {
		t.Fatalf("expected active tournament, got %q", started.Status)
	}
	if len(started.Bracket) != 1 {
		t.Fatalf("expected one round, got %d", len(started.Bracket))
	}

	round := started.Bracket[0]
	if len(round) != 3 {
		t.Fatalf("expected 3 matches for 5 players, got %d", len(round))
	}
	if round[0].Player1 != "p1" || round[0].Player2 != "p2" {
		t.Errorf("unexpected match 0: %+v", round[0])
	}
	if round[1].Player1 != "p3" || round[1].Player2 != "p4" {
		t.Errorf("unexpected match 1: %+v", round[1])
	}
	if round[2].Player1 != "p5" || round[2].Player2 != "" || !round[2].Bye() {
		t.Errorf("expected p5 bye, got %+v", round[2])
	}

	// Rooms only for the two pairable matches, seeded with player1's
	// display name.
	rooms := rc.rooms()
	if len(rooms) != 2 {
		t.Fatalf("expected 2 match rooms, got %d", len(rooms))
	}
	if rooms[0].Player1ID != "p1" || rooms[0].Player1Name != "player1" {
		t.Errorf("unexpected room seed: %+v", rooms[0])
	}
	if round[0].RoomID != rooms[0].RoomID || round[1].RoomID != rooms[1].RoomID {
		t.Error("expected rooms bound to their matches")
	}
	if round[2].RoomID != "" {
		t.Error("expected no room for the bye")
	}
}

// TestStart_SecondStartRejected tests the single-generation guard
func TestStart_SecondStartRejected(t *testing.T) {
	svc, rc := newTestService(t)
	tn := seedTournament(t, svc, 4)

	if _, err := svc.Start(tn.ID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := svc.Start(tn.ID); err == nil {
		t.Fatal("expected second start to fail")
	}

	got, _ := svc.Get(tn.ID)
	if len(got.Bracket) != 1 {
		t.Errorf("expected round 1 generated exactly once, got %d rounds", len(got.Bracket))
	}
	if len(rc.rooms()) != 2 {
		t.Errorf("expected 2 rooms for 4 players, got %d", len(rc.rooms()))
	}
}

// TestRecordMatchWinner_AdvancesRound tests winner propagation through a
// full 4-player tournament
func TestRecordMatchWinner_AdvancesRound(t *testing.T) {
	svc, rc := newTestService(t)
	tn := seedTournament(t, svc, 4)
	started, _ := svc.Start(tn.ID)
	round1 := started.Bracket[0]

	svc.RaceFinished(tn.ID, round1[0].RoomID, "p2")
	got, _ := svc.Get(tn.ID)
	if len(got.Bracket) != 1 {
		t.Fatal("expected no advancement with one match open")
	}

	svc.RaceFinished(tn.ID, round1[1].RoomID, "p3")
	got, _ = svc.Get(tn.ID)
	if len(got.Bracket) != 2 {
		t.Fatal("expected round 2 after round 1 completed")
	}
	if got.CurrentRound != 2 {
		t.Errorf("expected current round 2, got %d", got.CurrentRound)
	}

	final := got.Bracket[1]
	if len(final) != 1 || final[0].Player1 != "p2" || final[0].Player2 != "p3" {
		t.Fatalf("expected final p2 vs p3, got %+v", final)
	}
	if final[0].RoomID == "" {
		t.Fatal("expected a room scheduled for the final")
	}
	if len(rc.rooms()) != 3 {
		t.Errorf("expected 3 rooms total, got %d", len(rc.rooms()))
	}

	svc.RaceFinished(tn.ID, final[0].RoomID, "p3")
	got, _ = svc.Get(tn.ID)
	if got.Status != models.TournamentFinished {
		t.Errorf("expected finished tournament, got %q", got.Status)
	}
}

// TestRecordMatchWinner_ByeAdvancesOccupant tests that a bye survivor is
// carried into the next round
func TestRecordMatchWinner_ByeAdvancesOccupant(t *testing.T) {
	svc, _ := newTestService(t)
	tn := seedTournament(t, svc, 3)
	started, _ := svc.Start(tn.ID)
	round1 := started.Bracket[0]

	svc.RaceFinished(tn.ID, round1[0].RoomID, "p1")

	got, _ := svc.Get(tn.ID)
	if len(got.Bracket) != 2 {
		t.Fatal("expected round 2 once the only race finished")
	}
	final := got.Bracket[1]
	if len(final) != 1 || final[0].Player1 != "p1" || final[0].Player2 != "p3" {
		t.Errorf("expected final p1 vs bye survivor p3, got %+v", final)
	}
}

// TestRecordMatchWinner_FirstWriteWins tests that a recorded winner never
// changes
func TestRecordMatchWinner_FirstWriteWins(t *testing.T) {
	svc, _ := newTestService(t)
	tn := seedTournament(t, svc, 4)
	started, _ := svc.Start(tn.ID)
	roomID := started.Bracket[0][0].RoomID

	svc.RaceFinished(tn.ID, roomID, "p1")
	svc.RaceFinished(tn.ID, roomID, "p2")

	got, _ := svc.Get(tn.ID)
	if got.Bracket[0][0].Winner != "p1" {
		t.Errorf("expected first recorded winner to stick, got %q", got.Bracket[0][0].Winner)
	}
}

// TestStart_SoloBracketFinishesImmediately tests the one-player edge: a
// single bye round completes without a race
func TestStart_SoloBracketFinishesImmediately(t *testing.T) {
	svc, rc := newTestService(t)
	tn := svc.Create("p1", "player1", 4)

	started, err := svc.Start(tn.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != models.TournamentFinished {
		t.Errorf("expected solo tournament to finish immediately, got %q", started.Status)
	}
	if len(rc.rooms()) != 0 {
		t.Errorf("expected no rooms for a solo bracket, got %d", len(rc.rooms()))
	}
}

// TestFivePlayerTournament_RunsToCompletion tests a full odd-field run:
// one bye per round until the field is a power of two
func TestFivePlayerTournament_RunsToCompletion(t *testing.T) {
	svc, _ := newTestService(t)
	tn := seedTournament(t, svc, 5)
	started, _ := svc.Start(tn.ID)
	round1 := started.Bracket[0]

	svc.RaceFinished(tn.ID, round1[0].RoomID, "p1")
	svc.RaceFinished(tn.ID, round1[1].RoomID, "p4")

	got, _ := svc.Get(tn.ID)
	if len(got.Bracket) != 2 {
		t.Fatal("expected round 2")
	}
	round2 := got.Bracket[1]
	if len(round2) != 2 {
		t.Fatalf("expected 2 matches in round 2, got %d", len(round2))
	}
	if round2[0].Player1 != "p1" || round2[0].Player2 != "p4" {
		t.Errorf("unexpected round 2 pairing: %+v", round2[0])
	}
	if round2[1].Player1 != "p5" || !round2[1].Bye() {
		t.Errorf("expected p5 to carry the bye into round 2, got %+v", round2[1])
	}

	svc.RaceFinished(tn.ID, round2[0].RoomID, "p4")

	got, _ = svc.Get(tn.ID)
	if len(got.Bracket) != 3 {
		t.Fatal("expected round 3")
	}
	final := got.Bracket[2]
	if len(final) != 1 || final[0].Player1 != "p4" || final[0].Player2 != "p5" {
		t.Fatalf("expected final p4 vs p5, got %+v", final)
	}

	svc.RaceFinished(tn.ID, final[0].RoomID, "p5")

	got, _ = svc.Get(tn.ID)
	if got.Status != models.TournamentFinished {
		t.Errorf("expected finished tournament, got %q", got.Status)
	}
	if got.CurrentRound != 3 {
		t.Errorf("expected 3 rounds played, got %d", got.CurrentRound)
	}
}

// TestRecordMatchWinner_UnknownRoomIgnored tests that a report for a room
// not bound to any match changes nothing
func TestRecordMatchWinner_UnknownRoomIgnored(t *testing.T) {
	svc, _ := newTestService(t)
	tn := seedTournament(t, svc, 4)
	svc.Start(tn.ID)

	svc.RaceFinished(tn.ID, "NOSUCH", "p1")

	got, _ := svc.Get(tn.ID)
	for _, m := range got.Bracket[0] {
		if m.Winner != "" {
			t.Errorf("expected no winner recorded, got %+v", m)
		}
	}
}
