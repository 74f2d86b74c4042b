package game

import (
	"context"
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/errors"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
	"github.com/SuryaXyz-art/Type-Arena/pkg/arena"
)

// TopScoresBroadcast is how many leaderboard entries ride along on a
// leaderboard_update broadcast.
const TopScoresBroadcast = 10

// StartRace moves a waiting room into countdown. Only the host may start
// a normal room; tournament-owned rooms are host-less from the player's
// perspective, so any member's start request is honored. The transition
// to racing happens when the countdown elapses, guarded by a freshness
// check in case the room was torn down in the interim.
func (s *Service) StartRace(roomID, callerID string) error {
	rs, ok := s.state(roomID)
	if !ok {
		return errors.NotFoundf("room %s not found", roomID)
	}

	rs.mu.Lock()
	if rs.gone {
		rs.mu.Unlock()
		return errors.NotFoundf("room %s not found", roomID)
	}

	room := rs.room
	if room.Status != models.StatusWaiting {
		rs.mu.Unlock()
		return errors.Conflictf("race already %s", room.Status)
	}
	if room.TournamentID == "" && room.HostID != callerID {
		rs.mu.Unlock()
		return errors.Validation("only the host can start the race")
	}

	room.Status = models.StatusCountdown
	countdown := s.countdown
	// The callback re-resolves the room by id; state captured now would
	// be stale by fire time.
	rs.countdownTimer = time.AfterFunc(countdown, func() {
		s.beginRace(roomID)
	})
	rs.mu.Unlock()

	s.log.Info("race countdown started", "room", roomID)
	s.broadcast(roomID, "race_starting", map[string]interface{}{
		"countdown": countdown.Milliseconds(),
	})
	return nil
}

// beginRace fires when the countdown elapses. The race text is broadcast
// here, not before, so a racing-state leak cannot hand anyone an early
// reading advantage.
func (s *Service) beginRace(roomID string) {
	rs, ok := s.state(roomID)
	if !ok {
		return
	}

	rs.mu.Lock()
	if rs.gone || rs.room.Status != models.StatusCountdown {
		// Room deleted or altered mid-countdown; the start is stale.
		rs.mu.Unlock()
		return
	}

	room := rs.room
	now := time.Now().UnixMilli()
	room.StartTimeMs = &now
	room.Status = models.StatusRacing
	if s.raceLimit > 0 {
		rs.raceTimer = time.AfterFunc(s.raceLimit, func() {
			s.expireRace(roomID)
		})
	}
	text := room.Text
	rs.mu.Unlock()

	s.log.Info("race started", "room", roomID)
	s.broadcast(roomID, "race_started", map[string]interface{}{
		"startTime": now,
		"text":      text,
	})
}

// UpdateProgress applies one validated progress report. Rejected reports
// are dropped silently: no state change and no error back to the sender,
// only an operator log line.
func (s *Service) UpdateProgress(roomID, userID string, progress, wpm float64) {
	rs, ok := s.state(roomID)
	if !ok {
		return
	}

	rs.mu.Lock()
	room := rs.room
	if rs.gone || room.Status != models.StatusRacing {
		rs.mu.Unlock()
		return
	}
	player, ok := room.Player(userID)
	if !ok {
		rs.mu.Unlock()
		return
	}

	verdict := ValidateProgress(room, player, progress, wpm, time.Now())
	if !verdict.Accept {
		username := player.Username
		rs.mu.Unlock()
		s.log.Warn("progress report rejected",
			"room", roomID, "user", username, "progress", progress, "wpm", wpm)
		return
	}

	var recordName string
	if verdict.Finish {
		player.Finished = true
		ft := verdict.FinishTimeMs
		player.FinishTimeMs = &ft
		player.Progress = 100
		// The reported WPM is adopted verbatim; the implied value was a
		// plausibility check only.
		player.WPM = wpm
		if wpm > 0 {
			recordName = player.Username
		}
	} else {
		player.Progress = progress
		player.WPM = wpm
	}

	finished := allFinished(room)
	var winnerID string
	if finished {
		room.Status = models.StatusFinished
		if rs.raceTimer != nil {
			rs.raceTimer.Stop()
		}
		if room.TournamentID != "" {
			winnerID = raceWinner(room)
		}
	}
	snapshot := room.Clone()
	rs.mu.Unlock()

	if recordName != "" {
		s.recordScore(recordName, wpm)
	}

	s.broadcast(roomID, "room_update", snapshot)

	if finished {
		s.finishRace(snapshot, winnerID)
	}
}

// expireRace force-finishes a room that has been racing longer than the
// configured limit. Unfinished players are frozen at their last accepted
// progress; their WPM is not recorded to the leaderboard.
func (s *Service) expireRace(roomID string) {
	rs, ok := s.state(roomID)
	if !ok {
		return
	}

	rs.mu.Lock()
	room := rs.room
	if rs.gone || room.Status != models.StatusRacing {
		rs.mu.Unlock()
		return
	}

	now := time.Now().UnixMilli()
	var start int64
	if room.StartTimeMs != nil {
		start = *room.StartTimeMs
	}
	elapsed := now - start
	for i := range room.Players {
		if !room.Players[i].Finished {
			room.Players[i].Finished = true
			ft := elapsed
			room.Players[i].FinishTimeMs = &ft
		}
	}
	room.Status = models.StatusFinished

	var winnerID string
	if room.TournamentID != "" {
		winnerID = raceWinner(room)
	}
	snapshot := room.Clone()
	rs.mu.Unlock()

	s.log.Warn("race expired", "room", roomID, "elapsed_ms", elapsed)
	s.broadcast(roomID, "room_update", snapshot)
	s.finishRace(snapshot, winnerID)
}

// finishRace runs the side effects of the racing→finished transition.
func (s *Service) finishRace(snapshot *models.Room, winnerID string) {
	s.log.Info("race finished", "room", snapshot.ID, "tournament", snapshot.TournamentID)
	s.broadcast(snapshot.ID, "race_finished", snapshot)

	go s.mirrorResult(snapshot, winnerID)

	if snapshot.TournamentID != "" && winnerID != "" && s.matches != nil {
		s.matches.RaceFinished(snapshot.TournamentID, snapshot.ID, winnerID)
	}
}

// recordScore reports an accepted finish to the leaderboard immediately
// and pushes the refreshed top scores to everyone.
func (s *Service) recordScore(username string, wpm float64) {
	ctx := context.Background()
	if err := s.scores.Record(ctx, username, wpm); err != nil {
		s.log.Error("failed to record score", "user", username, "error", err)
		return
	}
	top, err := s.scores.TopScores(ctx, TopScoresBroadcast)
	if err != nil {
		s.log.Error("failed to load top scores", "error", err)
		return
	}
	s.broadcastAll("leaderboard_update", top)
}

// mirrorResult ships the outcome to the chain mirror, best-effort. A
// mirror failure must never affect race correctness, so errors stop at
// the log.
func (s *Service) mirrorResult(snapshot *models.Room, winnerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := arena.RaceResult{
		RoomID:       snapshot.ID,
		TournamentID: snapshot.TournamentID,
		WinnerID:     winnerID,
	}
	for _, p := range snapshot.Players {
		pr := arena.PlayerResult{
			PlayerID: p.ID,
			Username: p.Username,
			WPM:      p.WPM,
		}
		if p.FinishTimeMs != nil {
			pr.FinishTimeMs = *p.FinishTimeMs
		}
		result.Players = append(result.Players, pr)
	}

	if err := s.mirror.RecordRace(ctx, result); err != nil {
		s.log.Warn("chain mirror failed", "room", snapshot.ID, "error", err)
	}
}

// allFinished reports whether every player in the room has finished.
func allFinished(room *models.Room) bool {
	for i := range room.Players {
		if !room.Players[i].Finished {
			return false
		}
	}
	return len(room.Players) > 0
}

// raceWinner picks the player with the smallest finish time, ties broken
// by join order.
func raceWinner(room *models.Room) string {
	winner := ""
	var best int64
	for i := range room.Players {
		p := &room.Players[i]
		if p.FinishTimeMs == nil {
			continue
		}
		if winner == "" || *p.FinishTimeMs < best {
			winner = p.ID
			best = *p.FinishTimeMs
		}
	}
	return winner
}
