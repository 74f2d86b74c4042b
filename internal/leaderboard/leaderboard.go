// Package leaderboard ranks race results into a global high score list.
package leaderboard

import (
	"context"
	"time"

	"github.com/SuryaXyz-art/Type-Arena/internal/errors"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

const (
	// Retention is how many entries the leaderboard keeps.
	Retention = 50

	// DefaultTopN is returned when the caller does not ask for a size.
	DefaultTopN = 10
)

// Repository defines the storage methods needed by the service.
type Repository interface {
	InsertScore(ctx context.Context, username string, wpm float64, recordedAt time.Time) error
	TrimScores(ctx context.Context, keep int) error
	TopScores(ctx context.Context, limit int) ([]models.HighScore, error)
}

// Service handles high score business logic.
type Service struct {
	log  logger.Logger
	repo Repository
}

// NewService creates a new leaderboard Service.
func NewService(log logger.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

// Record appends a score and trims the list back to the retention size.
func (s *Service) Record(ctx context.Context, username string, wpm float64) error {
	if username == "" {
		return errors.Validation("username is required")
	}
	if wpm <= 0 {
		return errors.Validation("wpm must be positive")
	}

	if err := s.repo.InsertScore(ctx, username, wpm, time.Now()); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to record score")
	}
	if err := s.repo.TrimScores(ctx, Retention); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to trim leaderboard")
	}

	s.log.Info("score recorded", "user", username, "wpm", wpm)
	return nil
}

// TopScores returns the first n leaderboard entries; n <= 0 uses
// DefaultTopN. A nil slice becomes an empty one so JSON encodes [].
func (s *Service) TopScores(ctx context.Context, n int) ([]models.HighScore, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	scores, err := s.repo.TopScores(ctx, n)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load leaderboard")
	}
	if scores == nil {
		scores = []models.HighScore{}
	}
	return scores, nil
}
