// Package app wires the server together: repository, services, hub, and
// HTTP handlers.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SuryaXyz-art/Type-Arena/internal/game"
	"github.com/SuryaXyz-art/Type-Arena/internal/handlers"
	"github.com/SuryaXyz-art/Type-Arena/internal/leaderboard"
	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/repository"
	"github.com/SuryaXyz-art/Type-Arena/internal/tournament"
	"github.com/SuryaXyz-art/Type-Arena/internal/websocket"
	"github.com/SuryaXyz-art/Type-Arena/pkg/arena"
)

// Config carries the runtime settings for the server.
type Config struct {
	DBPath        string
	BaseURL       string        // external address encoded into join QR codes
	Countdown     time.Duration // 0 keeps the default race countdown
	RaceTimeLimit time.Duration // 0 disables the racing timeout
}

// App holds all application dependencies.
type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
}

// New creates and initializes a new application instance.
func New(log logger.Logger, cfg Config, mirror arena.Client) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	scoreService := leaderboard.NewService(log, repo)
	gameService := game.NewService(log, scoreService, mirror)
	if cfg.Countdown > 0 {
		gameService.SetCountdown(cfg.Countdown)
	}
	if cfg.RaceTimeLimit > 0 {
		gameService.SetRaceTimeLimit(cfg.RaceTimeLimit)
	}
	tournamentService := tournament.NewService(log)

	// Cross-wiring: races report match winners to the scheduler, the
	// scheduler creates rooms through the game service, and both
	// broadcast through the hub.
	hub := websocket.New(log, gameService, tournamentService, scoreService)
	gameService.SetBroadcaster(hub)
	gameService.SetMatchReporter(tournamentService)
	tournamentService.SetRoomCreator(gameService)
	tournamentService.SetBroadcaster(hub)
	hub.Start()

	h := handlers.New(log, hub, gameService, scoreService, cfg.BaseURL)

	return &App{
		log:      log,
		handlers: h,
		repo:     repo,
	}, nil
}

// Router returns the configured HTTP router.
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close releases app resources.
func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run starts the HTTP server.
func (a *App) Run(addr string) error {
	a.log.Info("server starting", "addr", addr)
	return http.ListenAndServe(addr, a.Router())
}
