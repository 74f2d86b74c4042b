// Package handlers exposes the HTTP surface: health, the leaderboard
// API, room snapshots, join QR codes, and the websocket endpoint.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

// RoomGetter reads room snapshots from the game service.
type RoomGetter interface {
	Room(roomID string) (*models.Room, bool)
}

// LeaderboardService reads the high score list.
type LeaderboardService interface {
	TopScores(ctx context.Context, n int) ([]models.HighScore, error)
}

// WSHandler serves the websocket endpoint. Implemented by the hub.
type WSHandler interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Log     logger.Logger
	hub     WSHandler
	rooms   RoomGetter
	scores  LeaderboardService
	baseURL string
}

// New creates the handler set. baseURL is the externally reachable
// address encoded into join QR codes.
func New(log logger.Logger, hub WSHandler, rooms RoomGetter, scores LeaderboardService, baseURL string) *Handlers {
	return &Handlers{
		Log:     log,
		hub:     hub,
		rooms:   rooms,
		scores:  scores,
		baseURL: baseURL,
	}
}

// handleHealthz reports liveness.
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

// handleLeaderboard returns the top scores. Optional ?limit=n.
func (h *Handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, BadRequest("Invalid limit parameter"))
			return
		}
		limit = n
	}

	scores, err := h.scores.TopScores(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondOK(w, scores)
}

// handleGetRoom returns a snapshot of one room.
func (h *Handlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	room, ok := h.rooms.Room(code)
	if !ok {
		h.respondError(w, NotFound("Room not found"))
		return
	}
	respondOK(w, room)
}

// handleRoomQR serves a QR code PNG of the room's join URL, for joining
// a race from a phone by pointing a camera at the host's screen.
func (h *Handlers) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, ok := h.rooms.Room(code); !ok {
		h.respondError(w, NotFound("Room not found"))
		return
	}

	joinURL := fmt.Sprintf("%s/?join=%s", h.baseURL, code)
	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		h.Log.Error("failed to encode QR code", "room", code, "error", err)
		h.respondError(w, InternalError())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
