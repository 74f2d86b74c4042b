// Package websocket is the transport layer: it upgrades connections,
// assigns each one an opaque identifier, routes inbound events to the
// game and tournament services, and fans broadcasts out to channel
// members. Room and tournament ids share one channel namespace.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SuryaXyz-art/Type-Arena/internal/logger"
	"github.com/SuryaXyz-art/Type-Arena/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// RoomService is the slice of the game service the hub dispatches to.
type RoomService interface {
	CreateRoom(hostID, username string) *models.Room
	JoinRoom(roomID, userID, username string) (*models.Room, error)
	LeavePlayer(roomID, userID string) (*models.Room, bool)
	StartRace(roomID, callerID string) error
	UpdateProgress(roomID, userID string, progress, wpm float64)
}

// TournamentService is the slice of the tournament service the hub
// dispatches to.
type TournamentService interface {
	Create(hostID, username string, maxPlayers int) *models.Tournament
	Join(id, userID, username string) (*models.Tournament, error)
	Start(id string) (*models.Tournament, error)
}

// Leaderboard supplies the scores pushed to newly connected clients.
type Leaderboard interface {
	TopScores(ctx context.Context, n int) ([]models.HighScore, error)
}

// Hub maintains the set of active clients, their channel memberships,
// and the event dispatch into the services.
type Hub struct {
	log         logger.Logger
	rooms       RoomService
	tournaments TournamentService
	scores      Leaderboard

	register   chan *Client
	unregister chan *Client

	mutex    sync.RWMutex
	clients  map[*Client]bool
	channels map[string]map[*Client]bool
}

// Client is a middleman between one websocket connection and the hub.
// Its id is the opaque connection identifier players are known by.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan models.WSMessage

	id          string
	username    string
	rooms       map[string]bool // guarded by hub.mutex
	tournaments map[string]bool // guarded by hub.mutex
}

// ID returns the client's connection identifier.
func (c *Client) ID() string {
	return c.id
}

// New creates a new Hub with injected dependencies.
func New(log logger.Logger, rooms RoomService, tournaments TournamentService, scores Leaderboard) *Hub {
	return &Hub{
		log:         log,
		rooms:       rooms,
		tournaments: tournaments,
		scores:      scores,
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		clients:     make(map[*Client]bool),
		channels:    make(map[string]map[*Client]bool),
	}
}

// Start begins the hub's main loop in a goroutine.
func (h *Hub) Start() {
	go h.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.log.Debug("client connected", "client", client.id, "total_clients", total)

			// New connections get the current leaderboard right away.
			go h.pushLeaderboard(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			var left []string
			if _, ok := h.clients[client]; ok {
				for id := range client.rooms {
					left = append(left, id)
					h.dropFromChannel(client, id)
				}
				for id := range client.tournaments {
					h.dropFromChannel(client, id)
				}
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()

			// A dropped connection leaves its races; its tournament
			// registration stays, matching the reference behavior.
			for _, roomID := range left {
				h.rooms.LeavePlayer(roomID, client.id)
			}
			h.log.Debug("client disconnected", "client", client.id, "total_clients", total)
		}
	}
}

// pushLeaderboard sends the initial leaderboard_update to one client.
func (h *Hub) pushLeaderboard(client *Client) {
	top, err := h.scores.TopScores(context.Background(), 0)
	if err != nil {
		h.log.Error("failed to load leaderboard for new client", "error", err)
		return
	}
	h.sendTo(client, models.WSMessage{Type: "leaderboard_update", Payload: top})
}

// sendTo delivers a message to one client if it is still registered. A
// client whose send buffer is full is dropped rather than allowed to
// stall everyone else.
func (h *Hub) sendTo(client *Client, msg models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- msg:
	default:
		go func() { h.unregister <- client }()
	}
}

// ToRoom sends an event to every member of a room or tournament channel.
func (h *Hub) ToRoom(channelID, event string, payload interface{}) {
	msg := models.WSMessage{Type: event, Payload: payload}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.channels[channelID] {
		select {
		case client.send <- msg:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// ToAll sends an event to every connected client.
func (h *Hub) ToAll(event string, payload interface{}) {
	msg := models.WSMessage{Type: event, Payload: payload}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
			go func(c *Client) { h.unregister <- c }(client)
		}
	}
}

// joinChannel subscribes the client to a room or tournament channel.
func (h *Hub) joinChannel(client *Client, channelID string, tournament bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.channels[channelID] == nil {
		h.channels[channelID] = make(map[*Client]bool)
	}
	h.channels[channelID][client] = true
	if tournament {
		client.tournaments[channelID] = true
	} else {
		client.rooms[channelID] = true
	}
}

// leaveChannel unsubscribes the client from a channel.
func (h *Hub) leaveChannel(client *Client, channelID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dropFromChannel(client, channelID)
	delete(client.rooms, channelID)
	delete(client.tournaments, channelID)
}

// dropFromChannel removes the client from a channel map. Caller holds
// h.mutex.
func (h *Hub) dropFromChannel(client *Client, channelID string) {
	if members, ok := h.channels[channelID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.channels, channelID)
		}
	}
}

// envelope is the inbound wire format.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type createRoomPayload struct {
	Username string `json:"username"`
}

type joinRoomPayload struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type updateProgressPayload struct {
	RoomID   string  `json:"roomId"`
	Progress float64 `json:"progress"`
	WPM      float64 `json:"wpm"`
}

type createTournamentPayload struct {
	Username   string `json:"username"`
	MaxPlayers int    `json:"maxPlayers,omitempty"`
}

type joinTournamentPayload struct {
	TournamentID string `json:"tournamentId"`
	Username     string `json:"username"`
}

type tournamentPayload struct {
	TournamentID string `json:"tournamentId"`
}

// dispatch routes one inbound event to the owning service. Rejected
// joins answer with an error event; everything else that fails a
// precondition is a quiet no-op for the sender, per the silent-drop
// posture.
func (h *Hub) dispatch(client *Client, env envelope) {
	switch env.Type {
	case "create_room":
		var p createRoomPayload
		if !h.decode(client, env, &p) {
			return
		}
		client.username = p.Username
		room := h.rooms.CreateRoom(client.id, p.Username)
		h.joinChannel(client, room.ID, false)
		h.sendTo(client, models.WSMessage{Type: "room_created", Payload: room})

	case "join_room":
		var p joinRoomPayload
		if !h.decode(client, env, &p) {
			return
		}
		client.username = p.Username
		room, err := h.rooms.JoinRoom(p.RoomID, client.id, p.Username)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		h.joinChannel(client, room.ID, false)
		h.sendTo(client, models.WSMessage{Type: "room_joined", Payload: room})

	case "leave_room":
		var p roomPayload
		if !h.decode(client, env, &p) {
			return
		}
		h.leaveChannel(client, p.RoomID)
		h.rooms.LeavePlayer(p.RoomID, client.id)

	case "start_race":
		var p roomPayload
		if !h.decode(client, env, &p) {
			return
		}
		if err := h.rooms.StartRace(p.RoomID, client.id); err != nil {
			h.log.Debug("start_race rejected", "room", p.RoomID, "client", client.id, "reason", err)
		}

	case "update_progress":
		var p updateProgressPayload
		if !h.decode(client, env, &p) {
			return
		}
		h.rooms.UpdateProgress(p.RoomID, client.id, p.Progress, p.WPM)

	case "create_tournament":
		var p createTournamentPayload
		if !h.decode(client, env, &p) {
			return
		}
		client.username = p.Username
		t := h.tournaments.Create(client.id, p.Username, p.MaxPlayers)
		h.joinChannel(client, t.ID, true)
		h.sendTo(client, models.WSMessage{Type: "tournament_created", Payload: t})

	case "join_tournament":
		var p joinTournamentPayload
		if !h.decode(client, env, &p) {
			return
		}
		client.username = p.Username
		t, err := h.tournaments.Join(p.TournamentID, client.id, p.Username)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		h.joinChannel(client, t.ID, true)
		h.sendTo(client, models.WSMessage{Type: "tournament_joined", Payload: t})

	case "start_tournament":
		var p tournamentPayload
		if !h.decode(client, env, &p) {
			return
		}
		if _, err := h.tournaments.Start(p.TournamentID); err != nil {
			h.log.Debug("start_tournament rejected", "tournament", p.TournamentID, "reason", err)
		}

	default:
		h.log.Debug("unknown event", "type", env.Type, "client", client.id)
	}
}

func (h *Hub) decode(client *Client, env envelope, target interface{}) bool {
	if err := json.Unmarshal(env.Payload, target); err != nil {
		h.log.Debug("malformed payload", "type", env.Type, "client", client.id, "error", err)
		h.sendError(client, "invalid payload")
		return false
	}
	return true
}

func (h *Hub) sendError(client *Client, message string) {
	h.sendTo(client, models.WSMessage{Type: "error", Payload: map[string]string{
		"message": message,
	}})
}

// readPump pumps messages from the websocket connection into dispatch.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("websocket error", "client", c.id, "error", err)
			}
			break
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.hub.log.Debug("malformed event", "client", c.id, "error", err)
			continue
		}
		c.hub.dispatch(c, env)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			msgBytes, _ := json.Marshal(message)
			w.Write(msgBytes)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWs handles websocket requests from clients.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:         h,
		conn:        conn,
		send:        make(chan models.WSMessage, 256),
		id:          uuid.New().String(),
		rooms:       make(map[string]bool),
		tournaments: make(map[string]bool),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
