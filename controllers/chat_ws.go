package controller

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
	"teamfinder/models"
	"teamfinder/utils"
)

const eventsChannel = "teamfinder:events"

// wsClient owns one websocket subscription. Snapshots are queued on send
// and drained by a single writer goroutine; a slow consumer drops updates
// rather than blocking the broadcast.
type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *wsClient) writePump() {
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// Hub fans out full-snapshot updates to live feeds: one room per team chat
// plus a flat set of team-list watchers. With Redis enabled, events pass
// through pub/sub first so every instance rebroadcasts to its own sockets.
type Hub struct {
	DB     *gorm.DB
	Logger *log.Logger
	Redis  *redis.Client

	mu           sync.RWMutex
	rooms        map[string]map[*wsClient]struct{}
	teamWatchers map[*wsClient]struct{}
}

func NewHub(db *gorm.DB, rdb *redis.Client, logger *log.Logger) *Hub {
	return &Hub{
		DB:           db,
		Logger:       logger,
		Redis:        rdb,
		rooms:        make(map[string]map[*wsClient]struct{}),
		teamWatchers: make(map[*wsClient]struct{}),
	}
}

func (h *Hub) joinRoom(teamID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[teamID]
	if !ok {
		room = make(map[*wsClient]struct{})
		h.rooms[teamID] = room
	}
	room[client] = struct{}{}
}

func (h *Hub) leaveRoom(teamID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[teamID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, teamID)
		}
	}
	client.close()
}

func (h *Hub) watchTeams(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.teamWatchers[client] = struct{}{}
}

func (h *Hub) unwatchTeams(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.teamWatchers, client)
	client.close()
}

// RoomSize reports the number of live subscribers for a team's chat.
func (h *Hub) RoomSize(teamID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[teamID])
}

// NotifyChat signals that a team's chat log changed.
func (h *Hub) NotifyChat(teamID string) {
	if h.Redis != nil {
		if err := h.Redis.Publish(context.Background(), eventsChannel, "chat:"+teamID).Err(); err != nil {
			h.Logger.Printf("Failed to publish chat event: %v", err)
		}
		return
	}
	h.broadcastChat(teamID)
}

// NotifyTeams signals that the team set changed.
func (h *Hub) NotifyTeams() {
	if h.Redis != nil {
		if err := h.Redis.Publish(context.Background(), eventsChannel, "teams").Err(); err != nil {
			h.Logger.Printf("Failed to publish teams event: %v", err)
		}
		return
	}
	h.broadcastTeams()
}

// Listen consumes the Redis event stream and rebroadcasts to local
// sockets. Runs until the context is cancelled; no-op without Redis.
func (h *Hub) Listen(ctx context.Context) {
	if h.Redis == nil {
		return
	}
	pubsub := h.Redis.Subscribe(ctx, eventsChannel)
	defer pubsub.Close()

	h.Logger.Println("Realtime hub listening on Redis events")
	for {
		select {
		case <-ctx.Done():
			h.Logger.Println("Realtime hub shutting down...")
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			switch {
			case msg.Payload == "teams":
				h.broadcastTeams()
			case strings.HasPrefix(msg.Payload, "chat:"):
				h.broadcastChat(strings.TrimPrefix(msg.Payload, "chat:"))
			}
		}
	}
}

// chatPayload builds the serialized chat snapshot for one team.
func (h *Hub) chatPayload(teamID string) ([]byte, bool) {
	messages, err := loadChatSnapshot(h.DB, teamID)
	if err != nil {
		utils.LogError("chat_snapshot", err, map[string]interface{}{"team_id": teamID})
		return nil, false
	}
	payload, err := json.Marshal(chatEnvelope{Type: "messages", Messages: messages})
	if err != nil {
		h.Logger.Printf("Failed to marshal chat snapshot: %v", err)
		return nil, false
	}
	return payload, true
}

// sendChatSnapshot delivers the current snapshot to a single client, used
// when a subscriber first joins so the rest of the room sees no re-push.
func (h *Hub) sendChatSnapshot(client *wsClient, teamID string) {
	payload, ok := h.chatPayload(teamID)
	if !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *Hub) broadcastChat(teamID string) {
	payload, ok := h.chatPayload(teamID)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[teamID] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer, skip this snapshot
		}
	}
}

// teamsPayload builds the serialized team-list snapshot.
func (h *Hub) teamsPayload() ([]byte, bool) {
	teams, err := loadTeamSnapshot(h.DB)
	if err != nil {
		utils.LogError("team_snapshot", err, nil)
		return nil, false
	}
	payload, err := json.Marshal(teamListEnvelope{Type: "teams", Teams: teams})
	if err != nil {
		h.Logger.Printf("Failed to marshal team snapshot: %v", err)
		return nil, false
	}
	return payload, true
}

// sendTeamsSnapshot delivers the current team list to a single watcher.
func (h *Hub) sendTeamsSnapshot(client *wsClient) {
	payload, ok := h.teamsPayload()
	if !ok {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *Hub) broadcastTeams() {
	payload, ok := h.teamsPayload()
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.teamWatchers {
		select {
		case client.send <- payload:
		default:
		}
	}
}

type chatEnvelope struct {
	Type     string               `json:"type"`
	Messages []models.ChatMessage `json:"messages"`
}

type teamListEnvelope struct {
	Type  string        `json:"type"`
	Teams []models.Team `json:"teams"`
}

// loadChatSnapshot fetches the most recent 100 messages and returns them in
// ascending timestamp order. The re-sort is deliberate: delivery order from
// storage is not trusted.
func loadChatSnapshot(db *gorm.DB, teamID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := db.Where("team_id = ?", teamID).
		Order("timestamp DESC").
		Limit(100).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

// loadTeamSnapshot materializes the full team set for the list feed.
func loadTeamSnapshot(db *gorm.DB) ([]models.Team, error) {
	var teams []models.Team
	if err := db.Preload("Members").Find(&teams).Error; err != nil {
		return nil, err
	}
	for i := range teams {
		teams[i].Materialize()
	}
	return teams, nil
}

// HandleChatWS serves the live chat feed for one team. The caller must be
// a member; the initial snapshot is pushed immediately, then one snapshot
// per change until the socket closes.
func (h *Hub) HandleChatWS(c *websocket.Conn) {
	defer c.Close()

	teamID := c.Params("id")
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		_ = c.WriteJSON(wsErrorEnvelope{Type: "error", Error: "Authorization required"})
		return
	}

	var membership models.TeamMember
	if err := h.DB.Where("team_id = ? AND user_id = ?", teamID, user.ID).First(&membership).Error; err != nil {
		_ = c.WriteJSON(wsErrorEnvelope{Type: "error", Error: "Not a member of this team"})
		return
	}

	client := &wsClient{conn: c, send: make(chan []byte, 16)}
	h.joinRoom(teamID, client)
	defer h.leaveRoom(teamID, client)

	go client.writePump()
	h.sendChatSnapshot(client, teamID)

	// Block until the peer goes away; inbound frames are ignored, sending
	// happens over the REST endpoint.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// HandleTeamsWS serves the live team-list feed.
func (h *Hub) HandleTeamsWS(c *websocket.Conn) {
	defer c.Close()

	if _, ok := c.Locals("user").(*models.User); !ok {
		_ = c.WriteJSON(wsErrorEnvelope{Type: "error", Error: "Authorization required"})
		return
	}

	client := &wsClient{conn: c, send: make(chan []byte, 16)}
	h.watchTeams(client)
	defer h.unwatchTeams(client)

	go client.writePump()
	h.sendTeamsSnapshot(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

type wsErrorEnvelope struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
