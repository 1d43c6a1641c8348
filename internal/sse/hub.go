package sse

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type MembershipChangedEvent struct {
	TeamID uuid.UUID `json:"team_id"`
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	Change string    `json:"change"`
}

type ShareEvent struct {
	TaskID     uuid.UUID `json:"task_id"`
	UserID     uuid.UUID `json:"user_id"`
	Permission string    `json:"permission,omitempty"`
	GrantedBy  uuid.UUID `json:"granted_by"`
}

type TaskReassignedEvent struct {
	TaskID uuid.UUID  `json:"task_id"`
	TeamID *uuid.UUID `json:"team_id"`
}

type TeamDeletedEvent struct {
	TeamID uuid.UUID `json:"team_id"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Teams  map[uuid.UUID]bool
	Send   chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *TeamMessage
	direct     chan *UserMessage
	mu         sync.RWMutex
}

type TeamMessage struct {
	TeamID uuid.UUID
	Event  Event
}

type UserMessage struct {
	UserID uuid.UUID
	Event  Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *TeamMessage, 256),
		direct:     make(chan *UserMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.Teams[msg.TeamID] {
					select {
					case client.Send <- data:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()

		case msg := <-h.direct:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Event)
			for _, client := range h.clients {
				if client.UserID == msg.UserID {
					select {
					case client.Send <- data:
					default:
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) SubscribeToTeam(clientID string, teamID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		client.Teams[teamID] = true
	}
}

func (h *Hub) UnsubscribeFromTeam(clientID string, teamID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Teams, teamID)
	}
}

func (h *Hub) BroadcastMembershipChanged(teamID, userID uuid.UUID, role, change string) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: "membership_changed",
			Data: MembershipChangedEvent{
				TeamID: teamID,
				UserID: userID,
				Role:   role,
				Change: change,
			},
		},
	}
}

func (h *Hub) BroadcastShareGranted(taskID, targetID, grantedBy uuid.UUID, permission string) {
	h.direct <- &UserMessage{
		UserID: targetID,
		Event: Event{
			Type: "share_granted",
			Data: ShareEvent{
				TaskID:     taskID,
				UserID:     targetID,
				Permission: permission,
				GrantedBy:  grantedBy,
			},
		},
	}
}

func (h *Hub) BroadcastShareRevoked(taskID, targetID, revokedBy uuid.UUID) {
	h.direct <- &UserMessage{
		UserID: targetID,
		Event: Event{
			Type: "share_revoked",
			Data: ShareEvent{
				TaskID:    taskID,
				UserID:    targetID,
				GrantedBy: revokedBy,
			},
		},
	}
}

func (h *Hub) BroadcastTaskReassigned(teamID, taskID uuid.UUID) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: "task_reassigned",
			Data: TaskReassignedEvent{
				TaskID: taskID,
				TeamID: nil,
			},
		},
	}
}

func (h *Hub) BroadcastTeamDeleted(teamID uuid.UUID) {
	h.broadcast <- &TeamMessage{
		TeamID: teamID,
		Event: Event{
			Type: "team_deleted",
			Data: TeamDeletedEvent{TeamID: teamID},
		},
	}
}
