package handlers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/dimitrije/taskdeck-api/internal/middleware"
	"github.com/dimitrije/taskdeck-api/internal/sse"
)

type SSEHandler struct {
	hub         HubInterface
	teamService TeamServiceInterface
}

func NewSSEHandler(hub HubInterface, teamService TeamServiceInterface) *SSEHandler {
	return &SSEHandler{
		hub:         hub,
		teamService: teamService,
	}
}

func (h *SSEHandler) Connect(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	teamID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	isMember, err := h.teamService.IsMember(context.Background(), teamID, userID)
	if err != nil || !isMember {
		c.NotFound("team not found")
		return
	}

	sseCtx := c.SSE()

	clientID := uuid.New().String()
	client := &sse.Client{
		ID:     clientID,
		UserID: userID,
		Teams:  map[uuid.UUID]bool{teamID: true},
		Send:   make(chan []byte, 256),
	}

	h.hub.Register(client)
	defer h.hub.Unregister(client)

	if err := sseCtx.SendJSON(map[string]string{
		"type":      "connected",
		"client_id": clientID,
	}, "system", ""); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		<-c.Request.Context().Done()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := sseCtx.Send(string(msg), "message", ""); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *SSEHandler) Subscribe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}

	teamID, err := uuid.Parse(c.Param("teamId"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	isMember, err := h.teamService.IsMember(context.Background(), teamID, userID)
	if err != nil || !isMember {
		c.NotFound("team not found")
		return
	}

	h.hub.SubscribeToTeam(clientID, teamID)

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("subscribed to team %s", teamID),
	})
}

func (h *SSEHandler) Unsubscribe(c *drift.Context) {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		c.Unauthorized("not authenticated")
		return
	}

	clientID := c.Param("clientId")
	if clientID == "" {
		c.BadRequest("client_id is required")
		return
	}

	teamID, err := uuid.Parse(c.Param("teamId"))
	if err != nil {
		c.BadRequest("invalid team id")
		return
	}

	h.hub.UnsubscribeFromTeam(clientID, teamID)

	_ = c.JSON(200, map[string]string{
		"message": fmt.Sprintf("unsubscribed from team %s", teamID),
	})
}
