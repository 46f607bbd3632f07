package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tulisbareng/internal/document/access"
	"tulisbareng/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows us to connect from the frontend dev server
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one websocket connection. A user with two tabs open is two
// Clients with the same UserID and distinct IDs.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	ID     string
	UserID string
	Name   string
	Avatar string
	Send   chan []byte
}

func (c *Client) presence() Presence {
	return Presence{ID: c.UserID, Name: c.Name, Avatar: c.Avatar}
}

// ServeWs upgrades an authenticated request to a websocket connection.
// The credential was already verified by the auth middleware; here we only
// resolve the user's display fields for presence.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	u, err := hub.Users.GetByID(userID)
	if err != nil {
		logger.Sugar.Warnf("Connection refused: unknown user %s", userID)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		ID:     uuid.NewString(),
		UserID: u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
		Send:   make(chan []byte, 256),
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		if msg.DocID == "" {
			continue
		}

		switch msg.Type {
		case JoinDocumentType:
			c.handleJoin(msg.DocID)

		case DocumentChangeType:
			var content string
			if err := json.Unmarshal(msg.Payload, &content); err != nil {
				logger.Sugar.Errorf("Error unmarshalling change payload: %v", err)
				continue
			}
			// The remembered write capability is enforced inside the hub.
			c.Hub.change <- changeRequest{client: c, docID: msg.DocID, content: content}

		case LeaveDocumentType:
			c.Hub.leave <- leaveRequest{client: c, docID: msg.DocID}
		}
	}
}

// handleJoin checks read access before the join reaches the hub. The DB
// read happens on this connection's goroutine, so a slow lookup never
// stalls other rooms.
func (c *Client) handleJoin(docID string) {
	doc, err := c.Hub.Docs.GetByID(docID)
	if err != nil || !access.CanRead(doc, c.UserID) {
		logger.Sugar.Warnf("Join rejected: user %s has no read access to doc %s", c.UserID, docID)
		c.sendError(docID, "access denied")
		return
	}

	c.Hub.join <- joinRequest{
		client:   c,
		docID:    docID,
		canWrite: access.CanWrite(doc, c.UserID),
	}
}

func (c *Client) sendError(docID, message string) {
	data, err := marshalMessage(ErrorType, docID, map[string]string{"message": message})
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second) // Send ping every 30s
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.WriteMessage(websocket.TextMessage, message)
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Connection is dead
			}
		}
	}
}
