package socket

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"tulisbareng/internal/document/repository"
	"tulisbareng/internal/user"
	"tulisbareng/pkg/logger"
)

const (
	// Client -> server
	JoinDocumentType   = "join-document"
	DocumentChangeType = "document-change"
	LeaveDocumentType  = "leave-document"

	// Server -> client
	CurrentUsersType   = "current-users"
	UserJoinedType     = "user-joined"
	UserLeftType       = "user-left"
	DocumentUpdateType = "document-update"
	ErrorType          = "error"
)

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Presence is the display info other room members see for a connection.
type Presence struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// member is a connection inside a room. Write capability is resolved once
// at join time; a mid-session role change takes effect on the next join.
type member struct {
	client   *Client
	canWrite bool
}

// Room is transient per-document session state. Content is a best-effort
// mirror of the last value received from any writer, not the durable value.
type Room struct {
	Members map[string]*member // connection id -> member
	Content string
	Dirty   bool
}

type joinRequest struct {
	client   *Client
	docID    string
	canWrite bool
}

type changeRequest struct {
	client  *Client
	docID   string
	content string
}

type leaveRequest struct {
	client *Client
	docID  string
}

type savedNotice struct {
	docID   string
	content string
}

// Hub owns the room registry. All room state is mutated only inside Run,
// so no locking is needed; every other goroutine talks to it via channels.
type Hub struct {
	rooms map[string]*Room

	join       chan joinRequest
	change     chan changeRequest
	leave      chan leaveRequest
	unregister chan *Client
	remove     chan string
	flushReq   chan chan map[string]string
	saved      chan savedNotice

	Docs  *repository.DocumentRepository
	Users *user.Repository
}

func NewHub(docs *repository.DocumentRepository, users *user.Repository) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		join:       make(chan joinRequest),
		change:     make(chan changeRequest),
		leave:      make(chan leaveRequest),
		unregister: make(chan *Client),
		remove:     make(chan string),
		flushReq:   make(chan chan map[string]string),
		saved:      make(chan savedNotice, 16),
		Docs:       docs,
		Users:      users,
	}
}

// Run is the hub's event loop. Events for a single room are processed and
// fanned out in arrival order; per-member Send channels preserve it.
func (h *Hub) Run() {
	for {
		select {
		case req := <-h.join:
			h.handleJoin(req)

		case req := <-h.change:
			h.handleChange(req)

		case req := <-h.leave:
			h.removeFromRoom(req.docID, req.client)

		case client := <-h.unregister:
			// Connection dropped: remove it from every room it joined.
			for docID, room := range h.rooms {
				if _, ok := room.Members[client.ID]; ok {
					h.removeFromRoom(docID, client)
				}
			}
			close(client.Send)

		case docID := <-h.remove:
			// Document deleted via the API: drop the cache so it is never
			// auto-saved back, and disconnect everyone in the room.
			if room, ok := h.rooms[docID]; ok {
				for _, m := range room.Members {
					m.client.Conn.Close()
				}
				delete(h.rooms, docID)
				logger.Sugar.Infof("Evicted room for deleted document %s", docID)
			}

		case reply := <-h.flushReq:
			dirty := make(map[string]string)
			for docID, room := range h.rooms {
				if room.Dirty {
					dirty[docID] = room.Content
				}
			}
			reply <- dirty

		case notice := <-h.saved:
			// Only mark clean if the content hasn't moved since the save
			// snapshot was taken.
			if room, ok := h.rooms[notice.docID]; ok && room.Content == notice.content {
				room.Dirty = false
			}
		}
	}
}

func (h *Hub) handleJoin(req joinRequest) {
	room, ok := h.rooms[req.docID]
	if !ok {
		// Lazy creation with an empty mirror; clients fetch the durable
		// content over HTTP.
		room = &Room{Members: make(map[string]*member)}
		h.rooms[req.docID] = room
	}
	room.Members[req.client.ID] = &member{client: req.client, canWrite: req.canWrite}

	// Everyone currently in the room, the joiner included. Membership is
	// keyed by connection, so one user with two tabs appears twice.
	users := lo.MapToSlice(room.Members, func(_ string, m *member) Presence {
		return m.client.presence()
	})
	h.sendTo(req.client, CurrentUsersType, req.docID, users)

	if room.Content != "" {
		h.sendTo(req.client, DocumentUpdateType, req.docID, room.Content)
	}

	h.broadcast(room, req.client.ID, UserJoinedType, req.docID, req.client.presence())
}

func (h *Hub) handleChange(req changeRequest) {
	room, ok := h.rooms[req.docID]
	if !ok {
		// Room never joined or already cleaned up; this races normal
		// join/leave traffic and is benign.
		return
	}
	m, ok := room.Members[req.client.ID]
	if !ok {
		return
	}
	if !m.canWrite {
		logger.Sugar.Warnf("Ignoring change from read-only connection %s (user %s) on doc %s",
			req.client.ID, req.client.UserID, req.docID)
		return
	}

	room.Content = req.content
	room.Dirty = true
	h.broadcast(room, req.client.ID, DocumentUpdateType, req.docID, req.content)
}

func (h *Hub) removeFromRoom(docID string, client *Client) {
	room, ok := h.rooms[docID]
	if !ok {
		return
	}
	if _, ok := room.Members[client.ID]; !ok {
		return
	}
	delete(room.Members, client.ID)
	h.broadcast(room, client.ID, UserLeftType, docID, client.UserID)

	if len(room.Members) == 0 {
		if room.Dirty {
			// Flush off the loop so other rooms keep flowing.
			go h.persist(docID, room.Content)
		}
		delete(h.rooms, docID)
		logger.Sugar.Infof("Closed and cleaned up empty room: %s", docID)
	}
}

func (h *Hub) persist(docID, content string) {
	if err := h.Docs.UpdateContent(docID, content); err != nil {
		logger.Sugar.Errorf("Failed to save doc %s on room close: %v", docID, err)
	}
}

// RemoveDocument forcefully evicts a live room. Called by the API delete
// path; safe to call for documents with no room.
func (h *Hub) RemoveDocument(docID string) {
	h.remove <- docID
}

// SaveWorker periodically persists dirty room mirrors. Best effort and
// last-writer-wins; a failed save leaves the room dirty for the next tick.
func (h *Hub) SaveWorker(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		reply := make(chan map[string]string, 1)
		h.flushReq <- reply
		dirty := <-reply

		for docID, content := range dirty {
			if err := h.Docs.UpdateContent(docID, content); err != nil {
				logger.Sugar.Errorf("Failed to auto-save doc %s: %v", docID, err)
				continue // Stays dirty, will retry on the next tick.
			}
			h.saved <- savedNotice{docID: docID, content: content}
			logger.Sugar.Infof("Auto-saved document: %s", docID)
		}
	}
}

// broadcast marshals once and fans out to every member except excludeConn.
func (h *Hub) broadcast(room *Room, excludeConn, msgType, docID string, payload any) {
	data, err := marshalMessage(msgType, docID, payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s broadcast: %v", msgType, err)
		return
	}
	for connID, m := range room.Members {
		if connID == excludeConn {
			continue
		}
		select {
		case m.client.Send <- data:
		default:
			// Send buffer full: the client is lagging. The pumps will
			// notice the dead connection and unregister it.
			logger.Sugar.Warnf("Connection %s's send buffer is full, dropping %s", connID, msgType)
		}
	}
}

func (h *Hub) sendTo(client *Client, msgType, docID string, payload any) {
	data, err := marshalMessage(msgType, docID, payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s message: %v", msgType, err)
		return
	}
	select {
	case client.Send <- data:
	default:
		logger.Sugar.Warnf("Connection %s's send buffer is full, dropping %s", client.ID, msgType)
	}
}

func marshalMessage(msgType, docID string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: msgType, DocID: docID, Payload: raw})
}
