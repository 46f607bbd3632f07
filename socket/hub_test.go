package socket

import (
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulisbareng/internal/document/repository"
	"tulisbareng/internal/user"
	"tulisbareng/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

var (
	userColumns   = []string{"id", "name", "email", "password_hash", "avatar", "created_at"}
	docColumns    = []string{"id", "title", "content", "owner_id", "created_at", "updated_at", "id", "name", "email", "avatar"}
	collabColumns = []string{"user_id", "role", "name", "email", "avatar"}
)

type hubFixture struct {
	hub  *Hub
	mock sqlmock.Sqlmock
	url  string
}

func newHubFixture(t *testing.T) *hubFixture {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	// Connections do their own DB reads concurrently.
	mock.MatchExpectationsInOrder(false)
	t.Cleanup(func() { db.Close() })

	hub := NewHub(repository.NewDocumentRepository(db), user.NewRepository(db))
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The real router runs the auth middleware first; tests shortcut
		// straight to the verified user id.
		userID := r.URL.Query().Get("user_id")
		ServeWs(hub, w, r, userID)
	}))
	t.Cleanup(server.Close)

	return &hubFixture{hub: hub, mock: mock, url: "ws" + strings.TrimPrefix(server.URL, "http")}
}

// expectUser covers the handshake's presence lookup for one connection.
func (f *hubFixture) expectUser(id, name string) {
	f.mock.ExpectQuery("FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id, name, id+"@x.com", "hash", "", time.Now()))
}

// expectDoc covers the access check behind one join-document event.
func (f *hubFixture) expectDoc(docID, ownerID string, collabs ...[]driver.Value) {
	now := time.Now()
	f.mock.ExpectQuery("FROM documents d JOIN users u").
		WithArgs(docID).
		WillReturnRows(sqlmock.NewRows(docColumns).
			AddRow(docID, "Notes", "durable content", ownerID, now, now, ownerID, "Owner", "owner@x.com", ""))

	rows := sqlmock.NewRows(collabColumns)
	for _, c := range collabs {
		rows.AddRow(c...)
	}
	f.mock.ExpectQuery("FROM collaborators c JOIN users u").
		WithArgs(docID).
		WillReturnRows(rows)
}

func (f *hubFixture) dial(t *testing.T, userID string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(f.url+"/ws?user_id="+userID, nil)
	require.NoError(t, err, "failed to connect as %s", userID)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func join(t *testing.T, conn *websocket.Conn, docID string) {
	require.NoError(t, conn.WriteJSON(WSMessage{Type: JoinDocumentType, DocID: docID}))
}

func sendChange(t *testing.T, conn *websocket.Conn, docID, content string) {
	payload, err := json.Marshal(content)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(WSMessage{Type: DocumentChangeType, DocID: docID, Payload: payload}))
}

// readMessage reads one message with a deadline so tests never hang.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "failed to unmarshal WSMessage JSON")
	return msg
}

// assertNoMessage asserts nothing arrives within the grace window.
func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no message, but one arrived")
	conn.SetReadDeadline(time.Time{})
}

func decodePresenceList(t *testing.T, msg WSMessage) []Presence {
	var users []Presence
	require.NoError(t, json.Unmarshal(msg.Payload, &users))
	return users
}

func decodeContent(t *testing.T, msg WSMessage) string {
	var content string
	require.NoError(t, json.Unmarshal(msg.Payload, &content))
	return content
}

func TestChangeBroadcastExcludesSender(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")
	f.expectUser("bob", "Bob")
	bobEditor := []driver.Value{"bob", "editor", "Bob", "bob@x.com", ""}
	f.expectDoc("doc123", "alice", bobEditor)
	f.expectDoc("doc123", "alice", bobEditor)

	owner := f.dial(t, "alice")
	join(t, owner, "doc123")
	msg := readMessage(t, owner)
	assert.Equal(t, CurrentUsersType, msg.Type)
	assert.Len(t, decodePresenceList(t, msg), 1)

	editor := f.dial(t, "bob")
	join(t, editor, "doc123")
	msg = readMessage(t, editor)
	assert.Equal(t, CurrentUsersType, msg.Type)
	assert.Len(t, decodePresenceList(t, msg), 2)

	// The joiner is announced to existing members only.
	msg = readMessage(t, owner)
	assert.Equal(t, UserJoinedType, msg.Type)

	sendChange(t, editor, "doc123", "Hello")

	msg = readMessage(t, owner)
	assert.Equal(t, DocumentUpdateType, msg.Type)
	assert.Equal(t, "doc123", msg.DocID)
	assert.Equal(t, "Hello", decodeContent(t, msg))

	// The sender's own buffer is never echoed back.
	assertNoMessage(t, editor)
}

func TestRoomDestroyedAfterLastLeave(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")
	f.expectUser("alice", "Alice")
	f.expectDoc("doc123", "alice")
	f.expectDoc("doc123", "alice")
	// The dirty mirror is flushed when the room closes.
	f.mock.ExpectExec("UPDATE documents SET content").
		WithArgs("draft text", "doc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	first := f.dial(t, "alice")
	join(t, first, "doc123")
	msg := readMessage(t, first)
	assert.Equal(t, CurrentUsersType, msg.Type)

	sendChange(t, first, "doc123", "draft text")
	first.Close()

	// Let the disconnect and close-flush settle before rejoining.
	time.Sleep(200 * time.Millisecond)

	second := f.dial(t, "alice")
	join(t, second, "doc123")
	msg = readMessage(t, second)
	assert.Equal(t, CurrentUsersType, msg.Type)
	assert.Len(t, decodePresenceList(t, msg), 1)

	// Fresh room, empty mirror: no document-update follows. The durable
	// value must be fetched over HTTP instead.
	assertNoMessage(t, second)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// Membership is keyed by connection, so one user with two tabs appears
// twice and closing one tab does not remove the other.
func TestSameUserInTwoTabs(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")
	f.expectUser("alice", "Alice")
	f.expectDoc("doc123", "alice")
	f.expectDoc("doc123", "alice")

	tab1 := f.dial(t, "alice")
	join(t, tab1, "doc123")
	readMessage(t, tab1) // current-users

	tab2 := f.dial(t, "alice")
	join(t, tab2, "doc123")
	msg := readMessage(t, tab2)
	users := decodePresenceList(t, msg)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].ID)
	assert.Equal(t, "alice", users[1].ID)

	msg = readMessage(t, tab1)
	assert.Equal(t, UserJoinedType, msg.Type)

	tab2.Close()

	msg = readMessage(t, tab1)
	assert.Equal(t, UserLeftType, msg.Type)
	var leftUserID string
	require.NoError(t, json.Unmarshal(msg.Payload, &leftUserID))
	assert.Equal(t, "alice", leftUserID)
}

func TestViewerChangesAreIgnored(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")
	f.expectUser("bob", "Bob")
	bobViewer := []driver.Value{"bob", "viewer", "Bob", "bob@x.com", ""}
	f.expectDoc("doc123", "alice", bobViewer)
	f.expectDoc("doc123", "alice", bobViewer)

	owner := f.dial(t, "alice")
	join(t, owner, "doc123")
	readMessage(t, owner) // current-users

	viewer := f.dial(t, "bob")
	join(t, viewer, "doc123")
	readMessage(t, viewer) // current-users
	readMessage(t, owner)  // user-joined

	// A read-only connection's change is never applied or propagated.
	sendChange(t, viewer, "doc123", "sneaky edit")
	assertNoMessage(t, owner)

	// The owner's change still flows, proving the room is healthy.
	sendChange(t, owner, "doc123", "legit edit")
	msg := readMessage(t, viewer)
	assert.Equal(t, DocumentUpdateType, msg.Type)
	assert.Equal(t, "legit edit", decodeContent(t, msg))
}

func TestJoinWithoutReadAccessRejected(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("mallory", "Mallory")
	f.expectDoc("doc123", "alice")

	conn := f.dial(t, "mallory")
	join(t, conn, "doc123")

	msg := readMessage(t, conn)
	assert.Equal(t, ErrorType, msg.Type)
	assert.Equal(t, "doc123", msg.DocID)
}

func TestChangeOnAbsentRoomIsBenign(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")

	conn := f.dial(t, "alice")
	// Never joined: the change must be silently dropped, not applied.
	sendChange(t, conn, "doc123", "orphan edit")
	assertNoMessage(t, conn)
}

func TestAutoSavePersistsDirtyMirror(t *testing.T) {
	f := newHubFixture(t)
	f.expectUser("alice", "Alice")
	f.expectDoc("doc123", "alice")
	f.mock.ExpectExec("UPDATE documents SET content").
		WithArgs("autosaved text", "doc123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	go f.hub.SaveWorker(50 * time.Millisecond)

	conn := f.dial(t, "alice")
	join(t, conn, "doc123")
	readMessage(t, conn) // current-users

	sendChange(t, conn, "doc123", "autosaved text")

	require.Eventually(t, func() bool {
		return f.mock.ExpectationsWereMet() == nil
	}, 2*time.Second, 50*time.Millisecond, "dirty mirror was not auto-saved")
}
