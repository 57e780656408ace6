package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NuZard84/go-typerace-socket/internal/constants"
	"github.com/NuZard84/go-typerace-socket/internal/gateway"
	"github.com/NuZard84/go-typerace-socket/internal/handlers"
	"github.com/NuZard84/go-typerace-socket/internal/manager"
	"github.com/NuZard84/go-typerace-socket/internal/models"
	"github.com/NuZard84/go-typerace-socket/internal/passage"
)

type frame struct {
	Type     string          `json:"type"`
	RoomCode string          `json:"roomCode"`
	Data     json.RawMessage `json:"data"`
}

func newServer(t *testing.T, config handlers.HubConfig) *httptest.Server {
	t.Helper()

	registry := manager.NewRegistry(manager.WithCodeGenerator(func() string { return "ABC123" }))
	hub := handlers.NewHub(config)
	gw := gateway.New(registry, hub, gateway.WithPassages(passage.NewCatalog("race me")))

	ctx, cancel := context.WithCancel(context.Background())
	go gw.Run(ctx)

	srv := httptest.NewServer(handlers.NewHandler(gw, hub).Routes(config.AllowedOrigins))
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, eventType string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": eventType, "data": data}))
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == eventType {
			return f
		}
	}
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestRaceOverWebSocket(t *testing.T) {
	srv := newServer(t, handlers.DefaultHubConfig())

	host := dial(t, srv)
	sendFrame(t, host, constants.EventCreateRoom, models.CreateRoomRequest{PlayerName: "Ada"})
	created := readUntil(t, host, constants.EventRoomCreated)

	var assignment models.RoomAssignment
	require.NoError(t, json.Unmarshal(created.Data, &assignment))
	assert.Equal(t, "ABC123", assignment.RoomCode)
	_, err := uuid.Parse(assignment.PlayerID)
	assert.NoError(t, err, "player ids are server assigned uuids")

	guest := dial(t, srv)
	sendFrame(t, guest, constants.EventJoinRoom, models.JoinRoomRequest{RoomCode: "abc123", PlayerName: "Grace"})
	readUntil(t, guest, constants.EventRoomJoined)

	hostStart := readUntil(t, host, constants.EventGameStart)
	guestStart := readUntil(t, guest, constants.EventGameStart)
	assert.JSONEq(t, string(hostStart.Data), string(guestStart.Data))

	var start models.GameStart
	require.NoError(t, json.Unmarshal(guestStart.Data, &start))
	assert.Equal(t, "race me", start.Text)

	var status models.RoomStatus
	getJSON(t, srv.URL+"/api/rooms/abc123", &status)
	assert.Equal(t, models.RoomStatus{Exists: true, State: constants.StatusActive, Players: 2}, status)

	var stats models.ServerStats
	getJSON(t, srv.URL+"/api/stats", &stats)
	assert.Equal(t, 1, stats.Rooms)
	assert.Equal(t, 2, stats.Players)
	assert.Equal(t, 2, stats.Connections)

	sendFrame(t, guest, constants.EventPlayerProgress, models.ProgressRequest{Progress: 3, WPM: 40})
	progress := readUntil(t, host, constants.EventPlayerProgress)
	var update models.ProgressUpdate
	require.NoError(t, json.Unmarshal(progress.Data, &update))
	assert.Equal(t, 3, update.Progress)

	require.NoError(t, guest.Close())
	left := readUntil(t, host, constants.EventPlayersUpdate)
	var players models.PlayersUpdate
	require.NoError(t, json.Unmarshal(left.Data, &players))
	assert.Len(t, players.Players, 1)
}

func TestUnknownRoomCheck(t *testing.T) {
	srv := newServer(t, handlers.DefaultHubConfig())

	var status models.RoomStatus
	getJSON(t, srv.URL+"/api/rooms/ZZZZZZ", &status)
	assert.False(t, status.Exists)
}

func TestJoinUnknownRoomOverWebSocket(t *testing.T) {
	srv := newServer(t, handlers.DefaultHubConfig())

	conn := dial(t, srv)
	sendFrame(t, conn, constants.EventJoinRoom, models.JoinRoomRequest{RoomCode: "ZZZZZZ", PlayerName: "Grace"})
	f := readUntil(t, conn, constants.EventRoomError)

	var roomErr models.RoomError
	require.NoError(t, json.Unmarshal(f.Data, &roomErr))
	assert.Equal(t, constants.MsgRoomNotFound, roomErr.Message)
}

func TestHealthAndCORS(t *testing.T) {
	srv := newServer(t, handlers.DefaultHubConfig())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	config := handlers.DefaultHubConfig()
	config.AllowedOrigins = []string{"http://localhost:3000"}
	srv := newServer(t, config)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
