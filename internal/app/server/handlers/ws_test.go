package handlers

import (
	"context"
	"encoding/json"
	"linkup/internal/app/delivery"
	"linkup/internal/app/presence"
	"linkup/internal/app/registry"
	"linkup/internal/config"
	"linkup/internal/core/domain"
	"linkup/internal/core/services"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type realtimeStack struct {
	server   *httptest.Server
	registry *registry.Registry
	router   *delivery.Router
	tokens   *services.TokenService
}

func newRealtimeStack(t *testing.T) *realtimeStack {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	cfg := &config.RealtimeConfig{
		SendBuffer:   16,
		PushTimeout:  200 * time.Millisecond,
		WriteTimeout: time.Second,
		PongWait:     5 * time.Second,
		PingInterval: time.Second,
		ReadLimit:    4096,
	}
	reg := registry.NewRegistry()
	broadcaster := presence.NewBroadcaster(log, reg, nil, nil, cfg.PushTimeout)
	router := delivery.NewRouter(log, reg, broadcaster, nil, delivery.Options{PushTimeout: cfg.PushTimeout})
	tokens := services.NewTokenService("test-secret", time.Hour)
	manager := services.NewConnectionManager(log, reg, broadcaster)
	handler := NewWSHandler(log, tokens, manager, nil, cfg, "jwt", []string{"http://localhost:5173"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", handler.Handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		for _, c := range reg.Close() {
			c.Close()
		}
		srv.Close()
	})
	return &realtimeStack{server: srv, registry: reg, router: router, tokens: tokens}
}

func (s *realtimeStack) wsURL(query url.Values) string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?" + query.Encode()
}

func (s *realtimeStack) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	token, err := s.tokens.GenerateToken(userID)
	require.NoError(t, err)
	header := http.Header{}
	header.Add("Cookie", "jwt="+token)
	conn, resp, err := websocket.DefaultDialer.Dial(s.wsURL(url.Values{"userId": {userID}}), header)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads frames until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, kind string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", kind)
		var event map[string]any
		require.NoError(t, json.Unmarshal(data, &event))
		if event["type"] == kind {
			return event
		}
	}
}

// rosterEventually reads presence updates until the roster matches.
func rosterEventually(t *testing.T, conn *websocket.Conn, want ...string) {
	t.Helper()
	for {
		event := next(t, conn, domain.TypePresenceUpdate)
		raw, _ := event["online"].([]any)
		got := make([]string, 0, len(raw))
		for _, v := range raw {
			got = append(got, v.(string))
		}
		if strings.Join(got, ",") == strings.Join(want, ",") {
			return
		}
	}
}

func TestWS_Presence_And_Delivery_Scenario(t *testing.T) {
	req := require.New(t)
	stack := newRealtimeStack(t)
	userA, userB := uuid.NewString(), uuid.NewString()
	both := []string{userA, userB}
	if userB < userA {
		both = []string{userB, userA}
	}

	// Given A connects, A sees itself online
	connA := stack.dial(t, userA)
	rosterEventually(t, connA, userA)

	// When B connects, both see both
	connB := stack.dial(t, userB)
	rosterEventually(t, connA, both...)
	rosterEventually(t, connB, both...)

	// When A's persisted message is routed, B receives it
	msg := domain.Message{ID: uuid.New(), SenderID: userA, ReceiverID: userB, Text: "hi", CreatedAt: time.Now().UTC()}
	report := stack.router.Route(context.Background(), msg)
	req.Equal(1, report.Delivered)
	event := next(t, connB, domain.TypeMessageNew)
	body := event["message"].(map[string]any)
	req.Equal(msg.ID.String(), body["id"])
	req.Equal(userA, body["senderId"])
	req.Equal("hi", body["text"])

	// When B disconnects, A sees only itself
	req.NoError(connB.Close())
	rosterEventually(t, connA, userA)
	req.Equal([]string{userA}, stack.registry.OnlineUsers())
}

func TestWS_Second_Tab_Gets_Roster_And_Keeps_User_Online(t *testing.T) {
	req := require.New(t)
	stack := newRealtimeStack(t)
	userA := uuid.NewString()

	tab1 := stack.dial(t, userA)
	rosterEventually(t, tab1, userA)
	tab2 := stack.dial(t, userA)
	rosterEventually(t, tab2, userA)
	req.Len(stack.registry.Lookup(userA), 2)

	// Closing one tab leaves the other registered
	req.NoError(tab1.Close())
	req.Eventually(func() bool { return len(stack.registry.Lookup(userA)) == 1 }, 3*time.Second, 10*time.Millisecond)
	req.Equal([]string{userA}, stack.registry.OnlineUsers())

	// And messages still reach the remaining tab
	msg := domain.Message{ID: uuid.New(), SenderID: uuid.NewString(), ReceiverID: userA, Text: "still here"}
	stack.router.Route(context.Background(), msg)
	event := next(t, tab2, domain.TypeMessageNew)
	req.Equal("still here", event["message"].(map[string]any)["text"])
}

func TestWS_Handshake_Rejections(t *testing.T) {
	stack := newRealtimeStack(t)
	valid, err := stack.tokens.GenerateToken("user-a")
	require.NoError(t, err)

	cases := map[string]url.Values{
		"no token":          {"userId": {"user-a"}},
		"invalid token":     {"userId": {"user-a"}, "token": {"garbage"}},
		"identity mismatch": {"userId": {"user-b"}, "token": {valid}},
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			_, resp, err := websocket.DefaultDialer.Dial(stack.wsURL(query), nil)
			req.ErrorIs(err, websocket.ErrBadHandshake)
			req.Equal(http.StatusUnauthorized, resp.StatusCode)
			req.Empty(stack.registry.OnlineUsers())
		})
	}
}

func TestWS_Token_In_Query_Without_Claim_Is_Accepted(t *testing.T) {
	req := require.New(t)
	stack := newRealtimeStack(t)
	token, err := stack.tokens.GenerateToken("user-a")
	req.NoError(err)

	conn, _, err := websocket.DefaultDialer.Dial(stack.wsURL(url.Values{"token": {token}}), nil)
	req.NoError(err)
	defer conn.Close()

	rosterEventually(t, conn, "user-a")
}

func TestWS_Foreign_Origin_Is_Refused(t *testing.T) {
	req := require.New(t)
	stack := newRealtimeStack(t)
	token, err := stack.tokens.GenerateToken("user-a")
	req.NoError(err)
	header := http.Header{"Origin": {"http://evil.example"}}

	_, resp, err := websocket.DefaultDialer.Dial(stack.wsURL(url.Values{"token": {token}}), header)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusForbidden, resp.StatusCode)
	req.Empty(stack.registry.OnlineUsers())
}

func TestMatchClaim(t *testing.T) {
	req := require.New(t)

	req.NoError(matchClaim("", "user-a"))
	req.NoError(matchClaim("user-a", "user-a"))
	req.ErrorIs(matchClaim("user-b", "user-a"), domain.ErrIdentityMismatch)
}
