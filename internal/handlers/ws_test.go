// internal/handlers/ws_test.go
package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstanton/sidebet/internal/bet"
	"github.com/dstanton/sidebet/internal/room"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newSession() *session {
	return &session{conn: room.NewConn(nil)}
}

func drain(c *room.Conn) []map[string]interface{} {
	var msgs []map[string]interface{}
	for {
		select {
		case m := <-c.OutChan:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func dispatch(reg *room.Registry, sess *session, raw string) {
	var packet map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &packet); err != nil {
		panic(err)
	}
	handleMessage(reg, sess, packet, quietLogger())
}

func TestJoinCreatesRoomAndBindsIdentity(t *testing.T) {
	reg := room.NewRegistry()
	sess := newSession()

	dispatch(reg, sess, `{"type":"join","room":"public:soccer:42","name":"A","match":{"eventId":"42","sportKey":"soccer","startTime":"2026-08-29T15:00:00Z"}}`)

	assert.Equal(t, "A", sess.name)
	r, ok := reg.Get("public:soccer:42")
	require.True(t, ok)
	r.Mu.Lock()
	require.NotNil(t, r.Match)
	assert.Equal(t, "42", r.Match.EventID)
	assert.Equal(t, time.Date(2026, 8, 29, 15, 0, 0, 0, time.UTC), r.Match.StartTime)
	assert.NotNil(t, r.Participants["A"])
	r.Mu.Unlock()

	types := []string{}
	for _, m := range drain(sess.conn) {
		types = append(types, m["type"].(string))
	}
	assert.Equal(t, []string{"chat", "room_state"}, types, "join emits a system line then the snapshot")
}

func TestJoinValidationSilentlyDrops(t *testing.T) {
	reg := room.NewRegistry()
	sess := newSession()

	dispatch(reg, sess, `{"type":"join","room":"  ","name":"A"}`)
	dispatch(reg, sess, `{"type":"join","room":"public:x","name":"   "}`)

	assert.Empty(t, sess.name)
	assert.Empty(t, reg.Rooms(), "no room is created for a rejected join")
	assert.Empty(t, drain(sess.conn), "rejection is silent")
}

func TestChatRequiresBoundIdentityAndText(t *testing.T) {
	reg := room.NewRegistry()
	a, b := newSession(), newSession()
	dispatch(reg, a, `{"type":"join","room":"public:x","name":"A"}`)
	dispatch(reg, b, `{"type":"join","room":"public:x","name":"B"}`)
	drain(a.conn)
	drain(b.conn)

	dispatch(reg, a, `{"type":"chat","room":"public:x","msg":"  "}`)
	assert.Empty(t, drain(b.conn), "blank text is dropped")

	stranger := newSession()
	dispatch(reg, stranger, `{"type":"chat","room":"public:x","msg":"hi"}`)
	assert.Empty(t, drain(b.conn), "unjoined connection cannot chat")

	dispatch(reg, a, `{"type":"chat","room":"public:x","msg":"game on"}`)
	msgs := drain(b.conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "A", msgs[0]["sender"])
	assert.Equal(t, "game on", msgs[0]["msg"])
}

func TestBetFlowOverPackets(t *testing.T) {
	reg := room.NewRegistry()
	a, b := newSession(), newSession()
	dispatch(reg, a, `{"type":"join","room":"public:soccer:42","name":"A"}`)
	dispatch(reg, b, `{"type":"join","room":"public:soccer:42","name":"B"}`)

	dispatch(reg, a, `{"type":"bet_offer","room":"public:soccer:42","to":"B","title":"Derby","stake":100,"pick":"Home win"}`)
	r, _ := reg.Get("public:soccer:42")
	r.Mu.Lock()
	require.Len(t, r.Bets, 1)
	offered := r.Bets[0]
	r.Mu.Unlock()
	assert.Equal(t, bet.StatusPending, offered.Status)
	assert.Equal(t, 100, offered.CreatorStake)
	assert.Equal(t, "Home win", offered.CreatorPick)
	assert.Empty(t, offered.TargetPick)

	// The creator cannot accept their own offer; identity comes from the
	// session, not the payload.
	dispatch(reg, a, `{"type":"bet_accept","room":"public:soccer:42","bet_id":1,"pick":"Away win","stake":100}`)
	assert.Equal(t, bet.StatusPending, offered.Status)

	dispatch(reg, b, `{"type":"bet_accept","room":"public:soccer:42","bet_id":1,"pick":"Away win","stake":100}`)
	assert.Equal(t, bet.StatusActive, offered.Status)
	assert.Equal(t, "Away win", offered.TargetPick)

	dispatch(reg, a, `{"type":"bet_cancel","room":"public:soccer:42","bet_id":1}`)
	assert.Equal(t, bet.StatusCancelPending, offered.Status)
	dispatch(reg, b, `{"type":"bet_cancel","room":"public:soccer:42","bet_id":1}`)
	assert.Equal(t, bet.StatusCancelled, offered.Status)
}

func TestReadyHandshake(t *testing.T) {
	reg := room.NewRegistry()
	alice, bob := newSession(), newSession()
	dispatch(reg, alice, `{"type":"join","room":"private:derby","name":"alice"}`)
	dispatch(reg, bob, `{"type":"join","room":"private:derby","name":"bob"}`)
	drain(alice.conn)
	drain(bob.conn)

	dispatch(reg, alice, `{"type":"ready","room":"private:derby"}`)
	drain(alice.conn)
	drain(bob.conn)

	dispatch(reg, bob, `{"type":"ready","room":"private:derby"}`)
	var peerReady map[string]interface{}
	for _, m := range drain(bob.conn) {
		if m["type"] == "peer_ready" {
			peerReady = m
		}
	}
	require.NotNil(t, peerReady)
	peers := peerReady["peers"].([]room.Peer)
	require.Len(t, peers, 1)
	assert.Equal(t, "alice", peers[0].Name)
	assert.False(t, peers[0].Initiator)

	dispatch(reg, alice, `{"type":"signal","room":"private:derby","to":"bob","payload":{"sdp":"offer"}}`)
	var sig map[string]interface{}
	for _, m := range drain(bob.conn) {
		if m["type"] == "signal" {
			sig = m
		}
	}
	require.NotNil(t, sig)
	assert.Equal(t, "alice", sig["from"])
	assert.Equal(t, map[string]interface{}{"sdp": "offer"}, sig["payload"])
}

func TestLeaveDeletesSettledRoom(t *testing.T) {
	reg := room.NewRegistry()
	a := newSession()
	dispatch(reg, a, `{"type":"join","room":"public:x","name":"A"}`)
	dispatch(reg, a, `{"type":"leave","room":"public:x"}`)
	assert.Empty(t, reg.Rooms())
}

func TestListRoomsHandler(t *testing.T) {
	reg := room.NewRegistry()
	a := newSession()
	dispatch(reg, a, `{"type":"join","room":"private:derby","name":"A"}`)

	req := httptest.NewRequest("GET", "/api/rooms", nil)
	w := httptest.NewRecorder()
	ListRoomsHandler(reg).ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "private:derby", got[0]["key"])
	assert.Equal(t, true, got[0]["mediaAllowed"])
	assert.Equal(t, float64(1), got[0]["online"])
}

func TestListLeaguesHandler(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/leagues?sport=soccer", nil)
	w := httptest.NewRecorder()
	ListLeaguesHandler().ServeHTTP(w, req)
	require.Equal(t, 200, w.Code)

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NotEmpty(t, got)
	for _, l := range got {
		assert.Equal(t, "soccer", l["sport"])
	}
}
