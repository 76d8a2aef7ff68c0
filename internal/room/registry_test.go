// internal/room/registry_test.go
package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateReuses(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.GetOrCreate("public:soccer:42")
	r2 := reg.GetOrCreate("public:soccer:42")
	assert.Same(t, r1, r2)
	assert.Len(t, reg.Rooms(), 1)

	p := reg.GetOrCreate("private:derby-night")
	assert.True(t, p.MediaAllowed)
	assert.False(t, r1.MediaAllowed)
}

func TestDropConnSweepsAllRooms(t *testing.T) {
	reg := NewRegistry()
	c := NewConn(nil)

	// One handle ending up in two rooms is abnormal but must still clean up.
	for _, key := range []string{"public:a", "public:b"} {
		r := reg.GetOrCreate(key)
		r.Mu.Lock()
		r.JoinUnsafe("A", c, nil)
		r.Mu.Unlock()
	}
	reg.DropConn(c.ID)
	assert.Empty(t, reg.Rooms(), "both rooms were deletable once A went offline")
}

func TestDropConnKeepsRoomWithUnresolvedBet(t *testing.T) {
	reg := NewRegistry()
	cA, cB := NewConn(nil), NewConn(nil)
	r := reg.GetOrCreate("public:soccer:42")

	r.Mu.Lock()
	r.JoinUnsafe("A", cA, nil)
	r.JoinUnsafe("B", cB, nil)
	b := r.CreateBetUnsafe("A", "B", "Derby", 100, "Home win")
	require.NotNil(t, b)
	require.True(t, b.Accept("B", "Away win", 100))
	r.Mu.Unlock()

	reg.DropConn(cA.ID)
	reg.DropConn(cB.ID)
	got, ok := reg.Get("public:soccer:42")
	require.True(t, ok, "active bet keeps the room alive with everyone offline")
	assert.Same(t, r, got)

	// Mutual cancellation resolves the bet outside any drop or settlement
	// event, so the room lingers until the next disconnect touching it.
	r.Mu.Lock()
	b.RequestCancel("A")
	b.RequestCancel("B")
	r.Mu.Unlock()

	cA2 := NewConn(nil)
	r.Mu.Lock()
	r.JoinUnsafe("A", cA2, nil)
	r.Mu.Unlock()
	reg.DropConn(cA2.ID)

	_, ok = reg.Get("public:soccer:42")
	assert.False(t, ok)
}

func TestDropConnNotifiesReadyPeers(t *testing.T) {
	reg := NewRegistry()
	cAlice, cBob := NewConn(nil), NewConn(nil)
	r := reg.GetOrCreate("private:derby-night")

	r.Mu.Lock()
	r.JoinUnsafe("alice", cAlice, nil)
	r.JoinUnsafe("bob", cBob, nil)
	_, aliceOK := r.DeclareReadyUnsafe("alice")
	_, bobOK := r.DeclareReadyUnsafe("bob")
	r.Mu.Unlock()
	require.True(t, aliceOK)
	require.True(t, bobOK)
	drain(cAlice)
	drain(cBob)

	reg.DropConn(cBob.ID)

	r.Mu.Lock()
	assert.False(t, r.Ready["bob"], "readiness withdrawn on disconnect")
	r.Mu.Unlock()

	var sawPeerLeft bool
	for _, m := range drain(cAlice) {
		if m["type"] == "peer_left" {
			sawPeerLeft = true
			assert.Equal(t, "bob", m["name"])
		}
	}
	assert.True(t, sawPeerLeft, "surviving peer must learn to tear down its connection")
}
