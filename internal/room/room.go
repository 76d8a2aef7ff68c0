// internal/room/room.go
package room

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dstanton/sidebet/internal/bet"
)

// StartingCredits is every participant's balance on first join. It is
// assigned once per identity per room and survives reconnects.
const StartingCredits = 1000

// PrivatePrefix marks room keys whose rooms permit webcam/mic signaling.
// Any other key gets a chat-only room.
const PrivatePrefix = "private:"

// Match is the external sporting event a room is organized around. The room
// creator supplies it at join time; a later join may replace it with a
// refreshed descriptor.
type Match struct {
	EventID     string    `json:"eventId"`
	SportKey    string    `json:"sportKey"`
	LeagueCode  string    `json:"leagueCode,omitempty"`
	LeagueLabel string    `json:"leagueLabel,omitempty"`
	Country     string    `json:"country,omitempty"`
	StartTime   time.Time `json:"startTime"`
}

// Participant is a display-name-identified member of a room. The record is
// never deleted while the room exists, so bets referencing a disconnected
// user stay valid.
type Participant struct {
	Name    string
	Credits int
	Online  bool
	Conn    *Conn
}

// Peer pairs an already-ready identity with the deterministic initiator
// decision for the newly ready side: of any two names the lexicographically
// smaller one initiates, so exactly one side dials.
type Peer struct {
	Name      string `json:"name"`
	Initiator bool   `json:"initiator"`
}

// Room aggregates membership, chat fanout, the bet ledger and signaling
// readiness for one watch party. All fields behind Mu; methods with the
// Unsafe suffix assume the caller holds it.
type Room struct {
	Key          string
	MediaAllowed bool

	Mu           sync.Mutex
	Participants map[string]*Participant
	Bets         []*bet.Bet
	Match        *Match
	Ready        map[string]bool

	nextBetID int64

	// OnEmpty fires after a drop leaves the room deletable. Assigned by the
	// registry that owns this room.
	OnEmpty func(key string)
}

func newRoom(key string) *Room {
	return &Room{
		Key:          key,
		MediaAllowed: strings.HasPrefix(key, PrivatePrefix),
		Participants: make(map[string]*Participant),
		Ready:        make(map[string]bool),
	}
}

// JoinUnsafe upserts a participant by display name. A known name keeps its
// credit balance and gets its connection handle swapped; an unknown one is
// created with the starting balance. A non-nil match descriptor replaces the
// room's current one.
func (r *Room) JoinUnsafe(name string, conn *Conn, m *Match) {
	p, ok := r.Participants[name]
	if !ok {
		p = &Participant{Name: name, Credits: StartingCredits}
		r.Participants[name] = p
	}
	if p.Conn != nil && p.Conn != conn {
		// Reconnect replacing a live or half-dead handle.
		p.Conn.retire()
	}
	p.Conn = conn
	p.Online = true
	if m != nil {
		r.Match = m
	}
}

// DropConnUnsafe marks whichever participant owns the given connection handle
// offline and withdraws its signaling readiness. Returns the identity and
// whether it had declared readiness; ok is false when the handle does not
// belong to this room.
func (r *Room) DropConnUnsafe(connID uuid.UUID) (name string, wasReady, ok bool) {
	for _, p := range r.Participants {
		if p.Conn != nil && p.Conn.ID == connID {
			p.Online = false
			p.Conn = nil
			wasReady = r.Ready[p.Name]
			delete(r.Ready, p.Name)
			return p.Name, wasReady, true
		}
	}
	return "", false, false
}

// DeletableUnsafe reports whether the room may be destroyed: nobody online
// and no bet in a non-terminal state. The bet condition guards against
// deleting unresolved wagers.
func (r *Room) DeletableUnsafe() bool {
	for _, p := range r.Participants {
		if p.Online {
			return false
		}
	}
	for _, b := range r.Bets {
		if !b.Terminal() {
			return false
		}
	}
	return true
}

// BroadcastUnsafe fans a message out to every online participant.
func (r *Room) BroadcastUnsafe(msg map[string]interface{}) {
	for _, p := range r.Participants {
		if p.Online && p.Conn != nil {
			p.Conn.Write(msg)
		}
	}
}

// ChatUnsafe broadcasts a chat line in arrival order.
func (r *Room) ChatUnsafe(sender, text string) {
	r.BroadcastUnsafe(map[string]interface{}{
		"type":   "chat",
		"sender": sender,
		"msg":    text,
		"ts":     time.Now().Unix(),
	})
}

// SystemChatUnsafe emits a server-generated chat line.
func (r *Room) SystemChatUnsafe(text string) {
	r.ChatUnsafe("system", text)
}

// BroadcastSnapshotUnsafe pushes the full room state to everyone. Built and
// sent under the lock so no snapshot can trail a newer mutation.
func (r *Room) BroadcastSnapshotUnsafe() {
	r.BroadcastUnsafe(r.SnapshotUnsafe())
}

// SnapshotUnsafe assembles the room_state payload: participants, bets,
// match, media capability and the readiness set.
func (r *Room) SnapshotUnsafe() map[string]interface{} {
	parts := make([]map[string]interface{}, 0, len(r.Participants))
	names := make([]string, 0, len(r.Participants))
	for name := range r.Participants {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := r.Participants[name]
		parts = append(parts, map[string]interface{}{
			"name":    p.Name,
			"credits": p.Credits,
			"online":  p.Online,
		})
	}

	ready := make([]string, 0, len(r.Ready))
	for name := range r.Ready {
		ready = append(ready, name)
	}
	sort.Strings(ready)

	// Value copies, not the live pointers: the payload is marshaled later by
	// each write pump with no lock held, so it must be frozen here.
	bets := make([]bet.Bet, 0, len(r.Bets))
	for _, b := range r.Bets {
		bets = append(bets, b.Clone())
	}

	return map[string]interface{}{
		"type":         "room_state",
		"room":         r.Key,
		"participants": parts,
		"bets":         bets,
		"match":        r.Match,
		"mediaAllowed": r.MediaAllowed,
		"ready":        ready,
	}
}

// DeclareReadyUnsafe adds an online participant to the readiness set and
// returns the peers that were already ready, each with the initiator decision
// resolved for the caller. No-op in chat-only rooms or for unknown names.
func (r *Room) DeclareReadyUnsafe(name string) ([]Peer, bool) {
	if !r.MediaAllowed {
		return nil, false
	}
	p, ok := r.Participants[name]
	if !ok || !p.Online {
		return nil, false
	}
	if r.Ready[name] {
		return nil, false
	}
	r.Ready[name] = true

	peers := make([]Peer, 0, len(r.Ready)-1)
	for other := range r.Ready {
		if other == name {
			continue
		}
		peers = append(peers, Peer{Name: other, Initiator: name < other})
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i].Name < peers[j].Name })
	return peers, true
}

// SignalUnsafe forwards an opaque negotiation payload to the destination's
// live connection, tagged with the sender identity. The payload is never
// inspected; an offline destination drops it since negotiation frames only
// mean anything to a live peer.
func (r *Room) SignalUnsafe(from, to string, payload interface{}) {
	sender, ok := r.Participants[from]
	if !ok || !sender.Online {
		return
	}
	dest, ok := r.Participants[to]
	if !ok || !dest.Online || dest.Conn == nil {
		return
	}
	dest.Conn.Write(map[string]interface{}{
		"type":    "signal",
		"from":    from,
		"payload": payload,
	})
}

// CreateBetUnsafe appends a pending offer to the ledger. Both identities must
// currently be participants of the room; otherwise nil.
func (r *Room) CreateBetUnsafe(creator, target, title string, stake int, pick string) *bet.Bet {
	if creator == target {
		return nil
	}
	if _, ok := r.Participants[creator]; !ok {
		return nil
	}
	if _, ok := r.Participants[target]; !ok {
		return nil
	}
	r.nextBetID++
	b := bet.New(r.nextBetID, title, creator, target, stake, pick)
	r.Bets = append(r.Bets, b)
	return b
}

// AcceptBetUnsafe applies an accept to the identified bet. Status is checked
// here, at the moment of handling, so a settlement that slipped in between a
// client's read and this write is respected.
func (r *Room) AcceptBetUnsafe(id int64, by, pick string, stake int) (*bet.Bet, bool) {
	b := r.findBetUnsafe(id)
	if b == nil {
		return nil, false
	}
	return b, b.Accept(by, pick, stake)
}

// CancelBetUnsafe applies a cancellation request to the identified bet.
func (r *Room) CancelBetUnsafe(id int64, by string) (*bet.Bet, bool) {
	b := r.findBetUnsafe(id)
	if b == nil {
		return nil, false
	}
	return b, b.RequestCancel(by)
}

func (r *Room) findBetUnsafe(id int64) *bet.Bet {
	for _, b := range r.Bets {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// HasActiveBetsUnsafe reports whether any bet awaits settlement.
func (r *Room) HasActiveBetsUnsafe() bool {
	for _, b := range r.Bets {
		if b.Status == bet.StatusActive {
			return true
		}
	}
	return false
}

// SettleActiveUnsafe settles every active bet against the frozen result and
// returns how many settled. One broadcast per room is the caller's job.
func (r *Room) SettleActiveUnsafe(res bet.Result) int {
	n := 0
	for _, b := range r.Bets {
		if b.Settle(res) {
			n++
		}
	}
	if n > 0 {
		log.Printf("room %s: settled %d bet(s), winning pick %q", r.Key, n, res.WinningPick)
	}
	return n
}
