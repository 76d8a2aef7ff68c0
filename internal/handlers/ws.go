// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dstanton/sidebet/internal/bet"
	"github.com/dstanton/sidebet/internal/metrics"
	"github.com/dstanton/sidebet/internal/room"
	"github.com/dstanton/sidebet/internal/scores"
)

// session is one websocket's server-side state: the connection handle plus
// the display name it bound at join. Sender identity for every event after
// join comes from here, never from the payload.
type session struct {
	conn *room.Conn
	name string
}

// WSHandler upgrades clients onto the sidebet subprotocol and runs the
// read/write pumps for the room event flow.
func WSHandler(logger *logrus.Logger, reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"sidebet"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "sidebet" {
			c.Close(BadSubprotocolError, "client must speak the sidebet subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		sess := &session{conn: room.NewConn(cancel)}

		metrics.LiveConnections.Inc()
		logger.Infof("conn %s connected from %s", sess.conn.ID, r.RemoteAddr)

		go writePump(ctx, c, sess.conn, logger)
		readPump(ctx, c, reg, sess, logger)

		// Whatever rooms this handle was in, mark it gone and let the
		// registry evaluate deletion.
		reg.DropConn(sess.conn.ID)
		metrics.LiveConnections.Dec()
		logger.Infof("conn %s disconnected", sess.conn.ID)
	}
}

func readPump(ctx context.Context, c *websocket.Conn, reg *room.Registry, sess *session, logger *logrus.Logger) {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("conn %s closed normally", sess.conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("conn %s read error: %v", sess.conn.ID, err)
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("conn %s sent invalid json: %v", sess.conn.ID, err)
			continue
		}
		handleMessage(reg, sess, packet, logger)
	}
}

// handleMessage dispatches one inbound event. Every rejection path is a
// guard clause returning early with no side effects: malformed or
// unauthorized events are dropped silently and the only client-visible
// outcome of a valid event is the broadcast it triggers.
func handleMessage(reg *room.Registry, sess *session, packet map[string]interface{}, logger *logrus.Logger) {
	action, _ := packet["type"].(string)
	roomKey := strings.TrimSpace(stringField(packet, "room"))

	switch action {
	case "join":
		name := strings.TrimSpace(stringField(packet, "name"))
		if roomKey == "" || name == "" {
			return
		}
		r := reg.GetOrCreate(roomKey)
		m := parseMatch(packet["match"])
		r.Mu.Lock()
		r.JoinUnsafe(name, sess.conn, m)
		r.SystemChatUnsafe(name + " joined")
		r.BroadcastSnapshotUnsafe()
		r.Mu.Unlock()
		sess.name = name
		logger.Infof("%s joined room %s", name, roomKey)

	case "leave":
		r, ok := reg.Get(roomKey)
		if !ok {
			return
		}
		r.Mu.Lock()
		name, wasReady, dropped := r.DropConnUnsafe(sess.conn.ID)
		if !dropped {
			r.Mu.Unlock()
			return
		}
		if wasReady {
			r.BroadcastUnsafe(map[string]interface{}{"type": "peer_left", "name": name})
		}
		r.SystemChatUnsafe(name + " left")
		r.BroadcastSnapshotUnsafe()
		deletable := r.DeletableUnsafe()
		onEmpty := r.OnEmpty
		r.Mu.Unlock()
		if deletable && onEmpty != nil {
			onEmpty(r.Key)
		}

	case "chat":
		text := strings.TrimSpace(stringField(packet, "msg"))
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" || text == "" {
			return
		}
		r.Mu.Lock()
		r.ChatUnsafe(sess.name, text)
		r.Mu.Unlock()

	case "ready":
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" {
			return
		}
		r.Mu.Lock()
		peers, changed := r.DeclareReadyUnsafe(sess.name)
		if changed {
			sess.conn.Write(map[string]interface{}{
				"type":  "peer_ready",
				"peers": peers,
			})
			r.BroadcastSnapshotUnsafe()
		}
		r.Mu.Unlock()

	case "signal":
		to := stringField(packet, "to")
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" || to == "" {
			return
		}
		r.Mu.Lock()
		r.SignalUnsafe(sess.name, to, packet["payload"])
		r.Mu.Unlock()

	case "bet_offer":
		to := stringField(packet, "to")
		title := strings.TrimSpace(stringField(packet, "title"))
		pick := stringField(packet, "pick")
		stake := intField(packet, "stake")
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" || to == "" || title == "" {
			return
		}
		r.Mu.Lock()
		if b := r.CreateBetUnsafe(sess.name, to, title, stake, pick); b != nil {
			r.SystemChatUnsafe(fmt.Sprintf("%s offered %s a bet: %q (%d on %q)", sess.name, to, title, stake, pick))
			r.BroadcastSnapshotUnsafe()
		}
		r.Mu.Unlock()

	case "bet_accept":
		id := int64(intField(packet, "bet_id"))
		pick := stringField(packet, "pick")
		stake := intField(packet, "stake")
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" {
			return
		}
		r.Mu.Lock()
		if b, changed := r.AcceptBetUnsafe(id, sess.name, pick, stake); changed {
			r.SystemChatUnsafe(fmt.Sprintf("%s accepted bet %q (%d on %q)", sess.name, b.Title, b.TargetStake, pick))
			r.BroadcastSnapshotUnsafe()
		}
		r.Mu.Unlock()

	case "bet_cancel":
		id := int64(intField(packet, "bet_id"))
		r, ok := reg.Get(roomKey)
		if !ok || sess.name == "" {
			return
		}
		r.Mu.Lock()
		if b, changed := r.CancelBetUnsafe(id, sess.name); changed {
			switch b.Status {
			case bet.StatusCancelled:
				r.SystemChatUnsafe(fmt.Sprintf("Bet %q cancelled", b.Title))
			default:
				r.SystemChatUnsafe(fmt.Sprintf("%s wants to cancel bet %q", sess.name, b.Title))
			}
			r.BroadcastSnapshotUnsafe()
		}
		r.Mu.Unlock()

	default:
		logger.Warnf("conn %s sent unknown action %q", sess.conn.ID, action)
	}
}

func stringField(packet map[string]interface{}, key string) string {
	s, _ := packet[key].(string)
	return s
}

func intField(packet map[string]interface{}, key string) int {
	switch v := packet[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// parseMatch decodes an optional match descriptor. Unknown or malformed
// fields degrade to their zero values; a missing descriptor is nil.
func parseMatch(v interface{}) *room.Match {
	data, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	m := &room.Match{
		EventID:     strings.TrimSpace(stringField(data, "eventId")),
		SportKey:    stringField(data, "sportKey"),
		LeagueCode:  stringField(data, "leagueCode"),
		LeagueLabel: stringField(data, "leagueLabel"),
		Country:     stringField(data, "country"),
	}
	if m.EventID == "" {
		return nil
	}
	if m.LeagueLabel == "" && m.LeagueCode != "" {
		m.LeagueLabel = scores.LeagueLabel(m.LeagueCode)
	}
	if ts, ok := data["startTime"].(string); ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			m.StartTime = t
		}
	}
	if m.StartTime.IsZero() {
		m.StartTime = time.Now().UTC()
	}
	return m
}

func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("conn %s: marshal outgoing message: %v", conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: websocket write: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
