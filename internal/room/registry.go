// internal/room/registry.go
package room

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/dstanton/sidebet/internal/metrics"
)

// Registry owns the set of live rooms, keyed by room key. It is the only
// component allowed to create or destroy rooms; all room mutation goes
// through the room's own methods under its lock.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room for key, creating it on first join. The
// room-key prefix fixes the media capability at creation.
func (s *Registry) GetOrCreate(key string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[key]
	if !ok {
		r = newRoom(key)
		r.OnEmpty = s.Delete
		s.rooms[key] = r
		metrics.LiveRooms.Set(float64(len(s.rooms)))
		log.Printf("registry: created room %s (media=%v)", key, r.MediaAllowed)
	}
	return r
}

// Get retrieves a room without creating it.
func (s *Registry) Get(key string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[key]
	return r, ok
}

// Delete removes a room. Called via OnEmpty once the deletion condition
// holds; deleting an already-gone key is harmless.
func (s *Registry) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[key]; ok {
		delete(s.rooms, key)
		metrics.LiveRooms.Set(float64(len(s.rooms)))
		log.Printf("registry: deleted room %s", key)
	}
}

// Rooms returns a point-in-time copy of the live rooms so callers can
// iterate without holding the registry lock while rooms churn.
func (s *Registry) Rooms() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// DropConn handles a connection's disappearance. Every room is checked — a
// handle only legitimately lives in one room, but the sweep keeps the
// registry correct even if a client managed to join several. The affected
// room broadcasts a leave notice plus a fresh snapshot, peers tear down any
// media session, and the room is destroyed once deletable.
func (s *Registry) DropConn(connID uuid.UUID) {
	for _, r := range s.Rooms() {
		r.Mu.Lock()
		name, wasReady, ok := r.DropConnUnsafe(connID)
		if !ok {
			r.Mu.Unlock()
			continue
		}
		if wasReady {
			r.BroadcastUnsafe(map[string]interface{}{
				"type": "peer_left",
				"name": name,
			})
		}
		r.SystemChatUnsafe(name + " left")
		r.BroadcastSnapshotUnsafe()
		deletable := r.DeletableUnsafe()
		onEmpty := r.OnEmpty
		r.Mu.Unlock()

		if deletable && onEmpty != nil {
			onEmpty(r.Key)
		}
	}
}
