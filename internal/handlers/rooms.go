// internal/handlers/rooms.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dstanton/sidebet/internal/room"
	"github.com/dstanton/sidebet/internal/scores"
)

// roomSummary is the read-only listing entry for one live room.
type roomSummary struct {
	Key          string `json:"key"`
	Members      int    `json:"members"`
	Online       int    `json:"online"`
	Bets         int    `json:"bets"`
	MediaAllowed bool   `json:"mediaAllowed"`
	HasMatch     bool   `json:"hasMatch"`
}

// ListRoomsHandler serves GET /api/rooms: a summary of every live room.
func ListRoomsHandler(reg *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		summaries := []roomSummary{}
		for _, rm := range reg.Rooms() {
			rm.Mu.Lock()
			online := 0
			for _, p := range rm.Participants {
				if p.Online {
					online++
				}
			}
			summaries = append(summaries, roomSummary{
				Key:          rm.Key,
				Members:      len(rm.Participants),
				Online:       online,
				Bets:         len(rm.Bets),
				MediaAllowed: rm.MediaAllowed,
				HasMatch:     rm.Match != nil,
			})
			rm.Mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

// ListLeaguesHandler serves GET /api/leagues?sport=... from the static
// catalog.
func ListLeaguesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(scores.Leagues(r.URL.Query().Get("sport")))
	}
}
