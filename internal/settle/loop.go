// internal/settle/loop.go
package settle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dstanton/sidebet/internal/bet"
	"github.com/dstanton/sidebet/internal/metrics"
	"github.com/dstanton/sidebet/internal/room"
	"github.com/dstanton/sidebet/internal/scores"
)

// Provider is the slice of the score feed the loop needs. *scores.Client
// satisfies it; tests substitute a stub.
type Provider interface {
	Lookup(ctx context.Context, sportKey, leagueCode, date, eventID string) (*scores.Game, error)
}

// Loop polls the score feed on a fixed cadence and resolves active bets in
// rooms whose match has finished. Every room is processed in isolation: one
// room's feed failure never aborts the rest of the tick.
type Loop struct {
	Registry     *room.Registry
	Scores       Provider
	Interval     time.Duration
	FetchTimeout time.Duration
	Logger       *logrus.Logger
}

// New wires a settlement loop with the default 15s cadence and a bounded
// per-fetch timeout.
func New(reg *room.Registry, provider Provider, logger *logrus.Logger) *Loop {
	return &Loop{
		Registry:     reg,
		Scores:       provider,
		Interval:     15 * time.Second,
		FetchTimeout: 15 * time.Second,
		Logger:       logger,
	}
}

// Run ticks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	l.Logger.Infof("settlement loop running every %s", l.Interval)
	for {
		select {
		case <-ctx.Done():
			l.Logger.Info("settlement loop stopping")
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick processes every live room once.
func (l *Loop) Tick(ctx context.Context) {
	metrics.SettleCycles.Inc()
	for _, r := range l.Registry.Rooms() {
		if err := l.settleRoom(ctx, r); err != nil {
			metrics.ScoreFetchFailures.Inc()
			l.Logger.WithFields(logrus.Fields{
				"room":  r.Key,
				"error": err,
			}).Warn("settlement deferred, retrying next cycle")
		}
	}
}

// settleRoom resolves one room's active bets if its match is confirmed
// finished with a determinable outcome. Any skip condition returns nil; only
// feed failures surface as errors for logging.
func (l *Loop) settleRoom(ctx context.Context, r *room.Room) error {
	r.Mu.Lock()
	if r.Match == nil || !r.HasActiveBetsUnsafe() {
		r.Mu.Unlock()
		return nil
	}
	m := *r.Match
	r.Mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, l.FetchTimeout)
	defer cancel()
	date := m.StartTime.UTC().Format("2006-01-02")
	g, err := l.Scores.Lookup(fetchCtx, m.SportKey, m.LeagueCode, date, m.EventID)
	if err != nil {
		return err
	}
	if !scores.IsFinal(g.Status) {
		return nil
	}
	winning, home, away, ok := bet.Outcome(g.HomeTeam, g.AwayTeam, g.HomeScore, g.AwayScore)
	if !ok {
		// Finished but scores unreadable. Never settle on a guess.
		l.Logger.WithField("room", r.Key).Warnf("match %s final but scores %q/%q not numeric", m.EventID, g.HomeScore, g.AwayScore)
		return nil
	}

	res := bet.Result{
		MatchStatus: g.Status,
		HomeScore:   home,
		AwayScore:   away,
		WinningPick: winning,
	}

	// Re-enter the lock and re-check: bets may have been cancelled while the
	// fetch was in flight. One broadcast per room, not per bet.
	r.Mu.Lock()
	n := r.SettleActiveUnsafe(res)
	if n > 0 {
		r.SystemChatUnsafe(fmt.Sprintf("Match finished %d-%d. %s — %d bet(s) settled.", home, away, winning, n))
		r.BroadcastSnapshotUnsafe()
	}
	// Settling the last open bet while everyone is offline can make the room
	// deletable; without this check it would linger until the next disconnect.
	deletable := n > 0 && r.DeletableUnsafe()
	onEmpty := r.OnEmpty
	r.Mu.Unlock()

	if deletable && onEmpty != nil {
		onEmpty(r.Key)
	}

	if n > 0 {
		metrics.BetsSettled.Add(float64(n))
		l.Logger.WithFields(logrus.Fields{
			"room":    r.Key,
			"match":   m.EventID,
			"settled": n,
			"winning": winning,
		}).Info("settled room")
	}
	return nil
}
