// internal/bet/bet.go
package bet

import (
	"fmt"
	"strconv"
	"strings"
)

// Status is the lifecycle state of a wager.
type Status string

const (
	StatusPending       Status = "pending"        // offered, not yet accepted
	StatusActive        Status = "active"         // accepted by the target
	StatusCancelPending Status = "cancel_pending" // one party has asked to cancel an active bet
	StatusCancelled     Status = "cancelled"
	StatusSettled       Status = "settled"
)

// Result is the frozen outcome snapshot recorded when a bet settles.
type Result struct {
	MatchStatus string `json:"matchStatus"`
	HomeScore   int    `json:"homeScore"`
	AwayScore   int    `json:"awayScore"`
	WinningPick string `json:"winningPick"`
}

// Bet is a two-party wager between participants of a room. Both identities
// are display names; they must refer to participants that are or were members
// of the owning room. Bets are never deleted, terminal ones are kept as
// history.
type Bet struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Creator      string  `json:"creator"`
	Target       string  `json:"target"`
	CreatorStake int     `json:"creatorStake"`
	TargetStake  int     `json:"targetStake"`
	CreatorPick  string  `json:"creatorPick"`
	TargetPick   string  `json:"targetPick"`
	CreatorAgree bool    `json:"creatorAgreedCancel"`
	TargetAgree  bool    `json:"targetAgreedCancel"`
	Status       Status  `json:"status"`
	WinnerName   string  `json:"winnerName,omitempty"`
	Result       *Result `json:"result,omitempty"`
}

// New returns a pending offer from creator to target. The target's stake
// mirrors the creator's until the target accepts with their own.
func New(id int64, title, creator, target string, stake int, pick string) *Bet {
	return &Bet{
		ID:           id,
		Title:        title,
		Creator:      creator,
		Target:       target,
		CreatorStake: stake,
		TargetStake:  stake,
		CreatorPick:  pick,
		Status:       StatusPending,
	}
}

// Clone returns a detached value copy safe to hand to code running outside
// the owning room's lock.
func (b *Bet) Clone() Bet {
	c := *b
	if b.Result != nil {
		res := *b.Result
		c.Result = &res
	}
	return c
}

// Terminal reports whether the bet can no longer change state.
func (b *Bet) Terminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusSettled
}

// Accept transitions pending -> active. Only the bet's target may accept;
// any other caller (including the creator) is a silent no-op. Returns whether
// the bet changed.
func (b *Bet) Accept(by, pick string, stake int) bool {
	if b.Status != StatusPending || by != b.Target {
		return false
	}
	b.TargetPick = pick
	if stake > 0 {
		b.TargetStake = stake
	}
	b.Status = StatusActive
	return true
}

// RequestCancel records a cancellation request from one party. A pending bet
// cancels on a single request from either side. An active bet needs both
// sides: the first request moves it to cancel_pending, the other side's
// request cancels it. Terminal bets and non-party callers are silent no-ops.
// Returns whether the bet changed.
func (b *Bet) RequestCancel(by string) bool {
	if b.Terminal() {
		return false
	}
	switch by {
	case b.Creator:
		b.CreatorAgree = true
	case b.Target:
		b.TargetAgree = true
	default:
		return false
	}
	if b.Status == StatusPending {
		b.Status = StatusCancelled
		return true
	}
	if b.CreatorAgree && b.TargetAgree {
		b.Status = StatusCancelled
	} else {
		b.Status = StatusCancelPending
	}
	return true
}

// Settle resolves an active bet against the computed winning pick and
// freezes the result snapshot. Only active bets settle; a bet with a cancel
// pending keeps waiting for the counterparty's consent.
func (b *Bet) Settle(res Result) bool {
	if b.Status != StatusActive {
		return false
	}
	b.WinnerName = resolveWinner(b, res.WinningPick)
	b.Result = &res
	b.Status = StatusSettled
	return true
}

// resolveWinner compares each party's pick against the winning pick.
func resolveWinner(b *Bet, winning string) string {
	creatorRight := pickMatches(b.CreatorPick, winning)
	targetRight := pickMatches(b.TargetPick, winning)
	switch {
	case creatorRight && targetRight:
		return "Both right"
	case creatorRight:
		return b.Creator
	case targetRight:
		return b.Target
	default:
		return "Both wrong"
	}
}

func pickMatches(pick, winning string) bool {
	return strings.EqualFold(strings.TrimSpace(pick), strings.TrimSpace(winning))
}

// Outcome computes the winning pick string for a finished match. Scores come
// off the feed as free text; if either fails to parse as an integer no
// outcome exists and settlement must wait.
func Outcome(homeTeam, awayTeam, homeScore, awayScore string) (pick string, home, away int, ok bool) {
	home, err := strconv.Atoi(strings.TrimSpace(homeScore))
	if err != nil {
		return "", 0, 0, false
	}
	away, err = strconv.Atoi(strings.TrimSpace(awayScore))
	if err != nil {
		return "", 0, 0, false
	}
	switch {
	case home > away:
		pick = fmt.Sprintf("%s win", homeTeam)
	case away > home:
		pick = fmt.Sprintf("%s win", awayTeam)
	default:
		pick = "draw"
	}
	return pick, home, away, true
}
