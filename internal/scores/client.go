// internal/scores/client.go
package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Game is a normalized score-feed record for one sporting event. Scores stay
// as the feed's raw strings; parsing is the outcome computation's problem.
type Game struct {
	ID        string    `json:"id"`
	HomeTeam  string    `json:"homeTeam"`
	AwayTeam  string    `json:"awayTeam"`
	Status    string    `json:"status"`
	HomeScore string    `json:"homeScore"`
	AwayScore string    `json:"awayScore"`
	StartTime time.Time `json:"startTime"`
}

// Client queries the external scoreboard feed. It holds no state and is safe
// for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

// NewClient builds a Client against baseURL with a bounded request timeout so
// a hanging feed cannot stall the settlement loop.
func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type scoreboardResponse struct {
	Games []Game `json:"games"`
}

// Scoreboard fetches all games for a sport on a given day (date in
// YYYY-MM-DD). leagueCode is optional and narrows the listing.
func (c *Client) Scoreboard(ctx context.Context, sportKey, leagueCode, date string) ([]Game, error) {
	q := url.Values{}
	q.Set("sport", sportKey)
	q.Set("date", date)
	if leagueCode != "" {
		q.Set("league", leagueCode)
	}
	u := fmt.Sprintf("%s/v1/scoreboard?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build scoreboard request: %w", err)
	}
	c.logger.Debugf("scores: GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scoreboard upstream status %d", resp.StatusCode)
	}
	var body scoreboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}
	return body.Games, nil
}

// Lookup resolves one event on the day's scoreboard by its external id.
// A missing event is an error: the caller treats any failure as "unknown,
// retry next cycle".
func (c *Client) Lookup(ctx context.Context, sportKey, leagueCode, date, eventID string) (*Game, error) {
	games, err := c.Scoreboard(ctx, sportKey, leagueCode, date)
	if err != nil {
		return nil, err
	}
	for i := range games {
		if games[i].ID == eventID {
			return &games[i], nil
		}
	}
	return nil, fmt.Errorf("event %s not on %s scoreboard for %s", eventID, sportKey, date)
}

// finishedTokens are status fragments the feed uses for completed games.
// Free-text statuses vary per sport; ambiguous ones fall through and the
// settlement loop retries.
var finishedTokens = []string{"full time", "final", "closed"}

// IsFinal reports whether a feed status describes a finished game. "FT" only
// counts as a standalone word so statuses like "after extra time shift" or
// team abbreviations cannot false-positive.
func IsFinal(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return false
	}
	for _, tok := range finishedTokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	for _, word := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '/' || r == '-' || r == ','
	}) {
		if word == "ft" {
			return true
		}
	}
	return false
}
