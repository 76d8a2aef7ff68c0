// internal/scores/catalog.go
package scores

// League is one entry of the static league catalog: pure lookup data mapping
// a feed league code to its label, country and sport.
type League struct {
	Code    string `json:"code"`
	Label   string `json:"label"`
	Country string `json:"country"`
	Sport   string `json:"sport"`
}

var leagues = []League{
	{Code: "eng.1", Label: "Premier League", Country: "England", Sport: "soccer"},
	{Code: "eng.2", Label: "Championship", Country: "England", Sport: "soccer"},
	{Code: "esp.1", Label: "LaLiga", Country: "Spain", Sport: "soccer"},
	{Code: "ger.1", Label: "Bundesliga", Country: "Germany", Sport: "soccer"},
	{Code: "ita.1", Label: "Serie A", Country: "Italy", Sport: "soccer"},
	{Code: "fra.1", Label: "Ligue 1", Country: "France", Sport: "soccer"},
	{Code: "por.1", Label: "Primeira Liga", Country: "Portugal", Sport: "soccer"},
	{Code: "ned.1", Label: "Eredivisie", Country: "Netherlands", Sport: "soccer"},
	{Code: "bra.1", Label: "Brasileirão", Country: "Brazil", Sport: "soccer"},
	{Code: "usa.1", Label: "MLS", Country: "USA", Sport: "soccer"},
	{Code: "uefa.champions", Label: "Champions League", Country: "Europe", Sport: "soccer"},
	{Code: "uefa.europa", Label: "Europa League", Country: "Europe", Sport: "soccer"},
	{Code: "nba", Label: "NBA", Country: "USA", Sport: "basketball"},
	{Code: "wnba", Label: "WNBA", Country: "USA", Sport: "basketball"},
	{Code: "nfl", Label: "NFL", Country: "USA", Sport: "football"},
	{Code: "mlb", Label: "MLB", Country: "USA", Sport: "baseball"},
	{Code: "nhl", Label: "NHL", Country: "USA", Sport: "hockey"},
}

// Leagues lists catalog entries, optionally filtered to one sport key.
func Leagues(sport string) []League {
	if sport == "" {
		out := make([]League, len(leagues))
		copy(out, leagues)
		return out
	}
	var out []League
	for _, l := range leagues {
		if l.Sport == sport {
			out = append(out, l)
		}
	}
	return out
}

// LeagueLabel resolves a league code to its display label, falling back to
// the code itself for anything not in the catalog.
func LeagueLabel(code string) string {
	for _, l := range leagues {
		if l.Code == code {
			return l.Label
		}
	}
	return code
}
