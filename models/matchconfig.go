package models

// MatchConfigTeam is one side of a matchzy match configuration. Players maps
// SteamID64 to display name, the format matchzy_loadmatch expects.
type MatchConfigTeam struct {
	Name    string            `json:"name"`
	Tag     string            `json:"tag,omitempty"`
	Players map[string]string `json:"players"`
}

// MatchConfig is the JSON document loaded onto a game server for one series.
// It is a pure function of (Tournament, Match, rosters); see the config
// builder in the services package.
type MatchConfig struct {
	MatchID           string          `json:"matchid"`
	NumMaps           int             `json:"num_maps"`
	Maplist           []string        `json:"maplist"`
	MapSides          []MapSide       `json:"map_sides"`
	SkipVeto          bool            `json:"skip_veto"`
	ClinchSeries      bool            `json:"clinch_series"`
	PlayersPerTeam    int             `json:"players_per_team"`
	Team1             MatchConfigTeam `json:"team1"`
	Team2             MatchConfigTeam `json:"team2"`
	MinPlayersToReady int             `json:"min_players_to_ready,omitempty"`
}
