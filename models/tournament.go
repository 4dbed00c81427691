package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusSetup      TournamentStatus = "setup"
	TournamentStatusReady      TournamentStatus = "ready"
	TournamentStatusInProgress TournamentStatus = "in_progress"
	TournamentStatusCompleted  TournamentStatus = "completed"
)

type TournamentType string

const (
	TypeSingleElimination TournamentType = "single_elimination"
	TypeDoubleElimination TournamentType = "double_elimination"
	TypeRoundRobin        TournamentType = "round_robin"
	TypeSwiss             TournamentType = "swiss"
)

func (t TournamentType) Valid() bool {
	switch t {
	case TypeSingleElimination, TypeDoubleElimination, TypeRoundRobin, TypeSwiss:
		return true
	}
	return false
}

// SeriesFormat is the number of maps played per match.
type SeriesFormat string

const (
	FormatBo1 SeriesFormat = "bo1"
	FormatBo3 SeriesFormat = "bo3"
	FormatBo5 SeriesFormat = "bo5"
)

func (f SeriesFormat) Valid() bool {
	return f == FormatBo1 || f == FormatBo3 || f == FormatBo5
}

// NumMaps returns the series length for the format.
func (f SeriesFormat) NumMaps() int {
	switch f {
	case FormatBo3:
		return 3
	case FormatBo5:
		return 5
	default:
		return 1
	}
}

// MapsToWin returns how many map wins clinch the series.
func (f SeriesFormat) MapsToWin() int {
	return f.NumMaps()/2 + 1
}

type SeedingMethod string

const (
	SeedingRandom SeedingMethod = "random"
	SeedingManual SeedingMethod = "manual"
)

// TournamentSettings is stored as JSONB on the tournament row.
type TournamentSettings struct {
	SeedingMethod   SeedingMethod `json:"seeding_method"`
	ThirdPlaceMatch bool          `json:"third_place_match"`
	AutoAdvance     bool          `json:"auto_advance"`
}

// ActiveTournamentID is the fixed primary key of the singleton tournament row.
// Exactly one tournament exists per deployment; replacing it requires an
// explicit delete first.
const ActiveTournamentID = 1

type Tournament struct {
	ID        int                `json:"id" db:"id"`
	Name      string             `json:"name" db:"name"`
	Type      TournamentType     `json:"type" db:"type"`
	Format    SeriesFormat       `json:"format" db:"format"`
	MapPool   []string           `json:"map_pool" db:"map_pool"`
	TeamIDs   []string           `json:"team_ids" db:"team_ids"`
	Settings  TournamentSettings `json:"settings" db:"settings"`
	Status    TournamentStatus   `json:"status" db:"status"`
	CreatedAt time.Time          `json:"created_at" db:"created_at"`

	// Loaded on demand, not mapped directly.
	Matches []Match `json:"matches,omitempty" db:"-"`
	Teams   []Team  `json:"teams,omitempty" db:"-"`
}

// SeedIndex returns the seed position of a team in the tournament's ordered
// team list, or -1 when the team is not registered.
func (t *Tournament) SeedIndex(teamID string) int {
	for i, id := range t.TeamIDs {
		if id == teamID {
			return i
		}
	}
	return -1
}
