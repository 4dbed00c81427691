package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusReady     MatchStatus = "ready"
	MatchStatusLoaded    MatchStatus = "loaded"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
)

// BracketSegment identifies which part of the bracket a match belongs to.
// Single elimination, round robin and swiss only use SegmentMain.
type BracketSegment string

const (
	SegmentMain       BracketSegment = "main"
	SegmentWinners    BracketSegment = "winners"
	SegmentLosers     BracketSegment = "losers"
	SegmentGrandFinal BracketSegment = "grand_final"
)

// Match is a node of the bracket graph. NextMatchID carries the
// winner-advancement edge, LoserNextMatchID the double-elimination drop edge.
// Slots are positional and assigned by the generator so advancement can be
// re-derived deterministically after a crash.
type Match struct {
	ID           int            `json:"id" db:"id"`
	TournamentID int            `json:"tournament_id" db:"tournament_id"`
	Slug         string         `json:"slug" db:"slug"`
	Segment      BracketSegment `json:"segment" db:"segment"`
	Round        int            `json:"round" db:"round"`
	Number       int            `json:"number" db:"number"`

	Team1ID  *string `json:"team1_id,omitempty" db:"team1_id"`
	Team2ID  *string `json:"team2_id,omitempty" db:"team2_id"`
	WinnerID *string `json:"winner_id,omitempty" db:"winner_id"`

	Team1Score int `json:"team1_score" db:"team1_score"`
	Team2Score int `json:"team2_score" db:"team2_score"`

	Status MatchStatus `json:"status" db:"status"`

	NextMatchID        *int `json:"next_match_id,omitempty" db:"next_match_id"`
	NextMatchSlot      *int `json:"next_match_slot,omitempty" db:"next_match_slot"`
	LoserNextMatchID   *int `json:"loser_next_match_id,omitempty" db:"loser_next_match_id"`
	LoserNextMatchSlot *int `json:"loser_next_match_slot,omitempty" db:"loser_next_match_slot"`

	ServerID *string    `json:"server_id,omitempty" db:"server_id"`
	Veto     *VetoState `json:"veto,omitempty" db:"veto"`
	DemoPath *string    `json:"demo_path,omitempty" db:"demo_path"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LoadedAt    *time.Time `json:"loaded_at,omitempty" db:"loaded_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

func (m *Match) IsCompleted() bool {
	return m.Status == MatchStatusCompleted
}

func (m *Match) BothTeamsKnown() bool {
	return m.Team1ID != nil && m.Team2ID != nil
}

// TeamInSlot returns the team currently occupying the given slot (1 or 2).
func (m *Match) TeamInSlot(slot int) *string {
	if slot == 1 {
		return m.Team1ID
	}
	return m.Team2ID
}

// LoserID returns the losing team of a completed match, or nil for byes and
// unfinished matches.
func (m *Match) LoserID() *string {
	if m.WinnerID == nil {
		return nil
	}
	if m.Team1ID != nil && *m.Team1ID != *m.WinnerID {
		return m.Team1ID
	}
	if m.Team2ID != nil && *m.Team2ID != *m.WinnerID {
		return m.Team2ID
	}
	return nil
}
