package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WebhookEventType tags the inbound matchzy webhook payloads.
type WebhookEventType string

const (
	EventSeriesStart     WebhookEventType = "series_start"
	EventGoingLive       WebhookEventType = "going_live"
	EventRoundEnd        WebhookEventType = "round_end"
	EventMapResult       WebhookEventType = "map_result"
	EventSeriesEnd       WebhookEventType = "series_end"
	EventMapPicked       WebhookEventType = "map_picked"
	EventMapVetoed       WebhookEventType = "map_vetoed"
	EventSidePicked      WebhookEventType = "side_picked"
	EventMatchPaused     WebhookEventType = "game_paused"
	EventMatchUnpaused   WebhookEventType = "game_unpaused"
	EventDemoUploadEnded WebhookEventType = "demo_upload_ended"
)

// FlexibleString accepts both a string and a number on unmarshal; matchzy
// sends the matchid in either form depending on version.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}
	return fmt.Errorf("matchid must be string or number, got: %s", string(data))
}

func (f FlexibleString) String() string { return string(f) }

// WebhookEvent is the envelope every matchzy payload shares. The matchid is
// the match reference: either the numeric database id or the match slug.
type WebhookEvent struct {
	Event     WebhookEventType `json:"event"`
	MatchID   FlexibleString   `json:"matchid"`
	MapNumber int              `json:"map_number,omitempty"`
}

// WebhookWinner identifies the series winner by side and team tag.
type WebhookWinner struct {
	Side string `json:"side"` // "ct" or "t"
	Team string `json:"team"` // "team1" or "team2"
}

type SeriesEndEvent struct {
	Event            WebhookEventType `json:"event"`
	MatchID          FlexibleString   `json:"matchid"`
	Winner           WebhookWinner    `json:"winner"`
	Team1SeriesScore int              `json:"team1_series_score"`
	Team2SeriesScore int              `json:"team2_series_score"`
	TimeUntilRestore int              `json:"time_until_restore"`
}

type GoingLiveEvent struct {
	Event     WebhookEventType `json:"event"`
	MatchID   FlexibleString   `json:"matchid"`
	MapNumber int              `json:"map_number"`
}

type MapResultEvent struct {
	Event     WebhookEventType `json:"event"`
	MatchID   FlexibleString   `json:"matchid"`
	MapNumber int              `json:"map_number"`
	Winner    WebhookWinner    `json:"winner"`
}

type MapPickedEvent struct {
	Event     WebhookEventType `json:"event"`
	MatchID   FlexibleString   `json:"matchid"`
	Team      string           `json:"team"`
	MapName   string           `json:"map_name"`
	MapNumber int              `json:"map_number"`
}

type MapVetoedEvent struct {
	Event   WebhookEventType `json:"event"`
	MatchID FlexibleString   `json:"matchid"`
	Team    string           `json:"team"`
	MapName string           `json:"map_name"`
}

type SidePickedEvent struct {
	Event     WebhookEventType `json:"event"`
	MatchID   FlexibleString   `json:"matchid"`
	Team      string           `json:"team"` // "team1" or "team2"
	MapName   string           `json:"map_name"`
	Side      string           `json:"side"` // "ct" or "t"
	MapNumber int              `json:"map_number"`
}

type DemoUploadEndedEvent struct {
	Event    WebhookEventType `json:"event"`
	MatchID  FlexibleString   `json:"matchid"`
	FileName string           `json:"filename"`
	Success  bool             `json:"success"`
}

// StoredEvent is one row of the append-only event log, kept for audit and
// replay. The raw payload is preserved verbatim.
type StoredEvent struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	MatchSlug  string           `json:"match_slug" db:"match_slug"`
	ServerID   string           `json:"server_id" db:"server_id"`
	EventType  WebhookEventType `json:"event_type" db:"event_type"`
	Payload    json.RawMessage  `json:"payload" db:"payload"`
	ReceivedAt time.Time        `json:"received_at" db:"received_at"`
}
