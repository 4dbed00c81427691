package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// statusCommand queries a game server for its authoritative match state.
// matchzy answers it with a get5-compatible JSON document.
const statusCommand = "get5_status"

// RecoveryResult reports the outcome of one match's recovery check.
type RecoveryResult struct {
	MatchSlug string `json:"match_slug"`
	ServerID  string `json:"server_id,omitempty"`
	Applied   bool   `json:"applied"`
	Reason    string `json:"reason"`
}

// EventService validates, records and dispatches inbound matchzy webhooks,
// and replays missed events after a crash or lost delivery. Only series_end
// and going_live drive graph mutation; veto events update the match's veto
// overlay; everything else is audit-logged and fanned out to the sink.
type EventService interface {
	HandleWebhook(ctx context.Context, serverID string, payload []byte) error
	RecentEvents(serverID string) []*models.StoredEvent
	RecoverActiveMatches(ctx context.Context) ([]RecoveryResult, error)
	ReplayEvents(ctx context.Context, matchSlug string, since *time.Time) error
}

type eventService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	eventRepo      repositories.EventRepository
	progression    ProgressionService
	servers        RemoteServerClient
	sink           NotificationSink
	logger         *slog.Logger
	buffer         *eventBuffer
}

func NewEventService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	eventRepo repositories.EventRepository,
	progression ProgressionService,
	servers RemoteServerClient,
	sink NotificationSink,
	logger *slog.Logger,
) EventService {
	if sink == nil {
		sink = NoopSink()
	}
	return &eventService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		eventRepo:      eventRepo,
		progression:    progression,
		servers:        servers,
		sink:           sink,
		logger:         logger,
		buffer:         newEventBuffer(eventBufferCapacity),
	}
}

// matchRefFromWebhook interprets matchzy's matchid field: a numeric value is
// the database id, anything else the slug.
func matchRefFromWebhook(id models.FlexibleString) MatchRef {
	if n, err := strconv.Atoi(id.String()); err == nil {
		return MatchRef{ID: n}
	}
	return MatchRef{Slug: id.String()}
}

func (s *eventService) HandleWebhook(ctx context.Context, serverID string, payload []byte) error {
	var envelope models.WebhookEvent
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("%w: malformed webhook payload: %v", ErrValidationFailed, err)
	}
	if envelope.Event == "" {
		return fmt.Errorf("%w: missing event tag", ErrValidationFailed)
	}

	m, err := s.progression.ResolveMatch(ctx, matchRefFromWebhook(envelope.MatchID))
	if err != nil {
		return err
	}

	stored := &models.StoredEvent{
		ID:         uuid.New(),
		MatchSlug:  m.Slug,
		ServerID:   serverID,
		EventType:  envelope.Event,
		Payload:    json.RawMessage(payload),
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.eventRepo.Append(ctx, stored); err != nil {
		return err
	}
	s.buffer.push(serverID, stored)

	s.logger.Info("webhook received",
		slog.String("event", string(envelope.Event)),
		slog.String("match", m.Slug),
		slog.String("server", serverID))

	switch envelope.Event {
	case models.EventSeriesEnd:
		var ev models.SeriesEndEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: malformed series_end payload: %v", ErrValidationFailed, err)
		}
		tournament, err := s.tournamentRepo.Get(ctx)
		if err != nil {
			return err
		}
		if !tournament.Settings.AutoAdvance {
			s.logger.Info("auto-advance disabled, series_end recorded only", slog.String("match", m.Slug))
			return nil
		}
		return s.progression.OnSeriesEnd(ctx, MatchRef{ID: m.ID}, ev.Team1SeriesScore, ev.Team2SeriesScore)

	case models.EventGoingLive:
		return s.progression.OnGoingLive(ctx, MatchRef{ID: m.ID})

	case models.EventMapPicked:
		var ev models.MapPickedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: malformed map_picked payload: %v", ErrValidationFailed, err)
		}
		return s.applyMapPicked(ctx, m, ev.MapName)

	case models.EventSidePicked:
		var ev models.SidePickedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("%w: malformed side_picked payload: %v", ErrValidationFailed, err)
		}
		return s.applySidePicked(ctx, m, ev)

	default:
		// Informational only: audit log plus real-time fan-out.
		s.sink.PublishBracketUpdate(string(envelope.Event), json.RawMessage(payload))
		return nil
	}
}

func (s *eventService) applyMapPicked(ctx context.Context, m *models.Match, mapName string) error {
	veto := m.Veto
	if veto == nil {
		veto = &models.VetoState{}
	}
	veto.PickMap(mapName)

	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return err
	}
	if len(veto.Maps) >= tournament.Format.NumMaps() {
		veto.Completed = true
	}
	if err := s.matchRepo.UpdateVeto(ctx, nil, m.ID, veto); err != nil {
		return err
	}
	m.Veto = veto
	s.sink.PublishMatchUpdate(m)
	return nil
}

func (s *eventService) applySidePicked(ctx context.Context, m *models.Match, ev models.SidePickedEvent) error {
	if m.Veto == nil {
		return nil // side pick without a preceding map pick; nothing to attach to
	}
	side := models.SideKnife
	switch {
	case ev.Team == "team1" && ev.Side == "ct", ev.Team == "team2" && ev.Side == "t":
		side = models.SideTeam1CT
	case ev.Team == "team2" && ev.Side == "ct", ev.Team == "team1" && ev.Side == "t":
		side = models.SideTeam2CT
	}
	m.Veto.SetSide(ev.MapName, side)
	if err := s.matchRepo.UpdateVeto(ctx, nil, m.ID, m.Veto); err != nil {
		return err
	}
	s.sink.PublishMatchUpdate(m)
	return nil
}

func (s *eventService) RecentEvents(serverID string) []*models.StoredEvent {
	return s.buffer.recent(serverID)
}

// remoteMatchStatus is the subset of the server's status JSON the recovery
// pass cares about.
type remoteMatchStatus struct {
	MatchID   models.FlexibleString `json:"matchid"`
	Gamestate string                `json:"gamestate"`
	Finished  bool                  `json:"finished"`
	Team1     struct {
		SeriesScore int `json:"series_score"`
	} `json:"team1"`
	Team2 struct {
		SeriesScore int `json:"series_score"`
	} `json:"team2"`
}

// RecoverActiveMatches re-queries every live/loaded match's server and
// re-applies going_live/series_end where the remote state disagrees with the
// stored one (a lost webhook). Server queries fan out concurrently; effects
// are applied serially through the progression engine so the bracket lock
// semantics stay intact.
func (s *eventService) RecoverActiveMatches(ctx context.Context) ([]RecoveryResult, error) {
	matches, err := s.matchRepo.ListByStatuses(ctx, models.ActiveTournamentID,
		models.MatchStatusLoaded, models.MatchStatusLive)
	if err != nil {
		return nil, err
	}

	results := make([]RecoveryResult, len(matches))
	statuses := make([]*remoteMatchStatus, len(matches))

	g, gCtx := errgroup.WithContext(ctx)
	for i, m := range matches {
		results[i] = RecoveryResult{MatchSlug: m.Slug}
		if m.ServerID == nil {
			results[i].Reason = "no server assigned"
			continue
		}
		results[i].ServerID = *m.ServerID

		i, m := i, m
		g.Go(func() error {
			resp, err := s.servers.SendCommand(gCtx, *m.ServerID, statusCommand)
			if err != nil {
				results[i].Reason = fmt.Sprintf("server query failed: %v", err)
				return nil
			}
			var st remoteMatchStatus
			if err := json.Unmarshal([]byte(resp), &st); err != nil {
				results[i].Reason = "unparsable server status"
				return nil
			}
			statuses[i] = &st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	for i, m := range matches {
		st := statuses[i]
		if st == nil {
			continue
		}
		if id := st.MatchID.String(); id != "" && id != strconv.Itoa(m.ID) && id != m.Slug {
			results[i].Reason = fmt.Sprintf("server is hosting a different match (%s)", id)
			continue
		}

		switch {
		case st.Finished || st.Team1.SeriesScore != st.Team2.SeriesScore && st.Gamestate == "none":
			if err := s.progression.OnSeriesEnd(ctx, MatchRef{ID: m.ID}, st.Team1.SeriesScore, st.Team2.SeriesScore); err != nil {
				results[i].Reason = fmt.Sprintf("failed to apply series end: %v", err)
				continue
			}
			results[i].Applied = true
			results[i].Reason = "series end re-applied from server state"
		case st.Gamestate == "live" && m.Status == models.MatchStatusLoaded:
			if err := s.progression.OnGoingLive(ctx, MatchRef{ID: m.ID}); err != nil {
				results[i].Reason = fmt.Sprintf("failed to apply going live: %v", err)
				continue
			}
			results[i].Applied = true
			results[i].Reason = "going live re-applied from server state"
		default:
			results[i].Reason = "in sync"
		}
	}
	return results, nil
}

// ReplayEvents re-applies the persisted event log for a match, optionally
// from a timestamp. Replay must converge to the same end state as live
// delivery: completed matches absorb duplicates as no-ops.
func (s *eventService) ReplayEvents(ctx context.Context, matchSlug string, since *time.Time) error {
	events, err := s.eventRepo.ListByMatchSlug(ctx, matchSlug, since)
	if err != nil {
		return err
	}
	for _, ev := range events {
		switch ev.EventType {
		case models.EventSeriesEnd:
			var parsed models.SeriesEndEvent
			if err := json.Unmarshal(ev.Payload, &parsed); err != nil {
				return fmt.Errorf("%w: stored series_end payload for %s: %v", ErrValidationFailed, matchSlug, err)
			}
			if err := s.progression.OnSeriesEnd(ctx, MatchRef{Slug: matchSlug}, parsed.Team1SeriesScore, parsed.Team2SeriesScore); err != nil {
				return err
			}
		case models.EventGoingLive:
			if err := s.progression.OnGoingLive(ctx, MatchRef{Slug: matchSlug}); err != nil {
				return err
			}
		}
	}
	s.logger.Info("event replay finished", slog.String("match", matchSlug), slog.Int("events", len(events)))
	return nil
}
