package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

// MatchConfigService builds the matchzy configuration document a game server
// loads for one series.
type MatchConfigService interface {
	GetMatchConfig(ctx context.Context, slug string) (*models.MatchConfig, error)
}

type matchConfigService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	teamRepo       repositories.TeamRepository
	logger         *slog.Logger
}

func NewMatchConfigService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	teamRepo repositories.TeamRepository,
	logger *slog.Logger,
) MatchConfigService {
	return &matchConfigService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		teamRepo:       teamRepo,
		logger:         logger,
	}
}

func (s *matchConfigService) GetMatchConfig(ctx context.Context, slug string) (*models.MatchConfig, error) {
	m, err := s.matchRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if m.Team1ID == nil || m.Team2ID == nil {
		return nil, fmt.Errorf("%w: %s", ErrTeamsNotResolved, slug)
	}

	tournament, err := s.tournamentRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	team1, err := s.teamRepo.GetByID(ctx, *m.Team1ID)
	if err != nil {
		return nil, err
	}
	team2, err := s.teamRepo.GetByID(ctx, *m.Team2ID)
	if err != nil {
		return nil, err
	}

	return BuildMatchConfig(tournament, m, team1, team2), nil
}

// BuildMatchConfig is a pure function of its inputs so the same match always
// yields the same document. A completed veto overlay replaces the default map
// pool and knife sides; a partial or absent one is ignored.
func BuildMatchConfig(tournament *models.Tournament, m *models.Match, team1, team2 *models.Team) *models.MatchConfig {
	numMaps := tournament.Format.NumMaps()

	maplist := make([]string, 0, numMaps)
	sides := make([]models.MapSide, 0, numMaps)
	if m.Veto != nil && m.Veto.Completed {
		for _, vm := range m.Veto.Maps {
			if len(maplist) == numMaps {
				break
			}
			maplist = append(maplist, vm.Name)
			sides = append(sides, vm.Side)
		}
	}
	if len(maplist) < numMaps {
		maplist = maplist[:0]
		sides = sides[:0]
		for _, name := range tournament.MapPool {
			if len(maplist) == numMaps {
				break
			}
			maplist = append(maplist, name)
			sides = append(sides, models.SideKnife)
		}
	}

	return &models.MatchConfig{
		MatchID:        m.Slug,
		NumMaps:        numMaps,
		Maplist:        maplist,
		MapSides:       sides,
		SkipVeto:       true,
		ClinchSeries:   true,
		PlayersPerTeam: 5,
		Team1:          configTeam(team1),
		Team2:          configTeam(team2),
	}
}

func configTeam(team *models.Team) models.MatchConfigTeam {
	players := make(map[string]string, len(team.Players))
	for _, p := range team.Players {
		players[p.SteamID] = p.Name
	}
	tag := ""
	if team.Tag != nil {
		tag = *team.Tag
	}
	return models.MatchConfigTeam{
		Name:    team.Name,
		Tag:     tag,
		Players: players,
	}
}
