package services

import "errors"

// Shared error vocabulary, mapped to HTTP statuses in the handlers package.
var (
	// Not found
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team not found")
	ErrServerNotFound     = errors.New("server not found")

	// Validation and business rules
	ErrValidationFailed      = errors.New("validation failed")
	ErrInvalidTournamentType = errors.New("invalid tournament type")
	ErrInvalidSeriesFormat   = errors.New("invalid series format")
	ErrInvalidTeamCount      = errors.New("invalid team count for tournament type")
	ErrEmptyMapPool          = errors.New("map pool must not be empty")
	ErrTiedSeriesScore       = errors.New("series score is tied; a winner cannot be determined")
	ErrTeamsNotResolved      = errors.New("match teams are not resolved yet")
	ErrUnknownWebhookEvent   = errors.New("unknown webhook event type")

	// Conflicts
	ErrTournamentExists        = errors.New("a tournament already exists; delete it first")
	ErrTournamentNotInSetup    = errors.New("operation only permitted while the tournament is in setup")
	ErrTournamentNotReady      = errors.New("tournament has no generated bracket yet")
	ErrTournamentInProgress    = errors.New("tournament is in progress")
	ErrBracketAlreadyGenerated = errors.New("bracket already generated; pass force to regenerate")

	// Authentication
	ErrInvalidCredentials = errors.New("invalid credentials")
)
