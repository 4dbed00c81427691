package services

import (
	"context"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/models"
)

// NotificationSink fans progression outcomes out to real-time subscribers.
// Implementations must be fire-and-forget: the core never blocks on or fails
// because of a sink.
type NotificationSink interface {
	PublishMatchUpdate(match *models.Match)
	PublishBracketUpdate(action string, payload interface{})
}

// RemoteServerClient remote-controls a registered game server. The transport
// owns its retry policy; the core only sees a command/response pair.
type RemoteServerClient interface {
	SendCommand(ctx context.Context, serverID string, command string) (string, error)
}

// noopSink is used where no sink is wired (tests, one-shot tools).
type noopSink struct{}

func (noopSink) PublishMatchUpdate(*models.Match) {}

func (noopSink) PublishBracketUpdate(string, interface{}) {}

// NoopSink returns a NotificationSink that discards everything.
func NoopSink() NotificationSink { return noopSink{} }
