// Package gameserver remote-controls registered game servers over RCON.
package gameserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorcon/rcon"

	"github.com/sivert-io/matchzy-auto-tournament-sub003/repositories"
)

const (
	maxAttempts  = 3
	retryBackoff = 500 * time.Millisecond
)

// Client resolves server ids through the registry and issues RCON commands.
// Connections are per-command: game servers drop idle RCON sessions and a
// fresh dial per command is cheap at tournament scale.
type Client struct {
	serverRepo repositories.ServerRepository
	timeout    time.Duration
	logger     *slog.Logger
}

func NewClient(serverRepo repositories.ServerRepository, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{serverRepo: serverRepo, timeout: timeout, logger: logger}
}

// SendCommand executes one command on the identified server, retrying
// transient failures with a short backoff.
func (c *Client) SendCommand(ctx context.Context, serverID string, command string) (string, error) {
	server, err := c.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt-1)):
			}
		}

		response, err := c.execute(server.Addr(), server.RconPassword, command)
		if err == nil {
			return response, nil
		}
		lastErr = err
		c.logger.Warn("rcon command failed",
			slog.String("server", serverID),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
	}
	return "", fmt.Errorf("rcon command on %s failed after %d attempts: %w", serverID, maxAttempts, lastErr)
}

func (c *Client) execute(addr, password, command string) (string, error) {
	conn, err := rcon.Dial(addr, password, rcon.SetDialTimeout(c.timeout), rcon.SetDeadline(c.timeout))
	if err != nil {
		return "", fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()

	response, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("failed to execute command: %w", err)
	}
	return response, nil
}
