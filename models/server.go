package models

import (
	"fmt"
	"time"
)

// Server is a registered game server the coordinator can remote-control.
type Server struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Host         string    `json:"host" db:"host"`
	Port         int       `json:"port" db:"port"`
	RconPassword string    `json:"-" db:"rcon_password"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Addr returns the host:port the RCON client dials.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
