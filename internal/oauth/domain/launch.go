package domain

import (
	envDomain "github.com/allisson/canvas-oauth/internal/environment/domain"
)

// Launch is a verified LTI launch handed over by the host application.
type Launch struct {
	// ID is the assertion id; each assertion establishes at most one session.
	ID     string
	UserID string
	Claims envDomain.LaunchContext
	Next   string
}
