package model

import "time"

// SessionRole is who a session belongs to.
type SessionRole string

const (
	SessionAdmin   SessionRole = "admin"
	SessionLearner SessionRole = "learner"
)

// DefaultIdleTimeout is the sliding inactivity window for a session.
const DefaultIdleTimeout = 2 * time.Hour

// Session is the authentication record a client keeps between reloads.
type Session struct {
	Role          SessionRole `json:"role"`
	Authenticated bool        `json:"authenticated"`
	Token         string      `json:"token,omitempty"`
	TeamID        int         `json:"teamId,omitempty"`
	LearnerName   string      `json:"learnerName,omitempty"`
	RoomID        string      `json:"roomId,omitempty"`
}

// IsLearner reports whether the session is bound to a team.
func (s *Session) IsLearner() bool {
	return s != nil && s.Role == SessionLearner && s.TeamID > 0
}
