package model

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are JWT claims for facilitator authentication
type AdminClaims struct {
	AdminID   string `json:"adminId"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// LearnerClaims are JWT claims for a team-scoped learner token
type LearnerClaims struct {
	RoomID      string `json:"roomId"`
	TeamID      int    `json:"teamId"`
	LearnerName string `json:"learnerName"`
	SessionID   string `json:"sid"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token   string `json:"token"`
	AdminID string `json:"adminId"`
}

// JoinResponse is returned after a team join succeeds
type JoinResponse struct {
	Token string `json:"token"`
	Team  *Team  `json:"team"`
}
