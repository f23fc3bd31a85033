package service

import (
	"context"
	"errors"
	"teamquest/internal/cache"
	"teamquest/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionExpired     = errors.New("session expired")
)

const learnerTokenTTL = 24 * time.Hour

// AuthConfig holds admin credentials and the signing secret
type AuthConfig struct {
	Username  string
	Password  string
	JWTSecret string
}

// AuthService handles admin and learner authentication
type AuthService struct {
	username  string
	password  string
	jwtSecret []byte
	clock     clockwork.Clock
	sessions  cache.SessionCache
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthConfig, clock clockwork.Clock) *AuthService {
	return &AuthService{
		username:  cfg.Username,
		password:  cfg.Password,
		jwtSecret: []byte(cfg.JWTSecret),
		clock:     clock,
	}
}

// SetSessions enables the server-side sliding idle window
func (s *AuthService) SetSessions(sessions cache.SessionCache) {
	s.sessions = sessions
}

// Login validates admin credentials and returns a token
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	if username != s.username || password != s.password {
		return nil, ErrInvalidCredentials
	}

	adminID := "admin_" + uuid.New().String()[:8]
	sessionID := uuid.New().String()

	claims := &model.AdminClaims{
		AdminID:   adminID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.clock.Now()),
		},
	}
	token, err := s.sign(claims)
	if err != nil {
		return nil, err
	}
	if err := s.startSession(ctx, sessionID); err != nil {
		return nil, err
	}

	return &model.LoginResponse{
		Token:   token,
		AdminID: adminID,
	}, nil
}

// IssueLearnerToken creates a team-scoped token after a successful join
func (s *AuthService) IssueLearnerToken(ctx context.Context, roomID string, teamID int, learnerName string) (string, error) {
	sessionID := uuid.New().String()
	now := s.clock.Now()
	claims := &model.LearnerClaims{
		RoomID:      roomID,
		TeamID:      teamID,
		LearnerName: learnerName,
		SessionID:   sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(learnerTokenTTL)),
		},
	}
	token, err := s.sign(claims)
	if err != nil {
		return "", err
	}
	if err := s.startSession(ctx, sessionID); err != nil {
		return "", err
	}
	return token, nil
}

// ValidateAdminToken validates an admin JWT and returns claims
func (s *AuthService) ValidateAdminToken(tokenString string) (*model.AdminClaims, error) {
	claims := &model.AdminClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateLearnerToken validates a learner JWT and returns claims
func (s *AuthService) ValidateLearnerToken(tokenString string) (*model.LearnerClaims, error) {
	claims := &model.LearnerClaims{}
	if err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.RoomID == "" || claims.TeamID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TouchSession slides the idle window forward, failing once it has lapsed
func (s *AuthService) TouchSession(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	alive, err := s.sessions.Touch(ctx, sessionID)
	if err != nil {
		// Redis trouble should not log everyone out
		log.Warn().Err(err).Msg("session touch failed")
		return nil
	}
	if !alive {
		return ErrSessionExpired
	}
	return nil
}

// Logout ends a session immediately
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	return s.sessions.End(ctx, sessionID)
}

func (s *AuthService) startSession(ctx context.Context, sessionID string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.Start(ctx, sessionID)
}

func (s *AuthService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
