package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"teamquest/internal/service"

	"github.com/gorilla/mux"
)

type contextKey string

const (
	AdminIDKey   contextKey = "adminId"
	SessionIDKey contextKey = "sessionId"
	RoomIDKey    contextKey = "roomId"
	TeamIDKey    contextKey = "teamId"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireAdmin validates admin JWT from Authorization header
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateAdminToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}
		if !m.touch(w, r, claims.SessionID) {
			return
		}

		ctx := context.WithValue(r.Context(), AdminIDKey, claims.AdminID)
		ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireTeamAccess admits an admin, or a learner whose token matches the
// {roomId} and {teamId} path variables.
func (m *AuthMiddleware) RequireTeamAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization"}`, http.StatusUnauthorized)
			return
		}

		if admin, err := m.authSvc.ValidateAdminToken(token); err == nil {
			if !m.touch(w, r, admin.SessionID) {
				return
			}
			ctx := context.WithValue(r.Context(), AdminIDKey, admin.AdminID)
			ctx = context.WithValue(ctx, SessionIDKey, admin.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		claims, err := m.authSvc.ValidateLearnerToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		vars := mux.Vars(r)
		if roomID, ok := vars["roomId"]; ok && roomID != claims.RoomID {
			http.Error(w, `{"error":"token not valid for this room"}`, http.StatusForbidden)
			return
		}
		if raw, ok := vars["teamId"]; ok {
			if teamID, err := strconv.Atoi(raw); err != nil || teamID != claims.TeamID {
				http.Error(w, `{"error":"token not valid for this team"}`, http.StatusForbidden)
				return
			}
		}
		if !m.touch(w, r, claims.SessionID) {
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
		ctx = context.WithValue(ctx, RoomIDKey, claims.RoomID)
		ctx = context.WithValue(ctx, TeamIDKey, claims.TeamID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// touch slides the idle window; it writes a 401 and returns false once it has lapsed
func (m *AuthMiddleware) touch(w http.ResponseWriter, r *http.Request, sessionID string) bool {
	err := m.authSvc.TouchSession(r.Context(), sessionID)
	if errors.Is(err, service.ErrSessionExpired) {
		http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

// GetAdminID extracts admin ID from context
func GetAdminID(ctx context.Context) string {
	if v := ctx.Value(AdminIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetSessionID extracts the session ID from context
func GetSessionID(ctx context.Context) string {
	if v := ctx.Value(SessionIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetTeamID extracts the learner's team ID from context, 0 for admins
func GetTeamID(ctx context.Context) int {
	if v := ctx.Value(TeamIDKey); v != nil {
		return v.(int)
	}
	return 0
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
