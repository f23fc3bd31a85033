package rest

import (
	"net/http"
	"teamquest/internal/service"
	"teamquest/internal/transport/rest/handler"
	"teamquest/internal/transport/rest/middleware"
	"teamquest/internal/transport/ws"

	"github.com/gorilla/mux"
)

// CORSConfig holds the allowed cross-origin settings
type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// Container holds all dependencies for the router
type Container struct {
	AuthService  *service.AuthService
	RoomService  *service.RoomService
	TeamService  *service.TeamService
	EventService *service.EventService
	JudgeService *service.JudgeService
	WSHub        *ws.Hub
	CORS         CORSConfig
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService)
	teamHandler := handler.NewTeamHandler(c.TeamService, c.AuthService)
	eventHandler := handler.NewEventHandler(c.EventService)
	judgeHandler := handler.NewJudgeHandler(c.JudgeService)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORS))

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{roomId}/teams/{teamId:[0-9]+}/join", teamHandler.Join).Methods("POST", "OPTIONS")

	// WebSocket routes (public with token in query param)
	v1.HandleFunc("/ws/rooms", wsHandler.AdminWS).Methods("GET")
	v1.HandleFunc("/ws/rooms/{roomId}", wsHandler.RoomWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Admin routes (require admin auth)
	adminRoutes := v1.NewRoute().Subrouter()
	adminRoutes.Use(authMW.RequireAdmin)

	adminRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms", roomHandler.List).Methods("GET", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/group", roomHandler.Rename).Methods("PUT", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/mission/start", roomHandler.StartMission).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/reset", roomHandler.Reset).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Delete).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/events", eventHandler.ToggleAll).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/teams/{teamId:[0-9]+}/event", eventHandler.ToggleTeam).Methods("POST", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/teams/{teamId:[0-9]+}/event", eventHandler.Release).Methods("DELETE", "OPTIONS")
	adminRoutes.HandleFunc("/rooms/{roomId}/teams/{teamId:[0-9]+}/instructions/{round:[0-9]+}", teamHandler.SetInstruction).Methods("PUT", "OPTIONS")

	// Team routes (admin, or the learner holding this team's token)
	teamRoutes := v1.NewRoute().Subrouter()
	teamRoutes.Use(authMW.RequireTeamAccess)

	teamRoutes.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc("/rooms/{roomId}", roomHandler.Get).Methods("GET", "OPTIONS")
	teamRoutes.HandleFunc("/rooms/{roomId}/minigames/{game}/leaderboard", teamHandler.Leaderboard).Methods("GET", "OPTIONS")

	team := "/rooms/{roomId}/teams/{teamId:[0-9]+}"
	teamRoutes.HandleFunc(team+"/round", teamHandler.UpdateRound).Methods("PUT", "OPTIONS")
	teamRoutes.HandleFunc(team+"/help", teamHandler.RecordHelp).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/rounds/{round:[0-9]+}/time", teamHandler.RecordRoundTime).Methods("PUT", "OPTIONS")
	teamRoutes.HandleFunc(team+"/bonus", teamHandler.AddBonus).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/clear", teamHandler.MarkClear).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/minigames/{game}", teamHandler.RecordMiniGame).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/event", eventHandler.State).Methods("GET", "OPTIONS")
	teamRoutes.HandleFunc(team+"/event/dismiss", eventHandler.Dismiss).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/judge/plant", judgeHandler.VerifyPlant).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/judge/empathy", judgeHandler.EmpathyChat).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/judge/report", judgeHandler.ValidateReport).Methods("POST", "OPTIONS")
	teamRoutes.HandleFunc(team+"/judge/infographic", judgeHandler.GenerateInfographic).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(cfg CORSConfig) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", orDefault(cfg.AllowedOrigins, "*"))
			w.Header().Set("Access-Control-Allow-Methods", orDefault(cfg.AllowedMethods, "GET, POST, PUT, DELETE, OPTIONS"))
			w.Header().Set("Access-Control-Allow-Headers", orDefault(cfg.AllowedHeaders, "Content-Type, Authorization"))

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
