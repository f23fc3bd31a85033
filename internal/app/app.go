// Package app wires repositories, caches and services into a running server.
package app

import (
	"context"
	"net/http"
	"teamquest/internal/cache"
	"teamquest/internal/config"
	"teamquest/internal/repository"
	"teamquest/internal/service"
	"teamquest/internal/store"
	"teamquest/internal/transport/rest"
	"teamquest/internal/transport/ws"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Deps are the external resources the app is built from. Redis is optional;
// without it the store runs uncached and single-instance.
type Deps struct {
	RoomRepo repository.RoomRepo
	Redis    *redis.Client
	Clock    clockwork.Clock
}

type App struct {
	Store        *store.RoomStore
	Hub          *ws.Hub
	AuthService  *service.AuthService
	RoomService  *service.RoomService
	TeamService  *service.TeamService
	EventService *service.EventService
	JudgeService *service.JudgeService
	Router       http.Handler

	unsubscribe func()
}

// New builds the app. ctx bounds the store's shared change listener.
func New(ctx context.Context, cfg *config.Config, deps Deps) *App {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	opts := []store.Option{store.WithClock(clock)}
	var leaderboard cache.LeaderboardCache
	var sessions cache.SessionCache
	if deps.Redis != nil {
		opts = append(opts,
			store.WithCache(cache.NewRoomCache(deps.Redis)),
			store.WithNotifier(cache.NewRoomNotifier(deps.Redis)),
		)
		leaderboard = cache.NewLeaderboardCache(deps.Redis)
		sessions = cache.NewSessionCache(deps.Redis, cfg.IdleTimeout)
	}
	roomStore := store.New(ctx, deps.RoomRepo, opts...)

	wsHub := ws.NewHub()

	authSvc := service.NewAuthService(service.AuthConfig{
		Username:  cfg.AdminUsername,
		Password:  cfg.AdminPassword,
		JWTSecret: cfg.JWTSecret,
	}, clock)
	roomSvc := service.NewRoomService(roomStore, clock)
	teamSvc := service.NewTeamService(roomStore, clock)
	eventSvc := service.NewEventService(roomStore, clock)
	judgeSvc := service.NewJudgeService(cfg.AI)

	if sessions != nil {
		authSvc.SetSessions(sessions)
	}
	if leaderboard != nil {
		roomSvc.SetLeaderboard(leaderboard)
		teamSvc.SetLeaderboard(leaderboard)
	}

	roomSvc.SetJudge(judgeSvc)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	roomSvc.SetBroadcaster(wsHub)

	a := &App{
		Store:        roomStore,
		Hub:          wsHub,
		AuthService:  authSvc,
		RoomService:  roomSvc,
		TeamService:  teamSvc,
		EventService: eventSvc,
		JudgeService: judgeSvc,
	}
	a.unsubscribe = roomStore.Subscribe(wsHub.PublishRooms)

	a.Router = rest.NewRouter(&rest.Container{
		AuthService:  authSvc,
		RoomService:  roomSvc,
		TeamService:  teamSvc,
		EventService: eventSvc,
		JudgeService: judgeSvc,
		WSHub:        wsHub,
		CORS: rest.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: cfg.CORSAllowedMethods,
			AllowedHeaders: cfg.CORSAllowedHeaders,
		},
	})
	return a
}

// Close detaches the websocket hub from the store
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
}
