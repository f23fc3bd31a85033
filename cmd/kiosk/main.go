// kiosk is a headless team screen: it joins a team, follows the room feed and
// dismisses expired breaks the way the browser client does.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"teamquest/internal/client"
	"teamquest/internal/event"
	"teamquest/internal/logger"
	"teamquest/internal/model"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	baseURL := flag.String("server", "http://localhost:8080", "game server base URL")
	roomID := flag.String("room", "", "room id to join")
	teamID := flag.Int("team", 1, "team number")
	leader := flag.String("leader", "", "leader name")
	idle := flag.Duration("idle", model.DefaultIdleTimeout, "inactivity window")
	flag.Parse()

	logger.Init("info", true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := client.DefaultSessionPath()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot resolve session path")
	}
	clock := clockwork.NewRealClock()
	sessions := client.NewSessionManager(client.NewFileStorage(path), clock, *idle)

	sess, err := sessions.Restore()
	if errors.Is(err, client.ErrSessionExpired) {
		log.Info().Msg("session expired, joining again")
	} else if err != nil {
		log.Fatal().Err(err).Msg("cannot read session")
	}

	api := client.New(*baseURL, "")
	if sess.IsLearner() && (*roomID == "" || (sess.RoomID == *roomID && sess.TeamID == *teamID)) {
		api.SetToken(sess.Token)
	} else {
		if *roomID == "" || *leader == "" {
			log.Fatal().Msg("-room and -leader are required to join")
		}
		resp, err := api.JoinTeam(ctx, *roomID, *teamID, client.JoinRequest{
			Members: []model.Member{{Role: model.RoleLeader, Name: *leader}},
		})
		if err != nil {
			log.Fatal().Err(err).Msg("join failed")
		}
		sess = &model.Session{
			Role:          model.SessionLearner,
			Authenticated: true,
			Token:         resp.Token,
			TeamID:        *teamID,
			LearnerName:   *leader,
			RoomID:        *roomID,
		}
		if err := sessions.Save(sess); err != nil {
			log.Warn().Err(err).Msg("could not persist session")
		}
	}

	watcher := client.NewEventWatcher(clock,
		func(ctx context.Context) error {
			return api.DismissEvent(ctx, sess.RoomID, sess.TeamID)
		},
		func(st event.Status) {
			if st.State == event.ActiveTimed {
				log.Debug().Str("event_type", string(st.EventType)).Dur("remaining", st.Remaining).Msg("countdown")
			}
		},
	)
	watcher.Start(event.DefaultInterval)
	defer watcher.Stop()

	monitor := sessions.Monitor(time.Minute, func() {
		log.Info().Msg("inactive too long, signing out")
		stop()
	})
	defer monitor.Stop()

	syncer := client.NewSyncer(func(v client.View) {
		if v.Selected == nil {
			return
		}
		team := v.Selected.Team(sess.TeamID)
		if team == nil {
			watcher.Update(nil)
			return
		}
		watcher.Update(team.CurrentEvent)
		log.Info().
			Str("room_id", v.SelectedID).
			Int("team_id", team.ID).
			Int("round", team.CurrentRound).
			Bool("stale", v.Stale).
			Msg("room updated")
	})
	syncer.Select(sess.RoomID)

	for ctx.Err() == nil {
		feed, err := client.DialRoom(ctx, *baseURL, sess.RoomID, sess.Token)
		if err != nil {
			log.Warn().Err(err).Msg("feed dial failed, retrying")
			sleep(ctx, 3*time.Second)
			continue
		}
		if err := sessions.Touch(); err != nil {
			log.Warn().Err(err).Msg("could not record activity")
		}
		err = syncer.Run(ctx, feed)
		feed.Close()
		if errors.Is(err, client.ErrSessionExpired) {
			sessions.Clear()
			log.Info().Msg("server ended the session")
			return
		}
		sleep(ctx, time.Second)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
