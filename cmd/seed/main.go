package main

import (
	"context"
	"flag"
	"teamquest/internal/config"
	"teamquest/internal/logger"
	"teamquest/internal/model"
	"teamquest/internal/repository"
	"teamquest/internal/store"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seed writes a demo room with two joined teams, one of them mid-mission
func main() {
	groupName := flag.String("group", "Demo Group", "group name for the seeded room")
	teams := flag.Int("teams", 4, "number of teams")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, true)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	rooms := store.New(ctx, repository.NewRoomRepo(client.Database(cfg.MongoDatabase)))

	id, err := rooms.CreateRoom(ctx, *groupName, *teams, 6, "healthcare")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create room")
	}
	room, err := rooms.GetRoom(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read back room")
	}

	now := time.Now().UTC()
	room.MissionStarted = true
	room.MissionStartTime = &now
	room.MissionTimerMinutes = 90

	first := room.EnsureTeam(1)
	first.IsJoined = true
	first.Members = model.NormalizeMembers([]model.Member{
		{Role: model.RoleLeader, Name: "Avery"},
		{Role: model.RoleNavigator, Name: "Jordan"},
		{Role: model.RoleRecorder, Name: "Sam"},
	})
	first.CurrentRound = 4
	first.RoundTimes = map[int]int{1: 310, 2: 245, 3: 402}
	first.HelpUsages = []model.HelpUsage{{Round: 2, UsedAt: now.Add(-20 * time.Minute)}}
	first.HelpCount = 1

	if room.HasTeamID(2) {
		second := room.EnsureTeam(2)
		second.IsJoined = true
		second.Members = model.NormalizeMembers([]model.Member{
			{Role: model.RoleLeader, Name: "Riley"},
			{Role: model.RoleTimekeeper, Name: "Casey"},
		})
		second.RoundInstructions[3] = "Find the fire exit nearest your table and photograph it."
	}

	if err := rooms.SaveRoom(ctx, room); err != nil {
		log.Fatal().Err(err).Msg("failed to seed room")
	}

	log.Info().Str("room_id", id).Str("group", *groupName).Int("teams", *teams).Msg("seeded demo room")
}
