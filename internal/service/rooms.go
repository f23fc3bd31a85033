package service

import (
	"context"
	"teamquest/internal/model"
)

// RoomStore is the persistence surface services depend on. Writes are whole-document
// replacements; callers read, modify and save without locking.
type RoomStore interface {
	CreateRoom(ctx context.Context, groupName string, totalTeams, membersPerTeam int, industryType string) (string, error)
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	GetRooms(ctx context.Context) (map[string]*model.Room, error)
	SaveRoom(ctx context.Context, room *model.Room) error
	ResetRoom(ctx context.Context, id string) error
	DeleteRoom(ctx context.Context, id string) error
}
