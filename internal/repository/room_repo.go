package repository

import (
	"context"
	"errors"
	"teamquest/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepo persists whole room documents. Save is a full replace with no merge.
type RoomRepo interface {
	Save(ctx context.Context, room *model.Room) error
	Get(ctx context.Context, id string) (*model.Room, error)
	List(ctx context.Context) ([]*model.Room, error)
	Delete(ctx context.Context, id string) error
}

type roomRepo struct {
	collection *mongo.Collection
}

// NewRoomRepo creates a Mongo-backed room repository
func NewRoomRepo(db *mongo.Database) RoomRepo {
	return &roomRepo{
		collection: db.Collection("rooms"),
	}
}

func (r *roomRepo) Save(ctx context.Context, room *model.Room) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": room.ID}, room, opts)
	return err
}

func (r *roomRepo) Get(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil // Room not found
		}
		return nil, err
	}
	return model.NormalizeRoom(&room), nil
}

func (r *roomRepo) List(ctx context.Context) ([]*model.Room, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, err
	}
	for _, room := range rooms {
		model.NormalizeRoom(room)
	}
	return rooms, nil
}

func (r *roomRepo) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
