package repository

import (
	"context"
	"fmt"
	"time"

	bookingserrors "huddle/internal/bookings/errors"
	"huddle/pkg/config"
	"huddle/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const HoldCollectionName = "Room_holds"

// RoomHoldRepository manages the advisory per-room locks that serialize
// concurrent create attempts for the same room.
type RoomHoldRepository interface {
	// Acquire inserts the hold document for the room. The _id is derived from
	// the room id alone, so at most one hold per room can exist at a time.
	// Returns ErrHoldContended when another request already holds the room.
	Acquire(ctx context.Context, roomID string, ttl time.Duration) (*model.RoomHold, error)
	Release(ctx context.Context, holdID string) error
}

type mongoRoomHoldRepository struct {
	collection *mongo.Collection
}

func NewRoomHoldRepository(cfg *config.Config) RoomHoldRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomHoldRepository{
		collection: db.Collection(HoldCollectionName),
	}
}

func HoldID(roomID string) string {
	return fmt.Sprintf("room_%s", roomID)
}

func (r *mongoRoomHoldRepository) Acquire(ctx context.Context, roomID string, ttl time.Duration) (*model.RoomHold, error) {
	now := time.Now().UTC()
	hold := &model.RoomHold{
		ID:        HoldID(roomID),
		RoomID:    roomID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, hold)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrHoldContended
		}
		return nil, fmt.Errorf("failed to acquire room hold: %w", err)
	}

	return hold, nil
}

func (r *mongoRoomHoldRepository) Release(ctx context.Context, holdID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": holdID})
	return err
}
