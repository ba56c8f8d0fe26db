package model

import "time"

// RoomHold is an advisory lock over a single room. Its _id is derived from
// the room id, so the unique index on _id serializes every validate+create
// sequence for that room. ExpiresAt backs a TTL index that reaps holds left
// behind by crashed writers.
type RoomHold struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
