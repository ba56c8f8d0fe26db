package model

import "time"

// Room is a bookable meeting room. Capacity is immutable input to booking
// validation; the booking engine never mutates rooms.
type Room struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Location  string    `json:"location" bson:"location" validate:"required,min=1,max=200"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"required,min=1"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
