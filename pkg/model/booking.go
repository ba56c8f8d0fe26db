package model

import "time"

// Booking is an accepted reservation of a room over the half-open window
// [StartTime, EndTime). Both timestamps are UTC. Bookings are never updated
// in place; changing one is cancel + recreate.
type Booking struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID       string    `json:"room_id" bson:"room_id" validate:"required,mongodb"`
	Title        string    `json:"title" bson:"title" validate:"required,min=1,max=200"`
	StartTime    time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" bson:"end_time" validate:"required"`
	CreatedBy    string    `json:"created_by" bson:"created_by" validate:"required,min=1,max=100"`
	Participants *int      `json:"participants,omitempty" bson:"participants,omitempty" validate:"omitempty,min=1"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Duration is EndTime - StartTime.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}
