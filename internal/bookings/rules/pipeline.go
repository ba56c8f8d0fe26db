package rules

import (
	"context"
	"fmt"
	"time"

	"huddle/pkg/clock"
	"huddle/pkg/model"
)

// Rejection reason codes, stable across API responses and logs.
const (
	ReasonStartNotBeforeEnd = "START_NOT_BEFORE_END"
	ReasonInPast            = "IN_PAST"
	ReasonTooShort          = "TOO_SHORT"
	ReasonTooLong           = "TOO_LONG"
	ReasonRoomNotFound      = "ROOM_NOT_FOUND"
	ReasonOverCapacity      = "OVER_CAPACITY"
	ReasonOverlap           = "OVERLAP"
)

// Request is a candidate booking to be checked against all rules.
// BookingID is empty for new bookings; when set, the stored booking with that
// id is ignored during overlap detection.
type Request struct {
	BookingID    string
	RoomID       string
	Title        string
	Start        time.Time
	End          time.Time
	Participants int
}

// Rejection describes why a request was refused. Conflict is populated only
// for ReasonOverlap.
type Rejection struct {
	Code     string
	Message  string
	Conflict *model.Booking
}

// RoomDirectory resolves rooms for capacity and existence checks.
type RoomDirectory interface {
	// FindRoom returns (nil, nil) when no room has the given id.
	FindRoom(ctx context.Context, id string) (*model.Room, error)
}

// Pipeline runs the booking rules in a fixed order, stopping at the first
// violation. Cheap time arithmetic runs before anything that touches storage.
type Pipeline struct {
	rooms       RoomDirectory
	detector    *Detector
	clock       clock.Clock
	minDuration time.Duration
	maxDuration time.Duration
}

func NewPipeline(rooms RoomDirectory, detector *Detector, clk clock.Clock, minDuration, maxDuration time.Duration) *Pipeline {
	return &Pipeline{
		rooms:       rooms,
		detector:    detector,
		clock:       clk,
		minDuration: minDuration,
		maxDuration: maxDuration,
	}
}

// Validate returns (nil, nil) when the request passes every rule, a Rejection
// for the first rule it violates, or an error when storage fails.
func (p *Pipeline) Validate(ctx context.Context, req Request) (*Rejection, error) {
	if !req.Start.Before(req.End) {
		return &Rejection{Code: ReasonStartNotBeforeEnd, Message: "start time must be before end time"}, nil
	}

	if req.Start.Before(p.clock.Now()) {
		return &Rejection{Code: ReasonInPast, Message: "cannot create bookings in the past"}, nil
	}

	duration := req.End.Sub(req.Start)
	if duration < p.minDuration {
		return &Rejection{
			Code:    ReasonTooShort,
			Message: fmt.Sprintf("minimum booking duration is %s", formatDuration(p.minDuration)),
		}, nil
	}
	if duration > p.maxDuration {
		return &Rejection{
			Code:    ReasonTooLong,
			Message: fmt.Sprintf("maximum booking duration is %s", formatDuration(p.maxDuration)),
		}, nil
	}

	room, err := p.rooms.FindRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return &Rejection{Code: ReasonRoomNotFound, Message: fmt.Sprintf("room with id %s not found", req.RoomID)}, nil
	}

	if req.Participants > room.Capacity {
		return &Rejection{
			Code:    ReasonOverCapacity,
			Message: fmt.Sprintf("participant count %d exceeds room capacity %d", req.Participants, room.Capacity),
		}, nil
	}

	conflict, err := p.detector.FindConflict(ctx, req.RoomID, req.Start, req.End, req.BookingID)
	if err != nil {
		return nil, err
	}
	if conflict != nil {
		return &Rejection{Code: ReasonOverlap, Message: "time slot already booked", Conflict: conflict}, nil
	}

	return nil, nil
}

// formatDuration renders whole hours or minutes the way people write them in
// error messages ("15 minutes", "8 hours").
func formatDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
