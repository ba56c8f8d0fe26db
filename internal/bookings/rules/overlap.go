package rules

import (
	"context"
	"time"

	"huddle/pkg/model"
)

// Intersects reports whether the half-open intervals [s1, e1) and [s2, e2)
// share any instant. Bookings that touch at a boundary do not intersect, so
// back-to-back reservations in the same room are allowed.
func Intersects(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// BookingSource answers interval queries against stored bookings.
type BookingSource interface {
	// FirstOverlapping returns the earliest booking in the room whose interval
	// intersects [start, end), skipping excludeID when non-empty. Returns
	// (nil, nil) when the slot is free.
	FirstOverlapping(ctx context.Context, roomID string, start, end time.Time, excludeID string) (*model.Booking, error)
}

// Detector finds scheduling conflicts for a candidate interval.
type Detector struct {
	source BookingSource
}

func NewDetector(source BookingSource) *Detector {
	return &Detector{source: source}
}

// FindConflict returns the booking that blocks [start, end) in the room, or
// nil when the slot is free.
func (d *Detector) FindConflict(ctx context.Context, roomID string, start, end time.Time, excludeID string) (*model.Booking, error) {
	return d.source.FirstOverlapping(ctx, roomID, start, end, excludeID)
}

// Overlaps reports whether any stored booking blocks [start, end) in the room.
func (d *Detector) Overlaps(ctx context.Context, roomID string, start, end time.Time, excludeID string) (bool, error) {
	conflict, err := d.source.FirstOverlapping(ctx, roomID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return conflict != nil, nil
}
