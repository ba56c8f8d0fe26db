package validator

import (
	"strings"
	"testing"
	"time"

	"huddle/pkg/logger"
	"huddle/pkg/model"
)

func testValidator() *BookingValidator {
	return NewBookingValidator(logger.New(logger.Config{
		Level:   logger.LevelError,
		Format:  logger.FormatJSON,
		Service: "test",
	}))
}

func intPtr(n int) *int { return &n }

func TestValidate(t *testing.T) {
	start := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	valid := func() *model.Booking {
		return &model.Booking{
			RoomID:       "65a000000000000000000001",
			Title:        "Standup",
			StartTime:    start,
			EndTime:      start.Add(time.Hour),
			CreatedBy:    "Dana",
			Participants: intPtr(4),
		}
	}

	tests := []struct {
		name      string
		mutate    func(b *model.Booking)
		wantField string
	}{
		{"valid booking", func(b *model.Booking) {}, ""},
		{"no participants given", func(b *model.Booking) { b.Participants = nil }, ""},
		{"missing room id", func(b *model.Booking) { b.RoomID = "" }, "RoomID"},
		{"malformed room id", func(b *model.Booking) { b.RoomID = "not-an-object-id" }, "RoomID"},
		{"missing title", func(b *model.Booking) { b.Title = "" }, "Title"},
		{"title too long", func(b *model.Booking) { b.Title = strings.Repeat("x", 201) }, "Title"},
		{"missing creator", func(b *model.Booking) { b.CreatedBy = "" }, "CreatedBy"},
		// Interval ordering is a scheduling rule, not a shape check; the
		// struct validator must let inverted intervals through to the pipeline.
		{"inverted interval passes shape checks", func(b *model.Booking) { b.EndTime = b.StartTime.Add(-time.Hour) }, ""},
		{"zero participants", func(b *model.Booking) { b.Participants = intPtr(0) }, "Participants"},
	}

	v := testValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			booking := valid()
			tt.mutate(booking)

			err := v.Validate(booking)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention field %s", err.Error(), tt.wantField)
			}
		})
	}
}
