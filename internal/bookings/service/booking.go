package service

import (
	"context"
	"errors"
	"sync"
	"time"

	bookingserrors "huddle/internal/bookings/errors"
	"huddle/internal/bookings/repository"
	"huddle/internal/bookings/rules"
	"huddle/internal/bookings/validator"
	"huddle/internal/events"
	"huddle/pkg/config"
	apperrors "huddle/pkg/errors"
	"huddle/pkg/model"
	"huddle/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	GetByRoom(ctx context.Context, roomID string, from, to *time.Time, limit int, offset int64) ([]*model.Booking, int64, error)
	Cancel(ctx context.Context, id string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	holdRepo  repository.RoomHoldRepository
	pipeline  *rules.Pipeline
	validator *validator.BookingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	holdRepo repository.RoomHoldRepository,
	pipeline *rules.Pipeline,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		holdRepo:  holdRepo,
		pipeline:  pipeline,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Create validates the booking and inserts it atomically. The rules run once
// up front so bad requests fail before touching the lock, then again for the
// overlap rule inside the transaction while the room's advisory hold is held.
func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.sanitize(booking)
	if err := s.validateInput(booking); err != nil {
		return err
	}

	rejection, err := s.pipeline.Validate(ctx, s.toRequest(booking))
	if err != nil {
		s.cfg.Log.Error("Booking rule check failed", "room_id", booking.RoomID, "error", err)
		return apperrors.Internal("Failed to validate booking", err)
	}
	if rejection != nil {
		s.cfg.Log.Warn("Booking rejected",
			"room_id", booking.RoomID,
			"reason", rejection.Code,
			"message", rejection.Message,
		)
		return s.rejectionError(booking, rejection)
	}

	holdID, err := s.acquireRoomHold(ctx, booking.RoomID)
	if err != nil {
		return err
	}
	defer func() {
		// Release must outlive a cancelled request, or the room stays locked
		// until the TTL reaps the hold.
		releaseCtx := context.WithoutCancel(ctx)
		if releaseErr := s.holdRepo.Release(releaseCtx, holdID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release room hold", "hold_id", holdID, "error", releaseErr)
		}
	}()

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		// Re-check under the hold: another writer may have committed between
		// the pre-check and lock acquisition.
		conflict, err := s.repo.FirstOverlapping(sessCtx, booking.RoomID, booking.StartTime, booking.EndTime, "")
		if err != nil {
			return apperrors.Internal("Failed to check overlapping bookings", err)
		}
		if conflict != nil {
			return s.overlapError(conflict)
		}

		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create booking", "room_id", booking.RoomID, "error", err)
		return err
	}

	if publishErr := s.publisher.BookingCreated(ctx, booking); publishErr != nil {
		s.cfg.Log.Warn("Failed to publish booking.created", "id", booking.ID, "error", publishErr)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"room_id", booking.RoomID,
		"start_time", booking.StartTime,
		"end_time", booking.EndTime,
	)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) GetByRoom(ctx context.Context, roomID string, from, to *time.Time, limit int, offset int64) ([]*model.Booking, int64, error) {
	if roomID == "" {
		return nil, 0, apperrors.InvalidInput("Room ID cannot be empty")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountByRoom(ctx, roomID, from, to)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings by room", "room_id", roomID, "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.FindByRoom(ctx, roomID, from, to, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings by room",
				"room_id", roomID,
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

func (s *bookingService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid booking ID format")
		}
		return apperrors.Internal("Failed to check booking existence", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		// A concurrent cancel may have already removed it.
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Booking", id)
		}
		return apperrors.Internal("Failed to cancel booking", err)
	}

	if publishErr := s.publisher.BookingCancelled(ctx, booking); publishErr != nil {
		s.cfg.Log.Warn("Failed to publish booking.cancelled", "id", id, "error", publishErr)
	}

	s.cfg.Log.Info("Booking cancelled successfully", "id", id, "room_id", booking.RoomID)
	return nil
}

// --- Helpers ---

func (s *bookingService) sanitize(b *model.Booking) {
	b.Title = sanitizer.NormalizeTitle(b.Title)
	b.CreatedBy = sanitizer.NormalizeName(b.CreatedBy)
}

func (s *bookingService) validateInput(booking *model.Booking) error {
	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking input validation failed", "error", err)
		return apperrors.InvalidInput(err.Error())
	}
	return nil
}

func (s *bookingService) toRequest(b *model.Booking) rules.Request {
	participants := 0
	if b.Participants != nil {
		participants = *b.Participants
	}
	return rules.Request{
		BookingID:    b.ID,
		RoomID:       b.RoomID,
		Title:        b.Title,
		Start:        b.StartTime,
		End:          b.EndTime,
		Participants: participants,
	}
}

func (s *bookingService) rejectionError(booking *model.Booking, rejection *rules.Rejection) error {
	switch rejection.Code {
	case rules.ReasonRoomNotFound:
		return apperrors.NotFoundWithID("Room", booking.RoomID)
	case rules.ReasonOverlap:
		return s.overlapError(rejection.Conflict)
	default:
		return apperrors.Validation(rejection.Message, map[string]any{"reason": rejection.Code})
	}
}

func (s *bookingService) overlapError(conflict *model.Booking) error {
	return apperrors.Conflict("time slot already booked").WithDetails(map[string]any{
		"reason":                 rules.ReasonOverlap,
		"conflicting_booking_id": conflict.ID,
		"conflicting_title":      conflict.Title,
		"conflicting_start_time": conflict.StartTime.Format(time.RFC3339),
		"conflicting_end_time":   conflict.EndTime.Format(time.RFC3339),
	})
}

// acquireRoomHold serializes create attempts per room. Contention gets one
// quiet retry to ride out a short-lived hold; after that the caller is told
// the slot is being booked.
func (s *bookingService) acquireRoomHold(ctx context.Context, roomID string) (string, error) {
	hold, err := s.holdRepo.Acquire(ctx, roomID, s.cfg.RoomHoldTTL)
	if errors.Is(err, bookingserrors.ErrHoldContended) {
		select {
		case <-time.After(s.cfg.RoomHoldRetryWait):
		case <-ctx.Done():
			return "", apperrors.Timeout("Booking request cancelled while waiting for room hold")
		}
		hold, err = s.holdRepo.Acquire(ctx, roomID, s.cfg.RoomHoldTTL)
	}
	if err != nil {
		if errors.Is(err, bookingserrors.ErrHoldContended) {
			return "", apperrors.Conflict("This room is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire room hold", err)
	}

	return hold.ID, nil
}
