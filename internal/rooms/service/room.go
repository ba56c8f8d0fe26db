package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"huddle/internal/events"
	roomserrors "huddle/internal/rooms/errors"
	"huddle/internal/rooms/repository"
	"huddle/internal/rooms/validator"
	"huddle/pkg/clock"
	"huddle/pkg/config"
	apperrors "huddle/pkg/errors"
	"huddle/pkg/model"
	"huddle/pkg/sanitizer"
)

// FutureBookingChecker reports whether a room has bookings starting after a
// given instant. The booking repository satisfies it.
type FutureBookingChecker interface {
	ExistsFutureForRoom(ctx context.Context, roomID string, after time.Time) (bool, error)
}

type RoomService interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error)
	Delete(ctx context.Context, id string) error
}

type roomService struct {
	repo      repository.RoomRepository
	bookings  FutureBookingChecker
	validator *validator.RoomValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewRoomService(
	repo repository.RoomRepository,
	bookings FutureBookingChecker,
	validator *validator.RoomValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) RoomService {
	return &roomService{
		repo:      repo,
		bookings:  bookings,
		validator: validator,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *roomService) Create(ctx context.Context, room *model.Room) error {
	room.Name = sanitizer.NormalizeName(room.Name)
	room.Location = sanitizer.NormalizeLocation(room.Location)

	if err := s.validator.Validate(room); err != nil {
		s.cfg.Log.Warn("Room validation failed", "error", err)
		return apperrors.InvalidInput(err.Error())
	}

	if err := s.repo.Create(ctx, room); err != nil {
		s.cfg.Log.Error("Failed to create room", "name", room.Name, "error", err)
		return apperrors.Internal("Failed to create room", err)
	}

	if publishErr := s.publisher.RoomCreated(ctx, room); publishErr != nil {
		s.cfg.Log.Warn("Failed to publish room.created", "id", room.ID, "error", publishErr)
	}

	s.cfg.Log.Info("Room created successfully", "id", room.ID, "name", room.Name, "capacity", room.Capacity)
	return nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		if errors.Is(err, roomserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid room ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	return room, nil
}

func (s *roomService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Room, int64, error) {
	var count int64
	var rooms []*model.Room
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count rooms", "error", errCount)
			errCount = apperrors.Internal("Failed to count rooms", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		rooms, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list rooms", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve rooms", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return rooms, count, nil
}

// Delete removes a room unless it still has bookings that have not ended.
// Past bookings never block deletion; they keep the room id as a dangling
// reference and are cleaned out of band.
func (s *roomService) Delete(ctx context.Context, id string) error {
	room, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.bookings.ExistsFutureForRoom(ctx, id, s.clock.Now())
	if err != nil {
		s.cfg.Log.Error("Failed to check future bookings for room", "id", id, "error", err)
		return apperrors.Internal("Failed to check room bookings", err)
	}
	if inUse {
		s.cfg.Log.Warn("Room deletion blocked by future bookings", "id", id)
		return apperrors.RoomInUse("Room has upcoming bookings and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Room", id)
		}
		return apperrors.Internal("Failed to delete room", err)
	}

	if publishErr := s.publisher.RoomDeleted(ctx, room); publishErr != nil {
		s.cfg.Log.Warn("Failed to publish room.deleted", "id", id, "error", publishErr)
	}

	s.cfg.Log.Info("Room deleted successfully", "id", id, "name", room.Name)
	return nil
}
