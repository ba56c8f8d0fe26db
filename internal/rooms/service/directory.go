package service

import (
	"context"
	"errors"

	roomserrors "huddle/internal/rooms/errors"
	"huddle/internal/rooms/repository"
	"huddle/pkg/model"
)

// Directory adapts the room repository to the lookup the booking rules
// expect: a missing or malformed id is simply "no such room", never an error.
type Directory struct {
	repo repository.RoomRepository
}

func NewDirectory(repo repository.RoomRepository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) FindRoom(ctx context.Context, id string) (*model.Room, error) {
	room, err := d.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) || errors.Is(err, roomserrors.ErrInvalidID) {
			return nil, nil
		}
		return nil, err
	}
	return room, nil
}
