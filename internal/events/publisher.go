package events

import (
	"context"

	"huddle/pkg/kafka"
	kafka_config "huddle/pkg/kafka/config"
	"huddle/pkg/logger"
	"huddle/pkg/model"
)

const (
	TopicBookings    = "huddle.bookings"
	TopicBookingsDLQ = "huddle.bookings.dlq"
	TopicRooms       = "huddle.rooms"
	TopicRoomsDLQ    = "huddle.rooms.dlq"

	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventRoomCreated      = "room.created"
	EventRoomDeleted      = "room.deleted"

	source = "huddle-api"
)

// Publisher emits domain events after state changes commit. Implementations
// must be best-effort: a publish failure never rolls back the change, callers
// just log it.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking) error
	BookingCancelled(ctx context.Context, booking *model.Booking) error
	RoomCreated(ctx context.Context, room *model.Room) error
	RoomDeleted(ctx context.Context, room *model.Room) error
	Close() error
}

type kafkaPublisher struct {
	bookings *kafka.Producer
	rooms    *kafka.Producer
	log      *logger.Logger
}

// NewKafkaPublisher connects producers for the booking and room topics.
// Messages are keyed by room id so consumers see one room's events in order.
func NewKafkaPublisher(cfg *kafka_config.Config, log *logger.Logger) (Publisher, error) {
	bookings, err := kafka.NewProducer(cfg, TopicBookings, TopicBookingsDLQ)
	if err != nil {
		return nil, err
	}

	rooms, err := kafka.NewProducer(cfg, TopicRooms, TopicRoomsDLQ)
	if err != nil {
		bookings.Close()
		return nil, err
	}

	return &kafkaPublisher{bookings: bookings, rooms: rooms, log: log}, nil
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, p.bookings, EventBookingCreated, booking.RoomID, booking)
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) error {
	return p.publish(ctx, p.bookings, EventBookingCancelled, booking.RoomID, booking)
}

func (p *kafkaPublisher) RoomCreated(ctx context.Context, room *model.Room) error {
	return p.publish(ctx, p.rooms, EventRoomCreated, room.ID, room)
}

func (p *kafkaPublisher) RoomDeleted(ctx context.Context, room *model.Room) error {
	return p.publish(ctx, p.rooms, EventRoomDeleted, room.ID, room)
}

func (p *kafkaPublisher) publish(ctx context.Context, producer *kafka.Producer, eventType, key string, payload any) error {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource(source).
		Build()

	return producer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	err := p.bookings.Close()
	if roomsErr := p.rooms.Close(); err == nil {
		err = roomsErr
	}
	return err
}

type noopPublisher struct{}

// NewNoopPublisher is used when event publishing is disabled.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) BookingCreated(context.Context, *model.Booking) error   { return nil }
func (noopPublisher) BookingCancelled(context.Context, *model.Booking) error { return nil }
func (noopPublisher) RoomCreated(context.Context, *model.Room) error         { return nil }
func (noopPublisher) RoomDeleted(context.Context, *model.Room) error         { return nil }
func (noopPublisher) Close() error                                           { return nil }
