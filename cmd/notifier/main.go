package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"huddle/internal/events"
	"huddle/pkg/kafka"
	kafka_config "huddle/pkg/kafka/config"
	"huddle/pkg/logger"
	"huddle/pkg/model"
)

const (
	ServiceName = "huddle-notifier"
	GroupID     = "huddle-notifier"
)

// The notifier is the fan-out point for booking confirmations. For now it
// only logs each event; delivery channels (email, chat) plug in behind
// handleBookingEvent.
func main() {
	log := logger.New(logger.Config{
		Level:     os.Getenv("LOG_LEVEL"),
		Format:    logger.FormatJSON,
		AddSource: true,
		Service:   ServiceName,
	})

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		log.Fatal("Invalid Kafka configuration", "error", err)
	}

	bookingConsumer, err := kafka.NewConsumer(kafkaCfg, events.TopicBookings, GroupID, events.TopicBookingsDLQ, bookingHandler(log))
	if err != nil {
		log.Fatal("Failed to create booking consumer", "error", err)
	}

	roomConsumer, err := kafka.NewConsumer(kafkaCfg, events.TopicRooms, GroupID, events.TopicRoomsDLQ, roomHandler(log))
	if err != nil {
		log.Fatal("Failed to create room consumer", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for _, consumer := range []*kafka.Consumer{bookingConsumer, roomConsumer} {
		wg.Add(1)
		go func(c *kafka.Consumer) {
			defer wg.Done()
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error("Consumer stopped", "error", err)
			}
		}(consumer)
	}

	log.Info("Notifier started", "brokers", kafkaCfg.Brokers)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Info("Shutdown signal received", "signal", sig)

	cancel()
	bookingConsumer.Close()
	roomConsumer.Close()
	wg.Wait()

	log.Info("Notifier stopped gracefully")
}

func bookingHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var booking model.Booking
		if err := msg.DecodeValue(&booking); err != nil {
			return kafka.Permanent(err)
		}

		log.Info("Booking notification",
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"booking_id", booking.ID,
			"room_id", booking.RoomID,
			"title", booking.Title,
			"start_time", booking.StartTime,
			"created_by", booking.CreatedBy,
		)
		return nil
	}
}

func roomHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var room model.Room
		if err := msg.DecodeValue(&room); err != nil {
			return kafka.Permanent(err)
		}

		log.Info("Room notification",
			"event_type", msg.GetEventType(),
			"event_id", msg.GetEventID(),
			"room_id", room.ID,
			"name", room.Name,
		)
		return nil
	}
}
