package main

import (
	bookinghandler "huddle/internal/bookings/handler"
	bookingrepo "huddle/internal/bookings/repository"
	"huddle/internal/bookings/rules"
	bookingservice "huddle/internal/bookings/service"
	bookingvalidator "huddle/internal/bookings/validator"
	"huddle/internal/events"
	"huddle/internal/health"
	roomhandler "huddle/internal/rooms/handler"
	roomrepo "huddle/internal/rooms/repository"
	roomservice "huddle/internal/rooms/service"
	roomvalidator "huddle/internal/rooms/validator"
	"huddle/pkg/app"
	"huddle/pkg/clock"
	"huddle/pkg/config"
	kafka_config "huddle/pkg/kafka/config"
)

const ServiceName = "huddle-api"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Warn("Failed to close event publisher", "error", err)
		}
	}()

	bookingSvc, roomSvc := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		health.NewHandler(cfg.Client.Mongo, cfg.Log),
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log),
		roomhandler.NewRoomHandler(roomSvc, bookingSvc, cfg.Log),
	)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Event publishing disabled")
		return events.NewNoopPublisher()
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	publisher, err := events.NewKafkaPublisher(kafkaCfg, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize event publisher", "error", err)
	}

	cfg.Log.Info("Event publishing enabled", "brokers", kafkaCfg.Brokers)
	return publisher
}

func initServices(cfg *config.Config, publisher events.Publisher) (bookingservice.BookingService, roomservice.RoomService) {
	clk := clock.System()

	roomRepo := roomrepo.NewMongoRoomRepository(cfg)
	bookingRepo := bookingrepo.NewMongoBookingRepository(cfg)
	holdRepo := bookingrepo.NewRoomHoldRepository(cfg)

	pipeline := rules.NewPipeline(
		roomservice.NewDirectory(roomRepo),
		rules.NewDetector(bookingRepo),
		clk,
		cfg.MinBookingDuration,
		cfg.MaxBookingDuration,
	)

	bookingSvc := bookingservice.NewBookingService(
		bookingRepo,
		holdRepo,
		pipeline,
		bookingvalidator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)

	roomSvc := roomservice.NewRoomService(
		roomRepo,
		bookingRepo,
		roomvalidator.NewRoomValidator(cfg.Log),
		publisher,
		clk,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return bookingSvc, roomSvc
}
