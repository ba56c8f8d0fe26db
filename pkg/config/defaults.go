package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "huddle"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Booking duration bounds enforced by the validation pipeline.
	DefaultMinBookingDuration = 15 * time.Minute
	DefaultMaxBookingDuration = 8 * time.Hour

	// Advisory hold taken per room around validate+create.
	DefaultRoomHoldTTL       = 10 * time.Second
	DefaultRoomHoldRetryWait = 150 * time.Millisecond

	DefaultPaginationLimit = 100
)
