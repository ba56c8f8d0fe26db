package service

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingserrors "huddle/internal/bookings/errors"
	"huddle/internal/bookings/rules"
	"huddle/internal/bookings/validator"
	"huddle/pkg/clock"
	"huddle/pkg/config"
	mongotx "huddle/pkg/db/mongo"
	apperrors "huddle/pkg/errors"
	"huddle/pkg/logger"
	"huddle/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// memStore backs the repository mocks with real shared state so concurrency
// tests exercise the same interleavings the Mongo layer would see.
type memStore struct {
	mu       sync.Mutex
	bookings []*model.Booking
	holds    map[string]bool
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{holds: map[string]bool{}}
}

type mockBookingRepository struct {
	store *memStore
}

func (m *mockBookingRepository) Create(_ context.Context, booking *model.Booking) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.nextID++
	booking.ID = objectIDHex(m.store.nextID)
	booking.CreatedAt = time.Now().UTC()
	copied := *booking
	m.store.bookings = append(m.store.bookings, &copied)
	return nil
}

func (m *mockBookingRepository) FindByID(_ context.Context, id string) (*model.Booking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, b := range m.store.bookings {
		if b.ID == id {
			copied := *b
			return &copied, nil
		}
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindAll(_ context.Context, limit int, offset int64) ([]*model.Booking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]*model.Booking(nil), m.store.bookings...), nil
}

func (m *mockBookingRepository) Delete(_ context.Context, id string) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for i, b := range m.store.bookings {
		if b.ID == id {
			m.store.bookings = append(m.store.bookings[:i], m.store.bookings[i+1:]...)
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByRoom(_ context.Context, roomID string, from, to *time.Time, limit int, offset int64) ([]*model.Booking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.store.bookings {
		if b.RoomID == roomID {
			copied := *b
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) CountByRoom(_ context.Context, roomID string, from, to *time.Time) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, b := range m.store.bookings {
		if b.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (m *mockBookingRepository) Count(_ context.Context) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return int64(len(m.store.bookings)), nil
}

func (m *mockBookingRepository) FirstOverlapping(_ context.Context, roomID string, start, end time.Time, excludeID string) (*model.Booking, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var first *model.Booking
	for _, b := range m.store.bookings {
		if b.RoomID != roomID || b.ID == excludeID {
			continue
		}
		if rules.Intersects(b.StartTime, b.EndTime, start, end) {
			if first == nil || b.StartTime.Before(first.StartTime) {
				first = b
			}
		}
	}
	if first == nil {
		return nil, nil
	}
	copied := *first
	return &copied, nil
}

func (m *mockBookingRepository) ExistsFutureForRoom(_ context.Context, roomID string, after time.Time) (bool, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, b := range m.store.bookings {
		if b.RoomID == roomID && b.StartTime.After(after) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type mockHoldRepository struct {
	store     *memStore
	releaseFn func(ctx context.Context, holdID string)
}

func (m *mockHoldRepository) Acquire(_ context.Context, roomID string, ttl time.Duration) (*model.RoomHold, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	id := "room_" + roomID
	if m.store.holds[id] {
		return nil, bookingserrors.ErrHoldContended
	}
	m.store.holds[id] = true
	return &model.RoomHold{ID: id, RoomID: roomID}, nil
}

func (m *mockHoldRepository) Release(ctx context.Context, holdID string) error {
	if m.releaseFn != nil {
		m.releaseFn(ctx, holdID)
	}
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.holds, holdID)
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	created   []*model.Booking
	cancelled []*model.Booking
}

func (p *recordingPublisher) BookingCreated(_ context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, b)
	return nil
}

func (p *recordingPublisher) BookingCancelled(_ context.Context, b *model.Booking) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b)
	return nil
}

func (p *recordingPublisher) RoomCreated(context.Context, *model.Room) error { return nil }
func (p *recordingPublisher) RoomDeleted(context.Context, *model.Room) error { return nil }
func (p *recordingPublisher) Close() error                                   { return nil }

type mockRoomDirectory struct {
	room *model.Room
}

func (m *mockRoomDirectory) FindRoom(context.Context, string) (*model.Room, error) {
	return m.room, nil
}

// objectIDHex fabricates a 24-char hex id so bookings round-trip through the
// id-format checks.
func objectIDHex(n int) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 24)
	for i := range buf {
		buf[i] = '0'
	}
	for i := 23; n > 0 && i >= 0; i-- {
		buf[i] = digits[n%16]
		n /= 16
	}
	return string(buf)
}

const testRoomID = "65a000000000000000000001"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
		MinBookingDuration: 15 * time.Minute,
		MaxBookingDuration: 8 * time.Hour,
		RoomHoldTTL:        10 * time.Second,
		RoomHoldRetryWait:  5 * time.Millisecond,
	}
}

func newTestService(t *testing.T, store *memStore, now time.Time) (BookingService, *recordingPublisher) {
	t.Helper()
	cfg := testConfig(t)
	repo := &mockBookingRepository{store: store}
	pipeline := rules.NewPipeline(
		&mockRoomDirectory{room: &model.Room{ID: testRoomID, Name: "Boardroom", Location: "HQ", Capacity: 10}},
		rules.NewDetector(repo),
		clock.Fixed{Instant: now},
		cfg.MinBookingDuration,
		cfg.MaxBookingDuration,
	)
	publisher := &recordingPublisher{}
	svc := NewBookingService(
		repo,
		&mockHoldRepository{store: store},
		pipeline,
		validator.NewBookingValidator(cfg.Log),
		publisher,
		cfg,
	)
	return svc, publisher
}

func validBooking(start time.Time, duration time.Duration) *model.Booking {
	return &model.Booking{
		RoomID:    testRoomID,
		Title:     "Sprint planning",
		StartTime: start,
		EndTime:   start.Add(duration),
		CreatedBy: "Dana",
	}
}

func TestCreate_Success(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, publisher := newTestService(t, store, now)

	booking := validBooking(now.Add(time.Hour), time.Hour)
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.ID == "" {
		t.Error("expected booking ID to be assigned")
	}
	if len(store.bookings) != 1 {
		t.Fatalf("store has %d bookings, want 1", len(store.bookings))
	}
	if len(publisher.created) != 1 {
		t.Errorf("published %d booking.created events, want 1", len(publisher.created))
	}
	if len(store.holds) != 0 {
		t.Errorf("room hold not released: %v", store.holds)
	}
}

func TestCreate_RejectionMapping(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		booking     *model.Booking
		wantCode    string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "end before start",
			booking:     validBooking(now.Add(2*time.Hour), -time.Hour),
			wantCode:    apperrors.CodeValidation,
			wantStatus:  422,
			wantMessage: "start time must be before end time",
		},
		{
			name:        "zero-length interval",
			booking:     validBooking(now.Add(2*time.Hour), 0),
			wantCode:    apperrors.CodeValidation,
			wantStatus:  422,
			wantMessage: "start time must be before end time",
		},
		{
			name:       "booking in the past",
			booking:    validBooking(now.Add(-2*time.Hour), time.Hour),
			wantCode:   apperrors.CodeValidation,
			wantStatus: 422,
		},
		{
			name:       "too short",
			booking:    validBooking(now.Add(time.Hour), 10*time.Minute),
			wantCode:   apperrors.CodeValidation,
			wantStatus: 422,
		},
		{
			name:       "too long",
			booking:    validBooking(now.Add(time.Hour), 9*time.Hour),
			wantCode:   apperrors.CodeValidation,
			wantStatus: 422,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc, _ := newTestService(t, store, now)

			err := svc.Create(context.Background(), tt.booking)
			appErr := apperrors.AsAppError(err)
			if appErr == nil {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", appErr.Code, tt.wantCode)
			}
			if appErr.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", appErr.StatusCode(), tt.wantStatus)
			}
			if tt.wantMessage != "" && appErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", appErr.Message, tt.wantMessage)
			}
			if len(store.bookings) != 0 {
				t.Errorf("store has %d bookings, want 0", len(store.bookings))
			}
		})
	}
}

func TestCreate_OverlapConflict(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := newTestService(t, store, now)

	first := validBooking(now.Add(time.Hour), time.Hour)
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	second := validBooking(now.Add(90*time.Minute), time.Hour)
	err := svc.Create(context.Background(), second)
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("Code = %q, want %q", appErr.Code, apperrors.CodeConflict)
	}
	if appErr.Message != "time slot already booked" {
		t.Errorf("Message = %q, want %q", appErr.Message, "time slot already booked")
	}
	if appErr.Details["conflicting_booking_id"] != first.ID {
		t.Errorf("conflicting_booking_id = %v, want %s", appErr.Details["conflicting_booking_id"], first.ID)
	}
	if len(store.bookings) != 1 {
		t.Errorf("store has %d bookings, want 1", len(store.bookings))
	}
}

func TestCreate_BackToBackAllowed(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := newTestService(t, store, now)

	first := validBooking(now.Add(time.Hour), time.Hour)
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}

	// Starts exactly when the first ends; half-open intervals do not touch.
	second := validBooking(now.Add(2*time.Hour), time.Hour)
	if err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("back-to-back booking failed: %v", err)
	}

	if len(store.bookings) != 2 {
		t.Errorf("store has %d bookings, want 2", len(store.bookings))
	}
}

func TestCreate_InvalidInput(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := newTestService(t, store, now)

	booking := validBooking(now.Add(time.Hour), time.Hour)
	booking.Title = ""

	err := svc.Create(context.Background(), booking)
	appErr := apperrors.AsAppError(err)
	if appErr == nil {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("Code = %q, want %q", appErr.Code, apperrors.CodeInvalidInput)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, publisher := newTestService(t, store, now)

	const writers = 8
	results := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			booking := validBooking(now.Add(time.Hour), time.Hour)
			results <- svc.Create(context.Background(), booking)
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		appErr := apperrors.AsAppError(err)
		if appErr == nil || appErr.Code != apperrors.CodeConflict {
			t.Errorf("unexpected error: %v", err)
			continue
		}
		conflicts++
	}

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
	if conflicts != writers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, writers-1)
	}
	if len(store.bookings) != 1 {
		t.Errorf("store has %d bookings, want 1", len(store.bookings))
	}
	if len(publisher.created) != 1 {
		t.Errorf("published %d booking.created events, want 1", len(publisher.created))
	}
}

func TestCancel(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, publisher := newTestService(t, store, now)

	booking := validBooking(now.Add(time.Hour), time.Hour)
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	if err := svc.Cancel(context.Background(), booking.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if len(store.bookings) != 0 {
		t.Errorf("store has %d bookings, want 0", len(store.bookings))
	}
	if len(publisher.cancelled) != 1 {
		t.Errorf("published %d booking.cancelled events, want 1", len(publisher.cancelled))
	}

	// Cancelling again reports not found rather than failing silently.
	err := svc.Cancel(context.Background(), booking.ID)
	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeNotFound {
		t.Fatalf("second cancel error = %v, want %s", err, apperrors.CodeNotFound)
	}
}

func TestGetByID_Errors(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := newTestService(t, store, now)

	t.Run("empty id", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), "")
		appErr := apperrors.AsAppError(err)
		if appErr == nil || appErr.Code != apperrors.CodeInvalidInput {
			t.Fatalf("err = %v, want %s", err, apperrors.CodeInvalidInput)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.GetByID(context.Background(), objectIDHex(999))
		appErr := apperrors.AsAppError(err)
		if appErr == nil || appErr.Code != apperrors.CodeNotFound {
			t.Fatalf("err = %v, want %s", err, apperrors.CodeNotFound)
		}
	})
}

func TestCreate_HoldContentionRetries(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	svc, _ := newTestService(t, store, now)

	// Pre-claim the room's hold, then release it shortly after so the
	// service's single retry lands on a free hold.
	holdRepo := &mockHoldRepository{store: store}
	hold, err := holdRepo.Acquire(context.Background(), testRoomID, time.Second)
	if err != nil {
		t.Fatalf("failed to pre-claim hold: %v", err)
	}
	go func() {
		time.Sleep(2 * time.Millisecond)
		holdRepo.Release(context.Background(), hold.ID)
	}()

	booking := validBooking(now.Add(time.Hour), time.Hour)
	if err := svc.Create(context.Background(), booking); err != nil {
		t.Fatalf("create after hold release failed: %v", err)
	}
	if len(store.bookings) != 1 {
		t.Errorf("store has %d bookings, want 1", len(store.bookings))
	}
}

// cancelOnCreatePublisher cancels the request context once the booking is
// committed, before the deferred hold release runs.
type cancelOnCreatePublisher struct {
	recordingPublisher
	cancel context.CancelFunc
}

func (p *cancelOnCreatePublisher) BookingCreated(ctx context.Context, b *model.Booking) error {
	p.cancel()
	return p.recordingPublisher.BookingCreated(ctx, b)
}

func TestCreate_ReleasesHoldAfterCancellation(t *testing.T) {
	now := time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC)
	store := newMemStore()
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var releaseCtxErr error
	released := false
	holdRepo := &mockHoldRepository{
		store: store,
		releaseFn: func(ctx context.Context, _ string) {
			released = true
			releaseCtxErr = ctx.Err()
		},
	}

	repo := &mockBookingRepository{store: store}
	pipeline := rules.NewPipeline(
		&mockRoomDirectory{room: &model.Room{ID: testRoomID, Name: "Boardroom", Location: "HQ", Capacity: 10}},
		rules.NewDetector(repo),
		clock.Fixed{Instant: now},
		cfg.MinBookingDuration,
		cfg.MaxBookingDuration,
	)
	svc := NewBookingService(
		repo,
		holdRepo,
		pipeline,
		validator.NewBookingValidator(cfg.Log),
		&cancelOnCreatePublisher{cancel: cancel},
		cfg,
	)

	if err := svc.Create(ctx, validBooking(now.Add(time.Hour), time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !released {
		t.Fatal("hold was not released")
	}
	if releaseCtxErr != nil {
		t.Errorf("release ran on a cancelled context: %v", releaseCtxErr)
	}
	if len(store.holds) != 0 {
		t.Errorf("store has %d holds, want 0", len(store.holds))
	}
}
