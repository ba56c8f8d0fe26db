package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"huddle/pkg/config"
	apperrors "huddle/pkg/errors"
	httputil "huddle/pkg/http"
	"huddle/pkg/logger"
	"huddle/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockBookingService struct {
	createFunc  func(ctx context.Context, booking *model.Booking) error
	getByIDFunc func(ctx context.Context, id string) (*model.Booking, error)
	getAllFunc  func(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error)
	cancelFunc  func(ctx context.Context, id string) error
}

func (m *mockBookingService) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	return nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) GetByRoom(ctx context.Context, roomID string, from, to *time.Time, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Cancel(ctx context.Context, id string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   logger.LevelError,
		Format:  logger.FormatJSON,
		Service: "test",
	})
}

func newRouter(service *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(service, testLogger()).RegisterRoutes(router)
	return router
}

func TestCreate_HTTP(t *testing.T) {
	start := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("created", func(t *testing.T) {
		service := &mockBookingService{
			createFunc: func(_ context.Context, booking *model.Booking) error {
				booking.ID = "65a000000000000000000001"
				return nil
			},
		}

		body, _ := json.Marshal(model.Booking{
			RoomID:    "65a000000000000000000002",
			Title:     "Standup",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			CreatedBy: "Dana",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
		}

		var resp httputil.SuccessResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		newRouter(&mockBookingService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("slot conflict surfaces 409 with details", func(t *testing.T) {
		service := &mockBookingService{
			createFunc: func(context.Context, *model.Booking) error {
				return apperrors.Conflict("time slot already booked").WithDetails(map[string]any{
					"conflicting_booking_id": "65a000000000000000000009",
				})
			},
		}

		body, _ := json.Marshal(model.Booking{
			RoomID:    "65a000000000000000000002",
			Title:     "Standup",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			CreatedBy: "Dana",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
		}

		var resp httputil.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Code != apperrors.CodeConflict {
			t.Errorf("Code = %q, want %q", resp.Code, apperrors.CodeConflict)
		}
		if resp.Details["conflicting_booking_id"] != "65a000000000000000000009" {
			t.Errorf("missing conflicting_booking_id in details: %v", resp.Details)
		}
	})

	t.Run("rejected booking surfaces 422", func(t *testing.T) {
		service := &mockBookingService{
			createFunc: func(context.Context, *model.Booking) error {
				return apperrors.Validation("cannot create bookings in the past", nil)
			},
		}

		body, _ := json.Marshal(model.Booking{RoomID: "65a000000000000000000002"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
		}
	})
}

func TestGetByID_HTTP(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		service := &mockBookingService{
			getByIDFunc: func(_ context.Context, id string) (*model.Booking, error) {
				return &model.Booking{ID: id, Title: "Standup"}, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/65a000000000000000000001", nil)
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("not found", func(t *testing.T) {
		service := &mockBookingService{
			getByIDFunc: func(_ context.Context, id string) (*model.Booking, error) {
				return nil, apperrors.NotFoundWithID("Booking", id)
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/65a000000000000000000001", nil)
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func TestGetAll_HTTP(t *testing.T) {
	var receivedLimit int
	var receivedOffset int64
	service := &mockBookingService{
		getAllFunc: func(_ context.Context, limit int, offset int64) ([]*model.Booking, int64, error) {
			receivedLimit = limit
			receivedOffset = offset
			return []*model.Booking{{ID: "65a000000000000000000001"}}, 1, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=5&offset=10", nil)
	rec := httptest.NewRecorder()
	newRouter(service).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if receivedLimit != 5 || receivedOffset != 10 {
		t.Errorf("service received limit=%d offset=%d, want 5/10", receivedLimit, receivedOffset)
	}

	var resp httputil.PaginatedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", resp.TotalCount)
	}

	// Out-of-range values are normalized once, by the extractor.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=500&offset=-3", nil)
	rec = httptest.NewRecorder()
	newRouter(service).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if receivedLimit != config.DefaultPaginationLimit || receivedOffset != 0 {
		t.Errorf("service received limit=%d offset=%d, want %d/0",
			receivedLimit, receivedOffset, config.DefaultPaginationLimit)
	}
}

func TestCancel_HTTP(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/65a000000000000000000001", nil)
		rec := httptest.NewRecorder()
		newRouter(&mockBookingService{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("already cancelled", func(t *testing.T) {
		service := &mockBookingService{
			cancelFunc: func(_ context.Context, id string) error {
				return apperrors.NotFoundWithID("Booking", id)
			},
		}

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/bookings/65a000000000000000000001", nil)
		rec := httptest.NewRecorder()
		newRouter(service).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
