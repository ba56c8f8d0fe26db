package handler

import (
	"encoding/json"
	"net/http"
	"time"

	bookingservice "huddle/internal/bookings/service"
	"huddle/internal/rooms/service"
	apperrors "huddle/pkg/errors"
	httputil "huddle/pkg/http"
	"huddle/pkg/logger"
	"huddle/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service  service.RoomService
	bookings bookingservice.BookingService
	log      *logger.Logger
}

func NewRoomHandler(service service.RoomService, bookings bookingservice.BookingService, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service:  service,
		bookings: bookings,
		log:      log,
	}
}

func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var room model.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		})
		return
	}

	if err := h.service.Create(r.Context(), &room); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, room)
}

func (h *RoomHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	room, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, room)
}

func (h *RoomHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rooms, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, rooms, total, limit, offset)
}

func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// GetBookings lists a room's bookings, optionally windowed by from/to query
// parameters (RFC3339). Unknown rooms are a 404, not an empty list.
func (h *RoomHandler) GetBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if _, err := h.service.GetByID(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	query := r.URL.Query()
	var from, to *time.Time
	if fromStr := query.Get("from"); fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("invalid from parameter, must be RFC3339"))
			return
		}
		from = &parsed
	}
	if toStr := query.Get("to"); toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			httputil.WriteError(w, apperrors.InvalidInput("invalid to parameter, must be RFC3339"))
			return
		}
		to = &parsed
	}

	bookings, total, err := h.bookings.GetByRoom(r.Context(), id, from, to, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, bookings, total, limit, offset)
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/rooms", h.Create)
	router.GET("/api/v1/rooms", h.GetAll)
	router.GET("/api/v1/rooms/:id", h.GetByID)
	router.DELETE("/api/v1/rooms/:id", h.Delete)
	router.GET("/api/v1/rooms/:id/bookings", h.GetBookings)
}
