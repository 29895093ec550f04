package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/exam-reservation/internal/model"
	"github.com/iliyamo/exam-reservation/internal/repository"
	"github.com/iliyamo/exam-reservation/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP. All
// decisions live in the service; the handler binds input, resolves the
// caller and maps error kinds to status codes.
type ReservationHandler struct {
	Svc *service.ReservationService
}

func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{Svc: svc}
}

type createReservationReq struct {
	SessionID       uint64 `json:"exam_session_id"`
	NumParticipants uint32 `json:"num_participants"`
}

type updateReservationReq struct {
	NumParticipants *uint32 `json:"num_participants"`
	IsConfirmed     *bool   `json:"is_confirmed"`
}

type reservationResp struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"user_id"`
	SessionID       uint64    `json:"exam_session_id"`
	NumParticipants uint32    `json:"num_participants"`
	IsConfirmed     bool      `json:"is_confirmed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type reservationListResp struct {
	Items    []repository.ReservationDetail `json:"items"`
	Total    int                            `json:"total"`
	Page     int                            `json:"page"`
	PageSize int                            `json:"page_size"`
}

func toReservationResp(r *model.Reservation) reservationResp {
	return reservationResp{
		ID:              r.ID,
		UserID:          r.UserID,
		SessionID:       r.SessionID,
		NumParticipants: r.NumParticipants,
		IsConfirmed:     r.IsConfirmed,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// principal resolves the authenticated caller from the JWT claims stored in
// context by the auth middleware.
func principal(c echo.Context) (service.Principal, bool) {
	uid, ok := contextUserID(c)
	if !ok || uid == 0 {
		return service.Principal{}, false
	}
	role, _ := c.Get("role").(string)
	return service.Principal{ID: uid, Privileged: role == model.RoleAdmin}, true
}

// contextUserID converts the "user_id" context value. JWT numeric claims
// decode to float64.
func contextUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v), true
	case uint64:
		return v, true
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// reservationError maps service and repository error kinds onto HTTP
// responses. Constraint violations surface as 500 because they mean the
// database rejected a write the service already vetted.
func reservationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "exam session not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already exists for this session"})
	case errors.Is(err, service.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConstraintViolation):
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "constraint violation"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

// Create books a reservation for the caller. POST /v1/reservations
func (h *ReservationHandler) Create(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SessionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "exam_session_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Svc.Create(ctx, p, req.SessionID, req.NumParticipants)
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusCreated, toReservationResp(rec))
}

// Get returns one reservation. GET /v1/reservations/:id
func (h *ReservationHandler) Get(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Svc.Get(ctx, p, id)
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(rec))
}

// List returns reservations page by page. Non-privileged callers only ever
// see their own rows; admins may filter by user_id. GET /v1/reservations
func (h *ReservationHandler) List(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	var filterUserID *uint64
	if raw := c.QueryParam("user_id"); raw != "" {
		uid, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || uid == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user_id"})
		}
		filterUserID = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Svc.List(ctx, p, filterUserID, page, pageSize)
	if err != nil {
		return reservationError(c, err)
	}
	if items == nil {
		items = []repository.ReservationDetail{}
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = len(items)
	}
	return c.JSON(http.StatusOK, reservationListResp{Items: items, Total: total, Page: page, PageSize: pageSize})
}

// Update patches participant count and, for admins, the confirmed flag.
// PUT /v1/reservations/:id
func (h *ReservationHandler) Update(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.NumParticipants == nil && req.IsConfirmed == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.Svc.Update(ctx, p, id, service.UpdatePatch{
		NumParticipants: req.NumParticipants,
		IsConfirmed:     req.IsConfirmed,
	})
	if err != nil {
		return reservationError(c, err)
	}
	return c.JSON(http.StatusOK, toReservationResp(rec))
}

// Delete cancels a reservation. DELETE /v1/reservations/:id
func (h *ReservationHandler) Delete(c echo.Context) error {
	p, ok := principal(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Svc.Delete(ctx, p, id); err != nil {
		return reservationError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AvailableTimes lists bookable sessions inside the reservation window with
// remaining slots. GET /v1/available-times
func (h *ReservationHandler) AvailableTimes(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	times, err := h.Svc.AvailableTimes(ctx)
	if err != nil {
		return reservationError(c, err)
	}
	if times == nil {
		times = []repository.AvailableTime{}
	}
	return c.JSON(http.StatusOK, echo.Map{"available_times": times})
}
