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
)

// AdminSessionHandler manages the exam session catalog. Routes are mounted
// behind the ADMIN role guard, so handlers do not re-check the caller.
type AdminSessionHandler struct {
	Sessions *repository.SessionRepo
}

func NewAdminSessionHandler(s *repository.SessionRepo) *AdminSessionHandler {
	return &AdminSessionHandler{Sessions: s}
}

type sessionReq struct {
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxCapacity uint32    `json:"max_capacity"`
}

type sessionResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxCapacity uint32    `json:"max_capacity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSessionResp(s *model.ExamSession) sessionResp {
	return sessionResp{
		ID:          s.ID,
		Title:       s.Title,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		MaxCapacity: s.MaxCapacity,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (req sessionReq) validate() string {
	if req.Title == "" {
		return "title required"
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return "start_time/end_time required"
	}
	if !req.EndTime.After(req.StartTime) {
		return "end_time must be after start_time"
	}
	if req.MaxCapacity == 0 {
		return "max_capacity must be positive"
	}
	return ""
}

// Create adds a session. POST /v1/admin/sessions
func (h *AdminSessionHandler) Create(c echo.Context) error {
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := &model.ExamSession{
		Title:       req.Title,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		MaxCapacity: req.MaxCapacity,
	}
	if err := h.Sessions.Create(ctx, s); err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, toSessionResp(s))
}

// Get returns one session. GET /v1/admin/sessions/:id
func (h *AdminSessionHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "exam session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(s))
}

// Update replaces a session's fields. PUT /v1/admin/sessions/:id
func (h *AdminSessionHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req sessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s := &model.ExamSession{
		ID:          id,
		Title:       req.Title,
		StartTime:   req.StartTime.UTC(),
		EndTime:     req.EndTime.UTC(),
		MaxCapacity: req.MaxCapacity,
	}
	if err := h.Sessions.Update(ctx, s); err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "exam session not found"})
		case errors.Is(err, repository.ErrConstraintViolation):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update session failed"})
		}
	}
	return c.JSON(http.StatusOK, toSessionResp(s))
}

// Delete removes a session and, through the FK cascade, its reservations.
// DELETE /v1/admin/sessions/:id
func (h *AdminSessionHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Sessions.Delete(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete session failed"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "exam session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}
