package notes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/moodwise/internal/apperror"
	"github.com/keyxmakerx/moodwise/internal/plugins/auth"
)

// Handler handles HTTP requests for note operations. Handlers are thin:
// bind request, call service, render response.
type Handler struct {
	service NoteService
}

// NewHandler creates a new note handler backed by the given service.
func NewHandler(service NoteService) *Handler {
	return &Handler{service: service}
}

// List returns the caller's notes (GET /api/notes?skip=&limit=).
func (h *Handler) List(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	skip, err := queryInt(c, "skip")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	notes, err := h.service.List(c.Request().Context(), userID, ListOptions{Skip: skip, Limit: limit})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

// Create adds a new note (POST /api/notes).
func (h *Handler) Create(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var req CreateNoteRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	note, err := h.service.Create(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

// Get returns a single note (GET /api/notes/:noteId).
func (h *Handler) Get(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	note, err := h.service.Get(c.Request().Context(), userID, c.Param("noteId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Update changes the provided fields of a note (PUT /api/notes/:noteId).
func (h *Handler) Update(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	var req UpdateNoteRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	note, err := h.service.Update(c.Request().Context(), userID, c.Param("noteId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, note)
}

// Delete removes a note (DELETE /api/notes/:noteId).
func (h *Handler) Delete(c echo.Context) error {
	userID := auth.GetUserID(c)
	if userID == "" {
		return apperror.NewMissingContext()
	}

	if err := h.service.Delete(c.Request().Context(), userID, c.Param("noteId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// queryInt parses an optional non-negative integer query parameter.
// Absent parameters read as zero.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.NewBadRequest(name + " must be a non-negative integer")
	}
	return n, nil
}
