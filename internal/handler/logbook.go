package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/pouchlog/internal/domain"
	"github.com/sumire/pouchlog/internal/service"
)

// LogbookHandler handles consumption log and pouch catalog endpoints.
type LogbookHandler struct {
	logs    *service.LogbookService
	catalog *service.CatalogService
}

// NewLogbookHandler creates a new LogbookHandler.
func NewLogbookHandler(logs *service.LogbookService, catalog *service.CatalogService) *LogbookHandler {
	return &LogbookHandler{logs: logs, catalog: catalog}
}

// List returns the user's entries for a date range, defaulting to the last
// 30 days.
func (h *LogbookHandler) List(c echo.Context) error {
	userID, _ := GetUserID(c)

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -30)
	var err error
	if v := c.QueryParam("start"); v != "" {
		if start, err = time.Parse("2006-01-02", v); err != nil {
			return fmt.Errorf("%w: invalid start date %q", domain.ErrInvalidInput, v)
		}
	}
	if v := c.QueryParam("end"); v != "" {
		if end, err = time.Parse("2006-01-02", v); err != nil {
			return fmt.Errorf("%w: invalid end date %q", domain.ErrInvalidInput, v)
		}
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	entries, err := h.logs.List(c.Request().Context(), userID, start, end, limit, offset)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, entries)
}

// Create records a new entry.
func (h *LogbookHandler) Create(c echo.Context) error {
	userID, _ := GetUserID(c)

	var in service.LogInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	entry, err := h.logs.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/logs")
	}
	return JSON(c, http.StatusCreated, entry)
}

// Update rewrites an entry.
func (h *LogbookHandler) Update(c echo.Context) error {
	userID, _ := GetUserID(c)

	logID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid log id", domain.ErrInvalidInput)
	}

	var in service.LogInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	entry, err := h.logs.Update(c.Request().Context(), userID, logID, in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, entry)
}

// Delete removes an entry.
func (h *LogbookHandler) Delete(c echo.Context) error {
	userID, _ := GetUserID(c)

	logID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid log id", domain.ErrInvalidInput)
	}

	if err := h.logs.Delete(c.Request().Context(), userID, logID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ListPouches returns the catalog visible to the user.
func (h *LogbookHandler) ListPouches(c echo.Context) error {
	userID, _ := GetUserID(c)

	pouches, err := h.catalog.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, pouches)
}

// CreatePouch adds a custom pouch to the user's catalog.
func (h *LogbookHandler) CreatePouch(c echo.Context) error {
	userID, _ := GetUserID(c)

	var in service.CreatePouchInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	pouch, err := h.catalog.CreateCustom(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusCreated, pouch)
}
