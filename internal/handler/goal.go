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

// GoalHandler handles consumption goal endpoints.
type GoalHandler struct {
	goals *service.GoalService
}

// NewGoalHandler creates a new GoalHandler.
func NewGoalHandler(goals *service.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// List returns all of the user's goals.
func (h *GoalHandler) List(c echo.Context) error {
	userID, _ := GetUserID(c)

	goals, err := h.goals.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, goals)
}

// Create starts a new goal.
func (h *GoalHandler) Create(c echo.Context) error {
	userID, _ := GetUserID(c)

	var in service.GoalInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	goal, err := h.goals.Create(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/goals")
	}
	return JSON(c, http.StatusCreated, goal)
}

// Update rewrites a goal's settings.
func (h *GoalHandler) Update(c echo.Context) error {
	userID, _ := GetUserID(c)

	goalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid goal id", domain.ErrInvalidInput)
	}

	var in struct {
		service.GoalInput
		IsActive bool `json:"is_active" form:"is_active"`
	}
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in.GoalInput); err != nil {
		return err
	}

	goal, err := h.goals.Update(c.Request().Context(), userID, goalID, in.GoalInput, in.IsActive)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, goal)
}

// Deactivate retires a goal.
func (h *GoalHandler) Deactivate(c echo.Context) error {
	userID, _ := GetUserID(c)

	goalID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid goal id", domain.ErrInvalidInput)
	}

	goal, err := h.goals.Deactivate(c.Request().Context(), userID, goalID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, goal)
}

// Progress returns today's standing for every active goal.
func (h *GoalHandler) Progress(c echo.Context) error {
	userID, _ := GetUserID(c)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	progress, err := h.goals.ProgressForUser(c.Request().Context(), userID, today)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, progress)
}
