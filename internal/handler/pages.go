package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/pouchlog/internal/service"
)

// PageHandler serves the server-rendered HTML screens. The data-heavy
// widgets on each page fetch their JSON from the API routes.
type PageHandler struct {
	auth          *service.AuthService
	logs          *service.LogbookService
	catalog       *service.CatalogService
	goals         *service.GoalService
	prefs         *service.PreferenceService
	notifications *service.NotificationService
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(auth *service.AuthService, logs *service.LogbookService, catalog *service.CatalogService,
	goals *service.GoalService, prefs *service.PreferenceService, notifications *service.NotificationService) *PageHandler {
	return &PageHandler{
		auth:          auth,
		logs:          logs,
		catalog:       catalog,
		goals:         goals,
		prefs:         prefs,
		notifications: notifications,
	}
}

// LoginPage renders the login form.
func (h *PageHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", map[string]any{
		"Error": c.QueryParam("error"),
	})
}

// RegisterPage renders the registration form.
func (h *PageHandler) RegisterPage(c echo.Context) error {
	return c.Render(http.StatusOK, "register.html", nil)
}

// Dashboard renders the main screen with today's totals, goal progress and
// the chart containers.
func (h *PageHandler) Dashboard(c echo.Context) error {
	userID, _ := GetUserID(c)
	ctx := c.Request().Context()

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	today := time.Now().In(user.Location())
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	progress, err := h.goals.ProgressForUser(ctx, userID, day)
	if err != nil {
		return err
	}

	pouches, err := h.catalog.List(ctx, userID)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "dashboard.html", map[string]any{
		"User":     user,
		"Progress": progress,
		"Pouches":  pouches,
		"Today":    day.Format("2006-01-02"),
	})
}

// LogsPage renders the log history with the entry form.
func (h *PageHandler) LogsPage(c echo.Context) error {
	userID, _ := GetUserID(c)
	ctx := c.Request().Context()

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -30)
	entries, err := h.logs.List(ctx, userID, start, end, 50, 0)
	if err != nil {
		return err
	}

	pouches, err := h.catalog.List(ctx, userID)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "logs.html", map[string]any{
		"User":    user,
		"Entries": entries,
		"Pouches": pouches,
		"Today":   end.Format("2006-01-02"),
	})
}

// GoalsPage renders goals with live progress.
func (h *PageHandler) GoalsPage(c echo.Context) error {
	userID, _ := GetUserID(c)
	ctx := c.Request().Context()

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	goals, err := h.goals.List(ctx, userID)
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	progress, err := h.goals.ProgressForUser(ctx, userID, today)
	if err != nil {
		return err
	}

	byGoal := make(map[int64]float64, len(progress))
	for _, p := range progress {
		byGoal[p.GoalID] = p.Percentage
	}

	return c.Render(http.StatusOK, "goals.html", map[string]any{
		"User":     user,
		"Goals":    goals,
		"Progress": byGoal,
	})
}

// SettingsPage renders profile and notification settings.
func (h *PageHandler) SettingsPage(c echo.Context) error {
	userID, _ := GetUserID(c)
	ctx := c.Request().Context()

	user, err := h.auth.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	pref, err := h.prefs.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	history, err := h.notifications.History(ctx, userID, 20)
	if err != nil {
		return err
	}

	return c.Render(http.StatusOK, "settings.html", map[string]any{
		"User":     user,
		"Pref":     pref,
		"History":  history,
		"Saved":    c.QueryParam("saved") == "1",
		"Verified": c.QueryParam("verified") == "1",
	})
}
