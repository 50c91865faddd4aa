package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/pouchlog/internal/domain"
	"github.com/sumire/pouchlog/internal/service"
)

// SettingsHandler handles notification preference endpoints.
type SettingsHandler struct {
	prefs         *service.PreferenceService
	notifications *service.NotificationService
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(prefs *service.PreferenceService, notifications *service.NotificationService) *SettingsHandler {
	return &SettingsHandler{prefs: prefs, notifications: notifications}
}

// GetPreferences returns the user's notification settings, creating the
// defaults on first access.
func (h *SettingsHandler) GetPreferences(c echo.Context) error {
	userID, _ := GetUserID(c)

	pref, err := h.prefs.GetOrCreate(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, pref)
}

// UpdatePreferences applies new notification settings.
func (h *SettingsHandler) UpdatePreferences(c echo.Context) error {
	userID, _ := GetUserID(c)

	var in service.UpdatePreferenceInput
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	pref, err := h.prefs.Update(c.Request().Context(), userID, in)
	if err != nil {
		return err
	}
	if wantsHTML(c) {
		return c.Redirect(http.StatusSeeOther, "/settings?saved=1")
	}
	return JSON(c, http.StatusOK, pref)
}

type webhookTestRequest struct {
	WebhookURL string `json:"webhook_url" form:"webhook_url" validate:"required,url"`
}

// TestWebhook sends a synchronous probe to a Discord webhook.
func (h *SettingsHandler) TestWebhook(c echo.Context) error {
	var in webhookTestRequest
	if err := c.Bind(&in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := c.Validate(&in); err != nil {
		return err
	}

	ok, message := h.notifications.TestWebhook(c.Request().Context(), in.WebhookURL)
	return c.JSON(http.StatusOK, map[string]any{"success": ok, "message": message})
}

// History returns the user's recent notification records.
func (h *SettingsHandler) History(c echo.Context) error {
	userID, _ := GetUserID(c)
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	records, err := h.notifications.History(c.Request().Context(), userID, limit)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, records)
}
