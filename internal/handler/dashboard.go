package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/pouchlog/internal/service"
)

// DashboardHandler serves the chart and insight JSON consumed by the
// dashboard widgets.
type DashboardHandler struct {
	stats *service.StatsService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// DailyChart returns the per-day intake series.
func (h *DashboardHandler) DailyChart(c echo.Context) error {
	userID, _ := GetUserID(c)
	days, _ := strconv.Atoi(c.QueryParam("days"))

	points, err := h.stats.DailyIntake(c.Request().Context(), userID, days)
	if err != nil {
		return err
	}
	return ChartJSON(c, points)
}

// WeeklyChart returns per-week totals and averages.
func (h *DashboardHandler) WeeklyChart(c echo.Context) error {
	userID, _ := GetUserID(c)
	weeks, _ := strconv.Atoi(c.QueryParam("weeks"))

	points, err := h.stats.WeeklyAverages(c.Request().Context(), userID, weeks)
	if err != nil {
		return err
	}
	return ChartJSON(c, points)
}

// HourlyChart returns the 24-bucket time-of-day distribution.
func (h *DashboardHandler) HourlyChart(c echo.Context) error {
	userID, _ := GetUserID(c)
	days, _ := strconv.Atoi(c.QueryParam("days"))

	points, err := h.stats.HourlyDistribution(c.Request().Context(), userID, days)
	if err != nil {
		return err
	}
	return ChartJSON(c, points)
}

// Insights returns short trend statements for the insights widget.
func (h *DashboardHandler) Insights(c echo.Context) error {
	userID, _ := GetUserID(c)

	insights, err := h.stats.Insights(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ChartEnvelope{Success: true, Insights: insights})
}
