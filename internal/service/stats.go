package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sumire/pouchlog/internal/cache"
	"github.com/sumire/pouchlog/internal/domain"
)

// DailyPoint is one day in the intake chart.
type DailyPoint struct {
	Date    string  `json:"date"`
	Pouches int     `json:"pouches"`
	Mg      float64 `json:"mg"`
}

// WeeklyPoint is one week in the averages chart.
type WeeklyPoint struct {
	WeekStart    string  `json:"week_start"`
	WeekEnd      string  `json:"week_end"`
	AvgPouches   float64 `json:"avg_pouches"`
	AvgMg        float64 `json:"avg_mg"`
	TotalPouches int     `json:"total_pouches"`
	TotalMg      float64 `json:"total_mg"`
}

// HourlyPoint is one hour bucket in the distribution chart.
type HourlyPoint struct {
	Hour    string `json:"hour"`
	Pouches int    `json:"pouches"`
}

// WeeklySummary feeds the weekly report notification.
type WeeklySummary struct {
	WeekStart    time.Time
	WeekEnd      time.Time
	TotalPouches int
	TotalMg      float64
	DailyAvg     float64
	Goals        []domain.GoalProgress
}

// StatsService computes chart series and insight strings over the log data.
// Chart payloads are cached in Redis when available; cache errors degrade to
// plain queries.
type StatsService struct {
	logs   LogStore
	goals  *GoalService
	charts *cache.Cache
	now    func() time.Time
}

// NewStatsService creates a new StatsService.
func NewStatsService(logs LogStore, goals *GoalService, charts *cache.Cache) *StatsService {
	return &StatsService{logs: logs, goals: goals, charts: charts, now: time.Now}
}

// DailyIntake returns a gap-filled per-day series for the trailing window.
func (s *StatsService) DailyIntake(ctx context.Context, userID int64, days int) ([]DailyPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	cacheKey := fmt.Sprintf("daily:%d", days)
	var cached []DailyPoint
	if s.charts.Get(ctx, userID, cacheKey, &cached) {
		return cached, nil
	}

	end := dateOnly(s.now())
	start := end.AddDate(0, 0, -(days - 1))

	totals, err := s.logs.DailySeries(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]domain.DailyTotal, len(totals))
	for _, t := range totals {
		byDate[t.Date.Format("2006-01-02")] = t
	}

	points := make([]DailyPoint, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		t := byDate[key]
		points = append(points, DailyPoint{Date: key, Pouches: t.Pouches, Mg: t.Mg})
	}

	s.charts.Set(ctx, userID, cacheKey, points)
	return points, nil
}

// WeeklyAverages returns per-week totals and daily averages for the trailing
// window.
func (s *StatsService) WeeklyAverages(ctx context.Context, userID int64, weeks int) ([]WeeklyPoint, error) {
	if weeks <= 0 || weeks > 52 {
		weeks = 8
	}

	cacheKey := fmt.Sprintf("weekly:%d", weeks)
	var cached []WeeklyPoint
	if s.charts.Get(ctx, userID, cacheKey, &cached) {
		return cached, nil
	}

	end := dateOnly(s.now())
	cursor := end.AddDate(0, 0, -7*weeks)

	var points []WeeklyPoint
	for !cursor.After(end) {
		weekEnd := cursor.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}

		pouches, mg, err := s.logs.TotalsBetween(ctx, userID, cursor, weekEnd)
		if err != nil {
			return nil, err
		}

		daysInWeek := int(weekEnd.Sub(cursor).Hours()/24) + 1
		points = append(points, WeeklyPoint{
			WeekStart:    cursor.Format("2006-01-02"),
			WeekEnd:      weekEnd.Format("2006-01-02"),
			AvgPouches:   round1(float64(pouches) / float64(daysInWeek)),
			AvgMg:        round1(mg / float64(daysInWeek)),
			TotalPouches: pouches,
			TotalMg:      mg,
		})

		cursor = weekEnd.AddDate(0, 0, 1)
	}

	s.charts.Set(ctx, userID, cacheKey, points)
	return points, nil
}

// HourlyDistribution returns all 24 hour buckets, zero-filled.
func (s *StatsService) HourlyDistribution(ctx context.Context, userID int64, days int) ([]HourlyPoint, error) {
	if days <= 0 || days > 365 {
		days = 30
	}

	cacheKey := fmt.Sprintf("hourly:%d", days)
	var cached []HourlyPoint
	if s.charts.Get(ctx, userID, cacheKey, &cached) {
		return cached, nil
	}

	end := dateOnly(s.now())
	start := end.AddDate(0, 0, -(days - 1))

	totals, err := s.logs.HourlyDistribution(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	var buckets [24]int
	for _, t := range totals {
		if t.Hour >= 0 && t.Hour < 24 {
			buckets[t.Hour] = t.Pouches
		}
	}

	points := make([]HourlyPoint, 24)
	for h := range points {
		points[h] = HourlyPoint{Hour: fmt.Sprintf("%02d:00", h), Pouches: buckets[h]}
	}

	s.charts.Set(ctx, userID, cacheKey, points)
	return points, nil
}

// Insights produces short trend statements for the insights widget.
func (s *StatsService) Insights(ctx context.Context, userID int64) ([]string, error) {
	today := dateOnly(s.now())
	weekday := (int(today.Weekday()) + 6) % 7 // Monday = 0
	thisWeekStart := today.AddDate(0, 0, -weekday)
	lastWeekStart := thisWeekStart.AddDate(0, 0, -7)
	lastWeekEnd := thisWeekStart.AddDate(0, 0, -1)

	thisWeek, _, err := s.logs.TotalsBetween(ctx, userID, thisWeekStart, today)
	if err != nil {
		return nil, err
	}
	lastWeek, _, err := s.logs.TotalsBetween(ctx, userID, lastWeekStart, lastWeekEnd)
	if err != nil {
		return nil, err
	}

	var insights []string

	if lastWeek > 0 {
		change := round1(float64(thisWeek-lastWeek) / float64(lastWeek) * 100)
		switch {
		case change > 0:
			insights = append(insights, fmt.Sprintf("Your intake is up %.1f%% vs. last week", change))
		case change < 0:
			insights = append(insights, fmt.Sprintf("Your intake is down %.1f%% vs. last week", -change))
		default:
			insights = append(insights, "Your intake is consistent with last week")
		}
	}

	daysThisWeek := weekday + 1
	insights = append(insights, fmt.Sprintf("Your daily average this week: %.1f pouches", round1(float64(thisWeek)/float64(daysThisWeek))))

	hourly, err := s.logs.HourlyDistribution(ctx, userID, today.AddDate(0, 0, -30), today)
	if err != nil {
		return nil, err
	}
	if len(hourly) > 0 {
		top := hourly[0]
		for _, h := range hourly[1:] {
			if h.Pouches > top.Pouches {
				top = h
			}
		}
		if top.Pouches > 0 {
			insights = append(insights, fmt.Sprintf("Your most active hour: %02d:00", top.Hour))
		}
	}

	return insights, nil
}

// WeekInReview summarizes the current week for the weekly report email.
func (s *StatsService) WeekInReview(ctx context.Context, userID int64, today time.Time) (*WeeklySummary, error) {
	today = dateOnly(today)
	weekday := (int(today.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -weekday)

	pouches, mg, err := s.logs.TotalsBetween(ctx, userID, weekStart, today)
	if err != nil {
		return nil, err
	}

	goals, err := s.goals.ProgressForUser(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	return &WeeklySummary{
		WeekStart:    weekStart,
		WeekEnd:      today,
		TotalPouches: pouches,
		TotalMg:      mg,
		DailyAvg:     round1(float64(pouches) / 7),
		Goals:        goals,
	}, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
