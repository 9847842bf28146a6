package activity

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/2beens/watchstats/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DailyTrendsDefaultDays is used when no window is requested.
	DailyTrendsDefaultDays = 30
	// DailyTrendsMaxDays caps the daily trends window.
	DailyTrendsMaxDays = 90
	// WeeklyTrendsDefaultWeeks is used when no window is requested.
	WeeklyTrendsDefaultWeeks = 4
	// WeeklyTrendsMaxWeeks caps the weekly trends window.
	WeeklyTrendsMaxWeeks = 52
)

// MetricAverages holds one average per tracked metric.
type MetricAverages struct {
	Steps         int     `json:"steps"`
	Distance      float64 `json:"distance"`
	ActiveMinutes int     `json:"active_minutes"`
}

type AllTimeStats struct {
	MaxSteps         int     `json:"max_steps"`
	AvgSteps         int     `json:"avg_steps"`
	MaxActiveMinutes int     `json:"max_active_minutes"`
	AvgActiveMinutes int     `json:"avg_active_minutes"`
	MaxDistance      float64 `json:"max_distance"`
	AvgDistance      float64 `json:"avg_distance"`
	TotalDaysTracked int     `json:"total_days_tracked"`
}

type Summary struct {
	Today         *ActivityRecord `json:"today"`
	Yesterday     *ActivityRecord `json:"yesterday"`
	WeeklyAverage MetricAverages  `json:"weekly_average"`
	AllTime       AllTimeStats    `json:"all_time"`
	CurrentStreak int             `json:"current_streak"`
}

type DailyTrendPoint struct {
	Date          string  `json:"date"`
	Steps         int     `json:"steps"`
	Distance      float64 `json:"distance"`
	ActiveMinutes int     `json:"activeMinutes"`
}

// DailyTrendAverages uses camelCase keys, matching the chart clients.
type DailyTrendAverages struct {
	Steps         int     `json:"steps"`
	Distance      float64 `json:"distance"`
	ActiveMinutes int     `json:"activeMinutes"`
}

type DailyTrends struct {
	Data          []DailyTrendPoint  `json:"data"`
	Count         int                `json:"count"`
	RequestedDays int                `json:"requested_days"`
	Averages      DailyTrendAverages `json:"averages"`
}

type WeeklyTrendBucket struct {
	WeekStart          string  `json:"weekStart"`
	WeekEnd            string  `json:"weekEnd"`
	WeekLabel          string  `json:"weekLabel"`
	TotalSteps         int     `json:"totalSteps"`
	TotalDistance      float64 `json:"totalDistance"`
	TotalActiveMinutes int     `json:"totalActiveMinutes"`
	AvgSteps           int     `json:"avgSteps"`
	AvgDistance        float64 `json:"avgDistance"`
	AvgActiveMinutes   int     `json:"avgActiveMinutes"`
	DaysTracked        int     `json:"daysTracked"`
}

type WeeklyTrends struct {
	Data           []WeeklyTrendBucket `json:"data"`
	Count          int                 `json:"count"`
	RequestedWeeks int                 `json:"requested_weeks"`
}

// Analyzer derives summaries and trend windows from the raw activity records.
type Analyzer struct {
	repo activityRepo

	// NowFunc is here to allow tests to pin the current day.
	NowFunc func() time.Time
}

func NewAnalyzer(repo activityRepo) *Analyzer {
	return &Analyzer{
		repo:    repo,
		NowFunc: time.Now,
	}
}

// Summary returns today's and yesterday's records, the average over the last
// seven days (today excluded), all-time stats, and the current streak of
// consecutive tracked days ending today.
func (a *Analyzer) Summary(ctx context.Context, userID int) (_ *Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activity.summary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	records, err := a.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	// compare formatted calendar dates throughout: record timestamps come
	// back from the db in UTC while now runs in the server zone, so instant
	// comparison would shift the day boundaries by the UTC offset
	now := a.NowFunc()
	todayKey := now.Format(DateLayout)
	yesterdayKey := now.AddDate(0, 0, -1).Format(DateLayout)
	weekAgoKey := now.AddDate(0, 0, -7).Format(DateLayout)

	summary := &Summary{}
	trackedDates := make(map[string]bool, len(records))
	var weekRecords []ActivityRecord
	for i := range records {
		rec := records[i]
		dayKey := rec.Date.Format(DateLayout)
		trackedDates[dayKey] = true

		switch dayKey {
		case todayKey:
			summary.Today = &records[i]
		case yesterdayKey:
			summary.Yesterday = &records[i]
		}

		if dayKey >= weekAgoKey && dayKey < todayKey {
			weekRecords = append(weekRecords, rec)
		}
	}

	if len(weekRecords) > 0 {
		var steps, minutes int
		var distance float64
		for _, rec := range weekRecords {
			steps += rec.Steps
			minutes += rec.ActiveMinutes
			distance += rec.DistanceKM
		}
		days := float64(len(weekRecords))
		summary.WeeklyAverage = MetricAverages{
			Steps:         roundToInt(float64(steps) / days),
			Distance:      round2(distance / days),
			ActiveMinutes: roundToInt(float64(minutes) / days),
		}
	}

	summary.AllTime = allTimeStats(records)

	for day := now; trackedDates[day.Format(DateLayout)]; day = day.AddDate(0, 0, -1) {
		summary.CurrentStreak++
	}

	return summary, nil
}

func allTimeStats(records []ActivityRecord) AllTimeStats {
	if len(records) == 0 {
		return AllTimeStats{}
	}

	var stats AllTimeStats
	var sumSteps, sumMinutes int
	var sumDistance float64
	for _, rec := range records {
		if rec.Steps > stats.MaxSteps {
			stats.MaxSteps = rec.Steps
		}
		if rec.ActiveMinutes > stats.MaxActiveMinutes {
			stats.MaxActiveMinutes = rec.ActiveMinutes
		}
		if rec.DistanceKM > stats.MaxDistance {
			stats.MaxDistance = rec.DistanceKM
		}
		sumSteps += rec.Steps
		sumMinutes += rec.ActiveMinutes
		sumDistance += rec.DistanceKM
	}

	total := float64(len(records))
	stats.AvgSteps = roundToInt(float64(sumSteps) / total)
	stats.AvgActiveMinutes = roundToInt(float64(sumMinutes) / total)
	stats.MaxDistance = round2(stats.MaxDistance)
	stats.AvgDistance = round2(sumDistance / total)
	stats.TotalDaysTracked = len(records)
	return stats
}

// DailyTrends returns the most recent `days` records in ascending date order,
// together with averages over that window. A non-positive days value (missing
// or explicit zero param) falls back to the default window.
func (a *Analyzer) DailyTrends(ctx context.Context, userID, days int) (_ *DailyTrends, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activity.dailytrends")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	if days <= 0 {
		days = DailyTrendsDefaultDays
	}
	if days > DailyTrendsMaxDays {
		days = DailyTrendsMaxDays
	}
	span.SetAttributes(attribute.Int("days", days))

	records, err := a.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) > days {
		records = records[:days]
	}

	trends := &DailyTrends{
		Data:          make([]DailyTrendPoint, 0, len(records)),
		RequestedDays: days,
	}

	var sumSteps, sumMinutes int
	var sumDistance float64
	// records come newest first, the chart wants them oldest first
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		trends.Data = append(trends.Data, DailyTrendPoint{
			Date:          rec.Date.Format(DateLayout),
			Steps:         rec.Steps,
			Distance:      rec.DistanceKM,
			ActiveMinutes: rec.ActiveMinutes,
		})
		sumSteps += rec.Steps
		sumMinutes += rec.ActiveMinutes
		sumDistance += rec.DistanceKM
	}

	trends.Count = len(trends.Data)
	if trends.Count > 0 {
		total := float64(trends.Count)
		trends.Averages = DailyTrendAverages{
			Steps:         roundToInt(float64(sumSteps) / total),
			Distance:      round2(sumDistance / total),
			ActiveMinutes: roundToInt(float64(sumMinutes) / total),
		}
	}

	return trends, nil
}

// WeeklyTrends aggregates records into weekly buckets (weeks start on
// Monday), at most `weeks` of them; a non-positive weeks value falls back to
// the default window. Buckets are claimed in date descending
// order and once the cap is reached records of other weeks are dropped, even
// if their week is more recent than an already claimed one. The result is
// sorted ascending by week start.
func (a *Analyzer) WeeklyTrends(ctx context.Context, userID, weeks int) (_ *WeeklyTrends, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.activity.weeklytrends")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	if weeks <= 0 {
		weeks = WeeklyTrendsDefaultWeeks
	}
	if weeks > WeeklyTrendsMaxWeeks {
		weeks = WeeklyTrendsMaxWeeks
	}
	span.SetAttributes(attribute.Int("weeks", weeks))

	records, err := a.repo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	type weekTotals struct {
		weekStart          time.Time
		weekEnd            time.Time
		totalSteps         int
		totalDistance      float64
		totalActiveMinutes int
		daysTracked        int
	}

	buckets := make(map[string]*weekTotals)
	for _, rec := range records {
		weekStart := startOfWeek(rec.Date)
		key := weekStart.Format(DateLayout)

		bucket, ok := buckets[key]
		if !ok {
			if len(buckets) >= weeks {
				continue
			}
			bucket = &weekTotals{
				weekStart: weekStart,
				weekEnd:   weekStart.AddDate(0, 0, 6),
			}
			buckets[key] = bucket
		}

		bucket.totalSteps += rec.Steps
		bucket.totalDistance += rec.DistanceKM
		bucket.totalActiveMinutes += rec.ActiveMinutes
		bucket.daysTracked++
	}

	trends := &WeeklyTrends{
		Data:           make([]WeeklyTrendBucket, 0, len(buckets)),
		RequestedWeeks: weeks,
	}
	for _, bucket := range buckets {
		daysTracked := bucket.daysTracked
		if daysTracked < 1 {
			daysTracked = 1
		}
		weekStart := bucket.weekStart.Format(DateLayout)
		weekEnd := bucket.weekEnd.Format(DateLayout)
		trends.Data = append(trends.Data, WeeklyTrendBucket{
			WeekStart:          weekStart,
			WeekEnd:            weekEnd,
			WeekLabel:          weekStart + " to " + weekEnd,
			TotalSteps:         bucket.totalSteps,
			TotalDistance:      round2(bucket.totalDistance),
			TotalActiveMinutes: bucket.totalActiveMinutes,
			AvgSteps:           roundToInt(float64(bucket.totalSteps) / float64(daysTracked)),
			AvgDistance:        round2(bucket.totalDistance / float64(daysTracked)),
			AvgActiveMinutes:   roundToInt(float64(bucket.totalActiveMinutes) / float64(daysTracked)),
			DaysTracked:        bucket.daysTracked,
		})
	}

	sort.Slice(trends.Data, func(i, j int) bool {
		return trends.Data[i].WeekStart < trends.Data[j].WeekStart
	})
	trends.Count = len(trends.Data)

	return trends, nil
}

// startOfWeek returns the Monday of the week the given date falls in.
func startOfWeek(t time.Time) time.Time {
	day := Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func roundToInt(f float64) int {
	return int(math.Round(f))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
