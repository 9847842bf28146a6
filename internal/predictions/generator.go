package predictions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/watchstats/internal/activity"
	"github.com/2beens/watchstats/internal/telemetry/metrics"
	"github.com/2beens/watchstats/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=generator_mocks_test.go -package=predictions_test

// ErrInsufficientData means the user has too few tracked days for
// predictions to make any sense.
var ErrInsufficientData = errors.New("not enough activity data to generate predictions")

const (
	// minRecordsForPredictions is the minimum number of tracked days.
	minRecordsForPredictions = 7
	// promptRecordsLimit caps how many records go into the model prompt.
	promptRecordsLimit = 30

	dailyStepGoal          = 10000
	dailyActiveMinutesGoal = 30
)

type activityLister interface {
	ListAll(ctx context.Context, userID int) ([]activity.ActivityRecord, error)
}

type textGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator produces and stores activity predictions for a user, asking the
// text generation model first and falling back to simple rule-based
// predictions when the model is unreachable or returns nothing usable.
type Generator struct {
	repo         predictionsRepo
	activityData activityLister
	textGen      textGenerator
	metrics      *metrics.Manager

	// NowFunc is here to allow tests to pin the prediction dates.
	NowFunc func() time.Time
}

func NewGenerator(
	repo predictionsRepo,
	activityData activityLister,
	textGen textGenerator,
	metricsManager *metrics.Manager,
) *Generator {
	return &Generator{
		repo:         repo,
		activityData: activityData,
		textGen:      textGen,
		metrics:      metricsManager,
		NowFunc:      time.Now,
	}
}

// Generate replaces all stored predictions of the user with freshly
// generated ones and returns them.
func (g *Generator) Generate(ctx context.Context, userID int) (_ []Prediction, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "predictions.generate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	records, err := g.activityData.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list activity records: %w", err)
	}
	if len(records) < minRecordsForPredictions {
		return nil, ErrInsufficientData
	}

	if _, err := g.repo.DeleteAllForUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete previous predictions: %w", err)
	}

	sections := g.modelSections(ctx, records)
	if len(sections) == 0 {
		log.Warnf("prediction model gave nothing usable for user %d, using rule-based fallback", userID)
		g.metrics.CounterTextGenFallbacks.Inc()
		sections = fallbackSections(records)
	}
	span.SetAttributes(attribute.Int("sections", len(sections)))

	now := g.NowFunc()
	var stored []Prediction
	for _, section := range sections {
		added, err := g.repo.Add(ctx, Prediction{
			UserID:    userID,
			Date:      now,
			Type:      section.Type,
			Text:      section.Text,
			CreatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("store %s prediction: %w", section.Type, err)
		}
		stored = append(stored, *added)
	}

	g.metrics.CounterPredictionsCreated.Add(float64(len(stored)))

	return stored, nil
}

// modelSections asks the text generation model and parses its output.
// Any upstream failure is logged and yields nil, the caller falls back.
func (g *Generator) modelSections(ctx context.Context, records []activity.ActivityRecord) []ParsedSection {
	responseText, err := g.textGen.GenerateText(ctx, buildPrompt(records))
	if err != nil {
		log.Errorf("text generation model error: %s", err)
		return nil
	}
	return ParseSections(responseText)
}

// buildPrompt renders the model prompt from the user's records, which are
// expected newest first. The most recent records are listed oldest first, at
// most promptRecordsLimit of them to keep the token count in check.
func buildPrompt(records []activity.ActivityRecord) string {
	avgSteps, avgMinutes := averages(records)

	var sb strings.Builder
	sb.WriteString("You are a health data analyst specializing in Apple Watch activity data. ")
	sb.WriteString("Analyze the following activity data and provide insights:\n\n")
	sb.WriteString("User activity data summary:\n")
	fmt.Fprintf(&sb, "- Number of days tracked: %d\n", len(records))
	fmt.Fprintf(&sb, "- Average daily steps: %d\n", round(avgSteps))
	fmt.Fprintf(&sb, "- Average active minutes: %d\n\n", round(avgMinutes))

	sb.WriteString("Please provide the following four types of predictions, clearly labeled with the type:\n")
	sb.WriteString("1. GOAL_PREDICTION: Assess if the user is likely to meet standard health goals (10,000 steps, 30 active minutes) based on their patterns\n")
	sb.WriteString("2. ANOMALY: Identify any days where activity deviates significantly from the user's normal pattern\n")
	sb.WriteString("3. TREND: Project future activity trends for the next 7 days\n")
	sb.WriteString("4. INSIGHT: Suggest 2-3 actionable insights to help the user optimize their health goals\n\n")

	recent := records
	if len(recent) > promptRecordsLimit {
		recent = recent[:promptRecordsLimit]
	}

	sb.WriteString("Recent activity data:\n")
	for i := len(recent) - 1; i >= 0; i-- {
		rec := recent[i]
		fmt.Fprintf(&sb, "%s (%s): %d steps, %d active minutes, %s km\n",
			rec.Date.Format(activity.DateLayout),
			rec.Date.Weekday(),
			rec.Steps,
			rec.ActiveMinutes,
			strconv.FormatFloat(rec.DistanceKM, 'f', -1, 64),
		)
	}

	sb.WriteString("\nFormat your response with prediction types as headers and predictions as bullet points.")

	return sb.String()
}

// fallbackSections produces the rule-based predictions: two goal checks, a
// trend comparing the last week against the all-time average, and a static
// routine insight.
func fallbackSections(records []activity.ActivityRecord) []ParsedSection {
	avgSteps, avgMinutes := averages(records)

	goalText := fmt.Sprintf("Based on your average of %d steps per day, ", round(avgSteps))
	if avgSteps >= dailyStepGoal {
		goalText += "you're consistently meeting the recommended 10,000 daily steps goal. Keep up the good work!"
	} else {
		goalText += fmt.Sprintf(
			"you need about %d more steps daily to reach the recommended 10,000 steps.",
			round(dailyStepGoal-avgSteps),
		)
	}

	minutesText := fmt.Sprintf("Your average active minutes is %d per day. ", round(avgMinutes))
	if avgMinutes >= dailyActiveMinutesGoal {
		minutesText += "You're meeting the recommended 30 minutes of daily activity. Excellent!"
	} else {
		minutesText += fmt.Sprintf(
			"Try to increase your active time by %d minutes to meet the recommended 30 minutes daily.",
			round(dailyActiveMinutesGoal-avgMinutes),
		)
	}

	recent := records
	if len(recent) > 7 {
		recent = recent[:7]
	}
	recentAvg, _ := averages(recent)

	trendText := "Based on your recent activity, "
	switch {
	case recentAvg > avgSteps*1.1:
		trendText += "you're trending upward in your step count. This is a positive direction!"
	case recentAvg < avgSteps*0.9:
		trendText += "your recent step count has decreased. Try to get back to your usual activity level."
	default:
		trendText += "your activity level has been consistent. Maintaining this consistency is great for your health."
	}

	return []ParsedSection{
		{Type: TypeGoalPrediction, Text: goalText},
		{Type: TypeGoalPrediction, Text: minutesText},
		{Type: TypeTrend, Text: trendText},
		{
			Type: TypeInsight,
			Text: "Consider setting a specific time each day for physical activity to help establish a consistent routine.",
		},
	}
}

func averages(records []activity.ActivityRecord) (avgSteps, avgMinutes float64) {
	if len(records) == 0 {
		return 0, 0
	}
	var steps, minutes int
	for _, rec := range records {
		steps += rec.Steps
		minutes += rec.ActiveMinutes
	}
	total := float64(len(records))
	return float64(steps) / total, float64(minutes) / total
}

func round(f float64) int {
	return int(math.Round(f))
}
