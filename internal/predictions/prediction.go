package predictions

import "time"

// Type labels the kind of insight a prediction carries. The values double as
// the section labels expected in the text generation model output.
type Type string

const (
	TypeGoalPrediction Type = "GOAL_PREDICTION"
	TypeAnomaly        Type = "ANOMALY"
	TypeTrend          Type = "TREND"
	TypeInsight        Type = "INSIGHT"
)

// AllTypes is ordered; the response parser scans the labels in this order.
var AllTypes = []Type{TypeGoalPrediction, TypeAnomaly, TypeTrend, TypeInsight}

func (t Type) Valid() bool {
	switch t {
	case TypeGoalPrediction, TypeAnomaly, TypeTrend, TypeInsight:
		return true
	}
	return false
}

type Prediction struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	Date      time.Time `json:"date"`
	Type      Type      `json:"prediction_type"`
	Text      string    `json:"prediction_text"`
	CreatedAt time.Time `json:"created_at"`
}
