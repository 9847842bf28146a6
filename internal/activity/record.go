package activity

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format used across the API and CSV input.
const DateLayout = "2006-01-02"

// ActivityRecord is one user's activity for one calendar date.
// At most one record exists per (user, date) pair.
type ActivityRecord struct {
	ID            int       `json:"id"`
	UserID        int       `json:"user_id"`
	Date          time.Time `json:"date"`
	Steps         int       `json:"steps"`
	DistanceKM    float64   `json:"distance_km"`
	ActiveMinutes int       `json:"active_minutes"`
	CreatedAt     time.Time `json:"created_at"`
}

// MarshalJSON renders the date as a plain calendar date, without a time component.
func (r ActivityRecord) MarshalJSON() ([]byte, error) {
	type alias ActivityRecord
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{
		alias: alias(r),
		Date:  r.Date.Format(DateLayout),
	})
}

// UnmarshalJSON accepts the plain calendar date produced by MarshalJSON.
func (r *ActivityRecord) UnmarshalJSON(data []byte) error {
	type alias ActivityRecord
	aux := struct {
		*alias
		Date string `json:"date"`
	}{
		alias: (*alias)(r),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		r.Date = time.Time{}
		return nil
	}
	date, err := time.Parse(DateLayout, aux.Date)
	if err != nil {
		return err
	}
	r.Date = date
	return nil
}

// Day truncates a timestamp to its calendar date, in the local zone.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
