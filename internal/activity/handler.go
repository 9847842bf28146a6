package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/watchstats/internal/auth"
	"github.com/2beens/watchstats/internal/telemetry/metrics"
	"github.com/2beens/watchstats/internal/telemetry/tracing"
	"github.com/2beens/watchstats/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=activity_mocks_test.go -package=activity_test

type activityRepo interface {
	Replace(ctx context.Context, userID int, records []ActivityRecord) (inserted, failed int, err error)
	List(ctx context.Context, userID int, params ListPageParams) (_ []ActivityRecord, total int, err error)
	ListAll(ctx context.Context, userID int) ([]ActivityRecord, error)
	GetByDate(ctx context.Context, userID int, date time.Time) (*ActivityRecord, error)
}

type UploadRequest struct {
	CSVFile string `json:"csv_file"`
}

type UploadStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type UploadResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Stats   UploadStats `json:"stats"`
	UserID  int         `json:"user_id"`
}

type Handler struct {
	repo     activityRepo
	analyzer *Analyzer
	metrics  *metrics.Manager
}

func NewHandler(repo activityRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		analyzer: NewAnalyzer(repo),
		metrics:  metricsManager,
	}
}

// HandleUpload replaces the user's activity history with the uploaded
// base64 CSV document. Individually broken rows are counted as failed but do
// not stop the rest of the upload.
func (handler *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.upload")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("upload activity data, unmarshal json params: %s", err)
		writeAPIError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CSVFile == "" {
		writeAPIError(w, "The csv_file field is required", http.StatusUnprocessableEntity)
		return
	}

	handler.metrics.CounterUploads.Inc()

	records, skipped, err := ParseCSV(req.CSVFile)
	if err != nil {
		var missingColsErr *MissingColumnsError
		switch {
		case errors.Is(err, ErrBadBase64):
			writeAPIError(w, "Invalid base64 encoded CSV data", http.StatusUnprocessableEntity)
		case errors.As(err, &missingColsErr):
			writeAPIError(w, missingColsErr.Error(), http.StatusUnprocessableEntity)
		default:
			log.Errorf("upload activity data, parse CSV: %s", err)
			writeAPIError(w, "Failed to process activity data", http.StatusInternalServerError)
		}
		return
	}

	inserted, failed, err := handler.repo.Replace(ctx, userID, records)
	if err != nil {
		log.Errorf("upload activity data for user %d: %s", userID, err)
		writeAPIError(w, fmt.Sprintf("Failed to process activity data: %s", err), http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterUploadedRecords.Add(float64(inserted))
	handler.metrics.CounterSkippedUploadRows.Add(float64(skipped + failed))

	log.Debugf("user %d uploaded activity data: %d inserted, %d skipped, %d failed", userID, inserted, skipped, failed)

	writeJSON(w, UploadResponse{
		Success: true,
		Message: "Activity data processed successfully",
		Stats: UploadStats{
			Processed: inserted,
			Failed:    skipped + failed,
		},
		UserID: userID,
	}, http.StatusOK)
}

type ListRecordsResponse struct {
	Success bool             `json:"success"`
	Data    []ActivityRecord `json:"data"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

// HandleList returns one page of the user's raw records, oldest first,
// optionally narrowed by a date range and a metric value range.
func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page := intQueryParam(r, "page")
	if page < 1 {
		page = 1
	}
	size := intQueryParam(r, "per_page")
	if size < 1 {
		size = 20
	}

	params := ListPageParams{Page: page, Size: size}

	query := r.URL.Query()
	if startDate := query.Get("start_date"); startDate != "" {
		from, err := time.Parse(DateLayout, startDate)
		if err != nil {
			writeAPIError(w, "start_date must be in YYYY-MM-DD format", http.StatusUnprocessableEntity)
			return
		}
		params.From = &from
	}
	if endDate := query.Get("end_date"); endDate != "" {
		to, err := time.Parse(DateLayout, endDate)
		if err != nil {
			writeAPIError(w, "end_date must be in YYYY-MM-DD format", http.StatusUnprocessableEntity)
			return
		}
		params.To = &to
	}

	// unknown metric names just mean no metric filtering
	if metric := query.Get("metric"); MetricFilterValid(metric) {
		params.Metric = metric
		if minVal, err := strconv.ParseFloat(query.Get("min_value"), 64); err == nil {
			params.MinValue = &minVal
		}
		if maxVal, err := strconv.ParseFloat(query.Get("max_value"), 64); err == nil {
			params.MaxValue = &maxVal
		}
	}

	records, total, err := handler.repo.List(ctx, userID, params)
	if err != nil {
		log.Errorf("list activity records for user %d: %s", userID, err)
		writeAPIError(w, "failed to get activity records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, ListRecordsResponse{
		Success: true,
		Data:    records,
		Total:   total,
		Page:    page,
		PerPage: size,
	}, http.StatusOK)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.summary")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := handler.analyzer.Summary(ctx, userID)
	if err != nil {
		log.Errorf("get activity summary for user %d: %s", userID, err)
		writeAPIError(w, "failed to get activity summary", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Success bool `json:"success"`
		*Summary
	}{
		Success: true,
		Summary: summary,
	}, http.StatusOK)
}

func (handler *Handler) HandleDailyTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.dailytrends")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	days := intQueryParam(r, "days")
	trends, err := handler.analyzer.DailyTrends(ctx, userID, days)
	if err != nil {
		log.Errorf("get daily trends for user %d: %s", userID, err)
		writeAPIError(w, "failed to get daily trends", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Success bool `json:"success"`
		*DailyTrends
	}{
		Success:     true,
		DailyTrends: trends,
	}, http.StatusOK)
}

func (handler *Handler) HandleWeeklyTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.weeklytrends")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	weeks := intQueryParam(r, "weeks")
	trends, err := handler.analyzer.WeeklyTrends(ctx, userID, weeks)
	if err != nil {
		log.Errorf("get weekly trends for user %d: %s", userID, err)
		writeAPIError(w, "failed to get weekly trends", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Success bool `json:"success"`
		*WeeklyTrends
	}{
		Success:      true,
		WeeklyTrends: trends,
	}, http.StatusOK)
}

func (handler *Handler) HandleGetByDate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.getbydate")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeAPIError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	date, err := time.Parse(DateLayout, mux.Vars(r)["date"])
	if err != nil {
		writeAPIError(w, "Date must be in YYYY-MM-DD format", http.StatusUnprocessableEntity)
		return
	}

	record, err := handler.repo.GetByDate(ctx, userID, date)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			writeAPIError(w, "No activity found for this date", http.StatusNotFound)
			return
		}
		log.Errorf("get activity for user %d on %s: %s", userID, date.Format(DateLayout), err)
		writeAPIError(w, "failed to get activity record", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Success bool            `json:"success"`
		Data    *ActivityRecord `json:"data"`
	}{
		Success: true,
		Data:    record,
	}, http.StatusOK)
}

func intQueryParam(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return val
}

func writeJSON(w http.ResponseWriter, payload interface{}, statusCode int) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

func writeAPIError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{
		Success: false,
		Message: message,
	}, statusCode)
}
