package predictions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/watchstats/internal/auth"
	"github.com/2beens/watchstats/internal/telemetry/tracing"
	"github.com/2beens/watchstats/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=predictions_mocks_test.go -package=predictions_test

type predictionsRepo interface {
	Add(ctx context.Context, prediction Prediction) (*Prediction, error)
	DeleteAllForUser(ctx context.Context, userID int) (int, error)
	List(ctx context.Context, userID int, typeFilter Type) ([]Prediction, error)
	CountForUser(ctx context.Context, userID int) (int, error)
}

type predictionsGenerator interface {
	Generate(ctx context.Context, userID int) ([]Prediction, error)
}

type GenerateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type ListResponse struct {
	Success bool         `json:"success"`
	Data    []Prediction `json:"data"`
}

type Handler struct {
	repo      predictionsRepo
	generator predictionsGenerator
}

func NewHandler(repo predictionsRepo, generator predictionsGenerator) *Handler {
	return &Handler{
		repo:      repo,
		generator: generator,
	}
}

// HandleGenerate regenerates the user's predictions from their current
// activity data.
func (handler *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.predictions.generate")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	stored, err := handler.generator.Generate(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			writeError(
				w,
				"Not enough data to generate predictions. Please upload at least 7 days of activity data.",
				http.StatusBadRequest,
			)
			return
		}
		log.Errorf("generate predictions for user %d: %s", userID, err)
		writeError(w, "Failed to generate predictions", http.StatusInternalServerError)
		return
	}

	// report the stored count rather than the generated one
	count, err := handler.repo.CountForUser(ctx, userID)
	if err != nil {
		log.Errorf("count predictions for user %d: %s", userID, err)
		count = len(stored)
	}

	writeResponse(w, GenerateResponse{
		Success: true,
		Message: "Predictions generated successfully",
		Count:   count,
	}, http.StatusOK)
}

// HandleList returns the user's stored predictions, optionally filtered by
// the `type` query parameter. Unknown type values are ignored.
func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.predictions.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		writeError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	typeFilter := Type(r.URL.Query().Get("type"))
	predictions, err := handler.repo.List(ctx, userID, typeFilter)
	if err != nil {
		log.Errorf("list predictions for user %d: %s", userID, err)
		writeError(w, "failed to get predictions", http.StatusInternalServerError)
		return
	}

	writeResponse(w, ListResponse{
		Success: true,
		Data:    predictions,
	}, http.StatusOK)
}

func writeResponse(w http.ResponseWriter, payload interface{}, statusCode int) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeResponse(w, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{
		Success: false,
		Message: message,
	}, statusCode)
}
