package predictions

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/watchstats/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, prediction Prediction) (_ *Prediction, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.predictions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", prediction.UserID))
	span.SetAttributes(attribute.String("prediction.type", string(prediction.Type)))

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO activity_predictions
				(user_id, date, prediction_type, prediction_text, created_at)
				VALUES ($1, $2, $3, $4, $5)
			RETURNING id;`,
		prediction.UserID, prediction.Date, prediction.Type, prediction.Text, prediction.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	prediction.ID = id
	return &prediction, nil
}

// DeleteAllForUser removes all stored predictions of a user and returns how
// many were removed.
func (r *Repo) DeleteAllForUser(ctx context.Context, userID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.predictions.deleteallforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM activity_predictions WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// List returns the predictions of a user, newest first. When typeFilter is a
// known prediction type only predictions of that type are returned, any other
// value means no filtering.
func (r *Repo) List(ctx context.Context, userID int, typeFilter Type) (_ []Prediction, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.predictions.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("type.filter", string(typeFilter)))

	if !typeFilter.Valid() {
		typeFilter = ""
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, date, prediction_type, prediction_text, created_at
			FROM activity_predictions
			WHERE user_id = $1
				AND ($2::text = '' OR prediction_type = $2)
			ORDER BY date DESC, id ASC;`,
		userID, string(typeFilter),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return r.rows2predictions(rows)
}

func (r *Repo) CountForUser(ctx context.Context, userID int) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.predictions.countforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(ctx,
		`SELECT COUNT(*) FROM activity_predictions WHERE user_id = $1;`,
		userID,
	)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get predictions count")
}

func (r *Repo) rows2predictions(rows pgx.Rows) ([]Prediction, error) {
	var predictions []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Date, &p.Type, &p.Text, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		predictions = append(predictions, p)
	}

	if predictions == nil {
		predictions = make([]Prediction, 0)
	}

	return predictions, nil
}
