package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/watchstats/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrRecordNotFound = errors.New("activity record not found")

// insertBatchSize is how many records are sent per batch during a replace.
const insertBatchSize = 100

// metricColumns are the columns the list endpoint may filter by value range.
var metricColumns = map[string]bool{
	"steps":          true,
	"distance_km":    true,
	"active_minutes": true,
}

// MetricFilterValid tells whether the metric name can be used in ListParams.
func MetricFilterValid(metric string) bool {
	return metricColumns[metric]
}

type ListParams struct {
	From     *time.Time
	To       *time.Time
	Metric   string
	MinValue *float64
	MaxValue *float64
}

type ListPageParams struct {
	ListParams
	Page int
	Size int
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Replace atomically swaps the user's entire activity history for the given
// records. All existing rows of the user are deleted first, then records are
// inserted in batches; when a batch fails, its rows are retried one by one so
// a single bad row never sinks the rest. Everything runs in one transaction:
// either the new dataset lands, or the old one stays untouched.
func (r *Repo) Replace(ctx context.Context, userID int, records []ActivityRecord) (inserted int, failed int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.replace")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("records", len(records)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
				log.Errorf("replace activity data, rollback: %s", rollbackErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM activity_data WHERE user_id = $1`, userID); err != nil {
		return 0, 0, fmt.Errorf("delete previous records: %w", err)
	}

	for start := 0; start < len(records); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := r.insertBatch(ctx, tx, userID, chunk); err != nil {
			log.Warnf("activity batch insert failed, retrying rows one by one: %s", err)
			ok, nok := r.insertOneByOne(ctx, tx, userID, chunk)
			inserted += ok
			failed += nok
			continue
		}
		inserted += len(chunk)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit tx: %w", err)
	}

	span.SetAttributes(attribute.Int("inserted", inserted))
	span.SetAttributes(attribute.Int("failed", failed))

	return inserted, failed, nil
}

// insertBatch inserts a chunk of records inside a savepoint, so that a
// failure aborts only the savepoint and the outer transaction stays usable.
func (r *Repo) insertBatch(ctx context.Context, tx pgx.Tx, userID int, chunk []ActivityRecord) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	batch := &pgx.Batch{}
	for _, rec := range chunk {
		batch.Queue(
			`INSERT INTO activity_data
				(user_id, date, steps, distance_km, active_minutes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, rec.Date, rec.Steps, rec.DistanceKM, rec.ActiveMinutes, time.Now(),
		)
	}

	results := sp.SendBatch(ctx, batch)
	var batchErr error
	for range chunk {
		if _, err := results.Exec(); err != nil && batchErr == nil {
			batchErr = err
		}
	}
	if closeErr := results.Close(); closeErr != nil && batchErr == nil {
		batchErr = closeErr
	}

	if batchErr != nil {
		if rollbackErr := sp.Rollback(ctx); rollbackErr != nil {
			log.Errorf("rollback activity batch savepoint: %s", rollbackErr)
		}
		return batchErr
	}
	return sp.Commit(ctx)
}

func (r *Repo) insertOneByOne(ctx context.Context, tx pgx.Tx, userID int, chunk []ActivityRecord) (inserted, failed int) {
	for _, rec := range chunk {
		sp, err := tx.Begin(ctx)
		if err != nil {
			log.Errorf("begin savepoint for single activity row: %s", err)
			failed++
			continue
		}
		if _, err := sp.Exec(
			ctx,
			`INSERT INTO activity_data
				(user_id, date, steps, distance_km, active_minutes, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, rec.Date, rec.Steps, rec.DistanceKM, rec.ActiveMinutes, time.Now(),
		); err != nil {
			log.Tracef("skipping activity row for %s: %s", rec.Date.Format(DateLayout), err)
			if rollbackErr := sp.Rollback(ctx); rollbackErr != nil {
				log.Errorf("rollback single activity row savepoint: %s", rollbackErr)
			}
			failed++
			continue
		}
		if err := sp.Commit(ctx); err != nil {
			log.Errorf("commit single activity row savepoint: %s", err)
			failed++
			continue
		}
		inserted++
	}
	return inserted, failed
}

// ListAll returns all activity records of a user, newest date first.
func (r *Repo) ListAll(ctx context.Context, userID int) (_ []ActivityRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, date, steps, distance_km, active_minutes, created_at
			FROM activity_data
			WHERE user_id = $1
			ORDER BY date DESC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	records, err := r.rows2records(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2records: %w", err)
	}
	return records, nil
}

// List returns one page of the user's activity records matching the filters,
// oldest date first, together with the total number of matching records.
func (r *Repo) List(ctx context.Context, userID int, params ListPageParams) (_ []ActivityRecord, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))
	span.SetAttributes(attribute.String("metric", params.Metric))

	if params.Page < 1 {
		return nil, -1, errors.New("page must be greater than 0")
	}
	if params.Size < 1 {
		return nil, -1, errors.New("size must be greater than 0")
	}
	if params.Metric != "" && !metricColumns[params.Metric] {
		params.Metric = ""
	}

	limit := params.Size
	offset := (params.Page - 1) * params.Size
	countAll, err := r.ListCount(ctx, userID, params.ListParams)
	if err != nil {
		return nil, -1, err
	}

	if countAll <= limit {
		limit = countAll
		offset = 0
	}
	if countAll-offset < limit {
		offset = countAll - limit
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, date, steps, distance_km, active_minutes, created_at
			FROM activity_data
			WHERE user_id = $1
				AND ($2::timestamp IS NULL OR date >= $2)
				AND ($3::timestamp IS NULL OR date <= $3)
				AND ($4::text = '' OR $5::float8 IS NULL OR
					(CASE $4
						WHEN 'steps' THEN steps::float8
						WHEN 'distance_km' THEN distance_km
						WHEN 'active_minutes' THEN active_minutes::float8
					END) >= $5)
				AND ($4::text = '' OR $6::float8 IS NULL OR
					(CASE $4
						WHEN 'steps' THEN steps::float8
						WHEN 'distance_km' THEN distance_km
						WHEN 'active_minutes' THEN active_minutes::float8
					END) <= $6)
			ORDER BY date ASC
			LIMIT $7
			OFFSET $8;`,
		userID,
		params.From, params.To,
		params.Metric, params.MinValue, params.MaxValue,
		limit, offset,
	)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	records, err := r.rows2records(rows)
	if err != nil {
		return nil, -1, err
	}
	return records, countAll, nil
}

func (r *Repo) ListCount(ctx context.Context, userID int, params ListParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.listcount")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(ctx, `
		SELECT COUNT(*) FROM activity_data
			WHERE user_id = $1
			AND ($2::timestamp IS NULL OR date >= $2)
			AND ($3::timestamp IS NULL OR date <= $3)
			AND ($4::text = '' OR $5::float8 IS NULL OR
				(CASE $4
					WHEN 'steps' THEN steps::float8
					WHEN 'distance_km' THEN distance_km
					WHEN 'active_minutes' THEN active_minutes::float8
				END) >= $5)
			AND ($4::text = '' OR $6::float8 IS NULL OR
				(CASE $4
					WHEN 'steps' THEN steps::float8
					WHEN 'distance_km' THEN distance_km
					WHEN 'active_minutes' THEN active_minutes::float8
				END) <= $6);
	`,
		userID,
		params.From, params.To,
		params.Metric, params.MinValue, params.MaxValue,
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

	return -1, errors.New("unexpected error, failed to get activity records count")
}

func (r *Repo) GetByDate(ctx context.Context, userID int, date time.Time) (_ *ActivityRecord, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activity.getbydate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("date", date.Format(DateLayout)))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT id, user_id, date, steps, distance_km, active_minutes, created_at
			FROM activity_data
			WHERE user_id = $1 AND date = $2;`,
		userID, date,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	records, err := r.rows2records(rows)
	if err != nil {
		return nil, err
	}

	if len(records) != 1 {
		return nil, ErrRecordNotFound
	}

	return &records[0], nil
}

func (r *Repo) rows2records(rows pgx.Rows) ([]ActivityRecord, error) {
	var records []ActivityRecord
	for rows.Next() {
		var rec ActivityRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.Date,
			&rec.Steps, &rec.DistanceKM, &rec.ActiveMinutes,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if records == nil {
		records = make([]ActivityRecord, 0)
	}

	return records, nil
}
