package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"x2tsvc/models"

	_ "github.com/lib/pq"
)

type DatabaseService struct {
	db *sql.DB
}

func NewDatabaseService(databaseURL string) (*DatabaseService, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DatabaseService{db: db}, nil
}

// RecordOutcome appends one row per finished conversion. convErr is nil for
// successes.
func (d *DatabaseService) RecordOutcome(ctx context.Context, req *models.ConversionRequest, convErr *ConvertError, duration time.Duration) error {
	status := "succeeded"
	var reason sql.NullString
	var x2tCode sql.NullInt64
	var message sql.NullString

	if convErr != nil {
		status = "failed"
		if convErr.Reason != nil {
			reason = sql.NullString{String: string(*convErr.Reason), Valid: true}
		}
		if convErr.X2TCode != nil {
			x2tCode = sql.NullInt64{Int64: int64(*convErr.X2TCode), Valid: true}
		}
		message = sql.NullString{String: convErr.Message, Valid: true}
	}

	query := `INSERT INTO conversions
		(source_bucket, source_key, dest_bucket, dest_key, status, reason, x2t_code, message, duration_ms, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := d.db.ExecContext(ctx, query,
		req.SourceBucket, req.SourceKey, req.DestBucket, req.DestKey,
		status, reason, x2tCode, message, duration.Milliseconds(), time.Now(),
	)
	return err
}

func (d *DatabaseService) Close() error {
	return d.db.Close()
}
