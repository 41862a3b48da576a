// internal/training/samplestore/store.go

// Package samplestore persists training samples: one row per labeled
// decision, append-only. Rows are written by the record-decision path and
// read back as training input; nothing updates or deletes them.
package samplestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "samplestore"}),
	}
}

// Insert appends one labeled decision.
func (s *Store) Insert(ctx context.Context, sample *models.TrainingSample) error {
	features, err := json.Marshal(sample.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO training_samples (id, scholarship_id, features, label, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		sample.ID,
		nullableString(sample.ScholarshipID),
		features,
		sample.Label,
		sample.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert training sample: %w", err)
	}
	return nil
}

// ListAll returns every sample, oldest first, for global training.
func (s *Store) ListAll(ctx context.Context) ([]*models.TrainingSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scholarship_id, features, label, created_at
		FROM training_samples ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()
	return scanSamples(rows)
}

// ListForScholarship returns the samples recorded for one scholarship.
func (s *Store) ListForScholarship(ctx context.Context, scholarshipID string) ([]*models.TrainingSample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scholarship_id, features, label, created_at
		FROM training_samples WHERE scholarship_id = $1 ORDER BY created_at`,
		scholarshipID)
	if err != nil {
		return nil, fmt.Errorf("list scholarship samples: %w", err)
	}
	defer rows.Close()
	return scanSamples(rows)
}

// CountForScholarship returns how many samples a scholarship has
// accumulated, which drives the specific-retrain trigger and the fallback
// threshold.
func (s *Store) CountForScholarship(ctx context.Context, scholarshipID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_samples WHERE scholarship_id = $1`,
		scholarshipID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scholarship samples: %w", err)
	}
	return count, nil
}

// CountAll returns the total number of recorded samples.
func (s *Store) CountAll(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_samples`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}

// ScholarshipIDs returns the distinct scholarships with recorded samples,
// used by train-all.
func (s *Store) ScholarshipIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scholarship_id FROM training_samples
		WHERE scholarship_id IS NOT NULL ORDER BY scholarship_id`)
	if err != nil {
		return nil, fmt.Errorf("list scholarship ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSamples(rows *sql.Rows) ([]*models.TrainingSample, error) {
	var samples []*models.TrainingSample
	for rows.Next() {
		var sample models.TrainingSample
		var scholarshipID sql.NullString
		var features []byte
		if err := rows.Scan(&sample.ID, &scholarshipID, &features, &sample.Label, &sample.CreatedAt); err != nil {
			return nil, err
		}
		if scholarshipID.Valid {
			sample.ScholarshipID = scholarshipID.String
		}
		if err := json.Unmarshal(features, &sample.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		samples = append(samples, &sample)
	}
	return samples, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
