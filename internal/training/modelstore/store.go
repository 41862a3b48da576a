// internal/training/modelstore/store.go

// Package modelstore is the versioned registry of trained models. Each model
// belongs to a scope (global or one scholarship); the store guarantees at
// most one active model per scope, enforced transactionally on activation.
package modelstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
)

var (
	ErrModelNotFound = errors.New("MODEL_NOT_FOUND")
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "modelstore"}),
	}
}

const modelColumns = `id, model_type, scholarship_id, weights, bias, metrics, feature_importance, sample_count, trained_at, is_active`

// Save inserts a model as inactive. Activation is a separate, transactional
// step so a failed training run never leaves a half-written model active.
func (s *Store) Save(ctx context.Context, m *models.Model) error {
	weights, err := json.Marshal(m.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	metrics, err := json.Marshal(m.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	importanceJSON, err := json.Marshal(m.FeatureImportance)
	if err != nil {
		return fmt.Errorf("marshal feature importance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ml_models (
			id, model_type, scholarship_id, weights, bias, metrics,
			feature_importance, sample_count, trained_at, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)`,
		m.ModelID,
		string(m.ModelType),
		nullableString(m.ScholarshipID),
		weights,
		m.Bias,
		metrics,
		importanceJSON,
		m.SampleCount,
		m.TrainedAt,
	)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}

	s.logger.Info("model saved", map[string]interface{}{
		"modelId":     m.ModelID,
		"modelType":   m.ModelType,
		"sampleCount": m.SampleCount,
	})
	return nil
}

// Activate makes the model the single active one in its scope. Readers never
// observe zero or two active models: deactivation and activation commit
// together.
func (s *Store) Activate(ctx context.Context, modelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback()

	var modelType string
	var scholarshipID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT model_type, scholarship_id FROM ml_models WHERE id = $1`,
		modelID).Scan(&modelType, &scholarshipID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	if err != nil {
		return fmt.Errorf("load model scope: %w", err)
	}

	if scholarshipID.Valid {
		_, err = tx.ExecContext(ctx,
			`UPDATE ml_models SET is_active = false WHERE model_type = $1 AND scholarship_id = $2 AND is_active`,
			modelType, scholarshipID.String)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE ml_models SET is_active = false WHERE model_type = $1 AND scholarship_id IS NULL AND is_active`,
			modelType)
	}
	if err != nil {
		return fmt.Errorf("deactivate prior model: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE ml_models SET is_active = true WHERE id = $1`, modelID); err != nil {
		return fmt.Errorf("activate model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate: %w", err)
	}

	s.logger.Info("model activated", map[string]interface{}{"modelId": modelID})
	return nil
}

// SaveAndActivate persists a freshly-trained model and promotes it in one
// call. Used by the training paths.
func (s *Store) SaveAndActivate(ctx context.Context, m *models.Model) error {
	if err := s.Save(ctx, m); err != nil {
		return err
	}
	return s.Activate(ctx, m.ModelID)
}

// Delete removes a model permanently.
func (s *Store) Delete(ctx context.Context, modelID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ml_models WHERE id = $1`, modelID)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}

	s.logger.Info("model deleted", map[string]interface{}{"modelId": modelID})
	return nil
}

// Get fetches one model by id.
func (s *Store) Get(ctx context.Context, modelID string) (*models.Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+modelColumns+` FROM ml_models WHERE id = $1`, modelID)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelID)
	}
	return m, err
}

// GetActive returns the active model for a scope, or nil when the scope has
// none. A missing model is a normal state, not an error: the platform runs
// eligibility-only matching until a model is trained.
func (s *Store) GetActive(ctx context.Context, scope string) (*models.Model, error) {
	var row *sql.Row
	if scope == models.ScopeGlobal {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+modelColumns+` FROM ml_models WHERE model_type = $1 AND is_active`,
			string(models.ModelTypeGlobal))
	} else {
		row = s.db.QueryRowContext(ctx,
			`SELECT `+modelColumns+` FROM ml_models WHERE model_type = $1 AND scholarship_id = $2 AND is_active`,
			string(models.ModelTypeScholarship), scope)
	}

	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

// SelectForScholarship implements the fallback policy: the scholarship's own
// active model when it was trained on enough samples, else the active global
// model, else none.
func (s *Store) SelectForScholarship(ctx context.Context, scholarshipID string, minSamples int) (*models.Model, error) {
	if scholarshipID != "" {
		specific, err := s.GetActive(ctx, scholarshipID)
		if err != nil {
			return nil, err
		}
		if specific != nil && specific.SampleCount >= minSamples {
			return specific, nil
		}
	}
	return s.GetActive(ctx, models.ScopeGlobal)
}

func scanModel(row *sql.Row) (*models.Model, error) {
	var m models.Model
	var modelType string
	var scholarshipID sql.NullString
	var weights, metrics, importanceJSON []byte

	err := row.Scan(&m.ModelID, &modelType, &scholarshipID, &weights, &m.Bias,
		&metrics, &importanceJSON, &m.SampleCount, &m.TrainedAt, &m.IsActive)
	if err != nil {
		return nil, err
	}

	m.ModelType = models.ModelType(modelType)
	if scholarshipID.Valid {
		m.ScholarshipID = scholarshipID.String
	}
	if err := json.Unmarshal(weights, &m.Weights); err != nil {
		return nil, fmt.Errorf("unmarshal weights: %w", err)
	}
	if err := json.Unmarshal(metrics, &m.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal(importanceJSON, &m.FeatureImportance); err != nil {
		return nil, fmt.Errorf("unmarshal feature importance: %w", err)
	}
	return &m, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
