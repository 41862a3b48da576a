// internal/training/modelstore/store_test.go
package modelstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewNoOpLogger()), mock
}

func modelRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "model_type", "scholarship_id", "weights", "bias", "metrics",
		"feature_importance", "sample_count", "trained_at", "is_active",
	})
}

func TestSave_InsertsInactive(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ml_models")).
		WithArgs("model-1", "global", nil, sqlmock.AnyArg(), 0.5, sqlmock.AnyArg(),
			sqlmock.AnyArg(), 80, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Save(context.Background(), &models.Model{
		ModelID:     "model-1",
		ModelType:   models.ModelTypeGlobal,
		Weights:     map[string]float64{"gwa": 1.2},
		Bias:        0.5,
		SampleCount: 80,
		TrainedAt:   time.Now().UTC(),
	})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_DeactivatesPriorInSameScope(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT model_type, scholarship_id FROM ml_models WHERE id = $1")).
		WithArgs("model-2").
		WillReturnRows(sqlmock.NewRows([]string{"model_type", "scholarship_id"}).
			AddRow("scholarship_specific", "sch-1"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ml_models SET is_active = false WHERE model_type = $1 AND scholarship_id = $2 AND is_active")).
		WithArgs("scholarship_specific", "sch-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ml_models SET is_active = true WHERE id = $1")).
		WithArgs("model-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Activate(context.Background(), "model-2")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_GlobalScopeUsesNullScholarship(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT model_type, scholarship_id FROM ml_models WHERE id = $1")).
		WithArgs("model-g").
		WillReturnRows(sqlmock.NewRows([]string{"model_type", "scholarship_id"}).
			AddRow("global", nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ml_models SET is_active = false WHERE model_type = $1 AND scholarship_id IS NULL AND is_active")).
		WithArgs("global").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ml_models SET is_active = true WHERE id = $1")).
		WithArgs("model-g").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Activate(context.Background(), "model-g")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_UnknownModel(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT model_type, scholarship_id FROM ml_models WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"model_type", "scholarship_id"}))
	mock.ExpectRollback()

	err := store.Activate(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestGetActive_NoModelIsNotAnError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND is_active").
		WithArgs("global").
		WillReturnRows(modelRows())

	m, err := store.GetActive(context.Background(), models.ScopeGlobal)

	assert.NoError(t, err)
	assert.Nil(t, m, "missing model is a valid state, not an error")
}

func TestGetActive_ScansModel(t *testing.T) {
	store, mock := setupStore(t)

	trainedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND scholarship_id = .+ AND is_active").
		WithArgs("scholarship_specific", "sch-1").
		WillReturnRows(modelRows().AddRow(
			"model-2", "scholarship_specific", "sch-1",
			[]byte(`{"gwa":1.5,"income_need":0.7}`), 0.25,
			[]byte(`{"accuracy":0.91,"precision":0.9,"recall":0.88,"f1":0.89}`),
			[]byte(`{"gwa":0.68,"income_need":0.32}`),
			45, trainedAt, true,
		))

	m, err := store.GetActive(context.Background(), "sch-1")

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "model-2", m.ModelID)
	assert.Equal(t, models.ModelTypeScholarship, m.ModelType)
	assert.Equal(t, "sch-1", m.ScholarshipID)
	assert.InDelta(t, 1.5, m.Weights["gwa"], 1e-9)
	assert.InDelta(t, 0.91, m.Metrics.Accuracy, 1e-9)
	assert.Equal(t, 45, m.SampleCount)
	assert.True(t, m.IsActive)
}

func TestSelectForScholarship_FallsBackToGlobal(t *testing.T) {
	store, mock := setupStore(t)

	// Scholarship-specific model exists but is under the sample floor.
	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND scholarship_id = .+ AND is_active").
		WithArgs("scholarship_specific", "sch-1").
		WillReturnRows(modelRows().AddRow(
			"model-small", "scholarship_specific", "sch-1",
			[]byte(`{}`), 0.0, []byte(`{}`), []byte(`{}`), 5, time.Now(), true,
		))
	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND is_active").
		WithArgs("global").
		WillReturnRows(modelRows().AddRow(
			"model-global", "global", nil,
			[]byte(`{}`), 0.0, []byte(`{}`), []byte(`{}`), 200, time.Now(), true,
		))

	m, err := store.SelectForScholarship(context.Background(), "sch-1", 20)

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "model-global", m.ModelID)
}

func TestSelectForScholarship_PrefersSpecific(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND scholarship_id = .+ AND is_active").
		WithArgs("scholarship_specific", "sch-1").
		WillReturnRows(modelRows().AddRow(
			"model-2", "scholarship_specific", "sch-1",
			[]byte(`{}`), 0.0, []byte(`{}`), []byte(`{}`), 50, time.Now(), true,
		))

	m, err := store.SelectForScholarship(context.Background(), "sch-1", 20)

	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "model-2", m.ModelID)
}

func TestSelectForScholarship_NoModelsAnywhere(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND scholarship_id = .+ AND is_active").
		WithArgs("scholarship_specific", "sch-1").
		WillReturnRows(modelRows())
	mock.ExpectQuery("SELECT .+ FROM ml_models WHERE model_type = .+ AND is_active").
		WithArgs("global").
		WillReturnRows(modelRows())

	m, err := store.SelectForScholarship(context.Background(), "sch-1", 20)

	assert.NoError(t, err)
	assert.Nil(t, m)
}

func TestDelete_UnknownModel(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ml_models WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, ErrModelNotFound)
}
