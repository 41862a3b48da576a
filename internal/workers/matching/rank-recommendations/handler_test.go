// internal/workers/matching/rank-recommendations/handler_test.go
package rankrecommendations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/models"
)

// fakeModelSource serves a fixed model per scholarship id.
type fakeModelSource struct {
	models map[string]*models.Model
}

func (f *fakeModelSource) SelectForScholarship(ctx context.Context, scholarshipID string, minSamples int) (*models.Model, error) {
	return f.models[scholarshipID], nil
}

func floatPtr(f float64) *float64 { return &f }

func newTestHandler(t *testing.T, source *fakeModelSource) *Handler {
	return NewHandler(LoadConfig(), source, features.New(features.DefaultConfig()), logger.NewTestLogger(t))
}

func gwaModel(weight float64) *models.Model {
	return &models.Model{
		ModelID:   "m",
		ModelType: models.ModelTypeGlobal,
		Weights:   map[string]float64{features.FeatureGWA: weight},
	}
}

func TestExecute_EligibilityOutranksProbability(t *testing.T) {
	// sch-strict rejects the student but its model scores them high;
	// sch-open accepts them with a weaker score. Eligible must come first.
	source := &fakeModelSource{models: map[string]*models.Model{
		"sch-strict": gwaModel(8),
		"sch-open":   gwaModel(1),
	}}
	h := newTestHandler(t, source)

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{
			StudentID: "2021-00111",
			GWA:       floatPtr(2.5),
		},
		Candidates: []*models.Scholarship{
			{ID: "sch-strict", Name: "Strict", Criteria: models.EligibilityCriteria{MaxGWA: floatPtr(1.5)}},
			{ID: "sch-open", Name: "Open"},
		},
	})
	require.NoError(t, err)
	require.Len(t, output.Recommendations, 2)
	assert.Equal(t, "sch-open", output.Recommendations[0].ScholarshipID)
	assert.True(t, output.Recommendations[0].Eligible)
	assert.Equal(t, "sch-strict", output.Recommendations[1].ScholarshipID)
	assert.False(t, output.Recommendations[1].Eligible)
}

func TestExecute_ProbabilityOrdersWithinEligible(t *testing.T) {
	source := &fakeModelSource{models: map[string]*models.Model{
		"sch-a": gwaModel(1),
		"sch-b": gwaModel(5),
	}}
	h := newTestHandler(t, source)

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{StudentID: "2021-00222", GWA: floatPtr(1.25)},
		Candidates: []*models.Scholarship{
			{ID: "sch-a", Name: "A"},
			{ID: "sch-b", Name: "B"},
		},
	})
	require.NoError(t, err)
	require.Len(t, output.Recommendations, 2)
	assert.Equal(t, "sch-b", output.Recommendations[0].ScholarshipID)
	assert.Greater(t, output.Recommendations[0].Probability, output.Recommendations[1].Probability)
}

func TestExecute_LimitAppliesAfterRanking(t *testing.T) {
	source := &fakeModelSource{models: map[string]*models.Model{
		"sch-a": gwaModel(1),
		"sch-b": gwaModel(5),
		"sch-c": gwaModel(3),
	}}
	h := newTestHandler(t, source)

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{StudentID: "2021-00333", GWA: floatPtr(1.5)},
		Candidates: []*models.Scholarship{
			{ID: "sch-a", Name: "A"},
			{ID: "sch-b", Name: "B"},
			{ID: "sch-c", Name: "C"},
		},
		Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalEvaluated)
	require.Len(t, output.Recommendations, 2)
	assert.Equal(t, "sch-b", output.Recommendations[0].ScholarshipID)
	assert.Equal(t, "sch-c", output.Recommendations[1].ScholarshipID)
}

func TestExecute_NoModelFallsBackToNeutral(t *testing.T) {
	h := newTestHandler(t, &fakeModelSource{})

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{StudentID: "2021-00444"},
		Candidates:     []*models.Scholarship{{ID: "sch-a", Name: "A"}},
	})
	require.NoError(t, err)
	require.Len(t, output.Recommendations, 1)
	assert.Equal(t, 0.5, output.Recommendations[0].Probability)
	assert.Equal(t, models.ModelTypeNone, output.Recommendations[0].ModelType)
}

func TestExecute_MissingProfile(t *testing.T) {
	h := newTestHandler(t, &fakeModelSource{})

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorContains(t, err, "INVALID_STUDENT_PROFILE")
}
