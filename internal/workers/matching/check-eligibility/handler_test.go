// internal/workers/matching/check-eligibility/handler_test.go
package checkeligibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestExecute_EligibleStudent(t *testing.T) {
	h := newTestHandler(t)

	input := &Input{
		StudentProfile: &models.StudentProfile{
			StudentID:           "2021-00111",
			GWA:                 floatPtr(1.75),
			College:             "College of Engineering",
			HasOtherScholarship: boolPtr(false),
		},
		Scholarship: &models.Scholarship{
			ID: "sch-1",
			Criteria: models.EligibilityCriteria{
				MaxGWA:                      floatPtr(2.0),
				EligibleColleges:            []string{"College of Engineering"},
				MustNotHaveOtherScholarship: true,
			},
		},
	}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, output.Passed)
	assert.Equal(t, 1.0, output.Score)
	assert.Len(t, output.Checks, 3)
}

func TestExecute_FailingCheckBlocksEligibility(t *testing.T) {
	h := newTestHandler(t)

	input := &Input{
		StudentProfile: &models.StudentProfile{
			StudentID: "2021-00222",
			GWA:       floatPtr(2.5),
		},
		Scholarship: &models.Scholarship{
			ID: "sch-1",
			Criteria: models.EligibilityCriteria{
				MaxGWA: floatPtr(2.0),
			},
		},
	}

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, output.Passed)
	assert.Equal(t, 0.0, output.Score)
}

func TestExecute_NoCriteriaIsEligible(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{StudentID: "2021-00333"},
		Scholarship:    &models.Scholarship{ID: "sch-open"},
	})
	require.NoError(t, err)
	assert.True(t, output.Passed)
	assert.Equal(t, 1.0, output.Score)
	assert.Empty(t, output.Checks)
}

func TestExecute_MissingInputs(t *testing.T) {
	h := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{
		Scholarship: &models.Scholarship{ID: "sch-1"},
	})
	assert.ErrorContains(t, err, "INVALID_STUDENT_PROFILE")

	_, err = h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{StudentID: "2021-00444"},
	})
	assert.ErrorContains(t, err, "INVALID_CRITERIA")
}

func TestExecute_StageGrouping(t *testing.T) {
	h := newTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{
		StudentProfile: &models.StudentProfile{
			StudentID:           "2021-00555",
			GWA:                 floatPtr(1.5),
			AnnualFamilyIncome:  floatPtr(150_000),
			HasOtherScholarship: boolPtr(false),
		},
		Scholarship: &models.Scholarship{
			ID: "sch-1",
			Criteria: models.EligibilityCriteria{
				MaxGWA:                      floatPtr(2.0),
				MaxIncome:                   floatPtr(300_000),
				MustNotHaveOtherScholarship: true,
			},
		},
	})
	require.NoError(t, err)
	assert.Len(t, output.Stages.Academic, 1)
	assert.Len(t, output.Stages.Financial, 1)
	assert.Len(t, output.Stages.Additional, 1)
}
