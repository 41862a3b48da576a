// internal/workers/data-access/query-scholarships/handler_test.go
package queryscholarships

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHandler(&Config{Timeout: 5 * time.Second}, db, logger.NewTestLogger(t)), mock
}

func scholarshipColumns() []string {
	return []string{
		"id", "name", "provider", "slots_available", "application_count",
		"status", "criteria", "updated_at",
	}
}

func TestExecute_ActiveScholarships(t *testing.T) {
	h, mock := newTestHandler(t)

	criteriaJSON := `{"maxGWA": 2.0, "eligibleColleges": ["Engineering"]}`
	rows := sqlmock.NewRows(scholarshipColumns()).
		AddRow("sch-1", "Academic Excellence Grant", "OSA", 50, 120, "active", criteriaJSON, "2026-08-01").
		AddRow("sch-2", "Need-Based Assistance", "DOST", 30, 80, "active", nil, "2026-07-15")

	mock.ExpectQuery(`SELECT id, name, provider, slots_available, application_count, status, criteria, updated_at\s+FROM scholarships\s+WHERE status = 'active'`).
		WillReturnRows(rows)

	output, err := h.Execute(context.Background(), &Input{
		QueryType: string(models.QueryTypeActiveScholarships),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, output.RowCount)

	scholarships := output.Data.([]*models.Scholarship)
	require.Len(t, scholarships, 2)
	assert.Equal(t, "Academic Excellence Grant", scholarships[0].Name)
	require.NotNil(t, scholarships[0].Criteria.MaxGWA)
	assert.Equal(t, 2.0, *scholarships[0].Criteria.MaxGWA)
	assert.Equal(t, []string{"Engineering"}, scholarships[0].Criteria.EligibleColleges)
	assert.Nil(t, scholarships[1].Criteria.MaxGWA)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ScholarshipDetails(t *testing.T) {
	h, mock := newTestHandler(t)

	rows := sqlmock.NewRows(scholarshipColumns()).
		AddRow("sch-1", "Academic Excellence Grant", "OSA", 50, 120, "active", `{"minUnits": 15}`, "2026-08-01")

	mock.ExpectQuery(`FROM scholarships\s+WHERE id = \$1`).
		WithArgs("sch-1").
		WillReturnRows(rows)

	output, err := h.Execute(context.Background(), &Input{
		QueryType:     string(models.QueryTypeScholarshipDetails),
		ScholarshipID: "sch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, output.RowCount)

	scholarship := output.Data.(*models.Scholarship)
	assert.Equal(t, "sch-1", scholarship.ID)
	require.NotNil(t, scholarship.Criteria.MinUnits)
	assert.Equal(t, 15, *scholarship.Criteria.MinUnits)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ScholarshipDetailsNotFound(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectQuery(`FROM scholarships\s+WHERE id = \$1`).
		WithArgs("sch-missing").
		WillReturnRows(sqlmock.NewRows(scholarshipColumns()))

	_, err := h.Execute(context.Background(), &Input{
		QueryType:     string(models.QueryTypeScholarshipDetails),
		ScholarshipID: "sch-missing",
	})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestExecute_StudentProfile(t *testing.T) {
	h, mock := newTestHandler(t)

	rows := sqlmock.NewRows([]string{
		"student_id", "gwa", "annual_family_income", "units_enrolled", "year_level",
		"college", "course", "province", "st_bracket", "citizenship",
		"has_other_scholarship", "good_moral_certificate",
		"profile_completeness", "document_completeness",
	}).AddRow(
		"2021-00123", 1.75, 180000.0, 18, 3,
		"Engineering", "BS Computer Science", "Laguna", "ST1", "Filipino",
		false, true, 0.95, 0.8,
	)

	mock.ExpectQuery(`FROM students WHERE student_id = \$1`).
		WithArgs("2021-00123").
		WillReturnRows(rows)

	output, err := h.Execute(context.Background(), &Input{
		QueryType: string(models.QueryTypeStudentProfile),
		StudentID: "2021-00123",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, output.RowCount)

	profile := output.Data.(*models.StudentProfile)
	assert.Equal(t, "2021-00123", profile.StudentID)
	require.NotNil(t, profile.GWA)
	assert.Equal(t, 1.75, *profile.GWA)
	require.NotNil(t, profile.UnitsEnrolled)
	assert.Equal(t, 18, *profile.UnitsEnrolled)
	assert.Equal(t, "Laguna", profile.Province)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ScholarshipDecisions(t *testing.T) {
	h, mock := newTestHandler(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "scholarship_id", "label", "created_at"}).
		AddRow("sample-2", "sch-1", models.LabelApproved, now).
		AddRow("sample-1", "sch-1", models.LabelRejected, now.Add(-time.Hour))

	mock.ExpectQuery(`FROM training_samples\s+WHERE scholarship_id = \$1`).
		WithArgs("sch-1", 100).
		WillReturnRows(rows)

	output, err := h.Execute(context.Background(), &Input{
		QueryType:     string(models.QueryTypeScholarshipDecisions),
		ScholarshipID: "sch-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, output.RowCount)

	decisions := output.Data.([]map[string]interface{})
	assert.Equal(t, true, decisions[0]["approved"])
	assert.Equal(t, false, decisions[1]["approved"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_InvalidQueryType(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{QueryType: "drop_tables"})
	assert.ErrorIs(t, err, ErrInvalidQueryType)
}
