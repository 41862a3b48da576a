// internal/workers/data-access/query-scholarships/queries/student.go
package queries

import (
	"context"
	"database/sql"
	"time"

	"scholarship-workers/internal/models"
)

func StudentProfile(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	studentID, ok := params["studentId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	row := db.QueryRowContext(ctx, `
		SELECT student_id, gwa, annual_family_income, units_enrolled, year_level,
		       college, course, province, st_bracket, citizenship,
		       has_other_scholarship, good_moral_certificate,
		       profile_completeness, document_completeness
		FROM students WHERE student_id = $1`, studentID)

	var (
		profile      models.StudentProfile
		gwa, income  sql.NullFloat64
		units, year  sql.NullInt64
		college      sql.NullString
		course       sql.NullString
		province     sql.NullString
		stBracket    sql.NullString
		citizenship  sql.NullString
		otherGrant   sql.NullBool
		goodMoral    sql.NullBool
		profComplete sql.NullFloat64
		docsComplete sql.NullFloat64
	)
	err := row.Scan(&profile.StudentID, &gwa, &income, &units, &year,
		&college, &course, &province, &stBracket, &citizenship,
		&otherGrant, &goodMoral, &profComplete, &docsComplete)
	if err != nil {
		return nil, 0, 0, err
	}

	if gwa.Valid {
		profile.GWA = &gwa.Float64
	}
	if income.Valid {
		profile.AnnualFamilyIncome = &income.Float64
	}
	if units.Valid {
		v := int(units.Int64)
		profile.UnitsEnrolled = &v
	}
	if year.Valid {
		v := int(year.Int64)
		profile.YearLevel = &v
	}
	profile.College = college.String
	profile.Course = course.String
	profile.Province = province.String
	profile.STBracket = stBracket.String
	profile.Citizenship = citizenship.String
	if otherGrant.Valid {
		profile.HasOtherScholarship = &otherGrant.Bool
	}
	if goodMoral.Valid {
		profile.GoodMoralCertificate = &goodMoral.Bool
	}
	profile.ProfileCompleteness = profComplete.Float64
	profile.DocumentCompleteness = docsComplete.Float64

	execTime := time.Since(start).Milliseconds()
	return &profile, 1, execTime, nil
}
