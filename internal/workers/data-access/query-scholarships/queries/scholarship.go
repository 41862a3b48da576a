// internal/workers/data-access/query-scholarships/queries/scholarship.go
package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"scholarship-workers/internal/models"
)

const scholarshipColumns = `id, name, provider, slots_available, application_count, status, criteria, updated_at`

// ActiveScholarships lists every scholarship currently open for matching.
// The criteria column is a JSON document authored through the admin surface.
func ActiveScholarships(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT `+scholarshipColumns+`
		FROM scholarships
		WHERE status = 'active'
		ORDER BY name`)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []*models.Scholarship
	for rows.Next() {
		scholarship, err := scanScholarship(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		results = append(results, scholarship)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

func ScholarshipDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	scholarshipID, ok := params["scholarshipId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	row := db.QueryRowContext(ctx, `
		SELECT `+scholarshipColumns+`
		FROM scholarships
		WHERE id = $1`, scholarshipID)

	scholarship, err := scanScholarship(row)
	if err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return scholarship, 1, execTime, nil
}

// ScholarshipDecisions returns the recorded approval decisions for one
// scholarship, newest first. Decisions live in the training sample log.
func ScholarshipDecisions(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	scholarshipID, ok := params["scholarshipId"].(string)
	if !ok {
		return nil, 0, 0, ErrMissingParam
	}
	limit := 100
	if v, ok := params["limit"].(int); ok && v > 0 {
		limit = v
	}

	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT id, scholarship_id, label, created_at
		FROM training_samples
		WHERE scholarship_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, scholarshipID, limit)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, schID, label string
		var createdAt time.Time
		if err := rows.Scan(&id, &schID, &label, &createdAt); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"id":            id,
			"scholarshipId": schID,
			"label":         label,
			"approved":      label == models.LabelApproved,
			"decidedAt":     createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScholarship(row rowScanner) (*models.Scholarship, error) {
	var (
		scholarship models.Scholarship
		provider    sql.NullString
		slots       sql.NullInt64
		appCount    sql.NullInt64
		status      sql.NullString
		criteria    sql.NullString
		updatedAt   sql.NullString
	)
	err := row.Scan(&scholarship.ID, &scholarship.Name, &provider, &slots,
		&appCount, &status, &criteria, &updatedAt)
	if err != nil {
		return nil, err
	}

	scholarship.Provider = provider.String
	scholarship.SlotsAvailable = int(slots.Int64)
	scholarship.ApplicationCount = int(appCount.Int64)
	scholarship.Status = status.String
	scholarship.UpdatedAt = updatedAt.String
	if criteria.Valid && criteria.String != "" {
		if err := json.Unmarshal([]byte(criteria.String), &scholarship.Criteria); err != nil {
			return nil, err
		}
	}
	return &scholarship, nil
}
