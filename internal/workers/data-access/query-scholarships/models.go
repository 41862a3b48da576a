// internal/workers/data-access/query-scholarships/models.go
package queryscholarships

import "scholarship-workers/internal/models"

type Input struct {
	QueryType     string `json:"queryType"`
	ScholarshipID string `json:"scholarshipId,omitempty"`
	StudentID     string `json:"studentId,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType

var (
	QueryTypeActiveScholarships   = models.QueryTypeActiveScholarships
	QueryTypeScholarshipDetails   = models.QueryTypeScholarshipDetails
	QueryTypeStudentProfile       = models.QueryTypeStudentProfile
	QueryTypeScholarshipDecisions = models.QueryTypeScholarshipDecisions
)
