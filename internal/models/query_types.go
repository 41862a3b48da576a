// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeActiveScholarships   QueryType = "active_scholarships"
	QueryTypeScholarshipDetails   QueryType = "scholarship_details"
	QueryTypeStudentProfile       QueryType = "student_profile"
	QueryTypeScholarshipDecisions QueryType = "scholarship_decisions"
)
