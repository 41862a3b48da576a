// internal/workers/matching/validate-criteria/models.go
package validatecriteria

import "scholarship-workers/internal/models"

type Input struct {
	Criteria *models.EligibilityCriteria `json:"criteria"`
}

// Issue is one authoring problem found in a criteria document. Field is a
// path into the document ("minGWA", "customConditions[2].operator").
type Issue struct {
	Field       string `json:"field"`
	ConditionID string `json:"conditionId,omitempty"`
	Code        string `json:"code"`
	Message     string `json:"message"`
}

type Output struct {
	Valid             bool    `json:"valid"`
	Errors            []Issue `json:"errors"`
	ConditionsChecked int     `json:"conditionsChecked"`
}

// Issue codes.
const (
	CodeSchemaViolation      = "SCHEMA_VIOLATION"
	CodeUnknownConditionType = "UNKNOWN_CONDITION_TYPE"
	CodeUnknownOperator      = "UNKNOWN_OPERATOR"
	CodeMissingStudentField  = "MISSING_STUDENT_FIELD"
	CodeTypeMismatch         = "TYPE_MISMATCH"
	CodeInvalidBound         = "INVALID_BOUND"
	CodeEmptyValueList       = "EMPTY_VALUE_LIST"
	CodeDuplicateConditionID = "DUPLICATE_CONDITION_ID"
)
