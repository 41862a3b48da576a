// internal/models/check.go
package models

// CheckResult is the outcome of evaluating one criterion against one
// applicant. Results are ephemeral: produced per evaluation call and embedded
// in the application's eligibility snapshot by the caller, never persisted
// on their own.
type CheckResult struct {
	Criterion      string      `json:"criterion"`
	Passed         bool        `json:"passed"`
	ApplicantValue interface{} `json:"applicantValue"`
	RequiredValue  interface{} `json:"requiredValue"`
	Notes          string      `json:"notes,omitempty"`
	Type           string      `json:"type"`
	Category       string      `json:"category"`
	Importance     Importance  `json:"importance"`
}

// StageResults partitions checks by category for display. Grouping never
// affects pass/fail.
type StageResults struct {
	Academic   []CheckResult `json:"academic"`
	Financial  []CheckResult `json:"financial"`
	Additional []CheckResult `json:"additional"`
}
