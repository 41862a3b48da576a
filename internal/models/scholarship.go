// internal/models/scholarship.go
package models

// Scholarship is the scholarship record consumed from the persistence
// collaborator, carrying the eligibility criteria this engine evaluates.
type Scholarship struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Provider         string              `json:"provider,omitempty"`
	SlotsAvailable   int                 `json:"slotsAvailable,omitempty"`
	ApplicationCount int                 `json:"applicationCount,omitempty"`
	Status           string              `json:"status,omitempty"`
	Criteria         EligibilityCriteria `json:"eligibilityCriteria"`
	UpdatedAt        string              `json:"updatedAt,omitempty"`
}

// EligibilityCriteria holds the fixed built-in requirement families plus the
// admin-authored custom conditions. Every bound is optional; an unset bound
// imposes no requirement.
type EligibilityCriteria struct {
	MinGWA      *float64 `json:"minGWA,omitempty"`
	MaxGWA      *float64 `json:"maxGWA,omitempty"`
	MinIncome   *float64 `json:"minIncome,omitempty"`
	MaxIncome   *float64 `json:"maxIncome,omitempty"`
	MinUnits    *int     `json:"minUnits,omitempty"`
	MinYearLevel *int    `json:"minYearLevel,omitempty"`

	EligibleColleges     []string `json:"eligibleColleges,omitempty"`
	EligibleCourses      []string `json:"eligibleCourses,omitempty"`
	EligibleProvinces    []string `json:"eligibleProvinces,omitempty"`
	EligibleSTBrackets   []string `json:"eligibleSTBrackets,omitempty"`
	EligibleCitizenships []string `json:"eligibleCitizenships,omitempty"`

	MustNotHaveOtherScholarship bool `json:"mustNotHaveOtherScholarship,omitempty"`
	RequireGoodMoral            bool `json:"requireGoodMoral,omitempty"`

	CustomConditions []CustomCondition `json:"customConditions,omitempty"`
}

// ConditionType selects the operator family of a custom condition.
type ConditionType string

const (
	ConditionTypeRange   ConditionType = "range"
	ConditionTypeBoolean ConditionType = "boolean"
	ConditionTypeList    ConditionType = "list"
)

// Importance controls whether a failing condition blocks eligibility or is
// advisory only.
type Importance string

const (
	ImportanceRequired  Importance = "required"
	ImportancePreferred Importance = "preferred"
	ImportanceOptional  Importance = "optional"
)

// Check categories used for stage grouping in results.
const (
	CategoryAcademic   = "academic"
	CategoryFinancial  = "financial"
	CategoryAdditional = "additional"
)

// CustomCondition is an admin-authored criterion evaluated against a named
// profile field. Lifecycle is owned by the scholarship record.
type CustomCondition struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	StudentField  string        `json:"studentField"`
	ConditionType ConditionType `json:"conditionType"`
	Operator      string        `json:"operator"`
	Value         interface{}   `json:"value"`
	Category      string        `json:"category,omitempty"`
	Importance    Importance    `json:"importance"`
	IsActive      bool          `json:"isActive"`
}

// Range operators.
const (
	OpLessThan         = "lt"
	OpLessThanOrEq     = "lte"
	OpGreaterThan      = "gt"
	OpGreaterThanOrEq  = "gte"
	OpEqual            = "eq"
	OpNotEqual         = "neq"
	OpBetween          = "between"
	OpBetweenExclusive = "between_exclusive"
	OpOutside          = "outside"
)

// Boolean operators.
const (
	OpIs        = "is"
	OpIsNot     = "is_not"
	OpIsTrue    = "is_true"
	OpIsFalse   = "is_false"
	OpExists    = "exists"
	OpNotExists = "not_exists"
)

// List operators.
const (
	OpIn          = "in"
	OpNotIn       = "not_in"
	OpContains    = "contains"
	OpNotContains = "not_contains"
	OpContainsAll = "contains_all"
	OpContainsAny = "contains_any"
	OpIsEmpty     = "is_empty"
	OpIsNotEmpty  = "is_not_empty"
	OpMatchesAny  = "matches_any"
	OpMatchesAll  = "matches_all"
)

// RangeOperators lists the valid operators per condition family, keyed by
// ConditionType. Used by authoring-time validation.
var OperatorsByType = map[ConditionType][]string{
	ConditionTypeRange: {
		OpLessThan, OpLessThanOrEq, OpGreaterThan, OpGreaterThanOrEq,
		OpEqual, OpNotEqual, OpBetween, OpBetweenExclusive, OpOutside,
	},
	ConditionTypeBoolean: {
		OpIs, OpIsNot, OpIsTrue, OpIsFalse, OpExists, OpNotExists,
	},
	ConditionTypeList: {
		OpIn, OpNotIn, OpContains, OpNotContains, OpContainsAll,
		OpContainsAny, OpIsEmpty, OpIsNotEmpty, OpMatchesAny, OpMatchesAll,
	},
}
