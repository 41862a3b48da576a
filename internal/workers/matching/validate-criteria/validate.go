// internal/workers/matching/validate-criteria/validate.go
package validatecriteria

import (
	"fmt"

	"scholarship-workers/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// conditionSchema is the structural contract for one admin-authored custom
// condition. Semantic checks (operator families, value shapes) run after the
// document passes this schema.
const conditionSchema = `{
	"type": "object",
	"required": ["id", "name", "studentField", "conditionType", "operator"],
	"properties": {
		"id":            {"type": "string", "minLength": 1},
		"name":          {"type": "string", "minLength": 1},
		"studentField":  {"type": "string", "minLength": 1},
		"conditionType": {"type": "string", "enum": ["range", "boolean", "list"]},
		"operator":      {"type": "string", "minLength": 1},
		"category":      {"type": "string"},
		"importance":    {"type": "string", "enum": ["required", "preferred", "optional"]},
		"isActive":      {"type": "boolean"}
	}
}`

var conditionSchemaLoader = gojsonschema.NewStringLoader(conditionSchema)

// validateCriteria checks a full criteria document at authoring time:
// built-in bound sanity first, then every custom condition. All problems are
// reported in one pass.
func validateCriteria(criteria *models.EligibilityCriteria) []Issue {
	issues := validateBounds(criteria)

	seen := make(map[string]bool, len(criteria.CustomConditions))
	for i, cond := range criteria.CustomConditions {
		path := fmt.Sprintf("customConditions[%d]", i)
		if cond.ID != "" {
			if seen[cond.ID] {
				issues = append(issues, Issue{
					Field:       path + ".id",
					ConditionID: cond.ID,
					Code:        CodeDuplicateConditionID,
					Message:     fmt.Sprintf("condition id %q is used more than once", cond.ID),
				})
			}
			seen[cond.ID] = true
		}
		issues = append(issues, validateCondition(path, cond)...)
	}
	return issues
}

func validateBounds(criteria *models.EligibilityCriteria) []Issue {
	var issues []Issue

	checkRange := func(field string, v *float64, lo, hi float64) {
		if v != nil && (*v < lo || *v > hi) {
			issues = append(issues, Issue{
				Field:   field,
				Code:    CodeInvalidBound,
				Message: fmt.Sprintf("%s must be between %g and %g, got %g", field, lo, hi, *v),
			})
		}
	}

	checkRange("minGWA", criteria.MinGWA, 1.0, 5.0)
	checkRange("maxGWA", criteria.MaxGWA, 1.0, 5.0)
	if criteria.MinGWA != nil && criteria.MaxGWA != nil && *criteria.MinGWA > *criteria.MaxGWA {
		issues = append(issues, Issue{
			Field:   "minGWA",
			Code:    CodeInvalidBound,
			Message: "minGWA must not exceed maxGWA",
		})
	}

	if criteria.MinIncome != nil && *criteria.MinIncome < 0 {
		issues = append(issues, Issue{
			Field:   "minIncome",
			Code:    CodeInvalidBound,
			Message: "minIncome must not be negative",
		})
	}
	if criteria.MaxIncome != nil && *criteria.MaxIncome < 0 {
		issues = append(issues, Issue{
			Field:   "maxIncome",
			Code:    CodeInvalidBound,
			Message: "maxIncome must not be negative",
		})
	}
	if criteria.MinIncome != nil && criteria.MaxIncome != nil && *criteria.MinIncome > *criteria.MaxIncome {
		issues = append(issues, Issue{
			Field:   "minIncome",
			Code:    CodeInvalidBound,
			Message: "minIncome must not exceed maxIncome",
		})
	}

	if criteria.MinUnits != nil && *criteria.MinUnits <= 0 {
		issues = append(issues, Issue{
			Field:   "minUnits",
			Code:    CodeInvalidBound,
			Message: "minUnits must be positive",
		})
	}
	if criteria.MinYearLevel != nil && *criteria.MinYearLevel <= 0 {
		issues = append(issues, Issue{
			Field:   "minYearLevel",
			Code:    CodeInvalidBound,
			Message: "minYearLevel must be positive",
		})
	}
	return issues
}

func validateCondition(path string, cond models.CustomCondition) []Issue {
	if issues := validateConditionSchema(path, cond); len(issues) > 0 {
		return issues
	}

	operators, known := models.OperatorsByType[cond.ConditionType]
	if !known {
		return []Issue{{
			Field:       path + ".conditionType",
			ConditionID: cond.ID,
			Code:        CodeUnknownConditionType,
			Message:     fmt.Sprintf("unknown condition type %q", cond.ConditionType),
		}}
	}
	if !containsString(operators, cond.Operator) {
		return []Issue{{
			Field:       path + ".operator",
			ConditionID: cond.ID,
			Code:        CodeUnknownOperator,
			Message:     fmt.Sprintf("operator %q is not valid for %s conditions", cond.Operator, cond.ConditionType),
		}}
	}
	return validateConditionValue(path, cond)
}

func validateConditionSchema(path string, cond models.CustomCondition) []Issue {
	result, err := gojsonschema.Validate(conditionSchemaLoader, gojsonschema.NewGoLoader(cond))
	if err != nil {
		return []Issue{{
			Field:       path,
			ConditionID: cond.ID,
			Code:        CodeSchemaViolation,
			Message:     fmt.Sprintf("schema validation error: %v", err),
		}}
	}
	if result.Valid() {
		return nil
	}

	issues := make([]Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		code := CodeSchemaViolation
		if desc.Field() == "studentField" || desc.Details()["property"] == "studentField" {
			code = CodeMissingStudentField
		}
		issues = append(issues, Issue{
			Field:       path + "." + desc.Field(),
			ConditionID: cond.ID,
			Code:        code,
			Message:     desc.Description(),
		})
	}
	return issues
}

// validateConditionValue checks that the condition value has the shape its
// operator evaluates. Evaluation treats a malformed value as a failing check
// at runtime, so these are authoring errors.
func validateConditionValue(path string, cond models.CustomCondition) []Issue {
	field := path + ".value"
	issue := func(code, msg string) []Issue {
		return []Issue{{Field: field, ConditionID: cond.ID, Code: code, Message: msg}}
	}

	switch cond.ConditionType {
	case models.ConditionTypeRange:
		lo, hi, ok := rangeBounds(cond.Value)
		if !ok {
			return issue(CodeTypeMismatch, fmt.Sprintf("operator %q requires a numeric value, a [min, max] pair, or a {min, max} object", cond.Operator))
		}
		switch cond.Operator {
		case models.OpBetween, models.OpBetweenExclusive, models.OpOutside:
			if lo > hi {
				return issue(CodeInvalidBound, "range lower bound must not exceed upper bound")
			}
		}

	case models.ConditionTypeBoolean:
		switch cond.Operator {
		case models.OpIs, models.OpIsNot:
			if _, ok := cond.Value.(bool); !ok {
				return issue(CodeTypeMismatch, fmt.Sprintf("operator %q requires a boolean value", cond.Operator))
			}
		}

	case models.ConditionTypeList:
		switch cond.Operator {
		case models.OpContains, models.OpNotContains:
			if cond.Value == nil {
				return issue(CodeTypeMismatch, fmt.Sprintf("operator %q requires a value to look for", cond.Operator))
			}
		case models.OpIsEmpty, models.OpIsNotEmpty:
			// No value needed.
		default:
			if len(toStringList(cond.Value)) == 0 {
				return issue(CodeEmptyValueList, fmt.Sprintf("operator %q requires a non-empty value list", cond.Operator))
			}
		}
	}
	return nil
}

// rangeBounds mirrors the shapes evaluation accepts for range requirements.
func rangeBounds(v interface{}) (float64, float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, f, true
	}
	switch tv := v.(type) {
	case []interface{}:
		if len(tv) != 2 {
			return 0, 0, false
		}
		lo, ok1 := toFloat(tv[0])
		hi, ok2 := toFloat(tv[1])
		return lo, hi, ok1 && ok2
	case map[string]interface{}:
		lo, ok1 := toFloat(tv["min"])
		hi, ok2 := toFloat(tv["max"])
		return lo, hi, ok1 && ok2
	}
	return 0, 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case float32:
		return float64(tv), true
	case int:
		return float64(tv), true
	case int64:
		return float64(tv), true
	case int32:
		return float64(tv), true
	}
	return 0, false
}

func toStringList(v interface{}) []string {
	switch tv := v.(type) {
	case nil:
		return nil
	case []string:
		return tv
	case []interface{}:
		out := make([]string, 0, len(tv))
		for _, item := range tv {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	case string:
		if tv == "" {
			return nil
		}
		return []string{tv}
	}
	return []string{fmt.Sprintf("%v", v)}
}

func containsString(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
