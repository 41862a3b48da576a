// internal/matching/eligibility/conditions.go
package eligibility

import (
	"fmt"
	"strings"

	"scholarship-workers/internal/models"
)

// evaluateCondition dispatches an admin-authored condition into the
// range/boolean/list operator families. The student field resolves through
// the profile's typed accessor; a field the profile does not carry is a
// normal failing check, not an error. The exists/not_exists operators are
// the exception since presence is exactly what they test.
func evaluateCondition(profile *models.StudentProfile, cond models.CustomCondition) models.CheckResult {
	check := models.CheckResult{
		Criterion:     cond.Name,
		RequiredValue: cond.Value,
		Type:          string(cond.ConditionType),
		Category:      conditionCategory(cond),
		Importance:    conditionImportance(cond),
	}

	raw, present := profile.Field(cond.StudentField)
	if present {
		check.ApplicantValue = raw
	}

	switch cond.ConditionType {
	case models.ConditionTypeBoolean:
		check.Passed, check.Notes = evalBoolean(raw, present, cond)
	case models.ConditionTypeRange:
		if !present {
			check.Notes = fmt.Sprintf("%s not provided", cond.StudentField)
			return check
		}
		check.Passed, check.Notes = evalRange(raw, cond)
	case models.ConditionTypeList:
		check.Passed, check.Notes = evalList(raw, present, cond)
	default:
		check.Notes = fmt.Sprintf("unknown condition type %q", cond.ConditionType)
	}
	return check
}

func conditionCategory(cond models.CustomCondition) string {
	switch cond.Category {
	case models.CategoryAcademic, models.CategoryFinancial:
		return cond.Category
	default:
		return models.CategoryAdditional
	}
}

func conditionImportance(cond models.CustomCondition) models.Importance {
	switch cond.Importance {
	case models.ImportancePreferred, models.ImportanceOptional:
		return cond.Importance
	default:
		return models.ImportanceRequired
	}
}

func evalBoolean(raw interface{}, present bool, cond models.CustomCondition) (bool, string) {
	switch cond.Operator {
	case models.OpExists:
		if present {
			return true, fmt.Sprintf("%s is provided", cond.StudentField)
		}
		return false, fmt.Sprintf("%s not provided", cond.StudentField)
	case models.OpNotExists:
		if present {
			return false, fmt.Sprintf("%s must not be provided", cond.StudentField)
		}
		return true, fmt.Sprintf("%s is absent", cond.StudentField)
	}

	if !present {
		return false, fmt.Sprintf("%s not provided", cond.StudentField)
	}
	actual, ok := raw.(bool)
	if !ok {
		return false, fmt.Sprintf("%s is not a boolean value", cond.StudentField)
	}

	switch cond.Operator {
	case models.OpIsTrue:
		return boolResult(actual, cond.StudentField, true)
	case models.OpIsFalse:
		return boolResult(!actual, cond.StudentField, false)
	case models.OpIs:
		expected, _ := cond.Value.(bool)
		return boolResult(actual == expected, cond.StudentField, expected)
	case models.OpIsNot:
		expected, _ := cond.Value.(bool)
		return boolResult(actual != expected, cond.StudentField, !expected)
	}
	return false, fmt.Sprintf("unknown boolean operator %q", cond.Operator)
}

func boolResult(passed bool, field string, expected bool) (bool, string) {
	if passed {
		return true, fmt.Sprintf("%s meets requirement", field)
	}
	return false, fmt.Sprintf("%s must be %v, does not meet requirement", field, expected)
}

func evalRange(raw interface{}, cond models.CustomCondition) (bool, string) {
	value, ok := toFloat(raw)
	if !ok {
		return false, fmt.Sprintf("%s is not a numeric value", cond.StudentField)
	}

	lo, hi, ok := rangeBounds(cond.Value)
	if !ok {
		return false, fmt.Sprintf("invalid range requirement for %s", cond.StudentField)
	}

	passed := compareRange(value, lo, hi, cond.Operator)
	if passed {
		return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
	}
	return false, fmt.Sprintf("%s %v does not meet requirement", cond.StudentField, value)
}

// rangeBounds accepts a scalar requirement, a [min,max] pair, or a
// {"min":..,"max":..} object. For scalar requirements both bounds carry the
// same value.
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

func compareRange(value, lo, hi float64, op string) bool {
	switch op {
	case models.OpLessThan:
		return value < lo
	case models.OpLessThanOrEq:
		return value <= lo
	case models.OpGreaterThan:
		return value > lo
	case models.OpGreaterThanOrEq:
		return value >= lo
	case models.OpEqual:
		return value == lo
	case models.OpNotEqual:
		return value != lo
	case models.OpBetween:
		return value >= lo && value <= hi
	case models.OpBetweenExclusive:
		return value > lo && value < hi
	case models.OpOutside:
		return value < lo || value > hi
	}
	return false
}

func evalList(raw interface{}, present bool, cond models.CustomCondition) (bool, string) {
	required := toStringList(cond.Value)

	switch cond.Operator {
	case models.OpIsEmpty:
		if !present || len(toStringList(raw)) == 0 {
			return true, fmt.Sprintf("%s is empty", cond.StudentField)
		}
		return false, fmt.Sprintf("%s must be empty", cond.StudentField)
	case models.OpIsNotEmpty:
		if present && len(toStringList(raw)) > 0 {
			return true, fmt.Sprintf("%s is provided", cond.StudentField)
		}
		return false, fmt.Sprintf("%s not provided", cond.StudentField)
	}

	// An empty requirement list imposes no restriction.
	if len(required) == 0 && cond.Operator != models.OpContains && cond.Operator != models.OpNotContains {
		return true, "no restriction"
	}

	if !present {
		return false, fmt.Sprintf("%s not provided", cond.StudentField)
	}

	switch cond.Operator {
	case models.OpIn, models.OpMatchesAny:
		applicant := toStringList(raw)
		if len(applicant) == 0 {
			return false, fmt.Sprintf("%s not provided", cond.StudentField)
		}
		for _, a := range applicant {
			if containsFold(required, a) {
				return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
			}
		}
		return false, fmt.Sprintf("%s does not meet requirement", cond.StudentField)
	case models.OpNotIn:
		for _, a := range toStringList(raw) {
			if containsFold(required, a) {
				return false, fmt.Sprintf("%s %q is excluded", cond.StudentField, a)
			}
		}
		return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
	case models.OpContains:
		target := fmt.Sprintf("%v", cond.Value)
		if containsFold(toStringList(raw), target) {
			return true, fmt.Sprintf("%s contains %q", cond.StudentField, target)
		}
		return false, fmt.Sprintf("%s does not contain %q", cond.StudentField, target)
	case models.OpNotContains:
		target := fmt.Sprintf("%v", cond.Value)
		if containsFold(toStringList(raw), target) {
			return false, fmt.Sprintf("%s must not contain %q", cond.StudentField, target)
		}
		return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
	case models.OpContainsAll, models.OpMatchesAll:
		applicant := toStringList(raw)
		if len(applicant) == 0 {
			return false, fmt.Sprintf("%s not provided", cond.StudentField)
		}
		for _, r := range required {
			if !containsFold(applicant, r) {
				return false, fmt.Sprintf("%s is missing %q", cond.StudentField, r)
			}
		}
		return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
	case models.OpContainsAny:
		applicant := toStringList(raw)
		if len(applicant) == 0 {
			return false, fmt.Sprintf("%s not provided", cond.StudentField)
		}
		for _, r := range required {
			if containsFold(applicant, r) {
				return true, fmt.Sprintf("%s meets requirement", cond.StudentField)
			}
		}
		return false, fmt.Sprintf("%s does not meet requirement", cond.StudentField)
	}
	return false, fmt.Sprintf("unknown list operator %q", cond.Operator)
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

// toStringList normalizes a scalar or slice value into a string slice.
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

func containsFold(list []string, target string) bool {
	for _, item := range list {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}
