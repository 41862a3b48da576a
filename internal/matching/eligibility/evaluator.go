// internal/matching/eligibility/evaluator.go
package eligibility

import (
	"fmt"

	"scholarship-workers/internal/models"
)

// Result is the outcome of evaluating one student against one scholarship's
// criteria. Passed is true when every required check passed; Score is the
// ratio of passed checks over all checks (1.0 when nothing was checkable).
type Result struct {
	Passed bool                 `json:"passed"`
	Score  float64              `json:"score"`
	Checks []models.CheckResult `json:"checks"`
	Stages models.StageResults  `json:"stages"`
}

// Evaluate applies a scholarship's criteria to a student profile. It is pure
// and stateless: identical inputs always yield identical output. An unset
// criterion contributes no check; a set criterion the applicant has no value
// for contributes a failing check with a "not provided" note.
func Evaluate(profile *models.StudentProfile, criteria *models.EligibilityCriteria) *Result {
	var checks []models.CheckResult

	if criteria != nil {
		checks = append(checks, builtinChecks(profile, criteria)...)
		for _, cond := range criteria.CustomConditions {
			if !cond.IsActive {
				continue
			}
			checks = append(checks, evaluateCondition(profile, cond))
		}
	}

	res := &Result{Checks: checks}
	if len(checks) == 0 {
		// A scholarship with no machine-checkable criteria is
		// eligible by default.
		res.Passed = true
		res.Score = 1.0
		return res
	}

	passedCount := 0
	requiredFailed := false
	for _, c := range checks {
		if c.Passed {
			passedCount++
		} else if c.Importance == models.ImportanceRequired {
			requiredFailed = true
		}
	}
	res.Passed = !requiredFailed
	res.Score = float64(passedCount) / float64(len(checks))
	res.Stages = groupStages(checks)
	return res
}

func builtinChecks(profile *models.StudentProfile, c *models.EligibilityCriteria) []models.CheckResult {
	var checks []models.CheckResult

	if c.MinGWA != nil {
		checks = append(checks, rangeCheck("min_gwa", "GWA", models.CategoryAcademic,
			floatValue(profile, models.FieldGWA), *c.MinGWA, models.OpGreaterThanOrEq))
	}
	if c.MaxGWA != nil {
		checks = append(checks, rangeCheck("max_gwa", "GWA", models.CategoryAcademic,
			floatValue(profile, models.FieldGWA), *c.MaxGWA, models.OpLessThanOrEq))
	}
	if c.MinIncome != nil {
		checks = append(checks, rangeCheck("min_income", "annual family income", models.CategoryFinancial,
			floatValue(profile, models.FieldAnnualFamilyIncome), *c.MinIncome, models.OpGreaterThanOrEq))
	}
	if c.MaxIncome != nil {
		checks = append(checks, rangeCheck("max_income", "annual family income", models.CategoryFinancial,
			floatValue(profile, models.FieldAnnualFamilyIncome), *c.MaxIncome, models.OpLessThanOrEq))
	}
	if c.MinUnits != nil {
		checks = append(checks, rangeCheck("min_units", "enrolled units", models.CategoryAcademic,
			floatValue(profile, models.FieldUnitsEnrolled), float64(*c.MinUnits), models.OpGreaterThanOrEq))
	}
	if c.MinYearLevel != nil {
		checks = append(checks, rangeCheck("min_year_level", "year level", models.CategoryAcademic,
			floatValue(profile, models.FieldYearLevel), float64(*c.MinYearLevel), models.OpGreaterThanOrEq))
	}

	if len(c.EligibleColleges) > 0 {
		checks = append(checks, membershipCheck("eligible_colleges", "college", models.CategoryAcademic,
			stringValue(profile, models.FieldCollege), c.EligibleColleges))
	}
	if len(c.EligibleCourses) > 0 {
		checks = append(checks, membershipCheck("eligible_courses", "course", models.CategoryAcademic,
			stringValue(profile, models.FieldCourse), c.EligibleCourses))
	}
	if len(c.EligibleProvinces) > 0 {
		checks = append(checks, membershipCheck("eligible_provinces", "province", models.CategoryAdditional,
			stringValue(profile, models.FieldProvince), c.EligibleProvinces))
	}
	if len(c.EligibleSTBrackets) > 0 {
		checks = append(checks, membershipCheck("eligible_st_brackets", "ST bracket", models.CategoryFinancial,
			stringValue(profile, models.FieldSTBracket), c.EligibleSTBrackets))
	}
	if len(c.EligibleCitizenships) > 0 {
		checks = append(checks, membershipCheck("eligible_citizenships", "citizenship", models.CategoryAdditional,
			stringValue(profile, models.FieldCitizenship), c.EligibleCitizenships))
	}

	if c.MustNotHaveOtherScholarship {
		checks = append(checks, exclusionCheck("no_other_scholarship", "other scholarship", models.CategoryAdditional,
			boolValue(profile, models.FieldHasOtherScholarship)))
	}
	if c.RequireGoodMoral {
		checks = append(checks, requiredFlagCheck("good_moral_certificate", "good moral certificate", models.CategoryAdditional,
			boolValue(profile, models.FieldGoodMoralCertificate)))
	}

	return checks
}

// rangeCheck builds a single-bound numeric check. A missing applicant value
// always fails with a distinct note and is never treated as zero.
func rangeCheck(criterion, label, category string, value *float64, bound float64, op string) models.CheckResult {
	check := models.CheckResult{
		Criterion:     criterion,
		RequiredValue: bound,
		Type:          string(models.ConditionTypeRange),
		Category:      category,
		Importance:    models.ImportanceRequired,
	}
	if value == nil {
		check.Notes = fmt.Sprintf("%s not provided", label)
		return check
	}
	check.ApplicantValue = *value
	check.Passed = compareRange(*value, bound, 0, op)
	if check.Passed {
		check.Notes = fmt.Sprintf("%s meets requirement", label)
	} else {
		check.Notes = fmt.Sprintf("%s %v does not meet requirement (%s %v)", label, *value, boundWord(op), bound)
	}
	return check
}

func boundWord(op string) string {
	switch op {
	case models.OpLessThan, models.OpLessThanOrEq:
		return "max"
	case models.OpGreaterThan, models.OpGreaterThanOrEq:
		return "min"
	default:
		return op
	}
}

// membershipCheck tests a scalar applicant value against a non-empty
// requirement list. Callers skip the check entirely for empty lists.
func membershipCheck(criterion, label, category string, value *string, allowed []string) models.CheckResult {
	check := models.CheckResult{
		Criterion:     criterion,
		RequiredValue: allowed,
		Type:          string(models.ConditionTypeList),
		Category:      category,
		Importance:    models.ImportanceRequired,
	}
	if value == nil {
		check.Notes = fmt.Sprintf("%s not provided", label)
		return check
	}
	check.ApplicantValue = *value
	check.Passed = containsFold(allowed, *value)
	if check.Passed {
		check.Notes = fmt.Sprintf("%s is eligible", label)
	} else {
		check.Notes = fmt.Sprintf("%s %q does not meet requirement", label, *value)
	}
	return check
}

// exclusionCheck covers must-not-have flags: the check passes when the
// applicant explicitly does not have the attribute.
func exclusionCheck(criterion, label, category string, value *bool) models.CheckResult {
	check := models.CheckResult{
		Criterion:     criterion,
		RequiredValue: false,
		Type:          string(models.ConditionTypeBoolean),
		Category:      category,
		Importance:    models.ImportanceRequired,
	}
	if value == nil {
		check.Notes = fmt.Sprintf("%s status not provided", label)
		return check
	}
	check.ApplicantValue = *value
	check.Passed = !*value
	if check.Passed {
		check.Notes = fmt.Sprintf("no %s", label)
	} else {
		check.Notes = fmt.Sprintf("has %s, does not meet requirement", label)
	}
	return check
}

func requiredFlagCheck(criterion, label, category string, value *bool) models.CheckResult {
	check := models.CheckResult{
		Criterion:     criterion,
		RequiredValue: true,
		Type:          string(models.ConditionTypeBoolean),
		Category:      category,
		Importance:    models.ImportanceRequired,
	}
	if value == nil {
		check.Notes = fmt.Sprintf("%s not provided", label)
		return check
	}
	check.ApplicantValue = *value
	check.Passed = *value
	if check.Passed {
		check.Notes = fmt.Sprintf("%s provided", label)
	} else {
		check.Notes = fmt.Sprintf("%s missing, does not meet requirement", label)
	}
	return check
}

func groupStages(checks []models.CheckResult) models.StageResults {
	var stages models.StageResults
	for _, c := range checks {
		switch c.Category {
		case models.CategoryAcademic:
			stages.Academic = append(stages.Academic, c)
		case models.CategoryFinancial:
			stages.Financial = append(stages.Financial, c)
		default:
			stages.Additional = append(stages.Additional, c)
		}
	}
	return stages
}

func floatValue(p *models.StudentProfile, key string) *float64 {
	raw, ok := p.Field(key)
	if !ok {
		return nil
	}
	f, ok := toFloat(raw)
	if !ok {
		return nil
	}
	return &f
}

func stringValue(p *models.StudentProfile, key string) *string {
	raw, ok := p.Field(key)
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	return &s
}

func boolValue(p *models.StudentProfile, key string) *bool {
	raw, ok := p.Field(key)
	if !ok {
		return nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil
	}
	return &b
}
