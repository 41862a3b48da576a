// internal/matching/features/extractor.go

// Package features maps a (student, scholarship) pair into the normalized
// numeric feature vector consumed by the logistic regression engine. The
// extractor is the single source of truth for these transforms: both
// training-sample construction and live prediction must go through the same
// Extract call, otherwise the model silently scores a different space than
// it was trained on.
package features

import (
	"math"
	"strings"

	"scholarship-workers/internal/models"
)

// Feature names emitted by Extract.
const (
	FeatureGWA              = "gwa"
	FeatureIncomeNeed       = "income_need"
	FeatureUnitsLoad        = "units_load"
	FeatureYearLevel        = "year_level"
	FeatureCollegeMatch     = "college_match"
	FeatureCourseMatch      = "course_match"
	FeatureProvinceMatch    = "province_match"
	FeatureSTBracketMatch   = "st_bracket_match"
	FeatureCitizenshipMatch = "citizenship_match"
	FeatureNoOtherGrant     = "no_other_scholarship"
	FeatureGoodMoral        = "good_moral"
	FeatureProfileComplete  = "profile_completeness"
	FeatureDocsComplete     = "document_completeness"
)

// Config holds the platform-wide reference values the transforms rescale
// against.
type Config struct {
	// IncomeCeiling is the annual family income mapped to zero need.
	IncomeCeiling float64 `mapstructure:"income_ceiling"`
	// MaxUnits is the reference full load for the units transform.
	MaxUnits float64 `mapstructure:"max_units"`
	// MaxYearLevel is the highest year level on the platform.
	MaxYearLevel float64 `mapstructure:"max_year_level"`
}

// DefaultConfig returns the documented platform defaults.
func DefaultConfig() Config {
	return Config{
		IncomeCeiling: 2_000_000,
		MaxUnits:      21,
		MaxYearLevel:  5,
	}
}

type Extractor struct {
	cfg Config
}

func New(cfg Config) *Extractor {
	if cfg.IncomeCeiling <= 0 {
		cfg.IncomeCeiling = DefaultConfig().IncomeCeiling
	}
	if cfg.MaxUnits <= 0 {
		cfg.MaxUnits = DefaultConfig().MaxUnits
	}
	if cfg.MaxYearLevel <= 1 {
		cfg.MaxYearLevel = DefaultConfig().MaxYearLevel
	}
	return &Extractor{cfg: cfg}
}

// Extract builds the feature vector. Every value is in [0,1]. Features the
// student has no value for are omitted from the map; the prediction side
// reads absent features as zero, which keeps old models compatible with
// newer feature sets.
func (e *Extractor) Extract(profile *models.StudentProfile, scholarship *models.Scholarship) map[string]float64 {
	out := make(map[string]float64, 13)
	if profile == nil {
		return out
	}

	if profile.GWA != nil {
		// GWA runs 1.00 (best) to 5.00 (worst): invert and rescale.
		out[FeatureGWA] = clamp01((5.0 - *profile.GWA) / 4.0)
	}
	if profile.AnnualFamilyIncome != nil {
		// Log-scaled against the platform ceiling, inverted so higher
		// financial need scores higher.
		ratio := math.Log1p(math.Max(*profile.AnnualFamilyIncome, 0)) / math.Log1p(e.cfg.IncomeCeiling)
		out[FeatureIncomeNeed] = clamp01(1.0 - ratio)
	}
	if profile.UnitsEnrolled != nil {
		out[FeatureUnitsLoad] = clamp01(float64(*profile.UnitsEnrolled) / e.cfg.MaxUnits)
	}
	if profile.YearLevel != nil {
		out[FeatureYearLevel] = clamp01((float64(*profile.YearLevel) - 1.0) / (e.cfg.MaxYearLevel - 1.0))
	}

	var criteria *models.EligibilityCriteria
	if scholarship != nil {
		criteria = &scholarship.Criteria
	}
	out[FeatureCollegeMatch] = matchIndicator(profile.College, listOf(criteria, func(c *models.EligibilityCriteria) []string { return c.EligibleColleges }))
	out[FeatureCourseMatch] = matchIndicator(profile.Course, listOf(criteria, func(c *models.EligibilityCriteria) []string { return c.EligibleCourses }))
	out[FeatureProvinceMatch] = matchIndicator(profile.Province, listOf(criteria, func(c *models.EligibilityCriteria) []string { return c.EligibleProvinces }))
	out[FeatureSTBracketMatch] = matchIndicator(profile.STBracket, listOf(criteria, func(c *models.EligibilityCriteria) []string { return c.EligibleSTBrackets }))
	out[FeatureCitizenshipMatch] = matchIndicator(profile.Citizenship, listOf(criteria, func(c *models.EligibilityCriteria) []string { return c.EligibleCitizenships }))

	if profile.HasOtherScholarship != nil {
		out[FeatureNoOtherGrant] = indicator(!*profile.HasOtherScholarship)
	}
	if profile.GoodMoralCertificate != nil {
		out[FeatureGoodMoral] = indicator(*profile.GoodMoralCertificate)
	}

	out[FeatureProfileComplete] = clamp01(profile.ProfileCompleteness)
	out[FeatureDocsComplete] = clamp01(profile.DocumentCompleteness)

	return out
}

func listOf(c *models.EligibilityCriteria, pick func(*models.EligibilityCriteria) []string) []string {
	if c == nil {
		return nil
	}
	return pick(c)
}

// matchIndicator is 1 when the requirement list is empty (unrestricted) or
// the value is a case-insensitive member of it.
func matchIndicator(value string, allowed []string) float64 {
	if len(allowed) == 0 {
		return 1
	}
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return 1
		}
	}
	return 0
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
