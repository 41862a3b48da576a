// internal/models/student.go
package models

// StudentProfile is the canonical student record consumed from the
// persistence collaborator. Numeric and boolean fields are pointers so a
// missing value is distinguishable from a zero value.
type StudentProfile struct {
	StudentID            string             `json:"studentId"`
	GWA                  *float64           `json:"gwa,omitempty"`
	AnnualFamilyIncome   *float64           `json:"annualFamilyIncome,omitempty"`
	UnitsEnrolled        *int               `json:"unitsEnrolled,omitempty"`
	YearLevel            *int               `json:"yearLevel,omitempty"`
	College              string             `json:"college,omitempty"`
	Course               string             `json:"course,omitempty"`
	Province             string             `json:"province,omitempty"`
	STBracket            string             `json:"stBracket,omitempty"`
	Citizenship          string             `json:"citizenship,omitempty"`
	HasOtherScholarship  *bool              `json:"hasOtherScholarship,omitempty"`
	GoodMoralCertificate *bool              `json:"goodMoralCertificate,omitempty"`
	ProfileCompleteness  float64            `json:"profileCompleteness"`
	DocumentCompleteness float64            `json:"documentCompleteness"`
	Extra                map[string]interface{} `json:"extra,omitempty"`
}

// Canonical field keys accepted by Field and by custom-condition
// studentField references.
const (
	FieldGWA                  = "gwa"
	FieldAnnualFamilyIncome   = "annualFamilyIncome"
	FieldUnitsEnrolled        = "unitsEnrolled"
	FieldYearLevel            = "yearLevel"
	FieldCollege              = "college"
	FieldCourse               = "course"
	FieldProvince             = "province"
	FieldSTBracket            = "stBracket"
	FieldCitizenship          = "citizenship"
	FieldHasOtherScholarship  = "hasOtherScholarship"
	FieldGoodMoralCertificate = "goodMoralCertificate"
	FieldProfileCompleteness  = "profileCompleteness"
	FieldDocumentCompleteness = "documentCompleteness"
)

// Field looks up a profile value by its canonical key. Admin-defined fields
// resolve through Extra. The second return value reports whether the student
// actually provided the value; a nil pointer or empty string means not
// provided.
func (p *StudentProfile) Field(key string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	switch key {
	case FieldGWA:
		return derefFloat(p.GWA)
	case FieldAnnualFamilyIncome:
		return derefFloat(p.AnnualFamilyIncome)
	case FieldUnitsEnrolled:
		return derefInt(p.UnitsEnrolled)
	case FieldYearLevel:
		return derefInt(p.YearLevel)
	case FieldCollege:
		return nonEmpty(p.College)
	case FieldCourse:
		return nonEmpty(p.Course)
	case FieldProvince:
		return nonEmpty(p.Province)
	case FieldSTBracket:
		return nonEmpty(p.STBracket)
	case FieldCitizenship:
		return nonEmpty(p.Citizenship)
	case FieldHasOtherScholarship:
		return derefBool(p.HasOtherScholarship)
	case FieldGoodMoralCertificate:
		return derefBool(p.GoodMoralCertificate)
	case FieldProfileCompleteness:
		return p.ProfileCompleteness, true
	case FieldDocumentCompleteness:
		return p.DocumentCompleteness, true
	}
	if p.Extra != nil {
		if v, ok := p.Extra[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func derefFloat(v *float64) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func derefInt(v *int) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func derefBool(v *bool) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func nonEmpty(s string) (interface{}, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}
