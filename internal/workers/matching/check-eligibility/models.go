// internal/workers/matching/check-eligibility/models.go
package checkeligibility

import "scholarship-workers/internal/models"

type Input struct {
	StudentProfile *models.StudentProfile `json:"studentProfile"`
	Scholarship    *models.Scholarship    `json:"scholarship"`
}

type Output struct {
	Passed bool                 `json:"passed"`
	Score  float64              `json:"score"`
	Checks []models.CheckResult `json:"checks"`
	Stages models.StageResults  `json:"stages"`
}
