// internal/workers/training/record-decision/models.go
package recorddecision

import "scholarship-workers/internal/models"

type Input struct {
	StudentProfile *models.StudentProfile `json:"studentProfile"`
	Scholarship    *models.Scholarship    `json:"scholarship"`
	Decision       string                 `json:"decision"` // approved | rejected
}

type Output struct {
	Recorded               bool   `json:"recorded"`
	SampleID               string `json:"sampleId"`
	ScholarshipSampleCount int    `json:"scholarshipSampleCount"`
}
