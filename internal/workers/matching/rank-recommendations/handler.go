// internal/workers/matching/rank-recommendations/handler.go
package rankrecommendations

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/matching/eligibility"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/matching/logreg"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/modelstore"
)

const (
	TaskType = "rank-recommendations"
)

// ModelSource resolves the serving model for a scholarship.
type ModelSource interface {
	SelectForScholarship(ctx context.Context, scholarshipID string, minSamples int) (*models.Model, error)
}

type Handler struct {
	config    *Config
	store     ModelSource
	extractor *features.Extractor
	logger    logger.Logger
}

func NewHandler(config *Config, store ModelSource, extractor *features.Extractor, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		store:     store,
		extractor: extractor,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

var _ ModelSource = (*modelstore.Store)(nil)

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		code := "RANKING_FAILED"
		if stdErr, ok := err.(*errors.StandardError); ok {
			code = string(stdErr.Code)
		}
		h.failJob(client, job, code, err.Error())
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.StudentProfile == nil {
		return nil, errors.NewInvalidStudentProfileError("studentProfile variable is required")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = h.config.DefaultLimit
	}

	recommendations := make([]Recommendation, 0, len(input.Candidates))
	for _, scholarship := range input.Candidates {
		if scholarship == nil {
			continue
		}

		result := eligibility.Evaluate(input.StudentProfile, &scholarship.Criteria)

		probability := 0.5
		modelType := models.ModelTypeNone
		model, err := h.store.SelectForScholarship(ctx, scholarship.ID, h.config.MinSamplesScholarship)
		if err != nil {
			return nil, errors.NewPredictionFailedError(err)
		}
		if model != nil {
			feats := h.extractor.Extract(input.StudentProfile, scholarship)
			probability = logreg.Predict(feats, model)
			modelType = model.ModelType
		}

		recommendations = append(recommendations, Recommendation{
			ScholarshipID:    scholarship.ID,
			Name:             scholarship.Name,
			Eligible:         result.Passed,
			EligibilityScore: result.Score,
			Probability:      probability,
			ModelType:        modelType,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		if recommendations[i].Eligible != recommendations[j].Eligible {
			return recommendations[i].Eligible
		}
		return recommendations[i].Probability > recommendations[j].Probability
	})

	total := len(recommendations)
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}

	h.logger.Info("recommendations ranked", map[string]interface{}{
		"studentId": input.StudentProfile.StudentID,
		"evaluated": total,
		"returned":  len(recommendations),
	})

	return &Output{
		Recommendations: recommendations,
		TotalEvaluated:  total,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
