// internal/workers/training/record-decision/handler.go
package recorddecision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/autotrain"
	"scholarship-workers/internal/training/samplestore"
)

const (
	TaskType = "record-decision"
)

// SampleSink is the slice of the sample store this worker writes through.
type SampleSink interface {
	Insert(ctx context.Context, sample *models.TrainingSample) error
	CountForScholarship(ctx context.Context, scholarshipID string) (int, error)
}

// RetrainTrigger receives one notification per recorded decision.
type RetrainTrigger interface {
	OnDecision(ctx context.Context, scholarshipID string) error
}

var (
	_ SampleSink     = (*samplestore.Store)(nil)
	_ RetrainTrigger = (*autotrain.Orchestrator)(nil)
)

type Handler struct {
	config    *Config
	samples   SampleSink
	trigger   RetrainTrigger
	extractor *features.Extractor
	logger    logger.Logger
}

func NewHandler(config *Config, samples SampleSink, trigger RetrainTrigger, extractor *features.Extractor, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		samples:   samples,
		trigger:   trigger,
		extractor: extractor,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

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
		code := "DECISION_RECORD_FAILED"
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

// execute appends one labeled decision to the sample log and notifies the
// retrain orchestrator. Features are captured at decision time so later
// profile edits never rewrite training history.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.StudentProfile == nil {
		return nil, errors.NewInvalidStudentProfileError("studentProfile variable is required")
	}
	if input.Scholarship == nil {
		return nil, errors.NewInvalidCriteriaError("scholarship variable is required")
	}
	if input.Decision != models.LabelApproved && input.Decision != models.LabelRejected {
		return nil, errors.NewBusinessRuleError(
			"invalid decision label",
			fmt.Sprintf("decision must be %q or %q, got %q", models.LabelApproved, models.LabelRejected, input.Decision),
		)
	}

	sample := &models.TrainingSample{
		ID:            uuid.New().String(),
		ScholarshipID: input.Scholarship.ID,
		Features:      h.extractor.Extract(input.StudentProfile, input.Scholarship),
		Label:         input.Decision,
		CreatedAt:     time.Now(),
	}

	if err := h.samples.Insert(ctx, sample); err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}

	count, err := h.samples.CountForScholarship(ctx, input.Scholarship.ID)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("count_samples", err)
	}

	if err := h.trigger.OnDecision(ctx, input.Scholarship.ID); err != nil {
		return nil, errors.NewRedisOperationFailedError("decision trigger", err)
	}

	h.logger.Info("decision recorded", map[string]interface{}{
		"sampleId":      sample.ID,
		"studentId":     input.StudentProfile.StudentID,
		"scholarshipId": input.Scholarship.ID,
		"decision":      input.Decision,
		"sampleCount":   count,
	})

	return &Output{
		Recorded:               true,
		SampleID:               sample.ID,
		ScholarshipSampleCount: count,
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
