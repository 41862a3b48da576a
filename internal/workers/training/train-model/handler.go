// internal/workers/training/train-model/handler.go
package trainmodel

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/autotrain"
)

const (
	TaskType = "train-model"
)

// Trainer is the synchronous training surface of the orchestrator.
type Trainer interface {
	TrainGlobal(ctx context.Context) (*autotrain.Result, error)
	TrainScholarship(ctx context.Context, scholarshipID string) (*autotrain.Result, error)
	TrainAll(ctx context.Context) ([]*autotrain.Result, error)
}

var _ Trainer = (*autotrain.Orchestrator)(nil)

type Handler struct {
	config  *Config
	trainer Trainer
	logger  logger.Logger
}

func NewHandler(config *Config, trainer Trainer, log logger.Logger) *Handler {
	return &Handler{
		config:  config,
		trainer: trainer,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		code := "TRAINING_FAILED"
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
	start := time.Now()

	var (
		results []*autotrain.Result
		scope   string
		err     error
	)
	switch input.Mode {
	case ModeGlobal:
		scope = models.ScopeGlobal
		var result *autotrain.Result
		result, err = h.trainer.TrainGlobal(ctx)
		if result != nil {
			results = []*autotrain.Result{result}
		}
	case ModeScholarship:
		if input.ScholarshipID == "" {
			return nil, errors.NewBusinessRuleError("scholarshipId is required", "mode scholarship needs a scholarshipId")
		}
		scope = input.ScholarshipID
		var result *autotrain.Result
		result, err = h.trainer.TrainScholarship(ctx, input.ScholarshipID)
		if result != nil {
			results = []*autotrain.Result{result}
		}
	case ModeAll:
		scope = "all"
		results, err = h.trainer.TrainAll(ctx)
	default:
		return nil, errors.NewBusinessRuleError(
			"invalid training mode",
			fmt.Sprintf("mode must be %q, %q or %q, got %q", ModeGlobal, ModeScholarship, ModeAll, input.Mode),
		)
	}

	if err != nil {
		if stderrors.Is(err, autotrain.ErrTrainingInProgress) {
			metrics.TrainingRuns.WithLabelValues(scope, "in_progress").Inc()
			return nil, errors.NewTrainingInProgressError(scope)
		}
		metrics.TrainingRuns.WithLabelValues(scope, "failed").Inc()
		return nil, errors.NewTrainingFailedError(scope, err)
	}

	for _, result := range results {
		metrics.TrainingRuns.WithLabelValues(result.Scope, result.Status).Inc()
	}
	metrics.TrainingDuration.WithLabelValues(scope).Observe(time.Since(start).Seconds())

	h.logger.Info("training finished", map[string]interface{}{
		"mode":    input.Mode,
		"scopes":  len(results),
		"elapsed": time.Since(start).String(),
	})

	return &Output{Results: results}, nil
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
