// internal/workers/training/manage-model/handler.go
package managemodel

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
	"scholarship-workers/internal/training/modelstore"
)

const (
	TaskType = "manage-model"
)

// ModelRegistry is the slice of the model store this worker administers.
type ModelRegistry interface {
	Get(ctx context.Context, modelID string) (*models.Model, error)
	Activate(ctx context.Context, modelID string) error
	Delete(ctx context.Context, modelID string) error
}

// VersionBumper invalidates downstream caches after a registry mutation.
type VersionBumper interface {
	BumpModelVersion(ctx context.Context)
}

var (
	_ ModelRegistry = (*modelstore.Store)(nil)
	_ VersionBumper = (*autotrain.Orchestrator)(nil)
)

type Handler struct {
	config   *Config
	registry ModelRegistry
	versions VersionBumper
	logger   logger.Logger
}

func NewHandler(config *Config, registry ModelRegistry, versions VersionBumper, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		registry: registry,
		versions: versions,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
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
		code := "MODEL_MANAGEMENT_FAILED"
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
	if input.ModelID == "" {
		return nil, errors.NewBusinessRuleError("modelId is required", "")
	}

	output := &Output{Action: input.Action, ModelID: input.ModelID}

	switch input.Action {
	case ActionActivate:
		if err := h.registry.Activate(ctx, input.ModelID); err != nil {
			if stderrors.Is(err, modelstore.ErrModelNotFound) {
				return nil, errors.NewModelNotFoundError(input.ModelID)
			}
			return nil, errors.NewModelActivationFailedError(input.ModelID, err)
		}
		model, err := h.registry.Get(ctx, input.ModelID)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("get_model", err)
		}
		output.Model = model

	case ActionDelete:
		if err := h.registry.Delete(ctx, input.ModelID); err != nil {
			if stderrors.Is(err, modelstore.ErrModelNotFound) {
				return nil, errors.NewModelNotFoundError(input.ModelID)
			}
			return nil, errors.NewQueryExecutionFailedError("delete_model", err)
		}

	default:
		return nil, errors.NewBusinessRuleError(
			"invalid model action",
			fmt.Sprintf("action must be %q or %q, got %q", ActionActivate, ActionDelete, input.Action),
		)
	}

	// Either action changes what predictions see.
	h.versions.BumpModelVersion(ctx)

	h.logger.Info("model registry updated", map[string]interface{}{
		"action":  input.Action,
		"modelId": input.ModelID,
	})

	return output, nil
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
