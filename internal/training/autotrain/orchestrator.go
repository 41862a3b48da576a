// internal/training/autotrain/orchestrator.go

// Package autotrain drives model retraining from the stream of recorded
// decisions. Counters, per-scope training locks and the event log live in
// Redis so every worker instance sees the same state. A scope is either
// "global" or a scholarship id; at most one training run per scope holds
// the lock, and a trigger that finds the lock held is dropped, never queued.
package autotrain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/matching/logreg"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/modelstore"
)

const (
	KeyGlobalCounter = "autotrain:counter:global"
	KeyEvents        = "autotrain:events"
	KeyModelVersion  = "autotrain:model_version"

	lockKeyPrefix = "autotrain:lock:"
)

// ErrTrainingInProgress is returned by the synchronous Train* entry points
// when the scope's lock is already held.
var ErrTrainingInProgress = errors.New("TRAINING_IN_PROGRESS")

// Result statuses.
const (
	StatusTrained = "trained"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Result describes the outcome of one training run for one scope.
type Result struct {
	Scope       string  `json:"scope"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
	ModelID     string  `json:"modelId,omitempty"`
	Accuracy    float64 `json:"accuracy,omitempty"`
	SampleCount int     `json:"sampleCount"`
}

// Config controls the trigger toggle, thresholds, lock lifetime and the
// event log bound. Enabled only gates the automatic triggers; the explicit
// Train* entry points work either way.
type Config struct {
	Enabled                     bool          `mapstructure:"enabled" json:"enabled"`
	DecisionsUntilGlobalRetrain int           `mapstructure:"decisions_until_global_retrain" json:"decisionsUntilGlobalRetrain"`
	MinSamplesGlobal            int           `mapstructure:"min_samples_global" json:"minSamplesGlobal"`
	MinSamplesScholarship       int           `mapstructure:"min_samples_scholarship" json:"minSamplesScholarship"`
	ScholarshipRetrainInterval  int           `mapstructure:"scholarship_retrain_interval" json:"scholarshipRetrainInterval"`
	LockTTL                     time.Duration `mapstructure:"lock_ttl" json:"lockTtl"`
	TrainTimeout                time.Duration `mapstructure:"train_timeout" json:"trainTimeout"`
	EventLogSize                int           `mapstructure:"event_log_size" json:"eventLogSize"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:                     true,
		DecisionsUntilGlobalRetrain: 50,
		MinSamplesGlobal:            50,
		MinSamplesScholarship:       20,
		ScholarshipRetrainInterval:  10,
		LockTTL:                     10 * time.Minute,
		TrainTimeout:                5 * time.Minute,
		EventLogSize:                100,
	}
}

// SampleSource is the slice of the sample store the orchestrator needs.
type SampleSource interface {
	ListAll(ctx context.Context) ([]*models.TrainingSample, error)
	ListForScholarship(ctx context.Context, scholarshipID string) ([]*models.TrainingSample, error)
	CountForScholarship(ctx context.Context, scholarshipID string) (int, error)
	ScholarshipIDs(ctx context.Context) ([]string, error)
}

// ModelSink persists and activates a freshly trained model.
type ModelSink interface {
	SaveAndActivate(ctx context.Context, model *models.Model) error
}

type Orchestrator struct {
	config    Config
	logregCfg logreg.Config
	redis     *redis.Client
	samples   SampleSource
	store     ModelSink
	logger    logger.Logger

	wg sync.WaitGroup
}

func New(cfg Config, logregCfg logreg.Config, rdb *redis.Client, samples SampleSource, store ModelSink, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		config:    cfg,
		logregCfg: logregCfg,
		redis:     rdb,
		samples:   samples,
		store:     store,
		logger:    log.WithFields(map[string]interface{}{"component": "autotrain"}),
	}
}

var _ ModelSink = (*modelstore.Store)(nil)

func lockKey(scope string) string {
	return lockKeyPrefix + scope
}

// OnDecision is called once per recorded decision. It advances the global
// counter and, when a threshold is crossed, starts the matching retrain in
// the background. Trigger evaluation never blocks the caller on training.
// A disabled orchestrator keeps counting but never schedules a retrain.
func (o *Orchestrator) OnDecision(ctx context.Context, scholarshipID string) error {
	n, err := o.redis.Incr(ctx, KeyGlobalCounter).Result()
	if err != nil {
		return fmt.Errorf("increment decision counter: %w", err)
	}
	if !o.config.Enabled {
		return nil
	}
	if n >= int64(o.config.DecisionsUntilGlobalRetrain) {
		if err := o.redis.Set(ctx, KeyGlobalCounter, 0, 0).Err(); err != nil {
			return fmt.Errorf("reset decision counter: %w", err)
		}
		o.trainInBackground(models.ScopeGlobal)
	}

	if scholarshipID == "" {
		return nil
	}
	count, err := o.samples.CountForScholarship(ctx, scholarshipID)
	if err != nil {
		return fmt.Errorf("count scholarship samples: %w", err)
	}
	if o.scholarshipDue(count) {
		o.trainInBackground(scholarshipID)
	}
	return nil
}

// scholarshipDue reports whether a scholarship's sample count has just
// reached its first-training floor or a subsequent retrain interval.
func (o *Orchestrator) scholarshipDue(count int) bool {
	min := o.config.MinSamplesScholarship
	if count < min {
		return false
	}
	return (count-min)%o.config.ScholarshipRetrainInterval == 0
}

// trainInBackground acquires the scope lock and runs the training
// goroutine. A held lock drops the trigger.
func (o *Orchestrator) trainInBackground(scope string) {
	acquired, err := o.redis.SetNX(context.Background(), lockKey(scope), "1", o.config.LockTTL).Result()
	if err != nil {
		o.logger.Error("Failed to acquire training lock", map[string]interface{}{
			"scope": scope,
			"error": err.Error(),
		})
		return
	}
	if !acquired {
		o.logger.Info("Retrain trigger skipped: already training", map[string]interface{}{
			"scope": scope,
		})
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), o.config.TrainTimeout)
		defer cancel()
		defer o.unlock(scope)

		result, err := o.train(ctx, scope)
		if err != nil {
			o.logger.Error("Background training failed", map[string]interface{}{
				"scope": scope,
				"error": err.Error(),
			})
			return
		}
		o.logger.Info("Background training finished", map[string]interface{}{
			"scope":       scope,
			"status":      result.Status,
			"sampleCount": result.SampleCount,
		})
	}()
}

// Wait blocks until all background training runs have finished. Called on
// shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// TrainGlobal retrains the global model synchronously. Returns
// ErrTrainingInProgress when the scope lock is held.
func (o *Orchestrator) TrainGlobal(ctx context.Context) (*Result, error) {
	return o.trainLocked(ctx, models.ScopeGlobal)
}

// TrainScholarship retrains one scholarship's model synchronously.
func (o *Orchestrator) TrainScholarship(ctx context.Context, scholarshipID string) (*Result, error) {
	return o.trainLocked(ctx, scholarshipID)
}

// TrainAll retrains the global model and every scholarship with recorded
// samples, returning one result per scope. A scope that is already
// training is reported as skipped rather than failing the batch.
func (o *Orchestrator) TrainAll(ctx context.Context) ([]*Result, error) {
	scopes := []string{models.ScopeGlobal}
	ids, err := o.samples.ScholarshipIDs(ctx)
	if err != nil {
		return nil, err
	}
	scopes = append(scopes, ids...)

	results := make([]*Result, 0, len(scopes))
	for _, scope := range scopes {
		result, err := o.trainLocked(ctx, scope)
		if errors.Is(err, ErrTrainingInProgress) {
			result = &Result{Scope: scope, Status: StatusSkipped, Reason: "already training"}
		} else if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

func (o *Orchestrator) trainLocked(ctx context.Context, scope string) (*Result, error) {
	acquired, err := o.redis.SetNX(ctx, lockKey(scope), "1", o.config.LockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire training lock: %w", err)
	}
	if !acquired {
		return nil, ErrTrainingInProgress
	}
	defer o.unlock(scope)
	return o.train(ctx, scope)
}

// train runs one fit for one scope. The caller holds the scope lock. A
// failed or skipped run leaves the model registry untouched.
func (o *Orchestrator) train(ctx context.Context, scope string) (*Result, error) {
	var (
		samples []*models.TrainingSample
		min     int
		err     error
	)
	if scope == models.ScopeGlobal {
		samples, err = o.samples.ListAll(ctx)
		min = o.config.MinSamplesGlobal
	} else {
		samples, err = o.samples.ListForScholarship(ctx, scope)
		min = o.config.MinSamplesScholarship
	}
	if err != nil {
		return nil, fmt.Errorf("load training samples: %w", err)
	}

	if len(samples) < min {
		reason := fmt.Sprintf("insufficient data: %d samples, need %d", len(samples), min)
		o.recordEvent(ctx, &models.RetrainEvent{
			ID:            uuid.New().String(),
			Timestamp:     time.Now(),
			Type:          models.EventTrainingSkipped,
			Scope:         scope,
			ScholarshipID: scholarshipIDForScope(scope),
			SampleCount:   len(samples),
			Error:         reason,
		})
		return &Result{Scope: scope, Status: StatusSkipped, Reason: reason, SampleCount: len(samples)}, nil
	}

	fit, err := logreg.Fit(samples, o.logregCfg)
	if err != nil {
		o.recordEvent(ctx, &models.RetrainEvent{
			ID:            uuid.New().String(),
			Timestamp:     time.Now(),
			Type:          models.EventTrainingFailed,
			Scope:         scope,
			ScholarshipID: scholarshipIDForScope(scope),
			SampleCount:   len(samples),
			Error:         err.Error(),
		})
		return nil, fmt.Errorf("fit %s model: %w", scope, err)
	}

	model := &models.Model{
		ModelID:           uuid.New().String(),
		ModelType:         models.ModelTypeGlobal,
		Weights:           fit.Weights,
		Bias:              fit.Bias,
		Metrics:           fit.Metrics,
		FeatureImportance: fit.FeatureImportance,
		SampleCount:       fit.SampleCount,
		TrainedAt:         time.Now(),
	}
	if scope != models.ScopeGlobal {
		model.ModelType = models.ModelTypeScholarship
		model.ScholarshipID = scope
	}

	if err := o.store.SaveAndActivate(ctx, model); err != nil {
		o.recordEvent(ctx, &models.RetrainEvent{
			ID:            uuid.New().String(),
			Timestamp:     time.Now(),
			Type:          models.EventTrainingFailed,
			Scope:         scope,
			ScholarshipID: model.ScholarshipID,
			SampleCount:   len(samples),
			Error:         err.Error(),
		})
		return nil, fmt.Errorf("activate %s model: %w", scope, err)
	}
	o.BumpModelVersion(ctx)

	accuracy := fit.Metrics.Accuracy
	o.recordEvent(ctx, &models.RetrainEvent{
		ID:            uuid.New().String(),
		Timestamp:     time.Now(),
		Type:          models.EventTrainingCompleted,
		Scope:         scope,
		ScholarshipID: model.ScholarshipID,
		Accuracy:      &accuracy,
		SampleCount:   fit.SampleCount,
	})

	return &Result{
		Scope:       scope,
		Status:      StatusTrained,
		ModelID:     model.ModelID,
		Accuracy:    accuracy,
		SampleCount: fit.SampleCount,
	}, nil
}

func (o *Orchestrator) unlock(scope string) {
	if err := o.redis.Del(context.Background(), lockKey(scope)).Err(); err != nil {
		o.logger.Error("Failed to release training lock", map[string]interface{}{
			"scope": scope,
			"error": err.Error(),
		})
	}
}

// BumpModelVersion advances the registry version token. Called after every
// registry mutation so consumers can key caches on the version instead of
// guessing at staleness.
func (o *Orchestrator) BumpModelVersion(ctx context.Context) {
	if err := o.redis.Incr(ctx, KeyModelVersion).Err(); err != nil {
		o.logger.Error("Failed to bump model version", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) recordEvent(ctx context.Context, event *models.RetrainEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		o.logger.Error("Failed to marshal retrain event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	pipe := o.redis.Pipeline()
	pipe.LPush(ctx, KeyEvents, payload)
	pipe.LTrim(ctx, KeyEvents, 0, int64(o.config.EventLogSize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		o.logger.Error("Failed to record retrain event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Status is the live auto-training state exposed to the training-status
// worker.
type Status struct {
	Enabled        bool     `json:"enabled"`
	Config         Config   `json:"config"`
	GlobalCounter  int64    `json:"globalCounter"`
	ModelVersion   int64    `json:"modelVersion"`
	TrainingScopes []string `json:"trainingScopes"`
}

// GetStatus reports the toggle, the effective config, the counter, the
// registry version and the scopes whose training lock is currently held.
func (o *Orchestrator) GetStatus(ctx context.Context) (*Status, error) {
	counter, err := o.redis.Get(ctx, KeyGlobalCounter).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read decision counter: %w", err)
	}
	version, err := o.redis.Get(ctx, KeyModelVersion).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read model version: %w", err)
	}

	scopes := []string{models.ScopeGlobal}
	ids, err := o.samples.ScholarshipIDs(ctx)
	if err != nil {
		return nil, err
	}
	scopes = append(scopes, ids...)

	training := make([]string, 0)
	for _, scope := range scopes {
		held, err := o.redis.Exists(ctx, lockKey(scope)).Result()
		if err != nil {
			return nil, fmt.Errorf("check training lock: %w", err)
		}
		if held > 0 {
			training = append(training, scope)
		}
	}

	return &Status{
		Enabled:        o.config.Enabled,
		Config:         o.config,
		GlobalCounter:  counter,
		ModelVersion:   version,
		TrainingScopes: training,
	}, nil
}

// GetLog returns the most recent retrain events, newest first.
func (o *Orchestrator) GetLog(ctx context.Context, limit int) ([]*models.RetrainEvent, error) {
	if limit <= 0 || limit > o.config.EventLogSize {
		limit = o.config.EventLogSize
	}
	entries, err := o.redis.LRange(ctx, KeyEvents, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read retrain log: %w", err)
	}
	events := make([]*models.RetrainEvent, 0, len(entries))
	for _, entry := range entries {
		var event models.RetrainEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			return nil, fmt.Errorf("unmarshal retrain event: %w", err)
		}
		events = append(events, &event)
	}
	return events, nil
}

func scholarshipIDForScope(scope string) string {
	if scope == models.ScopeGlobal {
		return ""
	}
	return scope
}
