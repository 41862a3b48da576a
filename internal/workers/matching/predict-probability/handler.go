// internal/workers/matching/predict-probability/handler.go
package predictprobability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"scholarship-workers/internal/common/errors"
	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/common/metrics"
	"scholarship-workers/internal/matching/features"
	"scholarship-workers/internal/matching/logreg"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/modelstore"
)

const (
	TaskType = "predict-probability"

	profileCacheKeyPrefix = "student:profile:"
)

// ModelSource resolves the serving model for a scholarship, falling back
// from specific to global.
type ModelSource interface {
	SelectForScholarship(ctx context.Context, scholarshipID string, minSamples int) (*models.Model, error)
}

type Handler struct {
	config    *Config
	db        *sql.DB
	redis     *redis.Client
	store     ModelSource
	extractor *features.Extractor
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, store ModelSource, extractor *features.Extractor, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		db:        db,
		redis:     rdb,
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
		code := "PREDICTION_FAILED"
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
	if input.Scholarship == nil {
		return nil, errors.NewInvalidCriteriaError("scholarship variable is required")
	}

	profile := input.StudentProfile
	if profile == nil {
		if input.StudentID == "" {
			return nil, errors.NewInvalidStudentProfileError("studentProfile or studentId is required")
		}
		var err error
		profile, err = h.getStudentProfile(ctx, input.StudentID)
		if err != nil {
			return nil, err
		}
	}

	model, err := h.store.SelectForScholarship(ctx, input.Scholarship.ID, h.config.MinSamplesScholarship)
	if err != nil {
		return nil, errors.NewPredictionFailedError(err)
	}

	if model == nil {
		// No trained model anywhere is a valid state: answer neutrally so
		// the process can still branch on eligibility alone.
		metrics.Predictions.WithLabelValues(string(models.ModelTypeNone)).Inc()
		return &Output{
			PredictionAvailable: false,
			Probability:         0.5,
			Confidence:          ConfidenceLow,
			ModelType:           models.ModelTypeNone,
		}, nil
	}

	feats := h.extractor.Extract(profile, input.Scholarship)
	probability := logreg.Predict(feats, model)
	contributions := logreg.Contributions(feats, model)

	metrics.Predictions.WithLabelValues(string(model.ModelType)).Inc()

	h.logger.Info("probability predicted", map[string]interface{}{
		"studentId":     profile.StudentID,
		"scholarshipId": input.Scholarship.ID,
		"probability":   probability,
		"modelType":     string(model.ModelType),
		"modelId":       model.ModelID,
	})

	return &Output{
		PredictionAvailable:  true,
		Probability:          probability,
		Confidence:           classifyConfidence(probability),
		ModelType:            model.ModelType,
		FeatureContributions: contributions,
	}, nil
}

// classifyConfidence grades a prediction by its distance from the 0.5
// decision boundary.
func classifyConfidence(probability float64) string {
	distance := math.Abs(probability - 0.5)
	switch {
	case distance >= 0.35:
		return ConfidenceHigh
	case distance >= 0.15:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// getStudentProfile resolves a profile by id, serving from the Redis read
// cache when possible.
func (h *Handler) getStudentProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	cacheKey := profileCacheKeyPrefix + studentID

	if cached, err := h.redis.Get(ctx, cacheKey).Result(); err == nil {
		var profile models.StudentProfile
		if err := json.Unmarshal([]byte(cached), &profile); err == nil {
			return &profile, nil
		}
		// Corrupt entry: fall through to the database and overwrite.
	}

	profile, err := h.queryStudentProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(profile); err == nil {
		if err := h.redis.Set(ctx, cacheKey, payload, h.config.ProfileCacheTTL).Err(); err != nil {
			h.logger.Warn("failed to cache student profile", map[string]interface{}{
				"studentId": studentID,
				"error":     err.Error(),
			})
		}
	}

	return profile, nil
}

func (h *Handler) queryStudentProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT student_id, gwa, annual_family_income, units_enrolled, year_level,
		       college, course, province, st_bracket, citizenship,
		       has_other_scholarship, good_moral_certificate,
		       profile_completeness, document_completeness
		FROM students WHERE student_id = $1`,
		studentID)

	var (
		profile       models.StudentProfile
		gwa, income   sql.NullFloat64
		units, year   sql.NullInt64
		college       sql.NullString
		course        sql.NullString
		province      sql.NullString
		stBracket     sql.NullString
		citizenship   sql.NullString
		otherGrant    sql.NullBool
		goodMoral     sql.NullBool
		profComplete  sql.NullFloat64
		docsComplete  sql.NullFloat64
	)
	err := row.Scan(&profile.StudentID, &gwa, &income, &units, &year,
		&college, &course, &province, &stBracket, &citizenship,
		&otherGrant, &goodMoral, &profComplete, &docsComplete)
	if err == sql.ErrNoRows {
		return nil, errors.NewStudentNotFoundError(studentID)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("student_profile", err)
	}

	if gwa.Valid {
		profile.GWA = &gwa.Float64
	}
	if income.Valid {
		profile.AnnualFamilyIncome = &income.Float64
	}
	if units.Valid {
		v := int(units.Int64)
		profile.UnitsEnrolled = &v
	}
	if year.Valid {
		v := int(year.Int64)
		profile.YearLevel = &v
	}
	profile.College = college.String
	profile.Course = course.String
	profile.Province = province.String
	profile.STBracket = stBracket.String
	profile.Citizenship = citizenship.String
	if otherGrant.Valid {
		profile.HasOtherScholarship = &otherGrant.Bool
	}
	if goodMoral.Valid {
		profile.GoodMoralCertificate = &goodMoral.Bool
	}
	profile.ProfileCompleteness = profComplete.Float64
	profile.DocumentCompleteness = docsComplete.Float64

	return &profile, nil
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
