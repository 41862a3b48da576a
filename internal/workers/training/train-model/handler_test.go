// internal/workers/training/train-model/handler_test.go
package trainmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/training/autotrain"
)

type fakeTrainer struct {
	global      *autotrain.Result
	scholarship map[string]*autotrain.Result
	all         []*autotrain.Result
	err         error
}

func (f *fakeTrainer) TrainGlobal(ctx context.Context) (*autotrain.Result, error) {
	return f.global, f.err
}

func (f *fakeTrainer) TrainScholarship(ctx context.Context, scholarshipID string) (*autotrain.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.scholarship[scholarshipID], nil
}

func (f *fakeTrainer) TrainAll(ctx context.Context) ([]*autotrain.Result, error) {
	return f.all, f.err
}

func newTestHandler(t *testing.T, trainer Trainer) *Handler {
	return NewHandler(LoadConfig(), trainer, logger.NewTestLogger(t))
}

func TestExecute_Global(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{
		global: &autotrain.Result{
			Scope:       "global",
			Status:      autotrain.StatusTrained,
			ModelID:     "model-1",
			Accuracy:    0.91,
			SampleCount: 120,
		},
	})

	output, err := h.Execute(context.Background(), &Input{Mode: ModeGlobal})
	require.NoError(t, err)
	require.Len(t, output.Results, 1)
	assert.Equal(t, autotrain.StatusTrained, output.Results[0].Status)
	assert.Equal(t, "model-1", output.Results[0].ModelID)
}

func TestExecute_Scholarship(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{
		scholarship: map[string]*autotrain.Result{
			"sch-1": {Scope: "sch-1", Status: autotrain.StatusTrained, SampleCount: 30},
		},
	})

	output, err := h.Execute(context.Background(), &Input{
		Mode:          ModeScholarship,
		ScholarshipID: "sch-1",
	})
	require.NoError(t, err)
	require.Len(t, output.Results, 1)
	assert.Equal(t, "sch-1", output.Results[0].Scope)
}

func TestExecute_ScholarshipRequiresID(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{})

	_, err := h.Execute(context.Background(), &Input{Mode: ModeScholarship})
	assert.Error(t, err)
}

func TestExecute_All(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{
		all: []*autotrain.Result{
			{Scope: "global", Status: autotrain.StatusTrained, SampleCount: 120},
			{Scope: "sch-1", Status: autotrain.StatusTrained, SampleCount: 30},
			{Scope: "sch-2", Status: autotrain.StatusSkipped, Reason: "insufficient data: 3 samples, need 20"},
		},
	})

	output, err := h.Execute(context.Background(), &Input{Mode: ModeAll})
	require.NoError(t, err)
	require.Len(t, output.Results, 3)
	assert.Equal(t, autotrain.StatusSkipped, output.Results[2].Status)
}

func TestExecute_TrainingInProgress(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{err: autotrain.ErrTrainingInProgress})

	_, err := h.Execute(context.Background(), &Input{Mode: ModeGlobal})
	assert.ErrorContains(t, err, "TRAINING_IN_PROGRESS")
}

func TestExecute_InvalidMode(t *testing.T) {
	h := newTestHandler(t, &fakeTrainer{})

	_, err := h.Execute(context.Background(), &Input{Mode: "sideways"})
	assert.Error(t, err)
}
