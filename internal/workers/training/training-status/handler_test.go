// internal/workers/training/training-status/handler_test.go
package trainingstatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/autotrain"
)

type fakeStatusSource struct {
	status    *autotrain.Status
	events    []*models.RetrainEvent
	lastLimit int
	err       error
}

func (f *fakeStatusSource) GetStatus(ctx context.Context) (*autotrain.Status, error) {
	return f.status, f.err
}

func (f *fakeStatusSource) GetLog(ctx context.Context, limit int) ([]*models.RetrainEvent, error) {
	f.lastLimit = limit
	return f.events, f.err
}

func newTestHandler(t *testing.T, source *fakeStatusSource) *Handler {
	return NewHandler(LoadConfig(), source, logger.NewTestLogger(t))
}

func TestExecute_ReturnsStatusAndLog(t *testing.T) {
	accuracy := 0.92
	source := &fakeStatusSource{
		status: &autotrain.Status{
			Enabled:        true,
			Config:         autotrain.DefaultConfig(),
			GlobalCounter:  17,
			ModelVersion:   4,
			TrainingScopes: []string{"sch-1"},
		},
		events: []*models.RetrainEvent{
			{
				ID:        "evt-1",
				Timestamp: time.Now(),
				Type:      models.EventTrainingCompleted,
				Scope:     models.ScopeGlobal,
				Accuracy:  &accuracy,
			},
		},
	}
	h := newTestHandler(t, source)

	output, err := h.Execute(context.Background(), &Input{LogLimit: 10})
	require.NoError(t, err)
	assert.True(t, output.Status.Enabled)
	assert.Equal(t, 50, output.Status.Config.DecisionsUntilGlobalRetrain)
	assert.Equal(t, int64(17), output.Status.GlobalCounter)
	assert.Equal(t, int64(4), output.Status.ModelVersion)
	assert.Equal(t, []string{"sch-1"}, output.Status.TrainingScopes)
	require.Len(t, output.Log, 1)
	assert.Equal(t, models.EventTrainingCompleted, output.Log[0].Type)
	assert.Equal(t, 10, source.lastLimit)
}

func TestExecute_SourceFailure(t *testing.T) {
	h := newTestHandler(t, &fakeStatusSource{err: errors.New("redis down")})

	_, err := h.Execute(context.Background(), &Input{})
	assert.ErrorContains(t, err, "redis down")
}
