// internal/training/autotrain/orchestrator_test.go

package autotrain

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/matching/logreg"
	"scholarship-workers/internal/models"
)

// separableSamples builds a labeled set a logistic regression can fit:
// approved exactly when the driving feature exceeds 0.5.
func separableSamples(n int, scholarshipID string) []*models.TrainingSample {
	samples := make([]*models.TrainingSample, 0, n)
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1)
		label := models.LabelRejected
		if x > 0.5 {
			label = models.LabelApproved
		}
		samples = append(samples, &models.TrainingSample{
			ID:            fmt.Sprintf("sample-%d", i),
			ScholarshipID: scholarshipID,
			Features:      map[string]float64{"gwa": x},
			Label:         label,
			CreatedAt:     time.Now(),
		})
	}
	return samples
}

type fakeSamples struct {
	global     []*models.TrainingSample
	byID       map[string][]*models.TrainingSample
	globalGate chan struct{} // when set, ListAll blocks until closed

	mu        sync.Mutex
	listCalls int
}

func (f *fakeSamples) ListAll(ctx context.Context) ([]*models.TrainingSample, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.globalGate != nil {
		<-f.globalGate
	}
	return f.global, nil
}

func (f *fakeSamples) ListForScholarship(ctx context.Context, id string) ([]*models.TrainingSample, error) {
	return f.byID[id], nil
}

func (f *fakeSamples) CountForScholarship(ctx context.Context, id string) (int, error) {
	return len(f.byID[id]), nil
}

func (f *fakeSamples) ScholarshipIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	return ids, nil
}

type fakeSink struct {
	mu    sync.Mutex
	saved []*models.Model
}

func (f *fakeSink) SaveAndActivate(ctx context.Context, model *models.Model) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, model)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func newTestOrchestrator(t *testing.T, cfg Config, samples *fakeSamples) (*Orchestrator, *fakeSink, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sink := &fakeSink{}
	o := New(cfg, logreg.DefaultConfig(), client, samples, sink, logger.NewNoOpLogger())
	return o, sink, client
}

func TestOnDecision_GlobalThresholdTriggersRetrain(t *testing.T) {
	cfg := DefaultConfig()
	samples := &fakeSamples{global: separableSamples(60, "")}
	o, sink, client := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	for i := 0; i < cfg.DecisionsUntilGlobalRetrain; i++ {
		require.NoError(t, o.OnDecision(ctx, ""))
	}
	o.Wait()

	assert.Equal(t, 1, sink.count())
	assert.Equal(t, models.ModelTypeGlobal, sink.saved[0].ModelType)

	counter, err := client.Get(ctx, KeyGlobalCounter).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(0), counter, "counter resets after the triggering decision")

	events, err := o.GetLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTrainingCompleted, events[0].Type)
	assert.Equal(t, models.ScopeGlobal, events[0].Scope)
	require.NotNil(t, events[0].Accuracy)
	assert.GreaterOrEqual(t, *events[0].Accuracy, 0.9)
}

func TestOnDecision_ScholarshipFloorAndInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionsUntilGlobalRetrain = 1000 // keep the global trigger out of the way
	samples := &fakeSamples{byID: map[string][]*models.TrainingSample{
		"sch-1": separableSamples(cfg.MinSamplesScholarship, "sch-1"),
	}}
	o, sink, _ := newTestOrchestrator(t, cfg, samples)

	// Exactly at the floor: first scholarship-specific training runs.
	require.NoError(t, o.OnDecision(context.Background(), "sch-1"))
	o.Wait()
	require.Equal(t, 1, sink.count())
	assert.Equal(t, models.ModelTypeScholarship, sink.saved[0].ModelType)
	assert.Equal(t, "sch-1", sink.saved[0].ScholarshipID)

	// One decision past the floor: not due again until the interval.
	samples.byID["sch-1"] = separableSamples(cfg.MinSamplesScholarship+1, "sch-1")
	require.NoError(t, o.OnDecision(context.Background(), "sch-1"))
	o.Wait()
	assert.Equal(t, 1, sink.count())

	// Interval reached: due again.
	samples.byID["sch-1"] = separableSamples(cfg.MinSamplesScholarship+cfg.ScholarshipRetrainInterval, "sch-1")
	require.NoError(t, o.OnDecision(context.Background(), "sch-1"))
	o.Wait()
	assert.Equal(t, 2, sink.count())
}

func TestTriggerOnHeldLockIsDroppedNotQueued(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionsUntilGlobalRetrain = 1
	gate := make(chan struct{})
	samples := &fakeSamples{global: separableSamples(60, ""), globalGate: gate}
	o, sink, _ := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	require.NoError(t, o.OnDecision(ctx, "")) // acquires the lock, blocks in the gate

	// Wait until the background run actually holds the lock.
	require.Eventually(t, func() bool {
		samples.mu.Lock()
		defer samples.mu.Unlock()
		return samples.listCalls == 1
	}, time.Second, 5*time.Millisecond)

	// Second trigger finds the lock held and is dropped.
	require.NoError(t, o.OnDecision(ctx, ""))

	close(gate)
	o.Wait()

	assert.Equal(t, 1, sink.count(), "dropped trigger must not queue a second run")
	samples.mu.Lock()
	assert.Equal(t, 1, samples.listCalls)
	samples.mu.Unlock()
}

func TestCrossScopeTrainingRunsConcurrently(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DecisionsUntilGlobalRetrain = 1
	gate := make(chan struct{})
	samples := &fakeSamples{
		global:     separableSamples(60, ""),
		globalGate: gate,
		byID: map[string][]*models.TrainingSample{
			"sch-1": separableSamples(30, "sch-1"),
		},
	}
	o, sink, _ := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	require.NoError(t, o.OnDecision(ctx, "")) // global run parks on the gate

	require.Eventually(t, func() bool {
		samples.mu.Lock()
		defer samples.mu.Unlock()
		return samples.listCalls == 1
	}, time.Second, 5*time.Millisecond)

	// The scholarship scope is not blocked by the in-flight global run.
	result, err := o.TrainScholarship(ctx, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrained, result.Status)

	close(gate)
	o.Wait()
	assert.Equal(t, 2, sink.count())
}

func TestSynchronousTrainOnHeldLock(t *testing.T) {
	cfg := DefaultConfig()
	samples := &fakeSamples{global: separableSamples(60, "")}
	o, _, client := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, "autotrain:lock:global", "1", time.Minute).Err())

	_, err := o.TrainGlobal(ctx)
	assert.ErrorIs(t, err, ErrTrainingInProgress)
}

func TestTrainSkipsOnInsufficientData(t *testing.T) {
	cfg := DefaultConfig()
	samples := &fakeSamples{byID: map[string][]*models.TrainingSample{
		"sch-1": separableSamples(5, "sch-1"),
	}}
	o, sink, _ := newTestOrchestrator(t, cfg, samples)

	result, err := o.TrainScholarship(context.Background(), "sch-1")
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	assert.Contains(t, result.Reason, "insufficient data")
	assert.Equal(t, 0, sink.count(), "skipped run leaves the registry untouched")

	events, err := o.GetLog(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTrainingSkipped, events[0].Type)
	assert.Equal(t, "sch-1", events[0].ScholarshipID)
}

func TestTrainAllReportsPerScope(t *testing.T) {
	cfg := DefaultConfig()
	samples := &fakeSamples{
		global: separableSamples(60, ""),
		byID: map[string][]*models.TrainingSample{
			"sch-1": separableSamples(30, "sch-1"),
			"sch-2": separableSamples(3, "sch-2"),
		},
	}
	o, sink, _ := newTestOrchestrator(t, cfg, samples)

	results, err := o.TrainAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byScope := make(map[string]*Result, len(results))
	for _, r := range results {
		byScope[r.Scope] = r
	}
	assert.Equal(t, StatusTrained, byScope[models.ScopeGlobal].Status)
	assert.Equal(t, StatusTrained, byScope["sch-1"].Status)
	assert.Equal(t, StatusSkipped, byScope["sch-2"].Status)
	assert.Equal(t, 2, sink.count())
}

func TestGetStatus(t *testing.T) {
	cfg := DefaultConfig()
	samples := &fakeSamples{byID: map[string][]*models.TrainingSample{
		"sch-1": separableSamples(30, "sch-1"),
	}}
	o, _, client := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	require.NoError(t, client.Set(ctx, KeyGlobalCounter, 12, 0).Err())
	require.NoError(t, client.Set(ctx, KeyModelVersion, 4, 0).Err())
	require.NoError(t, client.Set(ctx, "autotrain:lock:sch-1", "1", time.Minute).Err())

	status, err := o.GetStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Enabled)
	assert.Equal(t, cfg, status.Config)
	assert.Equal(t, int64(12), status.GlobalCounter)
	assert.Equal(t, int64(4), status.ModelVersion)
	assert.Equal(t, []string{"sch-1"}, status.TrainingScopes)
}

func TestOnDecision_DisabledCountsWithoutTriggering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	cfg.DecisionsUntilGlobalRetrain = 1
	samples := &fakeSamples{
		global: separableSamples(60, ""),
		byID: map[string][]*models.TrainingSample{
			"sch-1": separableSamples(cfg.MinSamplesScholarship, "sch-1"),
		},
	}
	o, sink, client := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, o.OnDecision(ctx, "sch-1"))
	}
	o.Wait()

	assert.Equal(t, 0, sink.count(), "disabled orchestrator must not retrain")
	samples.mu.Lock()
	assert.Equal(t, 0, samples.listCalls)
	samples.mu.Unlock()

	counter, err := client.Get(ctx, KeyGlobalCounter).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), counter, "decisions still counted while disabled")

	status, err := o.GetStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Enabled)
	assert.Empty(t, status.TrainingScopes)

	// Explicit training is still available while triggers are off.
	result, err := o.TrainScholarship(ctx, "sch-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrained, result.Status)
	assert.Equal(t, 1, sink.count())
}

func TestGetLogIsNewestFirstAndBounded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EventLogSize = 3
	samples := &fakeSamples{byID: map[string][]*models.TrainingSample{
		"sch-1": separableSamples(2, "sch-1"),
	}}
	o, _, _ := newTestOrchestrator(t, cfg, samples)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := o.TrainScholarship(ctx, "sch-1")
		require.NoError(t, err)
	}

	events, err := o.GetLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3, "log trimmed to the configured bound")
	for _, e := range events {
		assert.Equal(t, models.EventTrainingSkipped, e.Type)
	}
}
