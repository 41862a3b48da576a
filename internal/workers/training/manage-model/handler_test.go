// internal/workers/training/manage-model/handler_test.go
package managemodel

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-workers/internal/common/logger"
	"scholarship-workers/internal/models"
	"scholarship-workers/internal/training/modelstore"
)

type fakeRegistry struct {
	models map[string]*models.Model
	active string
}

func (f *fakeRegistry) Get(ctx context.Context, modelID string) (*models.Model, error) {
	m, ok := f.models[modelID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", modelstore.ErrModelNotFound, modelID)
	}
	return m, nil
}

func (f *fakeRegistry) Activate(ctx context.Context, modelID string) error {
	if _, ok := f.models[modelID]; !ok {
		return fmt.Errorf("%w: %s", modelstore.ErrModelNotFound, modelID)
	}
	f.active = modelID
	return nil
}

func (f *fakeRegistry) Delete(ctx context.Context, modelID string) error {
	if _, ok := f.models[modelID]; !ok {
		return fmt.Errorf("%w: %s", modelstore.ErrModelNotFound, modelID)
	}
	delete(f.models, modelID)
	return nil
}

type fakeBumper struct {
	bumps int
}

func (f *fakeBumper) BumpModelVersion(ctx context.Context) { f.bumps++ }

func newTestHandler(t *testing.T, registry *fakeRegistry) (*Handler, *fakeBumper) {
	bumper := &fakeBumper{}
	return NewHandler(LoadConfig(), registry, bumper, logger.NewTestLogger(t)), bumper
}

func registryWith(ids ...string) *fakeRegistry {
	registry := &fakeRegistry{models: map[string]*models.Model{}}
	for _, id := range ids {
		registry.models[id] = &models.Model{ModelID: id, ModelType: models.ModelTypeGlobal}
	}
	return registry
}

func TestExecute_Activate(t *testing.T) {
	registry := registryWith("model-1")
	h, bumper := newTestHandler(t, registry)

	output, err := h.Execute(context.Background(), &Input{
		Action:  ActionActivate,
		ModelID: "model-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "model-1", registry.active)
	require.NotNil(t, output.Model)
	assert.Equal(t, "model-1", output.Model.ModelID)
	assert.Equal(t, 1, bumper.bumps)
}

func TestExecute_Delete(t *testing.T) {
	registry := registryWith("model-1")
	h, bumper := newTestHandler(t, registry)

	output, err := h.Execute(context.Background(), &Input{
		Action:  ActionDelete,
		ModelID: "model-1",
	})
	require.NoError(t, err)
	assert.Nil(t, output.Model)
	assert.NotContains(t, registry.models, "model-1")
	assert.Equal(t, 1, bumper.bumps)
}

func TestExecute_ModelNotFound(t *testing.T) {
	h, bumper := newTestHandler(t, registryWith())

	for _, action := range []string{ActionActivate, ActionDelete} {
		_, err := h.Execute(context.Background(), &Input{
			Action:  action,
			ModelID: "model-missing",
		})
		assert.ErrorContains(t, err, "MODEL_NOT_FOUND")
	}
	assert.Zero(t, bumper.bumps)
}

func TestExecute_InvalidAction(t *testing.T) {
	h, _ := newTestHandler(t, registryWith("model-1"))

	_, err := h.Execute(context.Background(), &Input{
		Action:  "promote",
		ModelID: "model-1",
	})
	assert.Error(t, err)
}

func TestExecute_MissingModelID(t *testing.T) {
	h, _ := newTestHandler(t, registryWith())

	_, err := h.Execute(context.Background(), &Input{Action: ActionActivate})
	assert.Error(t, err)
}
