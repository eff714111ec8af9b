package churn

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory StateStore for tests.
type memStore struct {
	data    []byte
	saveErr error
	loadErr error
}

func (m *memStore) SaveModelState(_ context.Context, data []byte) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memStore) LoadModelState(_ context.Context) ([]byte, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.data, nil
}

func TestStateRoundTrip(t *testing.T) {
	trained := New(testConfig())
	_, err := trained.Train(context.Background(), syntheticDataset(40))
	require.NoError(t, err)

	store := &memStore{}
	require.NoError(t, trained.SaveState(context.Background(), store))
	require.NotEmpty(t, store.data)

	restored := New(testConfig())
	require.NoError(t, restored.LoadState(context.Background(), store))

	assert.Equal(t, trained.ModelID(), restored.ModelID())
	assert.Equal(t, trained.FeatureNames(), restored.FeatureNames())

	wantMetrics, err := trained.Metrics()
	require.NoError(t, err)
	gotMetrics, err := restored.Metrics()
	require.NoError(t, err)
	assert.Equal(t, wantMetrics, gotMetrics)

	for _, r := range []Record{churnerRecord(), loyalRecord()} {
		want, err := trained.Predict(r)
		require.NoError(t, err)
		got, err := restored.Predict(r)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	wantImp, err := trained.FeatureImportance()
	require.NoError(t, err)
	gotImp, err := restored.FeatureImportance()
	require.NoError(t, err)
	assert.Equal(t, wantImp, gotImp)
}

func TestSaveStateRequiresTrainedModel(t *testing.T) {
	store := &memStore{}
	err := New(testConfig()).SaveState(context.Background(), store)
	assert.ErrorIs(t, err, ErrNotTrained)
	assert.Empty(t, store.data)
}

func TestSaveStatePropagatesStoreErrors(t *testing.T) {
	p := New(testConfig())
	_, err := p.Train(context.Background(), syntheticDataset(40))
	require.NoError(t, err)

	broken := errors.New("disk full")
	err = p.SaveState(context.Background(), &memStore{saveErr: broken})
	require.ErrorIs(t, err, broken)
	assert.Contains(t, err.Error(), "saving model state")
}

func TestLoadStatePropagatesStoreErrors(t *testing.T) {
	missing := errors.New("no state blob")
	p := New(testConfig())
	err := p.LoadState(context.Background(), &memStore{loadErr: missing})
	assert.ErrorIs(t, err, missing)
	assert.False(t, p.Trained())
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	p := New(testConfig())
	err := p.LoadState(context.Background(), &memStore{data: []byte("{not json")})
	require.Error(t, err)

	var corrupt *CorruptModelStateError
	require.True(t, errors.As(err, &corrupt))
	assert.Contains(t, corrupt.Reason, "undecodable JSON")
	assert.False(t, p.Trained())
}

func TestLoadStateRejectsTamperedState(t *testing.T) {
	p := New(testConfig())
	_, err := p.Train(context.Background(), syntheticDataset(40))
	require.NoError(t, err)

	store := &memStore{}
	require.NoError(t, p.SaveState(context.Background(), store))

	cases := []struct {
		name   string
		mutate func(doc map[string]any)
		reason string
	}{
		{
			name:   "wrong schema version",
			mutate: func(doc map[string]any) { doc["schema_version"] = 99 },
			reason: "schema version",
		},
		{
			name:   "no feature names",
			mutate: func(doc map[string]any) { doc["feature_names"] = []any{} },
			reason: "no feature names",
		},
		{
			name:   "missing ensemble",
			mutate: func(doc map[string]any) { delete(doc, "booster") },
			reason: "no classifier ensemble",
		},
		{
			name:   "label classes not binary",
			mutate: func(doc map[string]any) { doc["label_classes"] = []any{"No", "Maybe", "Yes"} },
			reason: "label classes",
		},
		{
			name:   "positive code out of range",
			mutate: func(doc map[string]any) { doc["positive_code"] = 5 },
			reason: "out of range",
		},
		{
			name: "encoder for unknown feature",
			mutate: func(doc map[string]any) {
				doc["encoders"].(map[string]any)["Ghost"] = []any{"a", "b"}
			},
			reason: "unknown feature",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var doc map[string]any
			require.NoError(t, json.Unmarshal(store.data, &doc))
			tc.mutate(doc)
			tampered, err := json.Marshal(doc)
			require.NoError(t, err)

			fresh := New(testConfig())
			err = fresh.LoadState(context.Background(), &memStore{data: tampered})
			require.Error(t, err)

			var corrupt *CorruptModelStateError
			require.True(t, errors.As(err, &corrupt), "got %v", err)
			assert.Contains(t, corrupt.Reason, tc.reason)
			assert.False(t, fresh.Trained())
		})
	}
}

func TestFailedLoadKeepsCurrentModel(t *testing.T) {
	p := New(testConfig())
	_, err := p.Train(context.Background(), syntheticDataset(40))
	require.NoError(t, err)
	id := p.ModelID()

	err = p.LoadState(context.Background(), &memStore{data: []byte("garbage")})
	require.Error(t, err)

	assert.Equal(t, id, p.ModelID())
	_, err = p.Predict(churnerRecord())
	assert.NoError(t, err)
}
