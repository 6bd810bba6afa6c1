package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/storage"
)

func createTestRun(runID string, startedAt time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:      runID,
		ShortID:    runID[:4],
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(2 * time.Second),
		Params: domain.RunParams{
			Target:               "NASDAQ",
			Horizon:              60,
			DrawdownThreshold:    -0.02,
			CorrelationThreshold: 0.5,
			Cutoff:               time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
			BoundaryPolicy:       "truncate",
			DecisionThreshold:    0.5,
			MaxIterations:        1000,
			Candidates:           []string{"VIX", "T10Y2Y"},
		},
		Rows:      5000,
		TrainRows: 4000,
		TestRows:  1000,
		Features:  []string{"VIX"},
		TrainAUC:  ptr(0.71),
		TestAUC:   ptr(0.64),
		Confusion: &domain.ConfusionMatrix{TN: 500, FP: 100, FN: 150, TP: 250},
		Status:    domain.RunConclusive,
		Coefs:     map[string]float64{"VIX": 0.8},
	}
}

func TestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := createTestRun("run-0001", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-0001")
	require.NoError(t, err)

	assert.Equal(t, run.Status, got.Status)
	assert.Equal(t, run.Features, got.Features)
	assert.Equal(t, *run.TestAUC, *got.TestAUC)
	assert.Equal(t, *run.Confusion, *got.Confusion)
	assert.True(t, run.Params.Cutoff.Equal(got.Params.Cutoff))
}

func TestRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := createTestRun("run-0001", time.Now().UTC())
	require.NoError(t, store.Insert(ctx, run))

	err := store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetAllNewestFirst(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	undefined := createTestRun("run-old", base)
	undefined.TestAUC = nil
	undefined.Status = domain.RunInconclusive
	undefined.Reasons = []string{"undefined AUC"}

	require.NoError(t, store.Insert(ctx, undefined))
	require.NoError(t, store.Insert(ctx, createTestRun("run-new", base.Add(time.Hour))))

	runs, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].RunID)
	assert.Equal(t, "run-old", runs[1].RunID)
	assert.Nil(t, runs[1].TestAUC)
	assert.Equal(t, []string{"undefined AUC"}, runs[1].Reasons)
}
