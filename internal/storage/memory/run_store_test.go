package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/storage"
)

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := &domain.RunRecord{
		RunID:     "abc",
		StartedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    domain.RunConclusive,
		Features:  []string{"VIX"},
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "abc")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != domain.RunConclusive {
		t.Errorf("Expected status %s, got %s", domain.RunConclusive, got.Status)
	}

	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.Insert(ctx, &domain.RunRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRunStore_GetAllOrdering(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = store.Insert(ctx, &domain.RunRecord{RunID: "old", StartedAt: base})
	_ = store.Insert(ctx, &domain.RunRecord{RunID: "new", StartedAt: base.Add(time.Hour)})

	runs, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "new" || runs[1].RunID != "old" {
		t.Errorf("Expected newest first, got %s, %s", runs[0].RunID, runs[1].RunID)
	}
}
