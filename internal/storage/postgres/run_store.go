package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/observability"
	"macro-risk-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// Summary columns are kept for querying; the full record is stored as JSONB.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	query := `
		INSERT INTO pipeline_runs (
			run_id, short_id, started_at, finished_at,
			status, test_auc, features, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	start := time.Now()
	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.ShortID, r.StartedAt, r.FinishedAt,
		r.Status, r.TestAUC, r.Features, payload,
	)
	observability.RecordDBQuery("postgres", "insert_run", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run record: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT payload FROM pipeline_runs WHERE run_id = $1`

	var payload []byte
	err := s.pool.QueryRow(ctx, query, runID).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run record: %w", err)
	}

	return decodeRun(payload)
}

// GetAll retrieves all runs ordered by started_at DESC.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `SELECT payload FROM pipeline_runs ORDER BY started_at DESC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		r, err := decodeRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run records: %w", err)
	}

	return runs, nil
}

func decodeRun(payload []byte) (*domain.RunRecord, error) {
	var r domain.RunRecord
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &r, nil
}
