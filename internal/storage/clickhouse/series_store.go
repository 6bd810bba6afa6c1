package clickhouse

import (
	"context"
	"fmt"
	"time"

	"macro-risk-lab/internal/domain"
	"macro-risk-lab/internal/observability"
	"macro-risk-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
type SeriesStore struct {
	conn   *Conn
	source string
}

// NewSeriesStore creates a new SeriesStore. source is recorded with every
// inserted row and may be empty.
func NewSeriesStore(conn *Conn, source string) *SeriesStore {
	return &SeriesStore{conn: conn, source: source}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertBulk adds observations for one series. Fails entire batch on
// duplicate (series_name, observed_at).
func (s *SeriesStore) InsertBulk(ctx context.Context, name string, obs []domain.Observation) error {
	if name == "" {
		return storage.ErrInvalidInput
	}
	if len(obs) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[time.Time]struct{}, len(obs))
	first, last := obs[0].Timestamp, obs[0].Timestamp
	for _, o := range obs {
		if o.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
		d := dateOf(o.Timestamp)
		if _, exists := seen[d]; exists {
			return storage.ErrDuplicateKey
		}
		seen[d] = struct{}{}
		if o.Timestamp.Before(first) {
			first = o.Timestamp
		}
		if o.Timestamp.After(last) {
			last = o.Timestamp
		}
	}

	// MergeTree does not enforce uniqueness, so check existing rows in the
	// batch's date range.
	existing, err := s.GetByTimeRange(ctx, name, first, last)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for _, o := range existing.Points {
		if _, dup := seen[dateOf(o.Timestamp)]; dup {
			return storage.ErrDuplicateKey
		}
	}

	start := time.Now()
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO series_observations (series_name, observed_at, value, source)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		var value *float64
		if o.Valid {
			v := o.Value
			value = &v
		}
		if err := batch.Append(name, dateOf(o.Timestamp), value, s.source); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_observations", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByName retrieves the full series, ordered by date ASC.
// Returns ErrNotFound if the series has no observations.
func (s *SeriesStore) GetByName(ctx context.Context, name string) (*domain.TimeSeries, error) {
	query := `
		SELECT observed_at, value
		FROM series_observations
		WHERE series_name = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("query by name: %w", err)
	}
	defer rows.Close()

	points, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, storage.ErrNotFound
	}
	return &domain.TimeSeries{Name: name, Points: points}, nil
}

// GetByTimeRange retrieves observations within [start, end] (inclusive).
func (s *SeriesStore) GetByTimeRange(ctx context.Context, name string, start, end time.Time) (*domain.TimeSeries, error) {
	query := `
		SELECT observed_at, value
		FROM series_observations
		WHERE series_name = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, name, dateOf(start), dateOf(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	points, err := scanObservations(rows)
	if err != nil {
		return nil, err
	}
	return &domain.TimeSeries{Name: name, Points: points}, nil
}

// ListNames returns the stored series names, sorted ASC.
func (s *SeriesStore) ListNames(ctx context.Context) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT series_name FROM series_observations ORDER BY series_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list series names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan series name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series names: %w", err)
	}
	return names, nil
}

// LatestTimestamp returns the newest observation date of a series.
func (s *SeriesStore) LatestTimestamp(ctx context.Context, name string) (time.Time, error) {
	query := `
		SELECT count(), max(observed_at)
		FROM series_observations
		WHERE series_name = ?
	`

	var count uint64
	var latest time.Time
	if err := s.conn.QueryRow(ctx, query, name).Scan(&count, &latest); err != nil {
		return time.Time{}, fmt.Errorf("query latest timestamp: %w", err)
	}
	if count == 0 {
		return time.Time{}, storage.ErrNotFound
	}
	return dateOf(latest), nil
}

// SeriesCoverage summarizes the stored history of one series.
type SeriesCoverage struct {
	Name         string
	First        time.Time
	Last         time.Time
	Observations uint64
	Valid        uint64
}

// Coverage returns per-series coverage from the series_coverage view.
func (s *SeriesStore) Coverage(ctx context.Context) ([]SeriesCoverage, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT series_name, first_date, last_date, observations, valid_observations
		FROM series_coverage
		ORDER BY series_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query coverage: %w", err)
	}
	defer rows.Close()

	var out []SeriesCoverage
	for rows.Next() {
		var c SeriesCoverage
		if err := rows.Scan(&c.Name, &c.First, &c.Last, &c.Observations, &c.Valid); err != nil {
			return nil, fmt.Errorf("scan coverage row: %w", err)
		}
		c.First, c.Last = dateOf(c.First), dateOf(c.Last)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coverage rows: %w", err)
	}
	return out, nil
}

// scanObservations scans (observed_at, value) rows.
func scanObservations(rows chRows) ([]domain.Observation, error) {
	var points []domain.Observation

	for rows.Next() {
		var ts time.Time
		var value *float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("scan observation row: %w", err)
		}
		if value == nil {
			points = append(points, domain.MissingObservation(dateOf(ts)))
			continue
		}
		points = append(points, domain.NewObservation(dateOf(ts), *value))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observation rows: %w", err)
	}

	return points, nil
}

// dateOf truncates t to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
