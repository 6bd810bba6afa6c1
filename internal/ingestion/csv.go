package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"macro-risk-lab/internal/domain"
)

// CSVProvider reads series from <dir>/<id>.csv, falling back to
// <dir>/<canonical name>.csv. Files need a date column and a value column
// ("value" or "close", case-insensitive, else the second column).
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider over a directory of CSV files.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// Fetch implements Provider.
func (p *CSVProvider) Fetch(ctx context.Context, id string) (*domain.TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var f *os.File
	var err error
	for _, name := range []string{id, domain.CanonicalName(id)} {
		f, err = os.Open(filepath.Join(p.dir, name+".csv"))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv %s: %w", domain.ErrProviderUnavailable, id, err)
	}
	defer f.Close()

	points, err := ReadObservationsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%w: csv %s: %w", domain.ErrProviderUnavailable, id, err)
	}
	return domain.NewTimeSeries(id, points), nil
}

// ReadObservationsCSV parses a two-column date/value CSV with a header.
// Unparseable values become missing observations.
func ReadObservationsCSV(r io.Reader) ([]domain.Observation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	dateCol, valueCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "value", "close":
			if valueCol < 0 {
				valueCol = i
			}
		}
	}
	if dateCol < 0 {
		return nil, errors.New("no date column")
	}
	if valueCol < 0 {
		if len(header) < 2 {
			return nil, errors.New("no value column")
		}
		valueCol = 1
		if dateCol == 1 {
			valueCol = 0
		}
	}

	var points []domain.Observation
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= dateCol || len(rec) <= valueCol {
			return nil, fmt.Errorf("line %d: short record", line)
		}

		ts, err := ParseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[valueCol]), 64)
		if err != nil {
			points = append(points, domain.MissingObservation(ts))
			continue
		}
		points = append(points, domain.NewObservation(ts, v))
	}
	return points, nil
}

// ParseDate reads the calendar date of a date or timestamp string such as
// "2020-01-02" or "2020-01-02 00:00:00-05:00".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) < len(domain.DateLayout) {
		return time.Time{}, fmt.Errorf("parse date %q: too short", s)
	}
	ts, err := time.Parse(domain.DateLayout, s[:len(domain.DateLayout)])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return ts, nil
}

var _ Provider = (*CSVProvider)(nil)

// WriteObservationsCSV writes observations in the format ReadObservationsCSV
// accepts. Missing values are written as empty cells.
func WriteObservationsCSV(w io.Writer, points []domain.Observation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return err
	}
	for _, p := range points {
		value := ""
		if p.Valid {
			value = strconv.FormatFloat(p.Value, 'f', -1, 64)
		}
		if err := cw.Write([]string{p.Timestamp.Format(domain.DateLayout), value}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// DumpCSV writes every series to <dir>/<name>.csv and returns the paths.
func DumpCSV(dir string, series map[string]*domain.TimeSeries) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name+".csv")
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		err = WriteObservationsCSV(f, series[name].Points)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
