package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58"

	"macro-risk-lab/internal/domain"
)

// shortIDBytes is the number of hash bytes encoded into a short ID.
const shortIDBytes = 8

// DataRange identifies the data a run was computed over.
type DataRange struct {
	Start time.Time
	End   time.Time
	Rows  int
}

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(target|horizon|drawdown|corr|cutoff|policy|decision|iters|candidates|start|end|rows)
// Candidates keep their order. Returns hex-encoded hash (64 characters).
func ComputeRunID(p domain.RunParams, r DataRange) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%s|%d|%s|%s|%s|%d",
		p.Target,
		p.Horizon,
		formatFloat(p.DrawdownThreshold),
		formatFloat(p.CorrelationThreshold),
		p.Cutoff.UTC().Format(domain.DateLayout),
		p.BoundaryPolicy,
		formatFloat(p.DecisionThreshold),
		p.MaxIterations,
		strings.Join(p.Candidates, ","),
		r.Start.UTC().Format(domain.DateLayout),
		r.End.UTC().Format(domain.DateLayout),
		r.Rows,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ShortID returns a base58 rendering of the first bytes of a hex run_id.
func ShortID(runID string) (string, error) {
	raw, err := hex.DecodeString(runID)
	if err != nil {
		return "", fmt.Errorf("decode run id: %w", err)
	}
	if len(raw) < shortIDBytes {
		return "", fmt.Errorf("run id too short: %d bytes", len(raw))
	}
	return base58.Encode(raw[:shortIDBytes]), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
