package labeling

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"macro-risk-lab/internal/domain"
)

// Config holds labeling parameters.
type Config struct {
	Target         string         // price column, e.g. NASDAQ
	Horizon        int            // forward window length in rows, >= 1
	Threshold      float64        // drawdown threshold, < 0
	Policy         BoundaryPolicy // tail handling
	IncludeRolling bool           // also add the trailing drawdown column
}

// DefaultConfig returns the configuration used by the reference analysis.
func DefaultConfig() Config {
	return Config{
		Target:    "NASDAQ",
		Horizon:   60,
		Threshold: -0.02,
		Policy:    Truncate,
	}
}

// Validate checks the parameters.
func (c Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("%w: target is empty", domain.ErrInvalidParameter)
	}
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon %d < 1", domain.ErrInvalidParameter, c.Horizon)
	}
	if math.IsNaN(c.Threshold) || c.Threshold >= 0 {
		return fmt.Errorf("%w: drawdown threshold %v must be negative", domain.ErrInvalidParameter, c.Threshold)
	}
	return nil
}

// Summary describes the produced label column.
type Summary struct {
	ForwardColumn string
	RollingColumn string // empty unless IncludeRolling
	Positives     int
	Negatives     int
	Undefined     int
}

// Labeler adds drawdown and label columns to a panel.
type Labeler struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Labeler. It fails on invalid parameters.
func New(cfg Config, logger *zap.Logger) (*Labeler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Labeler{cfg: cfg, logger: logger}, nil
}

// Apply adds <target>_FwdDrawdown<H> and Risk_Label to the panel, plus
// <target>_Drawdown<H> when configured.
func (l *Labeler) Apply(p *domain.Panel) (*Summary, error) {
	prices, err := p.Column(l.cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}

	fwd := ForwardDrawdown(prices, l.cfg.Horizon, l.cfg.Policy)
	labels := Labels(fwd, l.cfg.Threshold)

	sum := &Summary{ForwardColumn: domain.ForwardDrawdownColumn(l.cfg.Target, l.cfg.Horizon)}
	if err := p.SetColumn(sum.ForwardColumn, fwd); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}
	if err := p.SetColumn(domain.ColumnRiskLabel, labels); err != nil {
		return nil, fmt.Errorf("label: %w", err)
	}

	if l.cfg.IncludeRolling {
		sum.RollingColumn = domain.RollingDrawdownColumn(l.cfg.Target, l.cfg.Horizon)
		if err := p.SetColumn(sum.RollingColumn, RollingDrawdown(prices, l.cfg.Horizon)); err != nil {
			return nil, fmt.Errorf("label: %w", err)
		}
	}

	for _, y := range labels {
		switch {
		case math.IsNaN(y):
			sum.Undefined++
		case y == 1:
			sum.Positives++
		default:
			sum.Negatives++
		}
	}

	l.logger.Info("labeled panel",
		zap.String("target", l.cfg.Target),
		zap.Int("horizon", l.cfg.Horizon),
		zap.Int("positives", sum.Positives),
		zap.Int("negatives", sum.Negatives),
		zap.Int("undefined", sum.Undefined))

	return sum, nil
}

// Label is a convenience wrapper that validates cfg and applies it to p.
func Label(p *domain.Panel, cfg Config) (*Summary, error) {
	l, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}
	return l.Apply(p)
}
