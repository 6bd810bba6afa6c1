package domain

// Correlation statuses reported in the correlation table.
const (
	CorrelationAccepted  = "accepted"
	CorrelationRejected  = "rejected"
	CorrelationUndefined = "undefined" // fewer than 2 overlapping rows or zero variance
	CorrelationMissing   = "missing"   // candidate column absent from the panel
)

// CorrelationEntry is one row of the feature correlation table.
type CorrelationEntry struct {
	Feature      string  // candidate column name
	Correlation  float64 // Pearson r over pairwise-complete rows, NaN when undefined
	Observations int     // rows where both feature and target are present
	Undefined    bool    // correlation could not be computed
	Accepted     bool    // |Correlation| > threshold
	Status       string  // accepted | rejected | undefined | missing
}

// FeatureSet is the outcome of correlation filtering.
type FeatureSet struct {
	Target    string             // column correlated against
	Threshold float64            // absolute correlation threshold
	Accepted  []string           // accepted candidates, in candidate order
	Table     []CorrelationEntry // one entry per candidate, in candidate order
}

// UndefinedFeatures returns the candidates whose correlation was undefined.
func (fs *FeatureSet) UndefinedFeatures() []string {
	var out []string
	for _, e := range fs.Table {
		if e.Undefined {
			out = append(out, e.Feature)
		}
	}
	return out
}

// AllUndefined reports whether no candidate produced a correlation.
func (fs *FeatureSet) AllUndefined() bool {
	if len(fs.Table) == 0 {
		return false
	}
	for _, e := range fs.Table {
		if !e.Undefined {
			return false
		}
	}
	return true
}
