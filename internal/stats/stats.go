// Package stats computes regression thresholds for benchmark series.
//
// The threshold for a series is derived from its history: every point except
// the newest. The newest point is the one under test, so it never influences
// the cutoff it is compared against.
package stats

import (
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/benchgraph/internal/series"
	"gonum.org/v1/gonum/stat"
)

// DefaultSigma is the number of standard deviations above the mean at which a
// new point counts as a regression.
const DefaultSigma = 2.0

// ErrInsufficientPoints is returned when a series has no history to compare
// its last point against.
var ErrInsufficientPoints = errors.New("at least two points are required")

// Status is the regression verdict for a series.
type Status string

// Status values.
const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusUnknown Status = "unknown"
)

// Stats holds the computed statistics for one series.
type Stats struct {
	Name      string  `json:"name"`
	Metric    string  `json:"metric"`
	Points    int     `json:"points"`
	Last      float64 `json:"last"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`
	Threshold float64 `json:"threshold"`
	Status    Status  `json:"status"`
}

// Ratio returns the last value as a percentage of the threshold, or 0 when
// no meaningful threshold exists.
func (s Stats) Ratio() float64 {
	if s.Status == StatusUnknown || s.Threshold == 0 {
		return 0
	}
	return 100 * s.Last / s.Threshold
}

// Threshold returns mean + sigma*stddev over all points but the last, using
// the population standard deviation.
func Threshold(points []float64, sigma float64) (mean, std, threshold float64, err error) {
	if len(points) < 2 {
		return 0, 0, 0, ErrInsufficientPoints
	}
	history := points[:len(points)-1]
	mean, std = stat.PopMeanStdDev(history, nil)
	return mean, std, mean + sigma*std, nil
}

// Evaluate compares last against threshold.
func Evaluate(last, threshold float64) Status {
	if last > threshold {
		return StatusFail
	}
	return StatusPass
}

// Analyze computes the statistics of one metric of a table.
func Analyze(t *series.Table, metric string, sigma float64) (Stats, error) {
	points := t.Column(metric)
	if points == nil {
		return Stats{}, fmt.Errorf("%s: %w: %s", t.Name, series.ErrMissingColumn, metric)
	}
	// the threshold metric needs every point; other metrics may have gaps
	if line, ok := t.Gap(metric); ok {
		return Stats{}, fmt.Errorf("%s: line %d: %s: %w", t.Name, line, metric, series.ErrMissingValue)
	}

	s := Stats{
		Name:   t.Name,
		Metric: metric,
		Points: len(points),
		Status: StatusUnknown,
	}
	if last, ok := t.Last(metric); ok {
		s.Last = last
	}

	mean, std, threshold, err := Threshold(points, sigma)
	if errors.Is(err, ErrInsufficientPoints) {
		return s, nil
	}
	if err != nil {
		return Stats{}, err
	}

	s.Mean = mean
	s.StdDev = std
	s.Threshold = threshold
	s.Status = Evaluate(s.Last, threshold)
	return s, nil
}

// Summary is the per-run mapping from series name to statistics.
type Summary struct {
	Series  []Stats `json:"series"`
	Pass    int     `json:"pass"`
	Fail    int     `json:"fail"`
	Unknown int     `json:"unknown"`
}

// Summarize collects stats in the given order and counts them by status.
func Summarize(all []Stats) *Summary {
	sum := &Summary{Series: make([]Stats, len(all))}
	copy(sum.Series, all)
	for _, s := range all {
		switch s.Status {
		case StatusPass:
			sum.Pass++
		case StatusFail:
			sum.Fail++
		default:
			sum.Unknown++
		}
	}
	return sum
}

// Lookup returns the stats for a series name.
func (s *Summary) Lookup(name string) (Stats, bool) {
	for _, st := range s.Series {
		if st.Name == name {
			return st, true
		}
	}
	return Stats{}, false
}

// Failures returns the failing series, worst ratio first.
func (s *Summary) Failures() []Stats {
	var out []Stats
	for _, st := range s.Series {
		if st.Status == StatusFail {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio() > out[j].Ratio() })
	return out
}

// HasRegressions reports whether any series failed.
func (s *Summary) HasRegressions() bool {
	return s.Fail > 0
}
