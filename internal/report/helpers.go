package report

import (
	"strconv"
	"time"

	"github.com/leapstack-labs/benchgraph/internal/stats"
)

const pageStyle = `<style>
  body { font-family: sans-serif; margin: 2em; }
  table.summary { margin: 1em auto; border-collapse: collapse; }
  table.summary th, table.summary td { padding: 4px 12px; border-bottom: 1px solid #ddd; text-align: right; }
  table.summary th:first-child, table.summary td:first-child { text-align: left; }
  tr[data-status="fail"] td { background: #fde2e4; }
  tr[data-status="fail"] td.status { color: #c0392b; font-weight: bold; }
  tr[data-status="pass"] td.status { color: #27ae60; }
  tr[data-status="unknown"] td { color: #777; }
</style>`

func generatedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 MST")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// thresholdText is "-" for series without history.
func thresholdText(s stats.Stats) string {
	if s.Status == stats.StatusUnknown {
		return "-"
	}
	return formatValue(s.Threshold)
}
