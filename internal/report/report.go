// Package report renders stored runs as a table, markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/thalesfsp/hoselect/internal/result"
)

// Output formats.
const (
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// RunSummary is the headline of one run.
type RunSummary struct {
	RunID      string   `json:"run_id"`
	Dir        string   `json:"dir"`
	Metric     string   `json:"metric"`
	PoolSource string   `json:"pool_source"`
	Selected   string   `json:"selected"`
	CVMean     float64  `json:"cv_mean"`
	CVStd      float64  `json:"cv_std"`
	Threshold  float64  `json:"threshold"`
	Stable     int      `json:"stable"`
	Candidates int      `json:"candidates"`
	FellBack   bool     `json:"fell_back"`
	TrainScore float64  `json:"train_score"`
	TestScore  float64  `json:"test_score"`
	AUC        *float64 `json:"auc"`
}

// Summarize extracts the headline of a run.
func Summarize(b *result.Bundle) RunSummary {
	s := RunSummary{
		RunID:      b.Meta.RunID,
		Dir:        b.Dir,
		Metric:     b.Meta.Metric,
		PoolSource: b.Meta.PoolSource,
		Selected:   b.Meta.Selected.String(),
		Threshold:  b.Stability.Threshold,
		Stable:     len(b.Stability.Stable),
		Candidates: len(b.Stability.Means),
		FellBack:   b.Stability.FellBack,
		AUC:        b.Metrics.AUC,
	}

	if i := b.Stability.Selected; i >= 0 && i < len(b.Stability.Means) {
		s.CVMean = b.Stability.Means[i]
		s.CVStd = b.Stability.Stds[i]
	}

	if n := len(b.Curve.TestScores); n > 0 {
		s.TrainScore = b.Curve.TrainScores[n-1]
		s.TestScore = b.Curve.TestScores[n-1]
	}

	return s
}

// Generate writes a report of runs to w. An unknown format falls back to
// the table.
func Generate(runs []*result.Bundle, format string, w io.Writer) error {
	summaries := make([]RunSummary, len(runs))
	for i, b := range runs {
		summaries[i] = Summarize(b)
	}

	switch format {
	case FormatMarkdown:
		return writeMarkdown(runs, summaries, w)
	case FormatJSON:
		return writeJSON(runs, summaries, w)
	default:
		return writeTable(runs, summaries, w)
	}
}

func formatAUC(auc *float64) string {
	if auc == nil {
		return "n/a"
	}

	return fmt.Sprintf("%.3f", *auc)
}

// metricRows lists the Metrics Report as (name, train, test) rows.
func metricRows(b *result.Bundle) [][3]string {
	m := b.Metrics
	row := func(name string, train, test float64) [3]string {
		return [3]string{name, fmt.Sprintf("%.3f", train), fmt.Sprintf("%.3f", test)}
	}

	return [][3]string{
		row("accuracy", m.AccuracyTrain, m.AccuracyTest),
		row("f1", m.F1Train, m.F1Test),
		row("precision", m.PrecisionTrain, m.PrecisionTest),
		row("recall", m.RecallTrain, m.RecallTest),
		{"auc", "", formatAUC(m.AUC)},
	}
}

func writeTable(runs []*result.Bundle, summaries []RunSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tMETRIC\tPOOL\tSELECTED\tCV MEAN\tCV STD\tSTABLE\tTEST\tAUC")
	fmt.Fprintln(tw, strings.Repeat("-", 100))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3f\t%.3f\t%d/%d\t%.3f\t%s\n",
			shortID(s.RunID), s.Metric, s.PoolSource, s.Selected, s.CVMean, s.CVStd,
			s.Stable, s.Candidates, s.TestScore, formatAUC(s.AUC))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(runs) != 1 {
		return nil
	}

	b := runs[0]

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tTRAIN\tTEST")
	for _, r := range metricRows(b) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r[0], r[1], r[2])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FRACTION\tSIZE\tTRAIN\tTEST")
	for i, f := range b.Curve.Fractions {
		fmt.Fprintf(tw, "%.2f\t%d\t%.3f\t%.3f\n", f, b.Curve.Sizes[i], b.Curve.TrainScores[i], b.Curve.TestScores[i])
	}

	return tw.Flush()
}

func writeMarkdown(runs []*result.Bundle, summaries []RunSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Run | Metric | Pool | Selected | CV Mean | CV Std | Stable | Test | AUC |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %s | `%s` | %.3f | %.3f | %d/%d | %.3f | %s |\n",
			shortID(s.RunID), s.Metric, s.PoolSource, s.Selected, s.CVMean, s.CVStd,
			s.Stable, s.Candidates, s.TestScore, formatAUC(s.AUC))
	}

	for _, b := range runs {
		fmt.Fprintf(w, "\n### %s\n\n", b.Meta.RunID)
		fmt.Fprintln(w, "| Metric | Train | Test |")
		fmt.Fprintln(w, "|---|---|---|")
		for _, r := range metricRows(b) {
			fmt.Fprintf(w, "| %s | %s | %s |\n", r[0], r[1], r[2])
		}
	}

	return nil
}

// jsonRun is one run in the JSON report.
type jsonRun struct {
	RunSummary
	Metrics any `json:"metrics"`
	Curve   any `json:"curve"`
}

func writeJSON(runs []*result.Bundle, summaries []RunSummary, w io.Writer) error {
	out := make([]jsonRun, len(runs))
	for i, b := range runs {
		out[i] = jsonRun{RunSummary: summaries[i], Metrics: b.Metrics, Curve: b.Curve}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
