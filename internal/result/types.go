package result

import (
	"time"

	"github.com/thalesfsp/hoselect"
	"github.com/thalesfsp/hoselect/internal/dataset"
)

// Artifact file names inside a run directory.
const (
	MetaFile        = "meta.json"
	TrialsFile      = "trials.json"
	ScreenFile      = "screen.json"
	FrequenciesFile = "frequencies.json"
	StabilityFile   = "stability.json"
	CurveFile       = "curve.json"
	ConfusionFile   = "confusion.json"
	ROCFile         = "roc.json"
	MetricsFile     = "metrics.json"
)

// Meta identifies a run and records how it was configured.
type Meta struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	ConfigPath string                  `json:"config_path,omitempty"`
	SearchKey  string                  `json:"search_key,omitempty"`
	Metric     string                  `json:"metric"`
	Folds      int                     `json:"folds"`
	Seed       int64                   `json:"seed"`
	PoolSource string                  `json:"pool_source"`
	Selected   hoselect.Configuration  `json:"selected"`
	State      hoselect.EvaluatorState `json:"state"`
	Dataset    dataset.Summary         `json:"dataset"`
}

// Stability is the stability.json artifact.
type Stability struct {
	Metric         string                 `json:"metric"`
	Percentile     float64                `json:"percentile"`
	Threshold      float64                `json:"threshold"`
	Means          []float64              `json:"means"`
	Stds           []float64              `json:"stds"`
	Stable         []int                  `json:"stable"`
	Unstable       []int                  `json:"unstable"`
	Selected       int                    `json:"selected"`
	FellBack       bool                   `json:"fell_back"`
	SelectedConfig hoselect.Configuration `json:"selected_config"`
	SelectedScores []float64              `json:"selected_scores"`
	Candidates     []hoselect.Candidate   `json:"candidates"`
	Failed         []hoselect.Failure     `json:"failed,omitempty"`
}

// NewStability flattens a StabilityReport.
func NewStability(r hoselect.StabilityReport) Stability {
	s := Stability{
		Metric:     r.Metric,
		Percentile: r.Percentile,
		Threshold:  r.Threshold,
		Means:      make([]float64, len(r.Candidates)),
		Stds:       make([]float64, len(r.Candidates)),
		Stable:     r.Stable,
		Unstable:   r.Unstable,
		Selected:   r.Selected,
		FellBack:   r.FellBack,
		Candidates: r.Candidates,
		Failed:     r.Failed,
	}
	for i, c := range r.Candidates {
		s.Means[i] = c.Mean
		s.Stds[i] = c.Std
	}

	if len(r.Candidates) > 0 {
		selected := r.SelectedCandidate()
		s.SelectedConfig = selected.Config
		s.SelectedScores = selected.Scores
	}

	return s
}

// Curve is the curve.json artifact.
type Curve struct {
	Config hoselect.Configuration `json:"config"`
	Metric string                 `json:"metric"`
	hoselect.LearningCurve
}

// Confusion is the confusion.json artifact. Matrix rows are actual labels,
// columns predicted ones.
type Confusion struct {
	Matrix hoselect.ConfusionMatrix `json:"matrix"`
	TN     int                      `json:"tn"`
	FP     int                      `json:"fp"`
	FN     int                      `json:"fn"`
	TP     int                      `json:"tp"`
}

// NewConfusion expands a matrix into its named cells.
func NewConfusion(m hoselect.ConfusionMatrix) Confusion {
	return Confusion{Matrix: m, TN: m.TN(), FP: m.FP(), FN: m.FN(), TP: m.TP()}
}

// Bundle is every artifact read back from one run directory. Optional
// artifacts are nil when the run did not produce them.
type Bundle struct {
	Dir         string                           `json:"dir"`
	Meta        Meta                             `json:"meta"`
	Trials      []hoselect.TrialResult           `json:"trials,omitempty"`
	Screen      *hoselect.ScreenResult           `json:"screen,omitempty"`
	Frequencies map[string][]hoselect.ValueCount `json:"frequencies"`
	Stability   Stability                        `json:"stability"`
	Curve       Curve                            `json:"curve"`
	Confusion   Confusion                        `json:"confusion"`
	ROC         *hoselect.ROCCurve               `json:"roc,omitempty"`
	Metrics     hoselect.MetricsReport           `json:"metrics"`
}
