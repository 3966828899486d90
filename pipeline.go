package hoselect

import (
	"context"
	"fmt"
)

// PipelineResult exposes every artifact of a run to the reporting layer.
type PipelineResult struct {
	// Search is set when the pool came from the Searcher.
	Search *SearchResult `json:"search,omitempty"`

	// Screen is set when the pool came from the Screener.
	Screen *ScreenResult `json:"screen,omitempty"`

	// Pool is the candidate pool handed to the Stability Analyzer.
	Pool []Configuration `json:"pool"`

	Stability  StabilityReport `json:"stability"`
	Evaluation CurveResult     `json:"evaluation"`
}

// Selected returns the configuration chosen by the Stability Analyzer.
func (r PipelineResult) Selected() Configuration {
	return r.Stability.SelectedCandidate().Config
}

// Pipeline chains pool building, stability analysis and learning-curve
// evaluation over one Dataset.
type Pipeline struct {
	data    *Dataset
	factory EstimatorFactory
	space   *SearchSpace
	config  Config

	checkpoint Checkpointer
	key        string
}

// NewPipeline validates every input before any fold is fitted.
//
// Usage example:
//
//	ds, _ := NewDataset(trainX, trainY, testX, testY)
//	space, _ := NewSearchSpace(map[string][]any{"solver_type": {"lbfgs", "adam"}})
//
//	p, err := NewPipeline(ds, lvq.Factory, space, DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	res, err := p.Run(ctx)
//	fmt.Println(res.Selected(), *res.Evaluation.Metrics.AUC)
func NewPipeline(ds *Dataset, factory EstimatorFactory, space *SearchSpace, cfg Config) (*Pipeline, error) {
	if ds == nil {
		return nil, invalidInput("nil dataset")
	}
	if factory == nil {
		return nil, invalidInput("nil estimator factory")
	}
	if space == nil {
		return nil, invalidInput("nil search space")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Pipeline{data: ds, factory: factory, space: space, config: cfg}, nil
}

// WithCheckpoint makes the search stage resumable. See Searcher.WithCheckpoint.
func (p *Pipeline) WithCheckpoint(cp Checkpointer, key string) *Pipeline {
	p.checkpoint = cp
	p.key = key

	return p
}

// Run executes the pipeline. Every stage either completes or returns an
// error naming the stage; nothing is substituted for a failed stage.
func (p *Pipeline) Run(ctx context.Context) (PipelineResult, error) {
	var res PipelineResult

	switch p.config.PoolSource {
	case PoolFromScreen:
		screener, err := NewScreener(p.data, p.factory, p.space, p.config)
		if err != nil {
			return res, err
		}

		screen, err := screener.Run(ctx)
		if err != nil {
			return res, fmt.Errorf("screen: %w", err)
		}

		res.Screen = &screen
		res.Pool = screen.Top(p.config.TopK)
	default:
		runner, err := NewTrialRunner(p.data, p.factory, p.space, p.config)
		if err != nil {
			return res, err
		}

		searcher := NewSearcher(runner)
		if p.checkpoint != nil {
			searcher.WithCheckpoint(p.checkpoint, p.key)
		}

		search, err := searcher.Run(ctx)
		if err != nil {
			return res, fmt.Errorf("search: %w", err)
		}

		res.Search = &search
		res.Pool = search.BestConfigs()
	}

	analyzer, err := NewStabilityAnalyzer(p.data, p.factory, p.config)
	if err != nil {
		return res, err
	}

	res.Stability, err = analyzer.Analyze(ctx, res.Pool)
	if err != nil {
		return res, fmt.Errorf("stability: %w", err)
	}

	evaluator, err := NewCurveEvaluator(p.data, p.factory, p.config)
	if err != nil {
		return res, err
	}

	res.Evaluation, err = evaluator.Evaluate(ctx, res.Selected())
	if err != nil {
		return res, fmt.Errorf("evaluate: %w", err)
	}

	return res, nil
}
