package hoselect

import (
	"math"
	"math/rand"
)

// failurePenalty is the loss observed for a configuration that failed. Every
// built-in metric lives in [0, 1], so any success has a loss <= 0.
const failurePenalty = 1.0

// sampler hands a trial its configurations one at a time and learns from
// their outcome. Next reports false once the trial budget is spent.
type sampler interface {
	Next() (Configuration, bool)
	Observe(cfg Configuration, score float64, err error)
}

// newSampler returns the strategy selected by cfg, seeded with seed. The
// budget is min(cfg.Iterations, space.Size()).
func newSampler(cfg Config, space *SearchSpace, seed int64) (sampler, error) {
	budget := cfg.Iterations
	if size := space.Size(); budget > size {
		budget = size
	}

	rng := rand.New(rand.NewSource(seed))

	switch cfg.Strategy {
	case StrategyBayesian:
		acquire, err := resolveAcquisition(cfg.Bayesian)
		if err != nil {
			return nil, err
		}

		return newBayesianSampler(space, cfg.Bayesian, acquire, rng, budget), nil
	default:
		return &randomSampler{configs: space.Sample(rng, budget)}, nil
	}
}

//////
// Random.
//////

// randomSampler replays a reproducible draw without replacement.
type randomSampler struct {
	configs []Configuration
	next    int
}

func (s *randomSampler) Next() (Configuration, bool) {
	if s.next >= len(s.configs) {
		return Configuration{}, false
	}

	cfg := s.configs[s.next]
	s.next++

	return cfg, true
}

func (s *randomSampler) Observe(Configuration, float64, error) {}

//////
// Bayesian.
//////

// bayesianSampler uses a Gaussian Process over the encoded grid to pick the
// next configuration.
//
// How it works:
// 1. The first InitialSamples configurations are drawn at random
// 2. Each following step:
//   - Draws NumCandidates unseen configurations at random
//   - Uses the Gaussian Process to predict their loss
//   - Uses the acquisition function to select the most promising one
//
// 3. Every outcome updates the model; failures are observed with a penalty
//
// Configurations are never repeated within a trial. Given the same seed and
// the same outcomes the sequence is identical.
type bayesianSampler struct {
	space   *SearchSpace
	params  BayesianParams
	acquire AcquisitionFunc
	rng     *rand.Rand
	gp      *gaussianProcess

	budget   int
	issued   int
	seen     map[int]bool
	bestLoss float64
}

func newBayesianSampler(space *SearchSpace, params BayesianParams, acquire AcquisitionFunc, rng *rand.Rand, budget int) *bayesianSampler {
	params.AcqParams.RandomState = rng

	return &bayesianSampler{
		space:    space,
		params:   params,
		acquire:  acquire,
		rng:      rng,
		gp:       newGaussianProcess(),
		budget:   budget,
		seen:     make(map[int]bool, budget),
		bestLoss: math.MaxFloat64,
	}
}

func (s *bayesianSampler) Next() (Configuration, bool) {
	if s.issued >= s.budget {
		return Configuration{}, false
	}

	unseen := make([]int, 0, s.space.Size()-len(s.seen))
	for i := 0; i < s.space.Size(); i++ {
		if !s.seen[i] {
			unseen = append(unseen, i)
		}
	}

	// Phase 1: initial random sampling.
	next := unseen[s.rng.Intn(len(unseen))]

	// Phase 2: model-guided selection.
	if s.issued >= s.params.InitialSamples {
		candidates := unseen
		if len(candidates) > s.params.NumCandidates {
			picked := make([]int, s.params.NumCandidates)
			for j, p := range s.rng.Perm(len(unseen))[:s.params.NumCandidates] {
				picked[j] = unseen[p]
			}
			candidates = picked
		}

		acqParams := s.params.AcqParams
		acqParams.BestSoFar = s.bestLoss

		bestAcquisition := math.MaxFloat64
		for _, c := range candidates {
			mean, variance := s.gp.Predict(s.space.encode(c))

			if acquisition := s.acquire(mean, variance, acqParams); acquisition < bestAcquisition {
				bestAcquisition = acquisition
				next = c
			}
		}
	}

	s.seen[next] = true
	s.issued++

	return s.space.At(next), true
}

func (s *bayesianSampler) Observe(cfg Configuration, score float64, err error) {
	i, ok := s.space.IndexOf(cfg)
	if !ok {
		return
	}

	loss := -score
	if err != nil || math.IsNaN(score) {
		loss = failurePenalty
	}

	s.gp.Update(s.space.encode(i), loss)

	if loss < s.bestLoss {
		s.bestLoss = loss
	}
}
