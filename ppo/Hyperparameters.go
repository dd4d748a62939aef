package ppo

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/samuelfneumann/goppo/approximator"
	"github.com/samuelfneumann/goppo/initwfn"
	"github.com/samuelfneumann/goppo/solver"
)

// Hyperparameters describes a full configuration of the PPO trainer.
// The configuration is JSON serializable so that runs can be driven
// from configuration files.
type Hyperparameters struct {
	// Policy mean and value function networks. The final linear
	// output layer of each network is added by the trainer and should
	// not be listed here.
	PolicyHiddenSizes  []int
	PolicyActivations  []*approximator.Activation
	ValueHiddenSizes   []int
	ValueActivations   []*approximator.Activation
	InitWFn            *initwfn.InitWFn
	PolicySolver       *solver.Solver
	ValueSolver        *solver.Solver

	Gamma       float64 // discount factor
	Lambda      float64 // bias-variance trade-off of the advantage estimator
	EpsilonClip float64 // clipping range of the probability ratio

	BatchSize       int // minibatch size for both optimizers
	ValueEpochs     int // optimization epochs per iteration for the critic
	PolicyEpochs    int // optimization epochs per iteration for the policy
	MinTransPerIter int // minimum transitions collected per iteration
	Iterations      int // training iterations

	StdNoise      float64 // initial per-dimension exploration scale
	EntropyMargin float64 // per-iteration drop of the entropy floor
}

// DefaultHyperparameters returns the hyperparameters used when no
// environment-specific configuration exists
func DefaultHyperparameters() (Hyperparameters, error) {
	init, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		return Hyperparameters{}, fmt.Errorf("defaultHyperparameters: %v",
			err)
	}

	policySolver, err := solver.NewDefaultAdam(3e-4, 1)
	if err != nil {
		return Hyperparameters{}, fmt.Errorf("defaultHyperparameters: %v",
			err)
	}

	valueSolver, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		return Hyperparameters{}, fmt.Errorf("defaultHyperparameters: %v",
			err)
	}

	return Hyperparameters{
		PolicyHiddenSizes: []int{64, 64},
		PolicyActivations: []*approximator.Activation{
			approximator.TanH(),
			approximator.TanH(),
		},
		ValueHiddenSizes: []int{64, 64},
		ValueActivations: []*approximator.Activation{
			approximator.TanH(),
			approximator.TanH(),
		},
		InitWFn:      init,
		PolicySolver: policySolver,
		ValueSolver:  valueSolver,

		Gamma:       0.99,
		Lambda:      0.95,
		EpsilonClip: 0.2,

		BatchSize:       64,
		ValueEpochs:     10,
		PolicyEpochs:    10,
		MinTransPerIter: 3000,
		Iterations:      500,

		StdNoise:      1.0,
		EntropyMargin: 0.1,
	}, nil
}

// ForEnvironment returns the hyperparameters for the named
// environment. When no configuration exists for the environment, a
// warning is printed and the defaults are returned.
func ForEnvironment(envName string) (Hyperparameters, error) {
	hp, err := DefaultHyperparameters()
	if err != nil {
		return Hyperparameters{}, err
	}

	switch envName {
	case "Pendulum-v0", "Pendulum":
		hp.MinTransPerIter = 2000
		hp.Iterations = 300

	case "MountainCarContinuous-v0", "MountainCarContinuous":
		hp.MinTransPerIter = 3000
		hp.Iterations = 300
		hp.StdNoise = 2.0

	default:
		log.Printf("no hyperparameters defined for %q, using default "+
			"ones", envName)
	}

	return hp, nil
}

// FromFile reads hyperparameters from a JSON configuration file
func FromFile(filename string) (Hyperparameters, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Hyperparameters{}, fmt.Errorf("fromFile: could not read "+
			"%v: %v", filename, err)
	}

	var hp Hyperparameters
	if err := json.Unmarshal(data, &hp); err != nil {
		return Hyperparameters{}, fmt.Errorf("fromFile: could not "+
			"unmarshal %v: %v", filename, err)
	}

	return hp, nil
}

// validate checks the hyperparameters for inconsistencies that would
// otherwise surface as confusing graph construction errors
func (h Hyperparameters) validate() error {
	if len(h.PolicyHiddenSizes) != len(h.PolicyActivations) {
		return fmt.Errorf("policy network has %v hidden sizes but %v "+
			"activations", len(h.PolicyHiddenSizes),
			len(h.PolicyActivations))
	}
	if len(h.ValueHiddenSizes) != len(h.ValueActivations) {
		return fmt.Errorf("value network has %v hidden sizes but %v "+
			"activations", len(h.ValueHiddenSizes),
			len(h.ValueActivations))
	}
	if h.Gamma < 0 || h.Gamma > 1 {
		return fmt.Errorf("discount factor must be in [0, 1], got %v",
			h.Gamma)
	}
	if h.Lambda < 0 || h.Lambda > 1 {
		return fmt.Errorf("lambda must be in [0, 1], got %v", h.Lambda)
	}
	if h.EpsilonClip <= 0 {
		return fmt.Errorf("clipping range must be positive, got %v",
			h.EpsilonClip)
	}
	if h.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %v",
			h.BatchSize)
	}
	if h.ValueEpochs <= 0 || h.PolicyEpochs <= 0 {
		return fmt.Errorf("epoch counts must be positive, got %v and %v",
			h.ValueEpochs, h.PolicyEpochs)
	}
	if h.Iterations <= 0 {
		return fmt.Errorf("iteration count must be positive, got %v",
			h.Iterations)
	}
	if h.MinTransPerIter < h.BatchSize {
		return fmt.Errorf("cannot sample minibatches of size %v from "+
			"%v transitions", h.BatchSize, h.MinTransPerIter)
	}
	if h.StdNoise <= 0 {
		return fmt.Errorf("exploration scale must be positive, got %v",
			h.StdNoise)
	}
	if h.InitWFn == nil || h.PolicySolver == nil || h.ValueSolver == nil {
		return fmt.Errorf("initializer and solvers must be non-nil")
	}
	return nil
}
