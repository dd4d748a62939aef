// Package environment outlines the interface that the trainer's
// environment collaborator must satisfy, along with helper types for
// describing action and observation spaces.
package environment

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// Spec describes the layout of an action or observation space: its
// dimensionality and per-dimension bounds.
type Spec struct {
	Dims       int
	LowerBound mat.Vector
	UpperBound mat.Vector
}

// NewSpec returns a Spec with the given per-dimension bounds. Both
// bound vectors must have length dims.
func NewSpec(dims int, lowerBound, upperBound mat.Vector) Spec {
	if lowerBound.Len() != dims || upperBound.Len() != dims {
		panic("newSpec: bound length does not match dimensionality")
	}
	return Spec{Dims: dims, LowerBound: lowerBound, UpperBound: upperBound}
}

// Symmetric returns whether the Spec's upper bound is the negation of
// its lower bound in every dimension.
func (s Spec) Symmetric() bool {
	for i := 0; i < s.Dims; i++ {
		if s.UpperBound.AtVec(i) != -s.LowerBound.AtVec(i) {
			return false
		}
	}
	return true
}

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Environment implements a simulated environment with episodic
// reset/step semantics. Step returns the next observation, the reward
// for the transition, and whether the episode has ended.
type Environment interface {
	Reset() mat.Vector
	Step(action mat.Vector) (mat.Vector, float64, bool)
	ObservationSpec() Spec
	ActionSpec() Spec
}

// UniformStarter samples starting states uniformly from a bounding box
type UniformStarter struct {
	features int
	rand     *distmv.Uniform
}

// NewUniformStarter returns a UniformStarter sampling uniformly from
// bounds with the given random seed
func NewUniformStarter(bounds []r1.Interval, seed uint64) UniformStarter {
	source := rand.NewSource(seed)
	return UniformStarter{len(bounds), distmv.NewUniform(bounds, source)}
}

// Start samples and returns a starting state
func (u UniformStarter) Start() mat.Vector {
	return mat.NewVecDense(u.features, u.rand.Rand(nil))
}
