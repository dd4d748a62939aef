// Package mountaincar implements the continuous-action mountain car
// classic control environment
package mountaincar

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// default physical constants
const (
	MinPosition  float64 = -1.2
	MaxPosition  float64 = 0.6
	MaxSpeed     float64 = 0.07
	GoalPosition float64 = 0.45

	ForceBound float64 = 1.0 // +/- Action bounds

	power float64 = 0.0015

	ActionDims      int = 1
	ObservationDims int = 2

	// EpisodeLength is the number of steps after which an episode is
	// cut off if the goal was not reached
	EpisodeLength int = 999

	goalReward float64 = 100.0
	forceCost  float64 = 0.1
)

// MountainCar implements the continuous-action mountain car
// environment. The agent controls an underpowered car in a valley
// between two hills and must rock back and forth, building momentum
// until it can reach the goal position on the right hill.
//
// State features are the x position of the car, bounded by
// [MinPosition, MaxPosition], and its velocity, clipped to
// [-MaxSpeed, MaxSpeed]. Actions are 1-dimensional, continuous, and
// clipped to [-ForceBound, ForceBound]; the action bounds are
// symmetric around zero. Each step costs 0.1·force², and reaching the
// goal yields a reward of 100 and ends the episode.
//
// MountainCar implements the environment.Environment interface
type MountainCar struct {
	starter        environment.Starter
	positionBounds r1.Interval
	speedBounds    r1.Interval
	forceBounds    r1.Interval
	state          *mat.VecDense
	steps          int
}

// New returns a new MountainCar whose starting states are drawn from
// the argument Starter
func New(s environment.Starter) *MountainCar {
	return &MountainCar{
		starter:        s,
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		forceBounds:    r1.Interval{Min: -ForceBound, Max: ForceBound},
	}
}

// NewDefault returns a new MountainCar whose episodes start from a
// uniformly random position near the valley bottom with zero velocity
func NewDefault(seed uint64) *MountainCar {
	starter := environment.NewUniformStarter([]r1.Interval{
		{Min: -0.6, Max: -0.4},
		{Min: 0.0, Max: 0.0},
	}, seed)
	return New(starter)
}

// Reset resets the environment and returns a starting state drawn from
// the environment's Starter
func (m *MountainCar) Reset() mat.Vector {
	start := m.starter.Start()
	if start.Len() != ObservationDims {
		panic("reset: starting state has wrong number of features")
	}

	m.state = mat.NewVecDense(ObservationDims, []float64{
		floatutils.ClipInterval(start.AtVec(0), m.positionBounds),
		floatutils.ClipInterval(start.AtVec(1), m.speedBounds),
	})
	m.steps = 0

	return mat.VecDenseCopyOf(m.state)
}

// Step takes one environmental step given the argument action and
// returns the next observation, the reward, and whether the episode
// has ended. Actions outside the force bounds are clipped.
func (m *MountainCar) Step(action mat.Vector) (mat.Vector, float64, bool) {
	if m.state == nil {
		panic("step: Reset must be called before Step")
	}
	if action.Len() != ActionDims {
		panic("step: actions should be 1-dimensional")
	}

	force := floatutils.ClipInterval(action.AtVec(0), m.forceBounds)
	position, velocity := m.state.AtVec(0), m.state.AtVec(1)

	velocity += force*power - 0.0025*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)

	// Inelastic collision with the left wall
	if position <= MinPosition && velocity < 0 {
		velocity = 0
	}

	m.state = mat.NewVecDense(ObservationDims, []float64{position, velocity})
	m.steps++

	atGoal := position >= GoalPosition
	reward := -forceCost * force * force
	if atGoal {
		reward += goalReward
	}

	done := atGoal || m.steps >= EpisodeLength
	return mat.VecDenseCopyOf(m.state), reward, done
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() environment.Spec {
	lower := mat.NewVecDense(ObservationDims, []float64{MinPosition,
		-MaxSpeed})
	upper := mat.NewVecDense(ObservationDims, []float64{MaxPosition,
		MaxSpeed})
	return environment.NewSpec(ObservationDims, lower, upper)
}

// ActionSpec returns the action specification of the environment
func (m *MountainCar) ActionSpec() environment.Spec {
	lower := mat.NewVecDense(ActionDims, []float64{-ForceBound})
	upper := mat.NewVecDense(ActionDims, []float64{ForceBound})
	return environment.NewSpec(ActionDims, lower, upper)
}
