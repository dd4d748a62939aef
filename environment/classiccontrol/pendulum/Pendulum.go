// Package pendulum implements the pendulum classic control environment
package pendulum

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// default physical constants
const (
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	dt      float64 = 0.05
	gravity float64 = 9.8
	mass    float64 = 1.0
	length  float64 = 1.0

	ActionDims      int = 1
	ObservationDims int = 2

	// EpisodeLength is the number of steps after which an episode is
	// cut off
	EpisodeLength int = 200

	// cost coefficients for the swing-up task
	speedCost  float64 = 0.1
	torqueCost float64 = 0.001
)

// Pendulum implements the classic pendulum swing-up environment. A
// pendulum hangs from a fixed base, and an agent applies torque at the
// base to swing the pendulum upright. The torque is underpowered, so
// the pendulum must be rocked back and forth, using momentum to
// gradually climb higher.
//
// State features are the angle of the pendulum from the positive
// y-axis, normalized to [-π, π], and its angular velocity, clipped to
// [-SpeedBound, SpeedBound]. Actions are 1-dimensional, continuous,
// and clipped to [-TorqueBound, TorqueBound]; the action bounds are
// symmetric around zero. Rewards are the negated swing-up cost
// -(θ² + 0.1·ω² + 0.001·τ²), and episodes end after EpisodeLength
// steps.
//
// Pendulum implements the environment.Environment interface
type Pendulum struct {
	starter      environment.Starter
	angleBounds  r1.Interval
	speedBounds  r1.Interval
	torqueBounds r1.Interval
	state        *mat.VecDense
	steps        int
}

// New returns a new Pendulum environment whose starting states are
// drawn from the argument Starter
func New(s environment.Starter) *Pendulum {
	return &Pendulum{
		starter:      s,
		angleBounds:  r1.Interval{Min: -AngleBound, Max: AngleBound},
		speedBounds:  r1.Interval{Min: -SpeedBound, Max: SpeedBound},
		torqueBounds: r1.Interval{Min: -TorqueBound, Max: TorqueBound},
	}
}

// NewDefault returns a new Pendulum whose episodes start from a
// uniformly random angle and a small random angular velocity
func NewDefault(seed uint64) *Pendulum {
	starter := environment.NewUniformStarter([]r1.Interval{
		{Min: -AngleBound, Max: AngleBound},
		{Min: -1.0, Max: 1.0},
	}, seed)
	return New(starter)
}

// Reset resets the environment and returns a starting state drawn from
// the environment's Starter
func (p *Pendulum) Reset() mat.Vector {
	start := p.starter.Start()
	if start.Len() != ObservationDims {
		panic("reset: starting state has wrong number of features")
	}

	p.state = mat.NewVecDense(ObservationDims, []float64{
		normalizeAngle(start.AtVec(0), p.angleBounds),
		floatutils.ClipInterval(start.AtVec(1), p.speedBounds),
	})
	p.steps = 0

	return mat.VecDenseCopyOf(p.state)
}

// Step takes one environmental step given the argument action and
// returns the next observation, the reward, and whether the episode
// has ended. Actions outside the torque bounds are clipped.
func (p *Pendulum) Step(action mat.Vector) (mat.Vector, float64, bool) {
	if p.state == nil {
		panic("step: Reset must be called before Step")
	}
	if action.Len() != ActionDims {
		panic("step: actions should be 1-dimensional")
	}

	torque := floatutils.ClipInterval(action.AtVec(0), p.torqueBounds)
	th, thdot := p.state.AtVec(0), p.state.AtVec(1)

	reward := -(th*th + speedCost*thdot*thdot + torqueCost*torque*torque)

	newthdot := thdot + (-3*gravity/(2*length)*math.Sin(th+math.Pi)+
		3.0/(mass*math.Pow(length, 2))*torque)*dt
	newth := th + newthdot*dt

	newthdot = floatutils.ClipInterval(newthdot, p.speedBounds)
	newth = normalizeAngle(newth, p.angleBounds)

	p.state = mat.NewVecDense(ObservationDims, []float64{newth, newthdot})
	p.steps++

	return mat.VecDenseCopyOf(p.state), reward, p.steps >= EpisodeLength
}

// ObservationSpec returns the observation specification of the
// environment
func (p *Pendulum) ObservationSpec() environment.Spec {
	lower := mat.NewVecDense(ObservationDims, []float64{-AngleBound,
		-SpeedBound})
	upper := mat.NewVecDense(ObservationDims, []float64{AngleBound,
		SpeedBound})
	return environment.NewSpec(ObservationDims, lower, upper)
}

// ActionSpec returns the action specification of the environment
func (p *Pendulum) ActionSpec() environment.Spec {
	lower := mat.NewVecDense(ActionDims, []float64{-TorqueBound})
	upper := mat.NewVecDense(ActionDims, []float64{TorqueBound})
	return environment.NewSpec(ActionDims, lower, upper)
}

// normalizeAngle normalizes an angle to within the argument bounds,
// which must span 2π
func normalizeAngle(th float64, bounds r1.Interval) float64 {
	if bounds.Max-bounds.Min != 2*math.Pi {
		panic("normalizeAngle: angle bounds must span 2π")
	}

	for th > bounds.Max {
		th -= 2 * math.Pi
	}
	for th < bounds.Min {
		th += 2 * math.Pi
	}
	return th
}
