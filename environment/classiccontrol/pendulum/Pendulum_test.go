package pendulum

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestResetWithinBounds checks that starting states respect the state
// bounds
func TestResetWithinBounds(t *testing.T) {
	env := NewDefault(42)

	for i := 0; i < 100; i++ {
		obs := env.Reset()
		if obs.Len() != ObservationDims {
			t.Fatalf("observation dimensions \n\twant(%v) \n\thave(%v)",
				ObservationDims, obs.Len())
		}

		angle, speed := obs.AtVec(0), obs.AtVec(1)
		if angle < -AngleBound || angle > AngleBound {
			t.Errorf("starting angle %v outside [%v, %v]", angle,
				-AngleBound, AngleBound)
		}
		if speed < -SpeedBound || speed > SpeedBound {
			t.Errorf("starting speed %v outside [%v, %v]", speed,
				-SpeedBound, SpeedBound)
		}
	}
}

// TestEpisodeLength checks that episodes are cut off after exactly
// EpisodeLength steps
func TestEpisodeLength(t *testing.T) {
	env := NewDefault(42)
	env.Reset()

	action := mat.NewVecDense(1, []float64{0})
	for i := 0; i < EpisodeLength; i++ {
		_, _, done := env.Step(action)
		if done != (i == EpisodeLength-1) {
			t.Fatalf("step %v \n\twant(done = %v) \n\thave(done = %v)",
				i, i == EpisodeLength-1, done)
		}
	}
}

// TestRewardIsNegatedCost checks the reward of a known state and
// action
func TestRewardIsNegatedCost(t *testing.T) {
	env := NewDefault(42)
	obs := env.Reset()
	angle, speed := obs.AtVec(0), obs.AtVec(1)

	torque := 1.5
	_, reward, _ := env.Step(mat.NewVecDense(1, []float64{torque}))

	expected := -(angle*angle + 0.1*speed*speed + 0.001*torque*torque)
	if math.Abs(reward-expected) > 1e-12 {
		t.Errorf("reward \n\twant(%v) \n\thave(%v)", expected, reward)
	}
}

// TestStepClipsState checks that angular velocities stay within the
// speed bounds under maximal torque
func TestStepClipsState(t *testing.T) {
	env := NewDefault(42)
	env.Reset()

	// Overly large actions are clipped to the torque bounds
	action := mat.NewVecDense(1, []float64{100 * TorqueBound})
	for i := 0; i < 500; i++ {
		obs, _, done := env.Step(action)
		if speed := obs.AtVec(1); speed < -SpeedBound ||
			speed > SpeedBound {
			t.Fatalf("speed %v outside [%v, %v]", speed, -SpeedBound,
				SpeedBound)
		}
		if angle := obs.AtVec(0); angle < -AngleBound ||
			angle > AngleBound {
			t.Fatalf("angle %v outside [%v, %v]", angle, -AngleBound,
				AngleBound)
		}
		if done {
			env.Reset()
		}
	}
}

// TestActionSpecSymmetric checks that the action bounds are symmetric
// around zero
func TestActionSpecSymmetric(t *testing.T) {
	env := NewDefault(42)
	if !env.ActionSpec().Symmetric() {
		t.Error("action bounds must be symmetric around zero")
	}
}
