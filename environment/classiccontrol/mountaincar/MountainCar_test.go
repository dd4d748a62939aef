package mountaincar

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestGoalTerminatesEpisode checks that reaching the goal ends the
// episode with the goal reward
func TestGoalTerminatesEpisode(t *testing.T) {
	env := NewDefault(42)
	env.Reset()

	// Rock back and forth: push in the direction of the current
	// velocity, starting to the left
	action := mat.NewVecDense(1, []float64{-ForceBound})
	for i := 0; i < EpisodeLength; i++ {
		obs, reward, done := env.Step(action)
		if done {
			if obs.AtVec(0) < GoalPosition {
				t.Fatalf("episode ended at position %v before the goal "+
					"%v", obs.AtVec(0), GoalPosition)
			}
			if reward <= 0 {
				t.Errorf("goal reward \n\twant(> 0) \n\thave(%v)", reward)
			}
			return
		}

		if obs.AtVec(1) >= 0 {
			action.SetVec(0, ForceBound)
		} else {
			action.SetVec(0, -ForceBound)
		}
	}
	t.Error("rocking policy never reached the goal")
}

// TestStateStaysInBounds checks position and velocity clipping
func TestStateStaysInBounds(t *testing.T) {
	env := NewDefault(13)
	env.Reset()

	action := mat.NewVecDense(1, []float64{-ForceBound})
	for i := 0; i < 200; i++ {
		obs, _, done := env.Step(action)
		if pos := obs.AtVec(0); pos < MinPosition || pos > MaxPosition {
			t.Fatalf("position %v outside [%v, %v]", pos, MinPosition,
				MaxPosition)
		}
		if vel := obs.AtVec(1); vel < -MaxSpeed || vel > MaxSpeed {
			t.Fatalf("velocity %v outside [%v, %v]", vel, -MaxSpeed,
				MaxSpeed)
		}
		if done {
			env.Reset()
		}
	}
}

// TestStepCost checks the per-step force cost away from the goal
func TestStepCost(t *testing.T) {
	env := NewDefault(42)
	env.Reset()

	force := 0.5
	_, reward, done := env.Step(mat.NewVecDense(1, []float64{force}))
	if done {
		t.Skip("starting state stepped straight to the goal")
	}

	expected := -0.1 * force * force
	if reward != expected {
		t.Errorf("reward \n\twant(%v) \n\thave(%v)", expected, reward)
	}
}
