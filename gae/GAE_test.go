package gae

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goppo/trajectory"
)

const tolerance float64 = 1e-12

// singleEpisode returns a batch holding one terminated episode with
// the given rewards
func singleEpisode(rewards []float64) *trajectory.Batch {
	n := len(rewards)
	terminal := make([]bool, n)
	terminal[n-1] = true

	return &trajectory.Batch{
		ObsDims:  1,
		ActDims:  1,
		Obs:      make([]float64, n),
		Act:      make([]float64, n),
		Rewards:  rewards,
		Terminal: terminal,
		Episodes: 1,
	}
}

// TestEstimateHandComputed checks the estimator against a hand-worked
// three-step episode
func TestEstimateHandComputed(t *testing.T) {
	batch := singleEpisode([]float64{1, 0, 2})
	values := []float64{0, 0, 0}

	advantages, err := Estimate(batch, values, 0.9, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	// deltas are [1, 0, 2]; A2 = 2, A1 = 0 + 0.45*2, A0 = 1 + 0.45*0.9
	expected := []float64{1.405, 0.9, 2}
	for i := range expected {
		if math.Abs(advantages[i]-expected[i]) > tolerance {
			t.Errorf("advantage %v \n\twant(%v) \n\thave(%v)", i,
				expected[i], advantages[i])
		}
	}
}

// TestEstimateLambdaZero checks that λ = 0 reduces the estimator to
// one-step TD errors
func TestEstimateLambdaZero(t *testing.T) {
	batch := singleEpisode([]float64{1, -1, 0.5, 3})
	values := []float64{0.2, -0.3, 1, 0.7}
	gamma := 0.97

	advantages, err := Estimate(batch, values, gamma, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := range values {
		nextValue := 0.0
		if i+1 < len(values) {
			nextValue = values[i+1]
		}
		delta := batch.Rewards[i] + gamma*nextValue - values[i]
		if math.Abs(advantages[i]-delta) > tolerance {
			t.Errorf("advantage %v \n\twant(%v) \n\thave(%v)", i, delta,
				advantages[i])
		}
	}
}

// TestEstimateLambdaOne checks that λ = 1 reduces the estimator to
// the discounted return minus the value baseline
func TestEstimateLambdaOne(t *testing.T) {
	batch := singleEpisode([]float64{2, 0, -1, 4})
	values := []float64{0.5, 1, -0.25, 0.1}
	gamma := 0.9

	advantages, err := Estimate(batch, values, gamma, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := range values {
		ret := 0.0
		for j := len(values) - 1; j >= i; j-- {
			ret = batch.Rewards[j] + gamma*ret
		}
		expected := ret - values[i]
		if math.Abs(advantages[i]-expected) > tolerance {
			t.Errorf("advantage %v \n\twant(%v) \n\thave(%v)", i, expected,
				advantages[i])
		}
	}
}

// TestEstimateEpisodeBoundary checks that the recursion does not leak
// across a terminal step
func TestEstimateEpisodeBoundary(t *testing.T) {
	batch := &trajectory.Batch{
		ObsDims:  1,
		ActDims:  1,
		Obs:      make([]float64, 4),
		Act:      make([]float64, 4),
		Rewards:  []float64{1, 2, 3, 4},
		Terminal: []bool{false, true, false, true},
		Episodes: 2,
	}
	values := []float64{0.5, 0.25, -0.5, 1}
	gamma, lambda := 0.9, 0.8

	advantages, err := Estimate(batch, values, gamma, lambda)
	if err != nil {
		t.Fatal(err)
	}

	// The first episode's advantages must be unaffected by the second
	first := singleEpisode(batch.Rewards[:2])
	expected, err := Estimate(first, values[:2], gamma, lambda)
	if err != nil {
		t.Fatal(err)
	}
	for i := range expected {
		if math.Abs(advantages[i]-expected[i]) > tolerance {
			t.Errorf("advantage %v \n\twant(%v) \n\thave(%v)", i,
				expected[i], advantages[i])
		}
	}

	// The terminal step of each episode bootstraps from a value of 0
	if math.Abs(advantages[3]-(4-values[3])) > tolerance {
		t.Errorf("terminal advantage \n\twant(%v) \n\thave(%v)",
			4-values[3], advantages[3])
	}
}

// TestEstimateLengthMismatch checks that the estimator rejects value
// slices that do not match the batch
func TestEstimateLengthMismatch(t *testing.T) {
	batch := singleEpisode([]float64{1, 2, 3})
	if _, err := Estimate(batch, []float64{0, 0}, 0.9, 0.5); err == nil {
		t.Error("expected an error for mismatched value slice length")
	}
}
