package ppo

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"
)

// TestMinibatchesCoverAllRows checks that one sweep of minibatches
// visits every row and that every minibatch has the configured size
func TestMinibatchesCoverAllRows(t *testing.T) {
	hp, err := DefaultHyperparameters()
	if err != nil {
		t.Fatal(err)
	}
	hp.BatchSize = 32

	p := &PPO{hp: hp, rng: rand.New(rand.NewSource(42))}

	// 200 is not a multiple of 32, so the final minibatch wraps
	n := 200
	seen := make([]bool, n)
	for _, idx := range p.minibatches(n) {
		if len(idx) != hp.BatchSize {
			t.Fatalf("minibatch size \n\twant(%v) \n\thave(%v)",
				hp.BatchSize, len(idx))
		}
		for _, row := range idx {
			if row < 0 || row >= n {
				t.Fatalf("row %v out of range [0, %v)", row, n)
			}
			seen[row] = true
		}
	}

	for row, visited := range seen {
		if !visited {
			t.Errorf("row %v never visited", row)
		}
	}
}

// TestSurrogateLossAtOldPolicy checks that the surrogate loss of the
// policy that generated the data is the negated mean advantage
func TestSurrogateLossAtOldPolicy(t *testing.T) {
	oldLP := []float64{-1, -2, -0.5, -3}
	advs := []float64{1, -2, 0.5, 3}

	loss := surrogateLoss(oldLP, oldLP, advs, 0.2)
	expected := -(1 - 2 + 0.5 + 3) / 4
	if math.Abs(loss-expected) > 1e-12 {
		t.Errorf("loss \n\twant(%v) \n\thave(%v)", expected, loss)
	}
}

// TestSurrogateLossClips checks that ratios outside the clipping
// range stop contributing gradient-relevant improvements
func TestSurrogateLossClips(t *testing.T) {
	eps := 0.2
	oldLP := []float64{0}
	advs := []float64{1}

	// A large ratio with a positive advantage is clipped to 1 + eps
	newLP := []float64{1} // ratio e > 1.2
	loss := surrogateLoss(newLP, oldLP, advs, eps)
	if math.Abs(loss-(-(1+eps))) > 1e-12 {
		t.Errorf("clipped loss \n\twant(%v) \n\thave(%v)", -(1 + eps),
			loss)
	}

	// A small ratio with a positive advantage is not clipped: the min
	// keeps the unclipped, worse objective
	newLP = []float64{-1} // ratio 1/e < 0.8
	loss = surrogateLoss(newLP, oldLP, advs, eps)
	if math.Abs(loss-(-math.Exp(-1))) > 1e-12 {
		t.Errorf("unclipped loss \n\twant(%v) \n\thave(%v)",
			-math.Exp(-1), loss)
	}
}

// TestNormalize checks that normalization standardizes values and
// survives constant inputs
func TestNormalize(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	normalize(values)

	mean, sumSq := 0.0, 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		sumSq += (v - mean) * (v - mean)
	}
	std := math.Sqrt(sumSq / float64(len(values)))

	if math.Abs(mean) > 1e-10 {
		t.Errorf("normalized mean \n\twant(%v) \n\thave(%v)", 0.0, mean)
	}
	if math.Abs(std-1) > 1e-6 {
		t.Errorf("normalized standard deviation \n\twant(%v) "+
			"\n\thave(%v)", 1.0, std)
	}

	// Constant inputs must not divide by zero
	constant := []float64{2, 2, 2}
	normalize(constant)
	for i, v := range constant {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("value %v is %v after normalizing a constant "+
				"slice", i, v)
		}
	}
}

// TestMeanSquaredError checks the mean squared error helper
func TestMeanSquaredError(t *testing.T) {
	predictions := []float64{1, 2, 3}
	targets := []float64{1, 0, 6}

	mse := meanSquaredError(predictions, targets)
	expected := (0.0 + 4.0 + 9.0) / 3.0
	if math.Abs(mse-expected) > 1e-12 {
		t.Errorf("mean squared error \n\twant(%v) \n\thave(%v)",
			expected, mse)
	}
}

// TestValidateRejectsBadConfigs checks a few inconsistent
// hyperparameter settings
func TestValidateRejectsBadConfigs(t *testing.T) {
	base, err := DefaultHyperparameters()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Hyperparameters)
	}{
		{"activation count", func(hp *Hyperparameters) {
			hp.PolicyActivations = hp.PolicyActivations[:1]
		}},
		{"discount factor", func(hp *Hyperparameters) {
			hp.Gamma = 1.5
		}},
		{"clipping range", func(hp *Hyperparameters) {
			hp.EpsilonClip = 0
		}},
		{"batch size", func(hp *Hyperparameters) {
			hp.BatchSize = 2 * hp.MinTransPerIter
		}},
		{"exploration scale", func(hp *Hyperparameters) {
			hp.StdNoise = -1
		}},
	}

	for _, test := range tests {
		hp := base
		test.mutate(&hp)
		if err := hp.validate(); err == nil {
			t.Errorf("%v: expected a validation error", test.name)
		}
	}
}
