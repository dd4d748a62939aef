package trajectory

import (
	"math"
	"testing"

	"github.com/samuelfneumann/goppo/environment/classiccontrol/pendulum"
)

// TestCollectFullEpisodes checks that collection runs full episodes
// until the transition minimum is reached
func TestCollectFullEpisodes(t *testing.T) {
	env := pendulum.NewDefault(42)
	zeros := func(obs []float64) []float64 {
		return []float64{0}
	}

	minTrans := pendulum.EpisodeLength + 1
	batch, err := Collect(env, zeros, minTrans)
	if err != nil {
		t.Fatal(err)
	}

	if batch.Len() < minTrans {
		t.Errorf("batch holds %v transitions, need at least %v",
			batch.Len(), minTrans)
	}
	if batch.Len()%pendulum.EpisodeLength != 0 {
		t.Errorf("batch of %v transitions holds a partial episode",
			batch.Len())
	}
	if batch.Episodes != batch.Len()/pendulum.EpisodeLength {
		t.Errorf("episode count \n\twant(%v) \n\thave(%v)",
			batch.Len()/pendulum.EpisodeLength, batch.Episodes)
	}

	if len(batch.Obs) != batch.Len()*batch.ObsDims {
		t.Errorf("observation buffer length \n\twant(%v) \n\thave(%v)",
			batch.Len()*batch.ObsDims, len(batch.Obs))
	}
	if len(batch.Act) != batch.Len()*batch.ActDims {
		t.Errorf("action buffer length \n\twant(%v) \n\thave(%v)",
			batch.Len()*batch.ActDims, len(batch.Act))
	}
}

// TestCollectTerminals checks that terminal flags mark exactly the
// episode boundaries
func TestCollectTerminals(t *testing.T) {
	env := pendulum.NewDefault(13)
	zeros := func(obs []float64) []float64 {
		return []float64{0}
	}

	batch, err := Collect(env, zeros, 2*pendulum.EpisodeLength)
	if err != nil {
		t.Fatal(err)
	}

	terminals := 0
	for i, terminal := range batch.Terminal {
		if terminal {
			terminals++
			if (i+1)%pendulum.EpisodeLength != 0 {
				t.Errorf("terminal flag at step %v is not an episode "+
					"boundary", i)
			}
		}
	}
	if terminals != batch.Episodes {
		t.Errorf("terminal count \n\twant(%v) \n\thave(%v)",
			batch.Episodes, terminals)
	}
	if !batch.Terminal[batch.Len()-1] {
		t.Error("the final transition of a batch must be terminal")
	}
}

// TestAverageReturn checks the average return against a hand
// computation
func TestAverageReturn(t *testing.T) {
	batch := &Batch{
		ObsDims:  1,
		ActDims:  1,
		Rewards:  []float64{1, 2, 3, 4},
		Terminal: []bool{false, true, false, true},
		Episodes: 2,
	}

	if avg := batch.AverageReturn(); math.Abs(avg-5) > 1e-12 {
		t.Errorf("average return \n\twant(%v) \n\thave(%v)", 5.0, avg)
	}
}

// TestCollectRejectsBadPolicy checks that collection fails when the
// policy returns actions of the wrong dimension
func TestCollectRejectsBadPolicy(t *testing.T) {
	env := pendulum.NewDefault(7)
	bad := func(obs []float64) []float64 {
		return []float64{0, 0}
	}

	if _, err := Collect(env, bad, 10); err == nil {
		t.Error("expected an error for mismatched action dimensions")
	}
}
