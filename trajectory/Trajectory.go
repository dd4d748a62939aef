// Package trajectory implements collection and storage of episode
// rollouts used for batch policy optimization.
package trajectory

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goppo/environment"
)

// Batch holds the time steps of one or more complete episodes. The
// observation and action buffers are flattened row-major, so step i
// occupies Obs[i*ObsDims : (i+1)*ObsDims] and
// Act[i*ActDims : (i+1)*ActDims]. Terminal[i] is true when step i is
// the last step of its episode. A Batch is not mutated after
// collection.
type Batch struct {
	ObsDims int
	ActDims int

	Obs      []float64
	Act      []float64
	Rewards  []float64
	Terminal []bool

	Episodes int
}

// Len returns the number of time steps in the batch
func (b *Batch) Len() int {
	return len(b.Rewards)
}

// ObsRow returns the observation vector of step i, backed by the
// batch's buffer
func (b *Batch) ObsRow(i int) []float64 {
	return b.Obs[i*b.ObsDims : (i+1)*b.ObsDims]
}

// ActRow returns the action vector of step i, backed by the batch's
// buffer
func (b *Batch) ActRow(i int) []float64 {
	return b.Act[i*b.ActDims : (i+1)*b.ActDims]
}

// AverageReturn returns the total reward in the batch divided by the
// number of episodes
func (b *Batch) AverageReturn() float64 {
	return floats.Sum(b.Rewards) / float64(b.Episodes)
}

func (b *Batch) store(obs, act []float64, reward float64, terminal bool) {
	b.Obs = append(b.Obs, obs...)
	b.Act = append(b.Act, act...)
	b.Rewards = append(b.Rewards, reward)
	b.Terminal = append(b.Terminal, terminal)
}

// Collect gathers a Batch by repeatedly running episodes of env with
// the argument policy until the batch holds at least minTrans
// transitions. Episodes always run to completion, so the batch may
// overshoot minTrans to finish the last episode.
func Collect(env environment.Environment, policy func([]float64) []float64,
	minTrans int) (*Batch, error) {
	if minTrans <= 0 {
		return nil, fmt.Errorf("collect: minTrans must be positive")
	}

	obsDims := env.ObservationSpec().Dims
	actDims := env.ActionSpec().Dims
	batch := &Batch{ObsDims: obsDims, ActDims: actDims}

	for batch.Len() < minTrans {
		obs := env.Reset()
		for {
			obsData := vecData(obs, obsDims)
			action := policy(obsData)
			if len(action) != actDims {
				return nil, fmt.Errorf("collect: policy returned action of "+
					"length %v, environment expects %v", len(action), actDims)
			}

			next, reward, done := env.Step(mat.NewVecDense(actDims, action))
			batch.store(obsData, action, reward, done)
			obs = next

			if done {
				break
			}
		}
		batch.Episodes++
	}

	return batch, nil
}

func vecData(v mat.Vector, dims int) []float64 {
	if v.Len() != dims {
		panic(fmt.Sprintf("collect: observation has %v features, "+
			"expected %v", v.Len(), dims))
	}

	data := make([]float64, dims)
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
