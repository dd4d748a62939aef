package ppo

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/approximator"
)

// evalNet is a forward-only copy of a training network. It lives on
// its own graph with a fixed input batch size and is kept in step
// with the training network by copying parameter values over before
// evaluation. Fixing the batch size keeps node shapes static; batches
// of any size are evaluated by chunking and padding the final chunk.
type evalNet struct {
	graph  *G.ExprGraph
	obs    *G.Node
	net    *approximator.MLP
	outVal G.Value
	vm     G.VM

	batch    int
	inDims   int
	outDims  int
}

// newEvalNet returns a forward-only multi-layer perceptron with the
// given architecture, evaluating batch rows of inDims features at a
// time
func newEvalNet(batch, inDims, outDims int, hiddenSizes []int,
	activations []*approximator.Activation, init G.InitWFn,
	name string) (*evalNet, error) {
	g := G.NewGraph()
	obs := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, inDims),
		G.WithName(name+"_obs"),
		G.WithInit(G.Zeroes()),
	)

	net, err := approximator.NewMLP([]*G.Node{obs}, outDims, hiddenSizes,
		activations, init, 1.0, approximator.NewParams(name))
	if err != nil {
		return nil, fmt.Errorf("newEvalNet: could not construct "+
			"network: %v", err)
	}

	e := &evalNet{
		graph:   g,
		obs:     obs,
		net:     net,
		batch:   batch,
		inDims:  inDims,
		outDims: outDims,
	}
	G.Read(net.Outputs()[0], &e.outVal)
	e.vm = G.NewTapeMachine(g)

	return e, nil
}

// sync copies the parameter values of src into the network
func (e *evalNet) sync(src *approximator.Params) error {
	return e.net.Params().Set(src)
}

// forward evaluates the network on exactly one batch of observations.
// The input must hold batch × inDims values, row-major; the returned
// slice holds batch × outDims values.
func (e *evalNet) forward(obs []float64) ([]float64, error) {
	if len(obs) != e.batch*e.inDims {
		return nil, fmt.Errorf("forward: invalid number of observation "+
			"values \n\twant(%v)\n\thave(%v)", e.batch*e.inDims, len(obs))
	}

	backing := make([]float64, len(obs))
	copy(backing, obs)
	obsTensor := tensor.New(
		tensor.WithShape(e.batch, e.inDims),
		tensor.WithBacking(backing),
	)
	if err := G.Let(e.obs, obsTensor); err != nil {
		return nil, fmt.Errorf("forward: could not set observations: %v",
			err)
	}

	if err := e.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("forward: could not run forward pass: %v",
			err)
	}

	data := e.outVal.Data().([]float64)
	out := make([]float64, e.batch*e.outDims)
	copy(out, data)
	e.vm.Reset()

	return out, nil
}

// forwardAll evaluates the network on n rows of observations by
// chunking them into fixed-size batches, zero padding the final chunk
// and discarding the padded rows from its output
func (e *evalNet) forwardAll(obs []float64, n int) ([]float64, error) {
	if len(obs) != n*e.inDims {
		return nil, fmt.Errorf("forwardAll: invalid number of "+
			"observation values \n\twant(%v)\n\thave(%v)", n*e.inDims,
			len(obs))
	}

	out := make([]float64, 0, n*e.outDims)
	chunk := make([]float64, e.batch*e.inDims)
	for start := 0; start < n; start += e.batch {
		rows := e.batch
		if start+rows > n {
			rows = n - start
		}

		for i := range chunk {
			chunk[i] = 0
		}
		copy(chunk, obs[start*e.inDims:(start+rows)*e.inDims])

		chunkOut, err := e.forward(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, chunkOut[:rows*e.outDims]...)
	}
	return out, nil
}
