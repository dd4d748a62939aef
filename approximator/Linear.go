package approximator

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Linear implements a linear approximator y = xW (+ b). Its features
// are the inputs themselves.
type Linear struct {
	params   *Params
	useBias  bool
	outputs  []*G.Node
	features []*G.Node
}

// NewLinear returns a linear approximator of the given output width
// evaluated at every input in inputs. If params is empty it is
// populated; otherwise the stored parameters are reused.
func NewLinear(inputs []*G.Node, outputs int, useBias bool, init G.InitWFn,
	params *Params) (*Linear, error) {
	features, err := validateInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newlinear: %v", err)
	}

	g := inputs[0].Graph()
	expect := 1
	if useBias {
		expect = 2
	}
	if params.Empty() {
		weights := G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(features, outputs),
			G.WithName(params.Name()+"_W"),
			G.WithInit(init),
		)
		params.add(weights)
		if useBias {
			bias := G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, outputs),
				G.WithName(params.Name()+"_B"),
				G.WithInit(G.Zeroes()),
			)
			params.add(bias)
		}
	} else if len(params.Nodes()) != expect {
		return nil, fmt.Errorf("newlinear: shared parameters hold %v "+
			"tensors, architecture needs %v", len(params.Nodes()), expect)
	}

	lin := &Linear{params: params, useBias: useBias}
	for _, input := range inputs {
		lin.features = append(lin.features, input)

		out := G.Must(G.Mul(input, params.Nodes()[0]))
		if useBias {
			out = G.Must(G.BroadcastAdd(out, params.Nodes()[1], nil,
				[]byte{0}))
		}
		lin.outputs = append(lin.outputs, out)
	}

	return lin, nil
}

// Outputs returns one output node per input, in construction order
func (l *Linear) Outputs() []*G.Node {
	return l.outputs
}

// Features returns the feature node per input; for a linear
// approximator these are the inputs themselves
func (l *Linear) Features() []*G.Node {
	return l.features
}

// Params returns the approximator's parameter handle
func (l *Linear) Params() *Params {
	return l.params
}

// Reset overwrites the weights with near-zero noise and, when a bias
// is present, the bias with value. Without a bias there is no
// parameter that can shift the output, so value is ignored.
func (l *Linear) Reset(value float64) error {
	nodes := l.params.Nodes()
	if l.useBias {
		return resetWeightsAndBias(nodes[0], nodes[1], value)
	}
	return resetSingleMatrix(nodes[0], value, false)
}

// Size returns the total number of scalar parameters
func (l *Linear) Size() int {
	return l.params.Size()
}
