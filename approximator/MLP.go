package approximator

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MLP implements a multi-layer perceptron approximator. The network
// consists of the configured hidden layers followed by a final linear
// layer of the output width with a bias unit and no activation. All
// outputs share one parameter set through the MLP's Params handle.
type MLP struct {
	params   *Params
	outputs  []*G.Node
	keepProb float64
}

// NewMLP returns a multi-layer perceptron evaluated at every input in
// inputs. For index i, hiddenSizes[i] is the width of hidden layer i
// and activations[i] its activation function. A final linear layer of
// width outputs is always added. When 0 < keepProb < 1, dropout with
// the given keep probability follows every layer. If params is empty
// it is populated with freshly initialized parameters; otherwise the
// stored parameters are reused, tying this MLP to every other
// approximator sharing the handle.
func NewMLP(inputs []*G.Node, outputs int, hiddenSizes []int,
	activations []*Activation, init G.InitWFn, keepProb float64,
	params *Params) (*MLP, error) {
	features, err := validateInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newmlp: %v", err)
	}
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newmlp: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(activations))
	}
	if keepProb <= 0 || keepProb > 1 {
		return nil, fmt.Errorf("newmlp: keep probability must be in (0, 1]"+
			"\n\thave(%v)", keepProb)
	}

	widths := append([]int{}, hiddenSizes...)
	widths = append(widths, outputs)
	acts := append([]*Activation{}, activations...)
	acts = append(acts, Identity())

	g := inputs[0].Graph()
	if params.Empty() {
		in := features
		for l, width := range widths {
			weights := G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(in, width),
				G.WithName(fmt.Sprintf("%v_L%vW", params.Name(), l)),
				G.WithInit(init),
			)
			bias := G.NewMatrix(
				g,
				tensor.Float64,
				G.WithShape(1, width),
				G.WithName(fmt.Sprintf("%v_L%vB", params.Name(), l)),
				G.WithInit(G.Zeroes()),
			)
			params.add(weights)
			params.add(bias)
			in = width
		}
	} else if len(params.Nodes()) != 2*len(widths) {
		return nil, fmt.Errorf("newmlp: shared parameters hold %v tensors, "+
			"architecture needs %v", len(params.Nodes()), 2*len(widths))
	}

	mlp := &MLP{params: params, keepProb: keepProb}
	for _, input := range inputs {
		out, err := mlp.fwd(input, acts)
		if err != nil {
			return nil, fmt.Errorf("newmlp: could not compute forward "+
				"pass: %v", err)
		}
		mlp.outputs = append(mlp.outputs, out)
	}

	return mlp, nil
}

// fwd adds the forward pass on a single input to the computational
// graph
func (m *MLP) fwd(input *G.Node, acts []*Activation) (*G.Node, error) {
	nodes := m.params.Nodes()
	pred := input
	for l, act := range acts {
		weights, bias := nodes[2*l], nodes[2*l+1]

		var err error
		pred = G.Must(G.Mul(pred, weights))
		pred = G.Must(G.BroadcastAdd(pred, bias, nil, []byte{0}))
		if pred, err = act.fwd(pred); err != nil {
			return nil, fmt.Errorf("layer %v: %v", l, err)
		}

		if m.keepProb < 1 {
			if pred, err = G.Dropout(pred, 1-m.keepProb); err != nil {
				return nil, fmt.Errorf("layer %v dropout: %v", l, err)
			}
		}
	}
	return pred, nil
}

// Outputs returns one output node per input, in construction order
func (m *MLP) Outputs() []*G.Node {
	return m.outputs
}

// Features returns nil: an MLP has no explicit feature map
func (m *MLP) Features() []*G.Node {
	return nil
}

// Params returns the MLP's parameter handle
func (m *MLP) Params() *Params {
	return m.params
}

// Reset overwrites the final layer's weights with near-zero noise and
// its bias with value, so the MLP outputs approximately value
// everywhere
func (m *MLP) Reset(value float64) error {
	nodes := m.params.Nodes()
	return resetWeightsAndBias(nodes[len(nodes)-2], nodes[len(nodes)-1],
		value)
}

// Size returns the total number of scalar parameters
func (m *MLP) Size() int {
	return m.params.Size()
}
