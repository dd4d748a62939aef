// Package approximator implements a family of parameterized function
// approximators built on Gorgonia computational graphs.
//
// An approximator can be evaluated at multiple inputs with a single
// parameter set. For instance, an action-value function may need both
// Q(s,a) and Q(s,π(s)) on the same parameters so that cost functions
// over either can be differentiated on one graph. To this end, every
// constructor takes a list of input nodes and the approximator
// produces one output node per input, in order.
//
// Linear-family approximators (Linear, Quadratic, Fourier, RBF) also
// expose their feature nodes φ(x), needed by callers that
// differentiate per-sample with respect to the linear weights.
//
// Parameters are owned by an explicit Params handle rather than looked
// up by name in a global registry: the first constructor called with
// an empty handle populates it, and constructing further approximators
// with the same handle ties their parameters.
package approximator

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// resetJitter is the magnitude of the symmetric noise written to
// weight matrices by Reset. Weights are near zero but not exactly
// zero, which would give degenerate gradients.
const resetJitter float64 = 1e-8

// Approximator maps one or more input nodes through a parameterized
// function to produce one output node per input. Implementations with
// explicit feature maps also expose one feature node per input;
// Features returns nil otherwise.
type Approximator interface {
	Outputs() []*G.Node
	Features() []*G.Node
	Params() *Params

	// Reset overwrites the final linear map so that the approximator
	// outputs approximately value for any input
	Reset(value float64) error

	// Size returns the total number of scalar parameters
	Size() int
}

// Params owns the trainable tensors of an approximator. A handle is
// created empty; the first approximator constructed with it populates
// it, and every later approximator constructed with the same handle
// reuses the stored nodes, tying the parameters. Mutating the
// parameters through one owner is observed by all owners.
type Params struct {
	name  string
	nodes G.Nodes
}

// NewParams returns a new, empty parameter handle. The name is used
// only to label graph nodes.
func NewParams(name string) *Params {
	return &Params{name: name}
}

// Name returns the label given to the handle at construction
func (p *Params) Name() string {
	return p.name
}

// Empty returns whether the handle has been populated yet
func (p *Params) Empty() bool {
	return len(p.nodes) == 0
}

// Nodes returns the trainable nodes owned by the handle
func (p *Params) Nodes() G.Nodes {
	return p.nodes
}

// Model returns the trainable nodes as value-gradient pairs for a
// Gorgonia solver
func (p *Params) Model() []G.ValueGrad {
	model := make([]G.ValueGrad, len(p.nodes))
	for i, node := range p.nodes {
		model[i] = node
	}
	return model
}

// Size returns the total number of scalar parameters owned by the
// handle: the sum of products of each parameter tensor's shape.
func (p *Params) Size() int {
	size := 0
	for _, node := range p.nodes {
		nodeSize := 1
		for _, dim := range node.Shape() {
			nodeSize *= dim
		}
		size += nodeSize
	}
	return size
}

// Set overwrites the handle's parameter values with those of src. The
// two handles must own the same number of parameters with matching
// shapes.
func (p *Params) Set(src *Params) error {
	if len(p.nodes) != len(src.nodes) {
		return fmt.Errorf("set: parameter count mismatch \n\twant(%v) "+
			"\n\thave(%v)", len(p.nodes), len(src.nodes))
	}

	for i, node := range p.nodes {
		value, ok := src.nodes[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: source parameter %v has no value", i)
		}
		if err := G.Let(node, value.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: could not copy parameter %v: %v", i, err)
		}
	}
	return nil
}

func (p *Params) add(node *G.Node) {
	p.nodes = append(p.nodes, node)
}

// validateInputs checks the common constructor contract: a non-empty
// ordered list of matrix inputs on a single graph, all with the same
// trailing dimensionality.
func validateInputs(inputs []*G.Node) (features int, err error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("at least one input is required")
	}

	for i, input := range inputs {
		if input == nil || !input.IsMatrix() {
			return 0, fmt.Errorf("input %v must be a matrix node", i)
		}
		if input.Graph() != inputs[0].Graph() {
			return 0, fmt.Errorf("input %v is not on the same graph as "+
				"input 0", i)
		}
		if input.Shape()[1] != inputs[0].Shape()[1] {
			return 0, fmt.Errorf("input %v has trailing dimension %v, "+
				"input 0 has %v", i, input.Shape()[1], inputs[0].Shape()[1])
		}
	}

	return inputs[0].Shape()[1], nil
}

// jitterTensor returns a (rows × cols) tensor of small symmetric noise
func jitterTensor(rows, cols int) *tensor.Dense {
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = resetJitter * (rand.Float64() - 0.5)
	}
	return tensor.New(tensor.WithShape(rows, cols),
		tensor.WithBacking(backing))
}

// constantTensor returns a (rows × cols) tensor filled with value
func constantTensor(value float64, rows, cols int) *tensor.Dense {
	backing := make([]float64, rows*cols)
	for i := range backing {
		backing[i] = value
	}
	return tensor.New(tensor.WithShape(rows, cols),
		tensor.WithBacking(backing))
}

// resetWeightsAndBias overwrites a weight matrix with near-zero noise
// and a bias with a constant. Used by approximators whose final layer
// keeps weights and bias as separate parameters.
func resetWeightsAndBias(weights, bias *G.Node, value float64) error {
	shape := weights.Shape()
	if err := G.Let(weights, jitterTensor(shape[0], shape[1])); err != nil {
		return fmt.Errorf("reset: could not overwrite weights: %v", err)
	}

	shape = bias.Shape()
	if err := G.Let(bias, constantTensor(value, shape[0],
		shape[1])); err != nil {
		return fmt.Errorf("reset: could not overwrite bias: %v", err)
	}
	return nil
}

// resetSingleMatrix overwrites a fused weight matrix with near-zero
// noise. When firstRowBias is true the matrix's first row is the
// implicit bias (the weights of a prepended constant-1 feature) and is
// set to the constant instead.
func resetSingleMatrix(theta *G.Node, value float64, firstRowBias bool) error {
	shape := theta.Shape()
	jittered := jitterTensor(shape[0], shape[1])

	if firstRowBias {
		for j := 0; j < shape[1]; j++ {
			if err := jittered.SetAt(value, 0, j); err != nil {
				return fmt.Errorf("reset: could not set bias row: %v", err)
			}
		}
	}

	if err := G.Let(theta, jittered); err != nil {
		return fmt.Errorf("reset: could not overwrite weights: %v", err)
	}
	return nil
}

// onesColumn returns a constant [rows × 1] node of ones used to
// prepend a bias feature
func onesColumn(rows int) *G.Node {
	backing := make([]float64, rows)
	for i := range backing {
		backing[i] = 1.0
	}
	return G.NewConstant(tensor.New(tensor.WithShape(rows, 1),
		tensor.WithBacking(backing)))
}
