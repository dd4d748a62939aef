package approximator

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/utils/tensorutils"
)

// Quadratic implements a linear approximator with quadratic features.
// An input x of dimension d is expanded into the monomials
// {z_k·z_j : k ≤ j} of z = [1, x], that is {1, x_i, x_i·x_j for i ≤ j},
// giving 1 + d + d(d+1)/2 features, and a single no-bias linear map is
// applied. The first feature is the constant 1, so the first row of
// the weight matrix acts as the bias.
type Quadratic struct {
	params   *Params
	outputs  []*G.Node
	features []*G.Node
}

// NumQuadraticFeatures returns the number of quadratic features
// produced for an input of dimension d
func NumQuadraticFeatures(d int) int {
	return 1 + d + d*(d+1)/2
}

// NewQuadratic returns a quadratic-feature linear approximator of the
// given output width evaluated at every input in inputs. If params is
// empty it is populated; otherwise the stored parameters are reused.
func NewQuadratic(inputs []*G.Node, outputs int, init G.InitWFn,
	params *Params) (*Quadratic, error) {
	d, err := validateInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newquadratic: %v", err)
	}
	numFeatures := NumQuadraticFeatures(d)

	if params.Empty() {
		theta := G.NewMatrix(
			inputs[0].Graph(),
			tensor.Float64,
			G.WithShape(numFeatures, outputs),
			G.WithName(params.Name()+"_W"),
			G.WithInit(init),
		)
		params.add(theta)
	} else if len(params.Nodes()) != 1 {
		return nil, fmt.Errorf("newquadratic: shared parameters hold %v "+
			"tensors, architecture needs 1", len(params.Nodes()))
	}

	quad := &Quadratic{params: params}
	for _, input := range inputs {
		phi, err := quadraticFeatures(input, d)
		if err != nil {
			return nil, fmt.Errorf("newquadratic: %v", err)
		}
		quad.features = append(quad.features, phi)
		quad.outputs = append(quad.outputs, G.Must(G.Mul(phi,
			params.Nodes()[0])))
	}

	return quad, nil
}

// quadraticFeatures adds the pure feature map to the graph: the
// upper-triangular products of z = [1, x] with itself.
func quadraticFeatures(input *G.Node, d int) (*G.Node, error) {
	batch := input.Shape()[0]
	z := G.Must(G.Concat(1, onesColumn(batch), input))

	cols := make([]*G.Node, d+1)
	for k := 0; k <= d; k++ {
		cols[k] = G.Must(G.Slice(z, nil, tensorutils.NewSlice(k, k+1, 1)))
	}

	var monomials []*G.Node
	for k := 0; k <= d; k++ {
		for j := k; j <= d; j++ {
			prod := G.Must(G.HadamardProd(cols[k], cols[j]))
			// Column slices may collapse to vectors; restore the
			// column axis so the features concatenate along axis 1
			prod = G.Must(G.Reshape(prod, tensor.Shape{batch, 1}))
			monomials = append(monomials, prod)
		}
	}

	return G.Concat(1, monomials...)
}

// Outputs returns one output node per input, in construction order
func (q *Quadratic) Outputs() []*G.Node {
	return q.outputs
}

// Features returns the quadratic feature node per input
func (q *Quadratic) Features() []*G.Node {
	return q.features
}

// Params returns the approximator's parameter handle
func (q *Quadratic) Params() *Params {
	return q.params
}

// Reset overwrites the weight matrix with near-zero noise and its
// first row, the implicit bias, with value
func (q *Quadratic) Reset(value float64) error {
	return resetSingleMatrix(q.params.Nodes()[0], value, true)
}

// Size returns the total number of scalar parameters
func (q *Quadratic) Size() int {
	return q.params.Size()
}
