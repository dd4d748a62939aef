package approximator

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// RBF implements a linear approximator with radial basis function
// features
//
//	φ_k(x) = exp(-‖B ⊙ (x - c_k)‖²)
//
// where B holds per-dimension bandwidths. Centers c_k are placed on a
// regular grid over a bounding box, numCenters per dimension, and the
// bandwidths are derived from the grid spacing
// (B_i = numCenters / range_i) so that neighbouring bumps stay well
// separated. A constant-1 bias feature is prepended and only the
// linear combination is trainable; the first row of the weight matrix
// acts as the bias.
type RBF struct {
	params   *Params
	centers  [][]float64
	outputs  []*G.Node
	features []*G.Node
}

// NumRBFFeatures returns the number of features produced by an RBF
// approximator with numCenters centers per dimension on d input
// dimensions
func NumRBFFeatures(numCenters, d int) int {
	features := 1
	for i := 0; i < d; i++ {
		features *= numCenters
	}
	return features + 1
}

// NewRBF returns a radial-basis-function linear approximator of the
// given output width evaluated at every input in inputs. The bounding
// box space must hold one interval per input dimension; numCenters
// centers are placed along each dimension, for numCenters^d centers in
// total. If params is empty it is populated; otherwise the stored
// parameters are reused.
func NewRBF(inputs []*G.Node, outputs, numCenters int, space []r1.Interval,
	init G.InitWFn, params *Params) (*RBF, error) {
	d, err := validateInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newrbf: %v", err)
	}
	if len(space) != d {
		return nil, fmt.Errorf("newrbf: bounding box covers %v dimensions, "+
			"inputs have %v", len(space), d)
	}
	if numCenters < 1 {
		return nil, fmt.Errorf("newrbf: at least one center per dimension "+
			"is required \n\thave(%v)", numCenters)
	}

	// Per-dimension bandwidths from the grid spacing
	bandwidth := make([]float64, d)
	for i, interval := range space {
		span := interval.Max - interval.Min
		if span <= 0 {
			return nil, fmt.Errorf("newrbf: bounding box dimension %v is "+
				"empty", i)
		}
		bandwidth[i] = float64(numCenters) / span
	}

	centers := gridCenters(numCenters, space)
	numCenterRows := len(centers)

	// Precompute the center-dependent terms of the squared distance
	// ‖B⊙x - B⊙c‖² = ‖B⊙x‖² + ‖B⊙c‖² - 2(B⊙x)·(B⊙c)
	scaledCentersT := make([]float64, d*numCenterRows)
	centerSquares := make([]float64, numCenterRows)
	for k, center := range centers {
		for i := 0; i < d; i++ {
			scaled := center[i] * bandwidth[i]
			scaledCentersT[i*numCenterRows+k] = scaled
			centerSquares[k] += scaled * scaled
		}
	}

	bandwidthNode := G.NewConstant(tensor.New(
		tensor.WithShape(1, d),
		tensor.WithBacking(bandwidth),
	))
	scaledCentersTNode := G.NewConstant(tensor.New(
		tensor.WithShape(d, numCenterRows),
		tensor.WithBacking(scaledCentersT),
	))
	centerSquaresNode := G.NewConstant(tensor.New(
		tensor.WithShape(1, numCenterRows),
		tensor.WithBacking(centerSquares),
	))

	if params.Empty() {
		theta := G.NewMatrix(
			inputs[0].Graph(),
			tensor.Float64,
			G.WithShape(numCenterRows+1, outputs),
			G.WithName(params.Name()+"_W"),
			G.WithInit(init),
		)
		params.add(theta)
	} else if len(params.Nodes()) != 1 {
		return nil, fmt.Errorf("newrbf: shared parameters hold %v tensors, "+
			"architecture needs 1", len(params.Nodes()))
	}

	rbf := &RBF{params: params, centers: centers}
	for _, input := range inputs {
		batch := input.Shape()[0]

		scaled := G.Must(G.BroadcastHadamardProd(input, bandwidthNode, nil,
			[]byte{0}))
		inputSquares := G.Must(G.Sum(G.Must(G.Square(scaled)), 1))
		inputSquares = G.Must(G.Reshape(inputSquares,
			tensor.Shape{batch, 1}))

		cross := G.Must(G.Mul(scaled, scaledCentersTNode))
		dist := G.Must(G.Mul(G.NewConstant(-2.0), cross))
		dist = G.Must(G.BroadcastAdd(dist, centerSquaresNode, nil,
			[]byte{0}))
		dist = G.Must(G.BroadcastAdd(dist, inputSquares, nil, []byte{1}))

		phi := G.Must(G.Exp(G.Must(G.Neg(dist))))
		phi = G.Must(G.Concat(1, onesColumn(batch), phi))

		rbf.features = append(rbf.features, phi)
		rbf.outputs = append(rbf.outputs, G.Must(G.Mul(phi,
			params.Nodes()[0])))
	}

	return rbf, nil
}

// gridCenters places numCenters^d centers on a regular grid over the
// bounding box, padding each dimension by a tenth of the grid spacing
// so the outermost centers sit just outside the box
func gridCenters(numCenters int, space []r1.Interval) [][]float64 {
	d := len(space)

	axes := make([][]float64, d)
	for i, interval := range space {
		pad := (interval.Max - interval.Min) / float64(numCenters) * 0.1
		axes[i] = floatutils.Linspace(interval.Min-pad, interval.Max+pad,
			numCenters)
	}

	total := 1
	for range axes {
		total *= numCenters
	}

	centers := make([][]float64, total)
	for k := range centers {
		center := make([]float64, d)
		rem := k
		for i := 0; i < d; i++ {
			center[i] = axes[i][rem%numCenters]
			rem /= numCenters
		}
		centers[k] = center
	}
	return centers
}

// Centers returns the center of every radial basis function
func (r *RBF) Centers() [][]float64 {
	return r.centers
}

// Outputs returns one output node per input, in construction order
func (r *RBF) Outputs() []*G.Node {
	return r.outputs
}

// Features returns the radial-basis feature node per input
func (r *RBF) Features() []*G.Node {
	return r.features
}

// Params returns the approximator's parameter handle
func (r *RBF) Params() *Params {
	return r.params
}

// Reset overwrites the weight matrix with near-zero noise and its
// first row, the implicit bias, with value
func (r *RBF) Reset(value float64) error {
	return resetSingleMatrix(r.params.Nodes()[0], value, true)
}

// Size returns the total number of scalar parameters
func (r *RBF) Size() int {
	return r.params.Size()
}
