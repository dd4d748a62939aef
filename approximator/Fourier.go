package approximator

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Fourier implements a linear approximator with random Fourier
// features. A fixed random projection P (standard normal) and phase
// shift (uniform on [-π, π]) are drawn at construction and never
// trained; the features are sin(x/bandwidth · P + shift) with a
// prepended constant-1 bias feature, and only the final linear
// combination is trainable. The first row of the weight matrix acts as
// the bias.
type Fourier struct {
	params   *Params
	outputs  []*G.Node
	features []*G.Node
}

// NewFourier returns a random-Fourier-feature linear approximator of
// the given output width evaluated at every input in inputs, using
// numFeatures random sinusoids. The bandwidth divides the input before
// projection and may hold either a single value for all input
// dimensions or one value per dimension. The projection and shift are
// drawn from seed. If params is empty it is populated; otherwise the
// stored parameters are reused.
func NewFourier(inputs []*G.Node, outputs, numFeatures int,
	bandwidth []float64, seed uint64, init G.InitWFn,
	params *Params) (*Fourier, error) {
	d, err := validateInputs(inputs)
	if err != nil {
		return nil, fmt.Errorf("newfourier: %v", err)
	}
	if numFeatures < 1 {
		return nil, fmt.Errorf("newfourier: at least one random feature is "+
			"required \n\thave(%v)", numFeatures)
	}
	if len(bandwidth) != 1 && len(bandwidth) != d {
		return nil, fmt.Errorf("newfourier: bandwidth must hold 1 or %v "+
			"values \n\thave(%v)", d, len(bandwidth))
	}

	source := rand.NewSource(seed)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: source}
	uniform := distuv.Uniform{Min: -math.Pi, Max: math.Pi, Src: source}

	projection := make([]float64, d*numFeatures)
	for i := range projection {
		projection[i] = normal.Rand()
	}
	shift := make([]float64, numFeatures)
	for i := range shift {
		shift[i] = uniform.Rand()
	}

	inverseBandwidth := make([]float64, d)
	for i := range inverseBandwidth {
		b := bandwidth[0]
		if len(bandwidth) == d {
			b = bandwidth[i]
		}
		if b <= 0 {
			return nil, fmt.Errorf("newfourier: bandwidth must be positive"+
				" \n\thave(%v)", b)
		}
		inverseBandwidth[i] = 1.0 / b
	}

	projectionNode := G.NewConstant(tensor.New(
		tensor.WithShape(d, numFeatures),
		tensor.WithBacking(projection),
	))
	shiftNode := G.NewConstant(tensor.New(
		tensor.WithShape(1, numFeatures),
		tensor.WithBacking(shift),
	))
	inverseBandwidthNode := G.NewConstant(tensor.New(
		tensor.WithShape(1, d),
		tensor.WithBacking(inverseBandwidth),
	))

	if params.Empty() {
		theta := G.NewMatrix(
			inputs[0].Graph(),
			tensor.Float64,
			G.WithShape(numFeatures+1, outputs),
			G.WithName(params.Name()+"_W"),
			G.WithInit(init),
		)
		params.add(theta)
	} else if len(params.Nodes()) != 1 {
		return nil, fmt.Errorf("newfourier: shared parameters hold %v "+
			"tensors, architecture needs 1", len(params.Nodes()))
	}

	fourier := &Fourier{params: params}
	for _, input := range inputs {
		batch := input.Shape()[0]

		scaled := G.Must(G.BroadcastHadamardProd(input,
			inverseBandwidthNode, nil, []byte{0}))
		phi := G.Must(G.Mul(scaled, projectionNode))
		phi = G.Must(G.BroadcastAdd(phi, shiftNode, nil, []byte{0}))
		phi = G.Must(G.Sin(phi))
		phi = G.Must(G.Concat(1, onesColumn(batch), phi))

		fourier.features = append(fourier.features, phi)
		fourier.outputs = append(fourier.outputs, G.Must(G.Mul(phi,
			params.Nodes()[0])))
	}

	return fourier, nil
}

// Outputs returns one output node per input, in construction order
func (f *Fourier) Outputs() []*G.Node {
	return f.outputs
}

// Features returns the random Fourier feature node per input
func (f *Fourier) Features() []*G.Node {
	return f.features
}

// Params returns the approximator's parameter handle
func (f *Fourier) Params() *Params {
	return f.params
}

// Reset overwrites the weight matrix with near-zero noise and its
// first row, the implicit bias, with value
func (f *Fourier) Reset(value float64) error {
	return resetSingleMatrix(f.params.Nodes()[0], value, true)
}

// Size returns the total number of scalar parameters
func (f *Fourier) Size() int {
	return f.params.Size()
}
