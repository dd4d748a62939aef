// Package policy implements an entropy-constrained Gaussian policy for
// continuous action spaces.
//
// The policy wraps a mean approximator's output and a learnable
// per-dimension scale. A minimum-entropy floor is enforced through an
// inequality constraint on the scales: given raw scales l and a target
// differential entropy β, the scale actually used for sampling is
//
//	σ_i = exp(max(log l_i, log l_i - (h - β)/d))
//
// where h = d/2·log(2πe) + Σ log l_i is the unconstrained entropy.
// The clamp applies the scalar slack (h - β)/d uniformly to every
// dimension, which guarantees the realized entropy never falls below
// β while leaving the policy free to have higher entropy than the
// floor.
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/utils/floatutils"
)

// Gaussian implements an entropy-constrained multivariate Gaussian
// policy with independent dimensions. The graph-side nodes (log
// probability of a batch of actions and the entropy of the clamped
// distribution) are built on the mean node's graph for use in loss
// functions; sampling and the closed-form diagnostics are computed
// directly from the current parameter values.
type Gaussian struct {
	graph  *G.ExprGraph
	obs    *G.Node // observation input the mean was built on
	mean   *G.Node // [batch, dims]
	rawStd *G.Node // [1, dims] learnable raw scales

	// beta is the mutable target-entropy cell: a graph input re-pushed
	// by the trainer once per iteration
	beta    *G.Node
	betaVal float64

	actions *G.Node // [batch, dims] input for log-probability queries
	logPdf  *G.Node // [batch]
	entropy *G.Node // scalar

	dims   int
	batch  int
	bound  []float64
	normal distmv.Rander
}

// NewGaussian returns a new entropy-constrained Gaussian policy. The
// mean node must be a [batch, d] output of an approximator built on
// obs, and rawStd a [1, d] learnable holding the raw per-dimension
// scales. The action-space bounds must be symmetric around zero:
// construction panics otherwise, before any graph is built. The
// entropy floor starts at beta and is moved with SetTargetEntropy;
// seed drives the policy's action sampler.
//
// Action bounds are asserted for parameterization purposes only:
// sampled actions are not clipped here.
func NewGaussian(obs, mean, rawStd *G.Node, lowerBound, upperBound mat.Vector,
	beta float64, seed uint64) (*Gaussian, error) {
	if lowerBound.Len() != upperBound.Len() {
		panic("newGaussian: action bounds differ in length")
	}
	for i := 0; i < upperBound.Len(); i++ {
		if upperBound.AtVec(i) != -lowerBound.AtVec(i) {
			panic(fmt.Sprintf("newGaussian: action bounds must be "+
				"symmetric around zero \n\tlower(%v) \n\tupper(%v)",
				lowerBound.AtVec(i), upperBound.AtVec(i)))
		}
	}

	if !mean.IsMatrix() || !rawStd.IsMatrix() {
		return nil, fmt.Errorf("newGaussian: mean and rawStd must be " +
			"matrix nodes")
	}
	batch, dims := mean.Shape()[0], mean.Shape()[1]
	if rawStd.Shape()[0] != 1 || rawStd.Shape()[1] != dims {
		return nil, fmt.Errorf("newGaussian: rawStd shape %v does not "+
			"match %v action dimensions", rawStd.Shape(), dims)
	}
	if upperBound.Len() != dims {
		return nil, fmt.Errorf("newGaussian: action bounds cover %v "+
			"dimensions, mean predicts %v", upperBound.Len(), dims)
	}

	g := mean.Graph()
	pol := &Gaussian{
		graph:   g,
		obs:     obs,
		mean:    mean,
		rawStd:  rawStd,
		betaVal: beta,
		dims:    dims,
		batch:   batch,
	}

	pol.bound = make([]float64, dims)
	for i := range pol.bound {
		pol.bound[i] = upperBound.AtVec(i)
	}

	// Target-entropy cell, re-pushed by the trainer each iteration
	pol.beta = G.NewScalar(g, tensor.Float64, G.WithName("target_entropy"))
	if err := G.Let(pol.beta, beta); err != nil {
		return nil, fmt.Errorf("newGaussian: could not set entropy "+
			"target: %v", err)
	}

	// Clamped scales: log σ = log l + max(0, (β - h)/d), written with
	// (x + |x|)/2 so the slack stays a scalar throughout
	entConst := gaussianEntropyConstant(dims)
	logRaw := G.Must(G.Log(rawStd))
	unconstrained := G.Must(G.Add(G.NewConstant(entConst),
		G.Must(G.Sum(logRaw))))
	slack := G.Must(G.Mul(G.NewConstant(1.0/float64(dims)),
		G.Must(G.Sub(pol.beta, unconstrained))))
	grow := G.Must(G.Mul(G.NewConstant(0.5),
		G.Must(G.Add(slack, G.Must(G.Abs(slack))))))
	logStd := G.Must(G.Add(logRaw, grow))
	std := G.Must(G.Exp(logStd))

	pol.entropy = G.Must(G.Add(G.NewConstant(entConst),
		G.Must(G.Sum(logStd))))

	// Log probability of a batch of externally supplied actions
	pol.actions = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithName("actions"),
		G.WithShape(batch, dims),
		G.WithInit(G.Zeroes()),
	)

	diff := G.Must(G.Sub(pol.actions, mean))
	z := G.Must(G.BroadcastHadamardDiv(diff, std, nil, []byte{0}))
	quad := G.Must(G.Sum(G.Must(G.Square(z)), 1))
	quad = G.Must(G.Mul(G.NewConstant(0.5), quad))

	logDet := G.Must(G.Sum(logStd))
	norm := G.Must(G.Add(logDet,
		G.NewConstant(float64(dims)/2.0*math.Log(2*math.Pi))))
	pol.logPdf = G.Must(G.Neg(G.Must(G.Add(quad, norm))))

	// Standard normal for action sampling
	eye := mat.NewDiagDense(dims, floatutils.Ones(dims))
	normal, ok := distmv.NewNormal(make([]float64, dims), eye,
		rand.NewSource(seed))
	if !ok {
		return nil, fmt.Errorf("newGaussian: could not create standard " +
			"normal for action sampling")
	}
	pol.normal = normal

	return pol, nil
}

// gaussianEntropyConstant returns d/2·log(2πe), the scale-independent
// part of the entropy of a d-dimensional Gaussian
func gaussianEntropyConstant(d int) float64 {
	return float64(d) / 2.0 * math.Log(2.0*math.Pi*math.E)
}

// LogPdfNode returns the node holding the log probability of the
// policy's action inputs, one value per batch row
func (p *Gaussian) LogPdfNode() *G.Node {
	return p.logPdf
}

// EntropyNode returns the node holding the closed-form entropy of the
// clamped distribution
func (p *Gaussian) EntropyNode() *G.Node {
	return p.entropy
}

// Actions returns the action input node used by LogPdfNode
func (p *Gaussian) Actions() *G.Node {
	return p.actions
}

// RawStd returns the learnable raw scale node
func (p *Gaussian) RawStd() *G.Node {
	return p.rawStd
}

// ActionDims returns the dimensionality of the action space
func (p *Gaussian) ActionDims() int {
	return p.dims
}

// Bound returns the symmetric action-space bound (the upper bound of
// every dimension)
func (p *Gaussian) Bound() []float64 {
	return p.bound
}

// SetActions sets the action inputs for the next log-probability
// evaluation. The slice must hold batch × d values, row-major.
func (p *Gaussian) SetActions(actions []float64) error {
	if len(actions) != p.batch*p.dims {
		return fmt.Errorf("setActions: invalid number of action values"+
			"\n\twant(%v)\n\thave(%v)", p.batch*p.dims, len(actions))
	}

	actionsTensor := tensor.New(
		tensor.WithShape(p.batch, p.dims),
		tensor.WithBacking(actions),
	)
	return G.Let(p.actions, actionsTensor)
}

// SetTargetEntropy pushes a new entropy floor β into the policy's
// graph. The trainer calls this once per iteration, offsetting the
// floor just below the policy's empirical entropy so that exploration
// anneals slowly.
func (p *Gaussian) SetTargetEntropy(beta float64) error {
	p.betaVal = beta
	return G.Let(p.beta, beta)
}

// TargetEntropy returns the current entropy floor β
func (p *Gaussian) TargetEntropy() float64 {
	return p.betaVal
}

// usedLogStd returns the clamped per-dimension log scales implied by
// the current raw scales and entropy floor
func (p *Gaussian) usedLogStd() []float64 {
	raw := p.rawStd.Value().Data().([]float64)

	logStd := make([]float64, p.dims)
	sum := 0.0
	for i, l := range raw {
		logStd[i] = math.Log(l)
		sum += logStd[i]
	}

	h := gaussianEntropyConstant(p.dims) + sum
	grow := math.Max(0, (p.betaVal-h)/float64(p.dims))
	for i := range logStd {
		logStd[i] += grow
	}
	return logStd
}

// Std returns the clamped per-dimension scales currently used for
// sampling
func (p *Gaussian) Std() []float64 {
	logStd := p.usedLogStd()
	std := make([]float64, len(logStd))
	for i, ls := range logStd {
		std[i] = math.Exp(ls)
	}
	return std
}

// Entropy returns the closed-form differential entropy of the clamped
// distribution. By construction the result never falls below the
// current entropy floor.
func (p *Gaussian) Entropy() float64 {
	sum := 0.0
	for _, ls := range p.usedLogStd() {
		sum += ls
	}
	return gaussianEntropyConstant(p.dims) + sum
}

// Sample draws an action from Normal(mean, σ) elementwise, where σ is
// the clamped scale. The action is not clipped to the action bounds.
func (p *Gaussian) Sample(mean []float64) []float64 {
	if len(mean) != p.dims {
		panic(fmt.Sprintf("sample: mean has %v dimensions, action space "+
			"has %v", len(mean), p.dims))
	}

	std := p.Std()
	eps := p.normal.Rand(nil)

	action := make([]float64, p.dims)
	for i := range action {
		action[i] = mean[i] + std[i]*eps[i]
	}
	return action
}

// LogProb returns the log probability of each action under the policy
// given the corresponding mean predictions. Both slices are row-major
// with one row per sample; the clamped scales are taken from the
// current parameter values.
func (p *Gaussian) LogProb(means, actions []float64) ([]float64, error) {
	if len(means) != len(actions) {
		return nil, fmt.Errorf("logProb: got %v mean values for %v action "+
			"values", len(means), len(actions))
	}
	if len(means)%p.dims != 0 {
		return nil, fmt.Errorf("logProb: value count %v is not a multiple "+
			"of the action dimension %v", len(means), p.dims)
	}

	logStd := p.usedLogStd()
	logDet := 0.0
	for _, ls := range logStd {
		logDet += ls
	}
	norm := logDet + float64(p.dims)/2.0*math.Log(2*math.Pi)

	n := len(means) / p.dims
	logProbs := make([]float64, n)
	for row := 0; row < n; row++ {
		quad := 0.0
		for i := 0; i < p.dims; i++ {
			z := (actions[row*p.dims+i] - means[row*p.dims+i]) /
				math.Exp(logStd[i])
			quad += z * z
		}
		logProbs[row] = -0.5*quad - norm
	}
	return logProbs, nil
}
