// Package ppo implements proximal policy optimization with an
// entropy-constrained Gaussian policy.
//
// Training alternates between collecting full episodes with the
// current policy and updating the critic and the policy from the
// collected batch. The critic is regressed onto generalized advantage
// targets, recomputed once per epoch. The policy maximizes the
// clipped surrogate objective over the estimated, normalized
// advantages. Once per iteration the policy's entropy floor is moved
// to a fixed margin below its current entropy, so exploration decays
// at a bounded rate no matter how aggressive the surrogate updates
// are.
package ppo

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/goppo/approximator"
	"github.com/samuelfneumann/goppo/environment"
	"github.com/samuelfneumann/goppo/gae"
	"github.com/samuelfneumann/goppo/policy"
	"github.com/samuelfneumann/goppo/tracker"
	"github.com/samuelfneumann/goppo/trajectory"
)

// Name is the algorithm name used for diagnostics files
const Name string = "ppo_hproj"

// PPO trains an entropy-constrained Gaussian policy and a state value
// function on a continuous-action environment.
//
// The optimization graphs have a fixed minibatch-sized input shape.
// Full-batch quantities (value predictions, policy means) are
// computed with forward-only network copies that chunk over the
// batch, and full-batch losses are computed in closed form from those
// predictions.
type PPO struct {
	env environment.Environment
	hp  Hyperparameters

	obsDims int
	actDims int

	// policy optimization graph
	piGraph    *G.ExprGraph
	piObs      *G.Node
	mean       *approximator.MLP
	rawStd     *G.Node
	pol        *policy.Gaussian
	oldLogProb *G.Node
	advantage  *G.Node
	piVM       G.VM
	piModel    []G.ValueGrad

	// value function optimization graph
	vGraph  *G.ExprGraph
	vObs    *G.Node
	value   *approximator.MLP
	vTarget *G.Node
	vVM     G.VM
	vModel  []G.ValueGrad

	// forward-only copies, kept in step with the training networks
	meanEval  *evalNet
	vEval     *evalNet
	behaviour *evalNet

	track *tracker.Diagnostics
	rng   *rand.Rand
}

// New returns a new PPO trainer for env. The track argument may be
// nil, in which case no diagnostics are saved. Both networks are
// reset to predict 0 everywhere so that early value targets and
// action means start from a known point.
func New(env environment.Environment, hp Hyperparameters,
	track *tracker.Diagnostics, seed uint64) (*PPO, error) {
	if err := hp.validate(); err != nil {
		return nil, fmt.Errorf("new: invalid hyperparameters: %v", err)
	}

	obsDims := env.ObservationSpec().Dims
	actSpec := env.ActionSpec()
	actDims := actSpec.Dims
	batch := hp.BatchSize
	init := hp.InitWFn.InitWFn()

	p := &PPO{
		env:     env,
		hp:      hp,
		obsDims: obsDims,
		actDims: actDims,
		track:   track,
		rng:     rand.New(rand.NewSource(seed)),
	}

	// Policy graph
	p.piGraph = G.NewGraph()
	p.piObs = G.NewMatrix(
		p.piGraph,
		tensor.Float64,
		G.WithShape(batch, obsDims),
		G.WithName("obs"),
		G.WithInit(G.Zeroes()),
	)

	var err error
	p.mean, err = approximator.NewMLP([]*G.Node{p.piObs}, actDims,
		hp.PolicyHiddenSizes, hp.PolicyActivations, init, 1.0,
		approximator.NewParams("pi_mean"))
	if err != nil {
		return nil, fmt.Errorf("new: could not construct policy mean "+
			"network: %v", err)
	}

	p.rawStd = G.NewMatrix(
		p.piGraph,
		tensor.Float64,
		G.WithShape(1, actDims),
		G.WithName("pi_std"),
		G.WithInit(G.ValuesOf(hp.StdNoise)),
	)

	// Initial entropy floor: the entropy of a Gaussian with scale
	// StdNoise in every dimension
	beta := 0.5*float64(actDims)*math.Log(2*math.Pi*math.E) +
		float64(actDims)*math.Log(hp.StdNoise)

	p.pol, err = policy.NewGaussian(p.piObs, p.mean.Outputs()[0], p.rawStd,
		actSpec.LowerBound, actSpec.UpperBound, beta, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not construct policy: %v", err)
	}

	if err := p.buildPolicyLoss(batch); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Value function graph
	p.vGraph = G.NewGraph()
	p.vObs = G.NewMatrix(
		p.vGraph,
		tensor.Float64,
		G.WithShape(batch, obsDims),
		G.WithName("obs"),
		G.WithInit(G.Zeroes()),
	)

	p.value, err = approximator.NewMLP([]*G.Node{p.vObs}, 1,
		hp.ValueHiddenSizes, hp.ValueActivations, init, 1.0,
		approximator.NewParams("v"))
	if err != nil {
		return nil, fmt.Errorf("new: could not construct value network: "+
			"%v", err)
	}

	if err := p.buildValueLoss(batch); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Forward-only copies
	p.meanEval, err = newEvalNet(batch, obsDims, actDims,
		hp.PolicyHiddenSizes, hp.PolicyActivations, init, "pi_mean_eval")
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	p.vEval, err = newEvalNet(batch, obsDims, 1, hp.ValueHiddenSizes,
		hp.ValueActivations, init, "v_eval")
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	p.behaviour, err = newEvalNet(1, obsDims, actDims,
		hp.PolicyHiddenSizes, hp.PolicyActivations, init, "behaviour")
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if err := p.mean.Reset(0.0); err != nil {
		return nil, fmt.Errorf("new: could not reset policy mean: %v", err)
	}
	if err := p.value.Reset(0.0); err != nil {
		return nil, fmt.Errorf("new: could not reset value function: %v",
			err)
	}
	if err := p.behaviour.sync(p.mean.Params()); err != nil {
		return nil, fmt.Errorf("new: could not sync behaviour network: %v",
			err)
	}

	return p, nil
}

// buildPolicyLoss adds the clipped surrogate objective and its
// gradient to the policy graph
func (p *PPO) buildPolicyLoss(batch int) error {
	g := p.piGraph

	p.oldLogProb = G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("old_log_prob"),
		G.WithInit(G.Zeroes()),
	)
	p.advantage = G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("advantage"),
		G.WithInit(G.Zeroes()),
	)

	ratio := G.Must(G.Exp(G.Must(G.Sub(p.pol.LogPdfNode(), p.oldLogProb))))

	// clip(r, lo, hi) = lo + relu(r - lo) - relu(r - hi)
	lo := G.NewConstant(1.0 - p.hp.EpsilonClip)
	hi := G.NewConstant(1.0 + p.hp.EpsilonClip)
	clipped := G.Must(G.Add(lo,
		G.Must(G.Rectify(G.Must(G.Sub(ratio, lo))))))
	clipped = G.Must(G.Sub(clipped,
		G.Must(G.Rectify(G.Must(G.Sub(ratio, hi))))))

	surr := G.Must(G.HadamardProd(ratio, p.advantage))
	surrClipped := G.Must(G.HadamardProd(clipped, p.advantage))

	// elementwise min(a, b) = (a + b - |a - b|) / 2
	minSurr := G.Must(G.Mul(G.NewConstant(0.5),
		G.Must(G.Sub(G.Must(G.Add(surr, surrClipped)),
			G.Must(G.Abs(G.Must(G.Sub(surr, surrClipped))))))))

	loss := G.Must(G.Neg(G.Must(G.Mean(minSurr))))

	learnables := append(G.Nodes{}, p.mean.Params().Nodes()...)
	learnables = append(learnables, p.rawStd)
	if _, err := G.Grad(loss, learnables...); err != nil {
		return fmt.Errorf("could not compute policy gradient: %v", err)
	}

	p.piModel = make([]G.ValueGrad, len(learnables))
	for i, node := range learnables {
		p.piModel[i] = node
	}
	p.piVM = G.NewTapeMachine(p.piGraph, G.BindDualValues(learnables...))

	return nil
}

// buildValueLoss adds the mean squared error objective and its
// gradient to the value function graph
func (p *PPO) buildValueLoss(batch int) error {
	g := p.vGraph

	p.vTarget = G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, 1),
		G.WithName("target_v"),
		G.WithInit(G.Zeroes()),
	)

	diff := G.Must(G.Sub(p.value.Outputs()[0], p.vTarget))
	loss := G.Must(G.Mean(G.Must(G.Square(diff))))

	learnables := p.value.Params().Nodes()
	if _, err := G.Grad(loss, learnables...); err != nil {
		return fmt.Errorf("could not compute value gradient: %v", err)
	}

	p.vModel = p.value.Params().Model()
	p.vVM = G.NewTapeMachine(p.vGraph, G.BindDualValues(learnables...))

	return nil
}

// Policy returns the trainer's policy
func (p *PPO) Policy() *policy.Gaussian {
	return p.pol
}

// SelectAction samples an action for obs from the current policy
func (p *PPO) SelectAction(obs []float64) []float64 {
	mean, err := p.behaviour.forward(obs)
	if err != nil {
		panic(fmt.Sprintf("selectAction: could not predict action "+
			"mean: %v", err))
	}
	return p.pol.Sample(mean)
}

// Run trains for the configured number of iterations, printing one
// diagnostics row per iteration
func (p *PPO) Run() error {
	fmt.Println()
	fmt.Println("    V LOSS                         PI LOSS              " +
		"          ENTROPY        RETURN          MSTDE")
	for itr := 0; itr < p.hp.Iterations; itr++ {
		if err := p.iteration(itr); err != nil {
			return fmt.Errorf("run: iteration %v: %v", itr, err)
		}
	}
	return nil
}

// iteration runs one collect-and-update cycle
func (p *PPO) iteration(itr int) error {
	if err := p.behaviour.sync(p.mean.Params()); err != nil {
		return fmt.Errorf("could not sync behaviour network: %v", err)
	}

	batch, err := trajectory.Collect(p.env, p.SelectAction,
		p.hp.MinTransPerIter)
	if err != nil {
		return fmt.Errorf("could not collect transitions: %v", err)
	}
	n := batch.Len()

	// Critic update. Targets apply the generalized Bellman operator
	// to the current predictions and are recomputed every epoch.
	var targets []float64
	var vLossBefore float64
	for epoch := 0; epoch < p.hp.ValueEpochs; epoch++ {
		vals, err := p.values(batch)
		if err != nil {
			return err
		}
		advs, err := gae.Estimate(batch, vals, p.hp.Gamma, p.hp.Lambda)
		if err != nil {
			return fmt.Errorf("could not estimate advantages: %v", err)
		}

		targets = make([]float64, n)
		for i := range targets {
			targets[i] = vals[i] + advs[i]
		}
		if epoch == 0 {
			vLossBefore = meanSquaredError(vals, targets)
		}

		for _, idx := range p.minibatches(n) {
			if err := p.stepValue(batch, targets, idx); err != nil {
				return err
			}
		}
	}

	vals, err := p.values(batch)
	if err != nil {
		return err
	}
	vLossAfter := meanSquaredError(vals, targets)

	// Advantage and TD error estimates under the updated critic
	advs, err := gae.Estimate(batch, vals, p.hp.Gamma, p.hp.Lambda)
	if err != nil {
		return fmt.Errorf("could not estimate advantages: %v", err)
	}
	tds, err := gae.Estimate(batch, vals, p.hp.Gamma, 0)
	if err != nil {
		return fmt.Errorf("could not estimate TD errors: %v", err)
	}
	mstde := 0.0
	for _, td := range tds {
		mstde += td * td
	}
	mstde /= float64(n)

	normalize(advs)

	// Policy update
	oldLP, err := p.logProbs(batch)
	if err != nil {
		return err
	}
	piLossBefore := surrogateLoss(oldLP, oldLP, advs, p.hp.EpsilonClip)

	err = p.pol.SetTargetEntropy(p.pol.Entropy() - p.hp.EntropyMargin)
	if err != nil {
		return fmt.Errorf("could not set entropy floor: %v", err)
	}

	for epoch := 0; epoch < p.hp.PolicyEpochs; epoch++ {
		for _, idx := range p.minibatches(n) {
			if err := p.stepPolicy(batch, oldLP, advs, idx); err != nil {
				return err
			}
		}
	}

	newLP, err := p.logProbs(batch)
	if err != nil {
		return err
	}
	piLossAfter := surrogateLoss(newLP, oldLP, advs, p.hp.EpsilonClip)

	avgReturn := batch.AverageReturn()
	entropy := p.pol.Entropy()

	fmt.Printf("%d | %e -> %e   %e -> %e   %e   %e   %e   \n", itr,
		vLossBefore, vLossAfter, piLossBefore, piLossAfter, entropy,
		avgReturn, mstde)

	if p.track != nil {
		err := p.track.Track(tracker.Row{
			ValueLossBefore:  vLossBefore,
			ValueLossAfter:   vLossAfter,
			PolicyLossBefore: piLossBefore,
			PolicyLossAfter:  piLossAfter,
			Entropy:          entropy,
			AverageReturn:    avgReturn,
			MSTDE:            mstde,
		})
		if err != nil {
			return fmt.Errorf("could not save diagnostics: %v", err)
		}
	}

	return nil
}

// values predicts the state value of every observation in the batch
// with the current critic
func (p *PPO) values(batch *trajectory.Batch) ([]float64, error) {
	if err := p.vEval.sync(p.value.Params()); err != nil {
		return nil, fmt.Errorf("could not sync value network: %v", err)
	}
	vals, err := p.vEval.forwardAll(batch.Obs, batch.Len())
	if err != nil {
		return nil, fmt.Errorf("could not predict state values: %v", err)
	}
	return vals, nil
}

// logProbs computes the log probability of every action in the batch
// under the current policy
func (p *PPO) logProbs(batch *trajectory.Batch) ([]float64, error) {
	if err := p.meanEval.sync(p.mean.Params()); err != nil {
		return nil, fmt.Errorf("could not sync policy mean network: %v",
			err)
	}
	means, err := p.meanEval.forwardAll(batch.Obs, batch.Len())
	if err != nil {
		return nil, fmt.Errorf("could not predict action means: %v", err)
	}
	logProbs, err := p.pol.LogProb(means, batch.Act)
	if err != nil {
		return nil, fmt.Errorf("could not compute log probabilities: %v",
			err)
	}
	return logProbs, nil
}

// stepValue runs one critic gradient step on the minibatch rows idx
func (p *PPO) stepValue(batch *trajectory.Batch, targets []float64,
	idx []int) error {
	b := p.hp.BatchSize
	obs := make([]float64, b*p.obsDims)
	target := make([]float64, b)
	for i, row := range idx {
		copy(obs[i*p.obsDims:], batch.ObsRow(row))
		target[i] = targets[row]
	}

	err := G.Let(p.vObs, tensor.New(tensor.WithShape(b, p.obsDims),
		tensor.WithBacking(obs)))
	if err != nil {
		return fmt.Errorf("could not set observations: %v", err)
	}
	err = G.Let(p.vTarget, tensor.New(tensor.WithShape(b, 1),
		tensor.WithBacking(target)))
	if err != nil {
		return fmt.Errorf("could not set value targets: %v", err)
	}

	if err := p.vVM.RunAll(); err != nil {
		return fmt.Errorf("could not run value update: %v", err)
	}
	if err := p.hp.ValueSolver.Step(p.vModel); err != nil {
		return fmt.Errorf("could not step value solver: %v", err)
	}
	p.vVM.Reset()

	return nil
}

// stepPolicy runs one policy gradient step on the minibatch rows idx
func (p *PPO) stepPolicy(batch *trajectory.Batch, oldLP, advs []float64,
	idx []int) error {
	b := p.hp.BatchSize
	obs := make([]float64, b*p.obsDims)
	act := make([]float64, b*p.actDims)
	lp := make([]float64, b)
	adv := make([]float64, b)
	for i, row := range idx {
		copy(obs[i*p.obsDims:], batch.ObsRow(row))
		copy(act[i*p.actDims:], batch.ActRow(row))
		lp[i] = oldLP[row]
		adv[i] = advs[row]
	}

	err := G.Let(p.piObs, tensor.New(tensor.WithShape(b, p.obsDims),
		tensor.WithBacking(obs)))
	if err != nil {
		return fmt.Errorf("could not set observations: %v", err)
	}
	if err := p.pol.SetActions(act); err != nil {
		return fmt.Errorf("could not set actions: %v", err)
	}
	err = G.Let(p.oldLogProb, tensor.New(tensor.WithShape(b),
		tensor.WithBacking(lp)))
	if err != nil {
		return fmt.Errorf("could not set old log probabilities: %v", err)
	}
	err = G.Let(p.advantage, tensor.New(tensor.WithShape(b),
		tensor.WithBacking(adv)))
	if err != nil {
		return fmt.Errorf("could not set advantages: %v", err)
	}

	if err := p.piVM.RunAll(); err != nil {
		return fmt.Errorf("could not run policy update: %v", err)
	}
	if err := p.hp.PolicySolver.Step(p.piModel); err != nil {
		return fmt.Errorf("could not step policy solver: %v", err)
	}
	p.piVM.Reset()

	return nil
}

// minibatches partitions a random permutation of n rows into
// minibatches of the configured size. The final minibatch wraps
// around to the start of the permutation so that every minibatch has
// exactly the configured size.
func (p *PPO) minibatches(n int) [][]int {
	b := p.hp.BatchSize
	perm := p.rng.Perm(n)

	var batches [][]int
	for start := 0; start < n; start += b {
		idx := make([]int, b)
		for i := range idx {
			idx[i] = perm[(start+i)%n]
		}
		batches = append(batches, idx)
	}
	return batches
}

// surrogateLoss computes the clipped surrogate objective in closed
// form from per-transition log probabilities and advantages
func surrogateLoss(newLP, oldLP, advs []float64, epsilonClip float64) float64 {
	loss := 0.0
	for i := range advs {
		ratio := math.Exp(newLP[i] - oldLP[i])
		clipped := ratio
		if clipped < 1-epsilonClip {
			clipped = 1 - epsilonClip
		} else if clipped > 1+epsilonClip {
			clipped = 1 + epsilonClip
		}
		loss += math.Min(ratio*advs[i], clipped*advs[i])
	}
	return -loss / float64(len(advs))
}

// meanSquaredError returns the mean squared difference of two
// equal-length slices
func meanSquaredError(predictions, targets []float64) float64 {
	mse := 0.0
	for i := range predictions {
		diff := predictions[i] - targets[i]
		mse += diff * diff
	}
	return mse / float64(len(predictions))
}

// normalize standardizes values in place to mean 0 and standard
// deviation 1. The divisor is offset by a small constant so that a
// constant input does not divide by 0.
func normalize(values []float64) {
	mean := stat.Mean(values, nil)
	std := stat.PopStdDev(values, nil) + 1e-8
	for i := range values {
		values[i] = (values[i] - mean) / std
	}
}
