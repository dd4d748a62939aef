// Package gae implements generalized advantage estimation: an
// exponentially-weighted combination of multi-step TD residuals used
// to reduce the variance of policy-gradient advantage estimates.
//
// Adapted from the backward recursions in
// https://github.com/openai/spinningup/blob/master/spinup/algos/tf1/vpg/vpg.py
package gae

import (
	"fmt"

	"github.com/samuelfneumann/goppo/trajectory"
)

// Estimate computes the GAE(λ) advantage of every step in batch given
// per-step state-value estimates aligned with the batch. Each episode
// is traversed in reverse: at step t, the TD residual is
//
//	δ_t = r_t + γ·V(s_{t+1}) − V(s_t)
//
// with V(s_{t+1}) = 0 at the terminal step of an episode, and the
// advantage accumulates as A_t = δ_t + γλ·A_{t+1}. Episode boundaries
// are respected, so no bootstrap value leaks across a reset. With
// λ = 0 the advantages degenerate to the plain one-step TD residuals.
func Estimate(batch *trajectory.Batch, values []float64, gamma,
	lambda float64) ([]float64, error) {
	n := batch.Len()
	if len(values) != n {
		return nil, fmt.Errorf("estimate: got %v value estimates for %v "+
			"transitions", len(values), n)
	}

	advantages := make([]float64, n)
	var accum float64
	for t := n - 1; t >= 0; t-- {
		nextValue := 0.0
		if batch.Terminal[t] {
			// Final step of an episode: nothing to bootstrap from
			accum = 0
		} else {
			nextValue = values[t+1]
		}

		delta := batch.Rewards[t] + gamma*nextValue - values[t]
		accum = delta + gamma*lambda*accum
		advantages[t] = accum
	}

	return advantages, nil
}
