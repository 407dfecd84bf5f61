package nn

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var ErrNotConverged = errors.New("training stopped before reaching the cost threshold")

// Schedule returns the learning rate for the next epoch given the previous
// epoch's average cost.
type Schedule func(prevCost float64) float64

// CostProportional shrinks the learning rate as the model improves:
// rate = cost/1.5, never below floor.
func CostProportional(floor float64) Schedule {
	return func(prevCost float64) float64 {
		return math.Max(prevCost/1.5, floor)
	}
}

// Constant always returns rate.
func Constant(rate float64) Schedule {
	return func(float64) float64 { return rate }
}

// TrainOptions tunes a training run.
type TrainOptions struct {
	// LearningRate is used for the first epoch.
	LearningRate float64
	// Schedule recomputes the rate after each epoch; nil keeps LearningRate.
	Schedule Schedule
	// CostThreshold stops training once an epoch's average cost is at or
	// below it.
	CostThreshold float64
	// MaxEpochs bounds the run; zero means unbounded.
	MaxEpochs int
	// OnEpoch, when set, is called after every epoch.
	OnEpoch func(epoch int, avgCost, rate float64)
}

// DefaultTrainOptions mirrors the service's production settings.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		LearningRate:  0.1,
		Schedule:      CostProportional(0.01),
		CostThreshold: 0.0015,
		MaxEpochs:     5000,
	}
}

// TrainResult summarizes a finished run.
type TrainResult struct {
	Epochs  int
	AvgCost float64
}

// Train fits the network so that inputs[i] reconstructs to targets[i], using
// per-sample gradient descent on the squared error. For an autoencoder pass
// the same slice as inputs and targets.
//
// The context is checked between epochs. Training that hits MaxEpochs returns
// the result together with ErrNotConverged; the weights are still updated.
func (n *Network) Train(ctx context.Context, inputs, targets [][]float64, opts TrainOptions) (TrainResult, error) {
	if len(inputs) == 0 {
		return TrainResult{}, ErrNoSamples
	}
	if len(inputs) != len(targets) {
		return TrainResult{}, fmt.Errorf("%w: %d inputs, %d targets", ErrShapeMismatch, len(inputs), len(targets))
	}
	width := n.InputWidth()
	for i := range inputs {
		if len(inputs[i]) != width {
			return TrainResult{}, fmt.Errorf("%w: sample %d", ErrShapeMismatch, i)
		}
	}

	rate := opts.LearningRate
	var res TrainResult

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var total float64
		for i := range inputs {
			c, err := n.step(inputs[i], targets[i], rate)
			if err != nil {
				return res, err
			}
			total += c
		}

		res.Epochs++
		res.AvgCost = total / float64(len(inputs))

		if opts.Schedule != nil {
			rate = opts.Schedule(res.AvgCost)
		}
		if opts.OnEpoch != nil {
			opts.OnEpoch(res.Epochs, res.AvgCost, rate)
		}

		if res.AvgCost <= opts.CostThreshold {
			return res, nil
		}
		if opts.MaxEpochs > 0 && res.Epochs >= opts.MaxEpochs {
			return res, ErrNotConverged
		}
	}
}

// step runs one forward and backward pass and returns the pre-update cost.
func (n *Network) step(input, target []float64, rate float64) (float64, error) {
	activations := make([]*mat.VecDense, 0, len(n.Layers)+1)
	activations = append(activations, mat.NewVecDense(len(input), append([]float64(nil), input...)))
	for i := range n.Layers {
		activations = append(activations, n.Layers[i].forward(activations[i]))
	}

	out := activations[len(activations)-1]
	if out.Len() != len(target) {
		return 0, fmt.Errorf("%w: target has %d values, output has %d", ErrShapeMismatch, len(target), out.Len())
	}

	// delta = dCost/dOutput ⊙ sigmoid'(z), with sigmoid'(z) = a(1-a).
	delta := mat.NewVecDense(out.Len(), nil)
	var cost float64
	for i := 0; i < out.Len(); i++ {
		a := out.AtVec(i)
		d := a - target[i]
		cost += d * d
		delta.SetVec(i, 2*d*a*(1-a))
	}

	for li := len(n.Layers) - 1; li >= 0; li-- {
		l := &n.Layers[li]
		in := activations[li]

		// Propagate with the pre-update weights.
		var prev *mat.VecDense
		if li > 0 {
			prev = mat.NewVecDense(in.Len(), nil)
			prev.MulVec(l.Weights, delta)
			for i := 0; i < prev.Len(); i++ {
				a := in.AtVec(i)
				prev.SetVec(i, prev.AtVec(i)*a*(1-a))
			}
		}

		l.Weights.RankOne(l.Weights, -rate, in, delta)
		l.Bias.AddScaledVec(l.Bias, -rate, delta)

		delta = prev
	}

	return cost, nil
}
