// Package nn implements the behavioural model: a small fully connected
// autoencoder with sigmoid activations whose reconstruction cost is the
// anomaly score for a motion sample.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DefaultLayout is the fixed architecture used for every account: three
// inputs (x, y, speed) widened into a hidden layer, squeezed through a
// two-unit bottleneck and expanded back to three outputs.
var DefaultLayout = []int{3, 12, 6, 2, 6, 12, 3}

var (
	ErrBadLayout     = errors.New("layout needs at least two layers of positive width")
	ErrShapeMismatch = errors.New("input width does not match network")
	ErrNoSamples     = errors.New("no samples")
)

// Layer is one fully connected layer. Weights is in×out so a row-vector input
// x produces sigmoid(x·W + b).
type Layer struct {
	Weights *mat.Dense
	Bias    *mat.VecDense
}

// Network is an ordered stack of layers.
type Network struct {
	Layers []Layer

	// MaxSpeed is the speed normalization constant the network was trained
	// with. Scoring must normalize samples the same way.
	MaxSpeed float64
}

// New builds a network with the given layer widths and weights drawn
// uniformly from [-1, 1).
func New(layout []int) (*Network, error) {
	if len(layout) < 2 {
		return nil, ErrBadLayout
	}
	for _, w := range layout {
		if w <= 0 {
			return nil, ErrBadLayout
		}
	}

	n := &Network{Layers: make([]Layer, 0, len(layout)-1)}
	for i := 0; i < len(layout)-1; i++ {
		in, out := layout[i], layout[i+1]

		w := make([]float64, in*out)
		for j := range w {
			w[j] = rand.Float64()*2 - 1
		}
		b := make([]float64, out)
		for j := range b {
			b[j] = rand.Float64()*2 - 1
		}

		n.Layers = append(n.Layers, Layer{
			Weights: mat.NewDense(in, out, w),
			Bias:    mat.NewVecDense(out, b),
		})
	}
	return n, nil
}

// Layout returns the widths of the network's layers, input first.
func (n *Network) Layout() []int {
	if len(n.Layers) == 0 {
		return nil
	}
	r, _ := n.Layers[0].Weights.Dims()
	out := []int{r}
	for _, l := range n.Layers {
		_, c := l.Weights.Dims()
		out = append(out, c)
	}
	return out
}

// InputWidth is the number of values Predict expects.
func (n *Network) InputWidth() int {
	r, _ := n.Layers[0].Weights.Dims()
	return r
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

// forward runs x through one layer and returns the activated output.
func (l *Layer) forward(x mat.Vector) *mat.VecDense {
	var z mat.VecDense
	z.MulVec(l.Weights.T(), x)
	z.AddVec(&z, l.Bias)
	for i := 0; i < z.Len(); i++ {
		z.SetVec(i, sigmoid(z.AtVec(i)))
	}
	return &z
}

// Predict returns the network's reconstruction of input.
func (n *Network) Predict(input []float64) ([]float64, error) {
	if len(input) != n.InputWidth() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrShapeMismatch, len(input), n.InputWidth())
	}

	var x mat.Vector = mat.NewVecDense(len(input), append([]float64(nil), input...))
	for i := range n.Layers {
		x = n.Layers[i].forward(x)
	}

	out := make([]float64, x.Len())
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// Cost is the sum of squared differences between the reconstruction of input
// and target.
func (n *Network) Cost(input, target []float64) (float64, error) {
	out, err := n.Predict(input)
	if err != nil {
		return 0, err
	}
	if len(target) != len(out) {
		return 0, fmt.Errorf("%w: target has %d values, output has %d", ErrShapeMismatch, len(target), len(out))
	}

	var sum float64
	for i := range out {
		d := out[i] - target[i]
		sum += d * d
	}
	return sum, nil
}

// AvgCost is the mean reconstruction cost of samples against themselves.
func (n *Network) AvgCost(samples [][]float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, s := range samples {
		c, err := n.Cost(s, s)
		if err != nil {
			return 0, err
		}
		sum += c
	}
	return sum / float64(len(samples)), nil
}
