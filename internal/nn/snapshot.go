package nn

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrBadSnapshot = errors.New("invalid network snapshot")

type layerSnapshot struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	Weights []float64 `json:"weights"`
	Bias    []float64 `json:"bias"`
}

type snapshot struct {
	Activation string          `json:"activation"`
	MaxSpeed   float64         `json:"max_speed"`
	Layers     []layerSnapshot `json:"layers"`
}

// MarshalJSON stores the network as row-major weight arrays.
func (n *Network) MarshalJSON() ([]byte, error) {
	s := snapshot{Activation: "sigmoid", MaxSpeed: n.MaxSpeed}
	for _, l := range n.Layers {
		r, c := l.Weights.Dims()
		w := make([]float64, 0, r*c)
		for i := 0; i < r; i++ {
			w = append(w, l.Weights.RawRowView(i)...)
		}
		b := make([]float64, l.Bias.Len())
		for i := range b {
			b[i] = l.Bias.AtVec(i)
		}
		s.Layers = append(s.Layers, layerSnapshot{In: r, Out: c, Weights: w, Bias: b})
	}
	return json.Marshal(s)
}

// UnmarshalJSON restores a network written by MarshalJSON and checks that
// consecutive layers fit together.
func (n *Network) UnmarshalJSON(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if s.Activation != "sigmoid" || len(s.Layers) == 0 {
		return ErrBadSnapshot
	}

	layers := make([]Layer, 0, len(s.Layers))
	for i, l := range s.Layers {
		if l.In <= 0 || l.Out <= 0 || len(l.Weights) != l.In*l.Out || len(l.Bias) != l.Out {
			return fmt.Errorf("%w: layer %d has inconsistent shape", ErrBadSnapshot, i)
		}
		if i > 0 && s.Layers[i-1].Out != l.In {
			return fmt.Errorf("%w: layer %d does not follow layer %d", ErrBadSnapshot, i, i-1)
		}
		layers = append(layers, Layer{
			Weights: mat.NewDense(l.In, l.Out, l.Weights),
			Bias:    mat.NewVecDense(l.Out, l.Bias),
		})
	}

	n.Layers = layers
	n.MaxSpeed = s.MaxSpeed
	return nil
}

// Encode returns the network as base64(JSON), the form it takes inside a
// protocol field and in storage.
func (n *Network) Encode() (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses a string produced by Encode.
func Decode(s string) (*Network, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	n := &Network{}
	if err := json.Unmarshal(raw, n); err != nil {
		if errors.Is(err, ErrBadSnapshot) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	return n, nil
}
