package nn

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// ErrNumericInstability is returned when a NaN or Inf shows up in the network.
var ErrNumericInstability = errors.New("numeric instability")

// Loss is the signed relative error between target and value:
//
//	sign(target-value) * |target-value| / max(|target|, |value|)
//
// The sign tells on which side the output misses; the magnitude is scaled by
// the larger operand. Both operands zero is an exact hit and yields 0.
func Loss(target, value float32) float32 {
	diff := target - value
	scale := math32.Max(math32.Abs(target), math32.Abs(value))
	if diff == 0 || scale == 0 {
		return 0
	}
	return sign(diff) * math32.Abs(diff) / scale
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// CheckFinite reports the first NaN or Inf found in the sum, output or error
// of a non-dummy neuron in the used layers.
func (n *Network) CheckFinite() error {
	for li := 0; li < n.LayersCount; li++ {
		for _, neuron := range n.Layers[li].Active() {
			for _, f := range []struct {
				name  string
				value float32
			}{
				{"sum_input", neuron.SumInput},
				{"output", neuron.Output},
				{"error", neuron.Error},
			} {
				if math32.IsNaN(f.value) || math32.IsInf(f.value, 0) {
					return errors.Wrapf(ErrNumericInstability, "neuron %q (layer %d) has %s=%v", neuron.ID, li, f.name, f.value)
				}
			}
		}
	}
	return nil
}

// maxAbs returns the largest magnitude in values.
func maxAbs(values []float32) float32 {
	m := float32(0)
	for _, v := range values {
		if a := math32.Abs(v); a > m || math32.IsNaN(a) {
			m = a
		}
	}
	return m
}
