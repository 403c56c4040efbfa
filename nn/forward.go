package nn

import (
	"github.com/pkg/errors"
)

// SetInputs injects values into the non-dummy neurons of layer 0, in slot order.
func (n *Network) SetInputs(inputs []float32) error {
	active := n.Input().Active()
	if len(active) != len(inputs) {
		return errors.Wrapf(ErrInputSize, "input layer has %d neurons, got %d values", len(active), len(inputs))
	}
	for i, neuron := range active {
		neuron.Output = inputs[i]
	}
	return nil
}

// Forward propagates the injected inputs through layers 1..LayersCount-1.
// Each neuron's SumInput and Output are overwritten, so calling it twice
// without mutating inputs or weights yields identical values.
func (n *Network) Forward() {
	for layerIdx := 1; layerIdx < n.LayersCount; layerIdx++ {
		prev := &n.Layers[layerIdx-1]
		current := &n.Layers[layerIdx]

		for _, neuron := range current.Active() {
			sum := float32(0)
			for _, link := range neuron.ActiveLinks() {
				sum += link.Weight * prev.Value(link.SourceID)
			}
			neuron.SumInput = sum
			neuron.Output = Activate(neuron.Activation, sum)
		}
	}
}

// Outputs returns the outputs of the non-dummy neurons of the last layer.
func (n *Network) Outputs() []float32 {
	active := n.OutputLayer().Active()
	out := make([]float32, len(active))
	for i, neuron := range active {
		out[i] = neuron.Output
	}
	return out
}
