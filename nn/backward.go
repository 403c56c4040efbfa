package nn

import (
	"github.com/pkg/errors"
)

// SeedErrors writes Loss(target, output) into the Error of each non-dummy
// output neuron, in slot order, and returns the seeded values.
func (n *Network) SeedErrors(targets []float32) ([]float32, error) {
	active := n.OutputLayer().Active()
	if len(active) != len(targets) {
		return nil, errors.Wrapf(ErrInputSize, "output layer has %d neurons, got %d targets", len(active), len(targets))
	}
	seeded := make([]float32, len(active))
	for i, neuron := range active {
		neuron.Error = Loss(targets[i], neuron.Output)
		seeded[i] = neuron.Error
	}
	return seeded, nil
}

// Backward runs the two back-propagation sweeps over the seeded output errors.
//
// The first sweep walks from the last layer down and stores in every neuron of
// the previous layer the sum of weight*error over the links leaving it. The
// activation derivative is not applied here; it is applied only when the
// weights are updated. The second sweep walks up and updates every weight
// with error * f'(sum_input) * source_output * learningRate.
//
// All errors are final before any weight changes, so the first sweep always
// sees the pre-update weights.
func (n *Network) Backward(learningRate float32) {
	n.propagateErrors()
	n.updateWeights(learningRate)
}

func (n *Network) propagateErrors() {
	for layerIdx := n.LayersCount - 1; layerIdx >= 1; layerIdx-- {
		prev := &n.Layers[layerIdx-1]
		current := &n.Layers[layerIdx]

		for _, prevNeuron := range prev.Active() {
			errorSum := float32(0)
			for _, neuron := range current.Active() {
				for _, link := range neuron.ActiveLinks() {
					if link.SourceID == prevNeuron.ID {
						errorSum += link.Weight * neuron.Error
					}
				}
			}
			prevNeuron.Error = errorSum
		}
	}
}

func (n *Network) updateWeights(learningRate float32) {
	for layerIdx := 1; layerIdx < n.LayersCount; layerIdx++ {
		prev := &n.Layers[layerIdx-1]
		current := &n.Layers[layerIdx]

		for _, neuron := range current.Active() {
			derivative := ActivateDerivative(neuron.Activation, neuron.SumInput)
			for _, link := range neuron.ActiveLinks() {
				delta := neuron.Error * derivative * prev.Value(link.SourceID)
				link.Weight += delta * learningRate
			}
		}
	}
}
