package nn

import (
	"github.com/pkg/errors"
)

// =============================================================================
// Topology construction
// =============================================================================
// Networks are assembled by hand from ids, weights and activation tags. Every
// link must point at a neuron of the immediately preceding layer.

// NetworkBuilder assembles a network layer by layer.
//
//	net, err := nn.NewNetworkBuilder().
//		AddLayer().AddInput("k").AddInput("x").
//		AddLayer().AddNeuron("y", nn.ActivationLinear, nn.NewLink("k", 0.5), nn.NewLink("x", 0.5)).
//		Build()
type NetworkBuilder struct {
	layers [][]Neuron
	err    error
}

func NewNetworkBuilder() *NetworkBuilder {
	return &NetworkBuilder{}
}

// AddLayer starts a new layer. The first layer added is the input layer.
func (b *NetworkBuilder) AddLayer() *NetworkBuilder {
	if b.err != nil {
		return b
	}
	if len(b.layers) == MaxLayers {
		b.err = errors.Wrapf(ErrInvalidTopology, "more than %d layers", MaxLayers)
		return b
	}
	b.layers = append(b.layers, nil)
	return b
}

// AddInput adds an input neuron to the current layer.
func (b *NetworkBuilder) AddInput(id string) *NetworkBuilder {
	return b.add(NewInputNeuron(id))
}

// AddNeuron adds a computing neuron to the current layer.
func (b *NetworkBuilder) AddNeuron(id string, activation ActivationType, links ...Link) *NetworkBuilder {
	if b.err == nil && len(links) > MaxLinks {
		b.err = errors.Wrapf(ErrInvalidTopology, "neuron %q has %d links, capacity is %d", id, len(links), MaxLinks)
		return b
	}
	return b.add(NewNeuron(id, 0, activation, links...))
}

func (b *NetworkBuilder) add(neuron Neuron) *NetworkBuilder {
	if b.err != nil {
		return b
	}
	if neuron.IsDummy() {
		b.err = errors.Wrap(ErrInvalidTopology, "neuron id must not be empty")
		return b
	}
	if len(b.layers) == 0 {
		b.err = errors.Wrapf(ErrInvalidTopology, "neuron %q added before any layer", neuron.ID)
		return b
	}
	last := len(b.layers) - 1
	if len(b.layers[last]) == MaxNeuronsPerLayer {
		b.err = errors.Wrapf(ErrInvalidTopology, "layer %d is full, cannot add %q", last, neuron.ID)
		return b
	}
	b.layers[last] = append(b.layers[last], neuron)
	return b
}

// Build pads the layers with dummies and validates the result.
func (b *NetworkBuilder) Build() (*Network, error) {
	if b.err != nil {
		return nil, b.err
	}
	layers := make([]Layer, len(b.layers))
	for i, neurons := range b.layers {
		layers[i] = NewLayer(neurons...)
	}
	net := NewNetwork(layers...)
	if err := net.Validate(); err != nil {
		return nil, err
	}
	return net, nil
}

// MustBuild is Build for topologies written in code; an invalid one is a bug.
func (b *NetworkBuilder) MustBuild() *Network {
	net, err := b.Build()
	if err != nil {
		panic(err)
	}
	return net
}

// fullyConnected returns one link per source id, all with the same weight.
func fullyConnected(weight float32, sources ...string) []Link {
	links := make([]Link, len(sources))
	for i, id := range sources {
		links[i] = NewLink(id, weight)
	}
	return links
}

// BuildLinearNetwork builds the k*x+b network: inputs k, x, b; a hidden layer
// of four neurons with Linear, Square, Linear and Relu activations; a single
// Linear output y. Every weight starts at 0.5.
func BuildLinearNetwork() *Network {
	const weight = 0.5
	inputs := []string{"k", "x", "b"}
	hidden := []string{"m1", "m2", "m3", "m4"}

	return NewNetworkBuilder().
		AddLayer().AddInput("k").AddInput("x").AddInput("b").
		AddLayer().
		AddNeuron("m1", ActivationLinear, fullyConnected(weight, inputs...)...).
		AddNeuron("m2", ActivationSquare, fullyConnected(weight, inputs...)...).
		AddNeuron("m3", ActivationLinear, fullyConnected(weight, inputs...)...).
		AddNeuron("m4", ActivationRelu, fullyConnected(weight, inputs...)...).
		AddLayer().
		AddNeuron("y", ActivationLinear, fullyConnected(weight, hidden...)...).
		MustBuild()
}

// BuildQuadraticNetwork builds the a,b,c -> x1,x2 network used for the roots
// of a*x^2 + b*x + c: two sigmoid hidden layers of 4 and 3 neurons. Every
// weight starts at 0.1.
func BuildQuadraticNetwork() *Network {
	const weight = 0.1
	inputs := []string{"a", "b", "c"}
	first := []string{"m1", "m2", "m3", "m4"}
	second := []string{"n1", "n2", "n3"}

	b := NewNetworkBuilder().
		AddLayer().AddInput("a").AddInput("b").AddInput("c").
		AddLayer()
	for _, id := range first {
		b.AddNeuron(id, ActivationSigmoid, fullyConnected(weight, inputs...)...)
	}
	b.AddLayer()
	for _, id := range second {
		b.AddNeuron(id, ActivationSigmoid, fullyConnected(weight, first...)...)
	}
	b.AddLayer().
		AddNeuron("x1", ActivationSigmoid, fullyConnected(weight, second...)...).
		AddNeuron("x2", ActivationSigmoid, fullyConnected(weight, second...)...)
	return b.MustBuild()
}

// BuildNamedNetwork returns one of the builtin topologies by name.
func BuildNamedNetwork(name string) (*Network, error) {
	switch name {
	case "linear", "":
		return BuildLinearNetwork(), nil
	case "quadratic":
		return BuildQuadraticNetwork(), nil
	default:
		return nil, errors.Errorf("unknown builtin network %q (want linear or quadratic)", name)
	}
}
