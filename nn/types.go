package nn

import (
	"github.com/pkg/errors"
)

// Capacity of the fixed-size containers. Unused slots hold dummy entries.
const (
	MaxLinks           = 4 // max fan-in of a neuron
	MaxNeuronsPerLayer = 4 // max width of a layer
	MaxLayers          = 7 // max depth of a network
)

var (
	// ErrInvalidTopology is returned when a network violates a structural invariant.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrInputSize is returned when the number of injected inputs does not match the input layer.
	ErrInputSize = errors.New("input size mismatch")
)

// Link is a directed weighted edge from the neuron SourceID of the previous layer.
// A link with an empty SourceID is a dummy and is skipped everywhere.
type Link struct {
	SourceID string
	Weight   float32
}

func NewLink(sourceID string, weight float32) Link {
	return Link{SourceID: sourceID, Weight: weight}
}

func NewDummyLink() Link {
	return Link{}
}

func (l *Link) IsDummy() bool {
	return l.SourceID == ""
}

// Neuron holds the state of a single unit. Error carries the back-propagated
// signal; for input neurons it is informational only.
type Neuron struct {
	ID         string
	Output     float32
	SumInput   float32
	Error      float32
	Activation ActivationType
	InputLinks [MaxLinks]Link
}

// NewInputNeuron creates a neuron of layer 0 whose output is injected.
func NewInputNeuron(id string) Neuron {
	return Neuron{ID: id, Error: 1.0, Activation: ActivationNone}
}

// NewNeuron creates a computing neuron. Missing link slots are padded with dummies.
func NewNeuron(id string, output float32, activation ActivationType, links ...Link) Neuron {
	if len(links) > MaxLinks {
		panic(errors.Errorf("neuron %q: %d links exceed capacity %d", id, len(links), MaxLinks))
	}
	n := Neuron{ID: id, Output: output, Error: 1.0, Activation: activation}
	copy(n.InputLinks[:], links)
	return n
}

func NewDummyNeuron() Neuron {
	return Neuron{Error: 1.0}
}

func (n *Neuron) IsDummy() bool {
	return n.ID == ""
}

// ActiveLinks returns pointers to the non-dummy input links in slot order.
func (n *Neuron) ActiveLinks() []*Link {
	links := make([]*Link, 0, MaxLinks)
	for i := range n.InputLinks {
		if !n.InputLinks[i].IsDummy() {
			links = append(links, &n.InputLinks[i])
		}
	}
	return links
}

// Layer is a fixed-size array of neurons.
type Layer struct {
	Neurons [MaxNeuronsPerLayer]Neuron
}

// NewLayer packs the given neurons and pads the rest with dummies.
func NewLayer(neurons ...Neuron) Layer {
	if len(neurons) > MaxNeuronsPerLayer {
		panic(errors.Errorf("%d neurons exceed layer capacity %d", len(neurons), MaxNeuronsPerLayer))
	}
	l := NewDummyLayer()
	copy(l.Neurons[:], neurons)
	return l
}

func NewDummyLayer() Layer {
	var l Layer
	for i := range l.Neurons {
		l.Neurons[i] = NewDummyNeuron()
	}
	return l
}

// Active returns pointers to the non-dummy neurons in slot order.
func (l *Layer) Active() []*Neuron {
	neurons := make([]*Neuron, 0, MaxNeuronsPerLayer)
	for i := range l.Neurons {
		if !l.Neurons[i].IsDummy() {
			neurons = append(neurons, &l.Neurons[i])
		}
	}
	return neurons
}

// Find returns the non-dummy neuron with the given id, or nil.
func (l *Layer) Find(id string) *Neuron {
	if id == "" {
		return nil
	}
	for i := range l.Neurons {
		if l.Neurons[i].ID == id {
			return &l.Neurons[i]
		}
	}
	return nil
}

// Value returns the output of neuron id. A missing id means the network was
// built with a dangling link, so it panics instead of returning an error.
func (l *Layer) Value(id string) float32 {
	n := l.Find(id)
	if n == nil {
		panic(errors.Errorf("neuron %q not found in layer", id))
	}
	return n.Output
}

// Network is a fixed-size stack of layers. Only the first LayersCount layers
// are in use; layer 0 is the input layer.
type Network struct {
	Layers      [MaxLayers]Layer
	LayersCount int
}

// NewNetwork packs the given layers and pads the rest with dummy layers.
// The result is not validated.
func NewNetwork(layers ...Layer) *Network {
	if len(layers) > MaxLayers {
		panic(errors.Errorf("%d layers exceed network capacity %d", len(layers), MaxLayers))
	}
	n := &Network{LayersCount: len(layers)}
	for i := range n.Layers {
		if i < len(layers) {
			n.Layers[i] = layers[i]
		} else {
			n.Layers[i] = NewDummyLayer()
		}
	}
	return n
}

func (n *Network) Input() *Layer {
	return &n.Layers[0]
}

func (n *Network) OutputLayer() *Layer {
	return &n.Layers[n.LayersCount-1]
}

// Validate checks the structural invariants of the network.
func (n *Network) Validate() error {
	if n.LayersCount < 2 || n.LayersCount > MaxLayers {
		return errors.Wrapf(ErrInvalidTopology, "layers_count %d outside [2, %d]", n.LayersCount, MaxLayers)
	}

	seen := make(map[string]int)
	for li := range n.Layers {
		layer := &n.Layers[li]
		active := layer.Active()

		if li >= n.LayersCount {
			if len(active) > 0 {
				return errors.Wrapf(ErrInvalidTopology, "layer %d is beyond layers_count %d but holds neuron %q",
					li, n.LayersCount, active[0].ID)
			}
			continue
		}
		if len(active) == 0 {
			return errors.Wrapf(ErrInvalidTopology, "layer %d has no neurons", li)
		}

		for _, neuron := range active {
			if prev, dup := seen[neuron.ID]; dup {
				return errors.Wrapf(ErrInvalidTopology, "duplicate neuron id %q in layers %d and %d", neuron.ID, prev, li)
			}
			seen[neuron.ID] = li

			links := neuron.ActiveLinks()
			if li == 0 {
				if len(links) > 0 {
					return errors.Wrapf(ErrInvalidTopology, "input neuron %q has input links", neuron.ID)
				}
				if neuron.Activation != ActivationNone {
					return errors.Wrapf(ErrInvalidTopology, "input neuron %q has activation %s", neuron.ID, neuron.Activation)
				}
				continue
			}
			for _, link := range links {
				if n.Layers[li-1].Find(link.SourceID) == nil {
					return errors.Wrapf(ErrInvalidTopology, "neuron %q links to %q which is not in layer %d",
						neuron.ID, link.SourceID, li-1)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy. The fixed arrays make a value copy sufficient.
func (n *Network) Clone() *Network {
	c := *n
	return &c
}
