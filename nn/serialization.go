package nn

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ErrMalformedSnapshot is returned when a network file does not describe a
// structurally valid network.
var ErrMalformedSnapshot = errors.New("malformed network snapshot")

// NetworkFile is the on-disk form of a Network. Arrays keep their full
// capacity, with dummy entries for unused slots.
type NetworkFile struct {
	Layers      []LayerFile `json:"layers"`
	LayersCount int         `json:"layers_count"`
}

// LayerFile is the on-disk form of a Layer
type LayerFile struct {
	Neurons []NeuronFile `json:"neurons"`
}

// NeuronFile is the on-disk form of a Neuron
type NeuronFile struct {
	ID           string     `json:"id"`
	Output       float32    `json:"output"`
	SumInput     float32    `json:"sum_input"`
	Error        float32    `json:"error"`
	FunctionName string     `json:"function_name"`
	InputLinks   []LinkFile `json:"input_links"`
}

// LinkFile is the on-disk form of a Link
type LinkFile struct {
	SourceID string  `json:"source_id"`
	Weight   float32 `json:"weight"`
}

// SerializeNetwork converts the network into its file form.
func (n *Network) SerializeNetwork() NetworkFile {
	file := NetworkFile{
		Layers:      make([]LayerFile, MaxLayers),
		LayersCount: n.LayersCount,
	}
	for li := range n.Layers {
		neurons := make([]NeuronFile, MaxNeuronsPerLayer)
		for ni := range n.Layers[li].Neurons {
			neuron := &n.Layers[li].Neurons[ni]
			links := make([]LinkFile, MaxLinks)
			for k, link := range neuron.InputLinks {
				links[k] = LinkFile{SourceID: link.SourceID, Weight: link.Weight}
			}
			neurons[ni] = NeuronFile{
				ID:           neuron.ID,
				Output:       neuron.Output,
				SumInput:     neuron.SumInput,
				Error:        neuron.Error,
				FunctionName: neuron.Activation.String(),
				InputLinks:   links,
			}
		}
		file.Layers[li] = LayerFile{Neurons: neurons}
	}
	return file
}

// DeserializeNetwork builds a Network from its file form. Arrays with the
// wrong length and topologies that fail Validate are rejected.
func DeserializeNetwork(file NetworkFile) (*Network, error) {
	if len(file.Layers) != MaxLayers {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "expected %d layers, got %d", MaxLayers, len(file.Layers))
	}

	n := &Network{LayersCount: file.LayersCount}
	for li, lf := range file.Layers {
		if len(lf.Neurons) != MaxNeuronsPerLayer {
			return nil, errors.Wrapf(ErrMalformedSnapshot, "layer %d: expected %d neurons, got %d",
				li, MaxNeuronsPerLayer, len(lf.Neurons))
		}
		for ni, nf := range lf.Neurons {
			if len(nf.InputLinks) != MaxLinks {
				return nil, errors.Wrapf(ErrMalformedSnapshot, "layer %d neuron %d (%q): expected %d links, got %d",
					li, ni, nf.ID, MaxLinks, len(nf.InputLinks))
			}
			neuron := Neuron{
				ID:         nf.ID,
				Output:     nf.Output,
				SumInput:   nf.SumInput,
				Error:      nf.Error,
				Activation: ParseActivation(nf.FunctionName),
			}
			for k, link := range nf.InputLinks {
				neuron.InputLinks[k] = Link{SourceID: link.SourceID, Weight: link.Weight}
			}
			n.Layers[li].Neurons[ni] = neuron
		}
	}

	if err := n.Validate(); err != nil {
		return nil, errors.Wrapf(ErrMalformedSnapshot, "%v", err)
	}
	return n, nil
}

// LoadNetworkFromString loads a network from a JSON string
func LoadNetworkFromString(jsonString string) (*Network, error) {
	var file NetworkFile
	if err := json.Unmarshal([]byte(jsonString), &file); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal network")
	}
	return DeserializeNetwork(file)
}

// LoadNetwork loads a network from a JSON file
func LoadNetwork(filename string) (*Network, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read network file")
	}
	n, err := LoadNetworkFromString(string(data))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return n, nil
}

// SaveNetworkToString encodes the network as indented JSON
func (n *Network) SaveNetworkToString() (string, error) {
	data, err := json.MarshalIndent(n.SerializeNetwork(), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal network")
	}
	return string(data), nil
}

// SaveNetwork writes the network to a JSON file
func (n *Network) SaveNetwork(filename string) error {
	data, err := n.SaveNetworkToString()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		return errors.Wrap(err, "failed to write network file")
	}
	return nil
}
