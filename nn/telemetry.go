package nn

// Blueprint contains the structural information of a network, extracted once
// per run for the layout collaborator.
type Blueprint struct {
	RunID       string           `json:"run_id"`
	LayersCount int              `json:"layers_count"`
	TotalParams int              `json:"total_parameters"`
	Layers      []LayerBlueprint `json:"layers"`
	Links       []string         `json:"links"`
}

// LayerBlueprint lists the non-dummy neurons of one layer.
type LayerBlueprint struct {
	Index   int               `json:"index"`
	Neurons []NeuronBlueprint `json:"neurons"`
}

// NeuronBlueprint describes one neuron independent of its position.
type NeuronBlueprint struct {
	ID         string   `json:"id"`
	Activation string   `json:"activation"`
	Sources    []string `json:"sources,omitempty"`
}

// ExtractBlueprint extracts the topology of the used layers.
func ExtractBlueprint(n *Network, runID string) Blueprint {
	bp := Blueprint{
		RunID:       runID,
		LayersCount: n.LayersCount,
		Layers:      make([]LayerBlueprint, 0, n.LayersCount),
	}

	for li := 0; li < n.LayersCount; li++ {
		layer := LayerBlueprint{Index: li}
		for _, neuron := range n.Layers[li].Active() {
			nb := NeuronBlueprint{
				ID:         neuron.ID,
				Activation: neuron.Activation.String(),
			}
			for _, link := range neuron.ActiveLinks() {
				nb.Sources = append(nb.Sources, link.SourceID)
				bp.Links = append(bp.Links, LinkID(link.SourceID, neuron.ID))
				bp.TotalParams++
			}
			layer.Neurons = append(layer.Neurons, nb)
		}
		bp.Layers = append(bp.Layers, layer)
	}
	return bp
}

// NeuronIDs returns every neuron id in layer order.
func (bp *Blueprint) NeuronIDs() []string {
	var ids []string
	for _, layer := range bp.Layers {
		for _, n := range layer.Neurons {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
