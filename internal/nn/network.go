package nn

import (
	"fmt"

	"mcceval/internal/model"
)

// Compiled is a network resolved for repeated queries: activations are looked up once and
// incoming synapses are indexed by position. It is read-only and safe for concurrent use.
type Compiled struct {
	neurons    []compiledNeuron
	indexByID  map[string]int
	inputSlots []int
	outputIdx  []int
}

type compiledNeuron struct {
	bias     float64
	fn       ActivationFunc
	incoming []compiledSynapse
}

type compiledSynapse struct {
	from   int
	weight float64
}

// Compile resolves network against the named input and output neurons.
func Compile(network model.Network, inputIDs, outputIDs []string) (*Compiled, error) {
	c := &Compiled{
		neurons:   make([]compiledNeuron, len(network.Neurons)),
		indexByID: make(map[string]int, len(network.Neurons)),
	}
	for i, neuron := range network.Neurons {
		if _, dup := c.indexByID[neuron.ID]; dup {
			return nil, fmt.Errorf("duplicate neuron id: %s", neuron.ID)
		}
		fn, err := LookupActivation(neuron.Activation)
		if err != nil {
			return nil, fmt.Errorf("neuron %s: %w", neuron.ID, err)
		}
		c.indexByID[neuron.ID] = i
		c.neurons[i] = compiledNeuron{bias: neuron.Bias, fn: fn}
	}
	for _, synapse := range network.Synapses {
		if !synapse.Enabled {
			continue
		}
		from, ok := c.indexByID[synapse.From]
		if !ok {
			return nil, fmt.Errorf("synapse %s: unknown source neuron %s", synapse.ID, synapse.From)
		}
		to, ok := c.indexByID[synapse.To]
		if !ok {
			return nil, fmt.Errorf("synapse %s: unknown target neuron %s", synapse.ID, synapse.To)
		}
		c.neurons[to].incoming = append(c.neurons[to].incoming, compiledSynapse{from: from, weight: synapse.Weight})
	}
	for _, id := range inputIDs {
		idx, ok := c.indexByID[id]
		if !ok {
			return nil, fmt.Errorf("missing input neuron %s", id)
		}
		c.inputSlots = append(c.inputSlots, idx)
	}
	for _, id := range outputIDs {
		idx, ok := c.indexByID[id]
		if !ok {
			return nil, fmt.Errorf("missing output neuron %s", id)
		}
		c.outputIdx = append(c.outputIdx, idx)
	}
	return c, nil
}

// Query loads inputs positionally, evaluates neurons in declaration order and returns the
// output neuron values.
func (c *Compiled) Query(inputs []float64) ([]float64, error) {
	if len(inputs) != len(c.inputSlots) {
		return nil, fmt.Errorf("input size mismatch: got=%d want=%d", len(inputs), len(c.inputSlots))
	}
	values := make([]float64, len(c.neurons))
	fixed := make([]bool, len(c.neurons))
	for i, slot := range c.inputSlots {
		values[slot] = inputs[i]
		fixed[slot] = true
	}
	for i, neuron := range c.neurons {
		if fixed[i] {
			continue
		}
		total := neuron.bias
		for _, synapse := range neuron.incoming {
			total += values[synapse.from] * synapse.weight
		}
		values[i] = neuron.fn(total)
	}
	out := make([]float64, len(c.outputIdx))
	for i, idx := range c.outputIdx {
		out[i] = values[idx]
	}
	return out, nil
}
