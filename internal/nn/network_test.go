package nn

import (
	"errors"
	"math"
	"sync"
	"testing"

	"mcceval/internal/model"
)

func feedForward() model.Network {
	return model.Network{
		Neurons: []model.Neuron{
			{ID: "i1", Activation: "identity"},
			{ID: "i2", Activation: "identity"},
			{ID: "h", Activation: "tanh"},
			{ID: "o", Activation: "identity", Bias: 0.5},
		},
		Synapses: []model.Synapse{
			{ID: "s1", From: "i1", To: "o", Weight: 2, Enabled: true},
			{ID: "s2", From: "i2", To: "o", Weight: -1, Enabled: true},
			{ID: "s3", From: "i1", To: "o", Weight: 100, Enabled: false},
			{ID: "s4", From: "i2", To: "h", Weight: 1, Enabled: true},
			{ID: "s5", From: "h", To: "o", Weight: 3, Enabled: true},
		},
	}
}

// want computes feedForward by hand: o = 0.5 + 2*i1 - i2 + 3*tanh(i2).
func want(i1, i2 float64) float64 {
	return 0.5 + 2*i1 - i2 + 3*math.Tanh(i2)
}

func TestCompiledQuery(t *testing.T) {
	compiled, err := Compile(feedForward(), []string{"i1", "i2"}, []string{"o", "h"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	out, err := compiled.Query([]float64{1.0, 0.25})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(out))
	}
	if math.Abs(out[0]-want(1, 0.25)) > 1e-12 {
		t.Fatalf("o = %v, want %v", out[0], want(1, 0.25))
	}
	if math.Abs(out[1]-math.Tanh(0.25)) > 1e-12 {
		t.Fatalf("h = %v, want %v", out[1], math.Tanh(0.25))
	}
}

func TestCompiledQueryIsSafeForConcurrentUse(t *testing.T) {
	compiled, err := Compile(feedForward(), []string{"i1", "i2"}, []string{"o"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := range 32 {
		wg.Add(1)
		go func(x float64) {
			defer wg.Done()
			out, err := compiled.Query([]float64{x, 0})
			if err != nil {
				errs <- err
				return
			}
			if math.Abs(out[0]-want(x, 0)) > 1e-9 {
				errs <- errors.New("wrong concurrent result")
			}
		}(float64(i))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent query: %v", err)
	}
}

func TestCompileRejectsMismatchedTopology(t *testing.T) {
	tests := []struct {
		name    string
		network model.Network
		inputs  []string
		outputs []string
	}{
		{name: "missing input", network: feedForward(), inputs: []string{"i1", "i9"}, outputs: []string{"o"}},
		{name: "missing output", network: feedForward(), inputs: []string{"i1"}, outputs: []string{"x"}},
		{
			name: "dangling synapse",
			network: model.Network{
				Neurons:  []model.Neuron{{ID: "o", Activation: "identity"}},
				Synapses: []model.Synapse{{ID: "s", From: "ghost", To: "o", Enabled: true}},
			},
			outputs: []string{"o"},
		},
		{
			name: "duplicate neuron",
			network: model.Network{Neurons: []model.Neuron{
				{ID: "o", Activation: "identity"},
				{ID: "o", Activation: "tanh"},
			}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compile(tc.network, tc.inputs, tc.outputs); err == nil {
				t.Fatal("expected compile error")
			}
		})
	}
}

func TestCompileUnknownActivation(t *testing.T) {
	network := model.Network{Neurons: []model.Neuron{{ID: "o", Activation: "unknown"}}}
	_, err := Compile(network, nil, []string{"o"})
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got %v", err)
	}
}

func TestCompiledQueryInputSizeMismatch(t *testing.T) {
	compiled, err := Compile(feedForward(), []string{"i1", "i2"}, []string{"o"})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := compiled.Query([]float64{1}); err == nil {
		t.Fatal("expected input size error")
	}
}
