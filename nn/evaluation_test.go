package nn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestEvaluateNetwork(t *testing.T) {
	n := NewNetworkBuilder().
		AddLayer().AddInput("a").
		AddLayer().AddNeuron("y", ActivationLinear, NewLink("a", 0.5)).
		MustBuild()

	examples := []Example{
		{Inputs: []float32{1}, Targets: []float32{1}}, // 0.5, loss 0.5
		{Inputs: []float32{2}, Targets: []float32{1}}, // 1.0, loss 0
		{Inputs: []float32{1}, Targets: []float32{1}},
	}
	result, err := EvaluateNetwork(n, examples)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalSamples != 3 {
		t.Errorf("total = %d, want 3", result.TotalSamples)
	}
	if math.Abs(result.MeanLoss-1.0/3) > 1e-6 {
		t.Errorf("mean loss = %v, want 1/3", result.MeanLoss)
	}
	if math.Abs(result.MaxAbsLoss-0.5) > 1e-6 {
		t.Errorf("max |loss| = %v, want 0.5", result.MaxAbsLoss)
	}
	if result.Failures != 0 {
		t.Errorf("failures = %d, want 0", result.Failures)
	}
	if result.Buckets[0].Count != 1 || result.Buckets[4].Count != 2 {
		t.Errorf("bucket counts: %+v", result.Buckets)
	}
	if math.Abs(result.PerOutputMean["y"]-1.0/3) > 1e-6 {
		t.Errorf("per-output mean = %v", result.PerOutputMean["y"])
	}

	worst := result.WorstSamples(1)
	if len(worst) != 1 || worst[0].Deviation != 50 || worst[0].SampleIndex == 1 {
		t.Errorf("worst = %+v", worst)
	}
	if len(result.WorstSamples(10)) != 3 {
		t.Error("WorstSamples should cap at the number of results")
	}

	if w := n.Layers[1].Find("y").InputLinks[0].Weight; w != 0.5 {
		t.Errorf("evaluation modified the network: weight %v", w)
	}
	if y := n.Layers[1].Find("y"); y.Output != 0 {
		t.Errorf("evaluation ran on the original network: output %v", y.Output)
	}
}

func TestEvaluateFailures(t *testing.T) {
	n := chain(1, -1)
	result, err := EvaluateNetwork(n, []Example{{Inputs: []float32{1}, Targets: []float32{1}}})
	if err != nil {
		t.Fatal(err)
	}
	// output -1 against target 1 is a 200% miss
	if result.Failures != 1 || result.Buckets[len(result.Buckets)-1].Count != 1 {
		t.Errorf("failures=%d buckets=%+v", result.Failures, result.Buckets)
	}
}

func TestEvaluateErrors(t *testing.T) {
	n := chain(1, 1)
	if _, err := EvaluateNetwork(n, nil); !errors.Is(err, ErrEmptyEvaluation) {
		t.Errorf("empty: got %v", err)
	}
	_, err := EvaluateNetwork(n, []Example{{Inputs: []float32{1}, Targets: []float32{1, 2}}})
	if !errors.Is(err, ErrInputSize) {
		t.Errorf("target mismatch: got %v", err)
	}

	// an empty output layer would leave nothing to aggregate
	noOutputs := NewNetwork(NewLayer(NewInputNeuron("a")), NewDummyLayer())
	_, err = EvaluateNetwork(noOutputs, []Example{{Inputs: []float32{1}}})
	if !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("network without outputs: got %v", err)
	}
}
