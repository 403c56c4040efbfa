package nn

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func approx(a, b, tol float32) bool {
	return math.Abs(float64(a-b)) <= float64(tol)
}

// chain builds a -> h -> y with Linear activations and the given weights.
func chain(w1, w2 float32) *Network {
	return NewNetworkBuilder().
		AddLayer().AddInput("a").
		AddLayer().AddNeuron("h", ActivationLinear, NewLink("a", w1)).
		AddLayer().AddNeuron("y", ActivationLinear, NewLink("h", w2)).
		MustBuild()
}

// TestActivations verifies each activation and its derivative
func TestActivations(t *testing.T) {
	cases := []struct {
		act        ActivationType
		in         float32
		out, deriv float32
	}{
		{ActivationSigmoid, 0, 0.5, 0.25},
		{ActivationSigmoid, 2, 0.880797, 0.104994},
		{ActivationSquare, 3, 9, 6},
		{ActivationSquare, -2, 4, -4},
		{ActivationSqrt, 4, 2, 0.25},
		{ActivationSqrt, -1, 0, 0},
		{ActivationSqrt, 0, 0, 0},
		{ActivationLinear, -3.5, -3.5, 1},
		{ActivationRelu, 2, 2, 1},
		{ActivationRelu, -2, 0, 0},
		{ActivationNone, 7, 7, 1},
		{ActivationType(42), 7, 7, 1},
	}
	for _, c := range cases {
		if got := Activate(c.act, c.in); !approx(got, c.out, 1e-5) {
			t.Errorf("%s(%v) = %v, want %v", c.act, c.in, got, c.out)
		}
		if got := ActivateDerivative(c.act, c.in); !approx(got, c.deriv, 1e-5) {
			t.Errorf("%s'(%v) = %v, want %v", c.act, c.in, got, c.deriv)
		}
	}
}

func TestParseActivation(t *testing.T) {
	for _, a := range []ActivationType{ActivationNone, ActivationSigmoid, ActivationSquare, ActivationSqrt, ActivationLinear, ActivationRelu} {
		if got := ParseActivation(a.String()); got != a {
			t.Errorf("ParseActivation(%q) = %v, want %v", a.String(), got, a)
		}
	}
	if got := ParseActivation("relu"); got != ActivationRelu {
		t.Errorf("lowercase tag not accepted, got %v", got)
	}
	if got := ParseActivation("Tanh"); got != ActivationNone {
		t.Errorf("unknown tag should map to None, got %v", got)
	}
}

func TestLoss(t *testing.T) {
	cases := []struct {
		target, value, want float32
	}{
		{10, 8, 0.2},
		{8, 10, -0.2},
		{0, 0, 0},
		{5, 5, 0},
		{1, -1, 2},
		{0, 4, -1},
	}
	for _, c := range cases {
		if got := Loss(c.target, c.value); !approx(got, c.want, 1e-6) {
			t.Errorf("Loss(%v, %v) = %v, want %v", c.target, c.value, got, c.want)
		}
	}
}

func TestFloorDecayScheduler(t *testing.T) {
	s := NewFloorDecayScheduler(0.1, 0.5, 0.01)
	want := []float32{0.1, 0.05, 0.025, 0.0125, 0.00625, 0.00625, 0.00625}
	for step, w := range want {
		if got := s.GetLR(step); !approx(got, w, 1e-7) {
			t.Errorf("step %d: lr = %v, want %v", step, got, w)
		}
	}
	if got := s.GetLR(1); !approx(got, 0.05, 1e-7) {
		t.Errorf("going back to step 1 should replay the decay, got %v", got)
	}
	s.Reset()
	if got := s.GetLR(0); got != 0.1 {
		t.Errorf("after Reset lr = %v, want 0.1", got)
	}
}

func TestNewNamedScheduler(t *testing.T) {
	config := DefaultControllerConfig()
	config.LearningRate = 0.2

	s, err := NewNamedScheduler("constant", config)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "Constant" || s.GetLR(5000) != 0.2 {
		t.Errorf("constant: %s lr %v", s.Name(), s.GetLR(5000))
	}

	s, err = NewNamedScheduler("decay", config)
	if err != nil {
		t.Fatal(err)
	}
	if s.Name() != "FloorDecay" || s.GetLR(0) != 0.2 || s.GetLR(1) >= 0.2 {
		t.Errorf("decay: %s lr0 %v lr1 %v", s.Name(), s.GetLR(0), s.GetLR(1))
	}

	if _, err := NewNamedScheduler("cosine", config); err == nil {
		t.Error("unknown schedule accepted")
	}
}

func TestValidate(t *testing.T) {
	if err := BuildLinearNetwork().Validate(); err != nil {
		t.Fatalf("linear network invalid: %v", err)
	}
	if err := BuildQuadraticNetwork().Validate(); err != nil {
		t.Fatalf("quadratic network invalid: %v", err)
	}

	cases := map[string]func() *Network{
		"single layer": func() *Network {
			return NewNetwork(NewLayer(NewInputNeuron("a")))
		},
		"dangling link": func() *Network {
			return NewNetwork(
				NewLayer(NewInputNeuron("a")),
				NewLayer(NewNeuron("y", 0, ActivationLinear, NewLink("missing", 1))),
			)
		},
		"link skips a layer": func() *Network {
			return NewNetwork(
				NewLayer(NewInputNeuron("a")),
				NewLayer(NewNeuron("h", 0, ActivationLinear, NewLink("a", 1))),
				NewLayer(NewNeuron("y", 0, ActivationLinear, NewLink("a", 1))),
			)
		},
		"duplicate id": func() *Network {
			return NewNetwork(
				NewLayer(NewInputNeuron("a")),
				NewLayer(NewNeuron("a", 0, ActivationLinear, NewLink("a", 1))),
			)
		},
		"empty used layer": func() *Network {
			return NewNetwork(NewLayer(NewInputNeuron("a")), NewDummyLayer())
		},
		"input with activation": func() *Network {
			in := NewInputNeuron("a")
			in.Activation = ActivationSigmoid
			return NewNetwork(NewLayer(in), NewLayer(NewNeuron("y", 0, ActivationLinear, NewLink("a", 1))))
		},
		"neuron beyond layers_count": func() *Network {
			n := chain(1, 1)
			n.Layers[4] = NewLayer(NewInputNeuron("ghost"))
			return n
		},
	}
	for name, build := range cases {
		err := build().Validate()
		if !errors.Is(err, ErrInvalidTopology) {
			t.Errorf("%s: expected ErrInvalidTopology, got %v", name, err)
		}
	}
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewNetworkBuilder().AddInput("a").Build()
	if !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("neuron before layer: got %v", err)
	}

	b := NewNetworkBuilder().AddLayer()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		b.AddInput(id)
	}
	if _, err := b.Build(); !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("overfull layer: got %v", err)
	}

	links := fullyConnected(1, "a", "b", "c", "d", "e")
	_, err = NewNetworkBuilder().
		AddLayer().AddInput("a").
		AddLayer().AddNeuron("y", ActivationLinear, links...).
		Build()
	if !errors.Is(err, ErrInvalidTopology) {
		t.Errorf("too many links: got %v", err)
	}

	if _, err := BuildNamedNetwork("cubic"); err == nil {
		t.Error("unknown builtin should fail")
	}
}

func TestSetInputsSize(t *testing.T) {
	n := BuildLinearNetwork()
	if err := n.SetInputs([]float32{1, 2}); !errors.Is(err, ErrInputSize) {
		t.Errorf("expected ErrInputSize, got %v", err)
	}
	if _, err := n.SeedErrors([]float32{1, 2}); !errors.Is(err, ErrInputSize) {
		t.Errorf("expected ErrInputSize from SeedErrors, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	n := chain(0.5, 0.5)
	c := n.Clone()
	c.Layers[1].Neurons[0].InputLinks[0].Weight = 9
	if n.Layers[1].Neurons[0].InputLinks[0].Weight != 0.5 {
		t.Error("mutating the clone changed the original")
	}
}
