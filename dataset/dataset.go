// Package dataset provides training example sources for the stepping controller:
// on-the-fly samplers and finite recorded sets shuffled between epochs.
package dataset

import (
	"github.com/pkg/errors"

	"github.com/openfluke/stepnet/nn"
)

// ErrEmptySet is returned when a recorded set holds no examples.
var ErrEmptySet = errors.New("empty training set")

// Source is the "next example" contract consumed by the controller.
type Source = nn.ExampleSource

// Shaped is implemented by sources that know their example sizes up front.
type Shaped interface {
	Shape() (inputs, targets int)
}

// CheckShape verifies that src produces examples matching the input and
// output layers of net. Sources that do not implement Shaped pass.
func CheckShape(net *nn.Network, src Source) error {
	shaped, ok := src.(Shaped)
	if !ok {
		return nil
	}
	inputs, targets := shaped.Shape()
	wantIn, wantOut := len(net.Input().Active()), len(net.OutputLayer().Active())
	if inputs != wantIn || targets != wantOut {
		return errors.Wrapf(nn.ErrInputSize, "source yields %d inputs and %d targets, network has %d inputs and %d outputs",
			inputs, targets, wantIn, wantOut)
	}
	return nil
}

// Func adapts a plain function to a Source.
type Func func() (nn.Example, error)

func (f Func) Next() (nn.Example, error) {
	return f()
}

// repeat yields the same example forever.
type repeat struct {
	example nn.Example
}

// Repeat returns a source that always yields a copy of example.
func Repeat(example nn.Example) Source {
	return &repeat{example: clone(example)}
}

func (r *repeat) Next() (nn.Example, error) {
	return clone(r.example), nil
}

func (r *repeat) Shape() (int, int) {
	return len(r.example.Inputs), len(r.example.Targets)
}

// Take draws n examples from a source.
func Take(src Source, n int) ([]nn.Example, error) {
	out := make([]nn.Example, 0, n)
	for i := 0; i < n; i++ {
		ex, err := src.Next()
		if err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
		out = append(out, ex)
	}
	return out, nil
}

func clone(ex nn.Example) nn.Example {
	return nn.Example{
		Inputs:  append([]float32(nil), ex.Inputs...),
		Targets: append([]float32(nil), ex.Targets...),
	}
}
