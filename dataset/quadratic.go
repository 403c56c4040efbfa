package dataset

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/openfluke/stepnet/nn"
)

// RootTolerance is the accepted difference between recorded and computed roots.
const RootTolerance = 1e-3

// QuadraticItem is one recorded equation a*x^2 + b*x + c = 0 with its roots.
type QuadraticItem struct {
	A  float32 `json:"a"`
	B  float32 `json:"b"`
	C  float32 `json:"c"`
	X1 float32 `json:"x1"`
	X2 float32 `json:"x2"`
}

// Example converts the item to inputs (a, b, c) and targets (x1, x2).
func (q QuadraticItem) Example() nn.Example {
	return nn.Example{
		Inputs:  []float32{q.A, q.B, q.C},
		Targets: []float32{q.X1, q.X2},
	}
}

// ValidateQuadratic checks that x1 and x2 are the roots of the equation,
// smaller first, within RootTolerance.
func ValidateQuadratic(q QuadraticItem) error {
	x1, x2, ok := QuadraticRoots(float64(q.A), float64(q.B), float64(q.C))
	if !ok {
		return errors.Errorf("%gx^2%+gx%+g has no real roots", q.A, q.B, q.C)
	}
	if math.Abs(x1-float64(q.X1)) > RootTolerance {
		return errors.Errorf("x1 mismatch: expected %g, got %g", x1, q.X1)
	}
	if math.Abs(x2-float64(q.X2)) > RootTolerance {
		return errors.Errorf("x2 mismatch: expected %g, got %g", x2, q.X2)
	}
	return nil
}

// LoadQuadraticSetFromBytes decodes and validates [{"a","b","c","x1","x2"}].
func LoadQuadraticSetFromBytes(data []byte, seed int64) (*RecordedSet, error) {
	var items []QuadraticItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal quadratic set")
	}
	examples := make([]nn.Example, len(items))
	for i, item := range items {
		if err := ValidateQuadratic(item); err != nil {
			return nil, errors.Wrapf(err, "item %d", i)
		}
		examples[i] = item.Example()
	}
	return NewRecordedSet(examples, seed)
}

// LoadQuadraticSet loads a quadratic set from a JSON file.
func LoadQuadraticSet(path string, seed int64) (*RecordedSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read quadratic set")
	}
	set, err := LoadQuadraticSetFromBytes(data, seed)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return set, nil
}
