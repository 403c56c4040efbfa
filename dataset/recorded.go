package dataset

import (
	"encoding/json"
	"math/rand"
	"os"

	"github.com/pkg/errors"

	"github.com/openfluke/stepnet/nn"
)

// RecordedSet is a finite list of examples served in a fresh random order
// every epoch.
type RecordedSet struct {
	examples []nn.Example
	order    []int
	pos      int
	epoch    int
	rng      *rand.Rand
}

// NewRecordedSet copies examples into a set. Every example must have the same
// number of inputs and targets as the first one.
func NewRecordedSet(examples []nn.Example, seed int64) (*RecordedSet, error) {
	if len(examples) == 0 {
		return nil, ErrEmptySet
	}
	nIn, nOut := len(examples[0].Inputs), len(examples[0].Targets)
	if nIn == 0 || nOut == 0 {
		return nil, errors.Errorf("example 0 has %d inputs and %d targets", nIn, nOut)
	}
	set := &RecordedSet{
		examples: make([]nn.Example, len(examples)),
		order:    make([]int, len(examples)),
		rng:      rand.New(rand.NewSource(seed)),
	}
	for i, ex := range examples {
		if len(ex.Inputs) != nIn || len(ex.Targets) != nOut {
			return nil, errors.Errorf("example %d has %d inputs and %d targets, want %d and %d",
				i, len(ex.Inputs), len(ex.Targets), nIn, nOut)
		}
		set.examples[i] = clone(ex)
		set.order[i] = i
	}
	set.shuffle()
	return set, nil
}

func (s *RecordedSet) shuffle() {
	s.rng.Shuffle(len(s.order), func(i, j int) { s.order[i], s.order[j] = s.order[j], s.order[i] })
	s.pos = 0
}

// Next returns the next example of the current epoch, reshuffling when the
// epoch is exhausted.
func (s *RecordedSet) Next() (nn.Example, error) {
	if s.pos == len(s.order) {
		s.shuffle()
		s.epoch++
	}
	ex := s.examples[s.order[s.pos]]
	s.pos++
	return clone(ex), nil
}

// Len returns the number of examples in the set.
func (s *RecordedSet) Len() int {
	return len(s.examples)
}

// Shape returns the input and target counts shared by every example.
func (s *RecordedSet) Shape() (int, int) {
	return len(s.examples[0].Inputs), len(s.examples[0].Targets)
}

// Epoch returns how many full passes have been completed.
func (s *RecordedSet) Epoch() int {
	return s.epoch
}

// Examples returns a copy of the examples in load order.
func (s *RecordedSet) Examples() []nn.Example {
	out := make([]nn.Example, len(s.examples))
	for i, ex := range s.examples {
		out[i] = clone(ex)
	}
	return out
}

// LoadRecordedSetFromBytes decodes [{"inputs":[...],"targets":[...]}].
func LoadRecordedSetFromBytes(data []byte, seed int64) (*RecordedSet, error) {
	var examples []nn.Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal training set")
	}
	return NewRecordedSet(examples, seed)
}

// LoadRecordedSet loads a recorded set from a JSON file.
func LoadRecordedSet(path string, seed int64) (*RecordedSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read training set")
	}
	set, err := LoadRecordedSetFromBytes(data, seed)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return set, nil
}

// SaveRecordedSet writes examples as indented JSON.
func SaveRecordedSet(path string, examples []nn.Example) error {
	data, err := json.MarshalIndent(examples, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal training set")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write training set")
	}
	return nil
}
