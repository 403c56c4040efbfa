package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/openfluke/stepnet/nn"
)

// maxRedraws bounds the rejection loop of QuadraticSampler.
const maxRedraws = 10000

// ErrNoRealRoots is returned when a sampler range keeps producing equations
// without two real roots.
var ErrNoRealRoots = errors.New("no quadratic with real roots in range")

// LinearSampler draws k, x and b uniformly from the integers in [Lo, Hi)
// and targets y = k*x + b.
type LinearSampler struct {
	Lo, Hi int
	rng    *rand.Rand
}

func NewLinearSampler(seed int64, lo, hi int) *LinearSampler {
	if hi <= lo {
		hi = lo + 1
	}
	return &LinearSampler{Lo: lo, Hi: hi, rng: rand.New(rand.NewSource(seed))}
}

func (s *LinearSampler) draw() float32 {
	return float32(s.Lo + s.rng.Intn(s.Hi-s.Lo))
}

func (s *LinearSampler) Shape() (int, int) {
	return 3, 1
}

func (s *LinearSampler) Next() (nn.Example, error) {
	k, x, b := s.draw(), s.draw(), s.draw()
	return nn.Example{
		Inputs:  []float32{k, x, b},
		Targets: []float32{k*x + b},
	}, nil
}

// QuadraticSampler draws a, b and c uniformly from the integers in [Lo, Hi)
// and targets the two real roots x1 <= x2 of a*x^2 + b*x + c. Draws without
// real roots, or with a = 0, are rejected and redrawn; a range that yields
// nothing else fails with ErrNoRealRoots.
type QuadraticSampler struct {
	Lo, Hi int
	rng    *rand.Rand
}

func NewQuadraticSampler(seed int64, lo, hi int) *QuadraticSampler {
	if hi <= lo {
		hi = lo + 1
	}
	return &QuadraticSampler{Lo: lo, Hi: hi, rng: rand.New(rand.NewSource(seed))}
}

func (s *QuadraticSampler) draw() float64 {
	return float64(s.Lo + s.rng.Intn(s.Hi-s.Lo))
}

func (s *QuadraticSampler) Shape() (int, int) {
	return 3, 2
}

func (s *QuadraticSampler) Next() (nn.Example, error) {
	for i := 0; i < maxRedraws; i++ {
		a, b, c := s.draw(), s.draw(), s.draw()
		x1, x2, ok := QuadraticRoots(a, b, c)
		if !ok {
			continue
		}
		return nn.Example{
			Inputs:  []float32{float32(a), float32(b), float32(c)},
			Targets: []float32{float32(x1), float32(x2)},
		}, nil
	}
	return nn.Example{}, errors.Wrapf(ErrNoRealRoots, "[%d, %d) after %d draws", s.Lo, s.Hi, maxRedraws)
}

// QuadraticRoots returns the real roots of a*x^2 + b*x + c, smaller first.
// ok is false when a is zero or the discriminant is negative.
func QuadraticRoots(a, b, c float64) (x1, x2 float64, ok bool) {
	if a == 0 {
		return 0, 0, false
	}
	d := b*b - 4*a*c
	if d < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(d)
	x1 = (-b - sq) / (2 * a)
	x2 = (-b + sq) / (2 * a)
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	return x1, x2, true
}
