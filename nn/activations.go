package nn

import (
	"github.com/chewxy/math32"
)

// ActivationType selects the scalar function applied by a neuron
type ActivationType int

const (
	ActivationNone    ActivationType = 0 // identity, used by input neurons and dummies
	ActivationSigmoid ActivationType = 1 // 1 / (1 + exp(-v))
	ActivationSquare  ActivationType = 2 // v * v
	ActivationSqrt    ActivationType = 3 // sqrt(v) for v > 0, else 0
	ActivationLinear  ActivationType = 4 // v
	ActivationRelu    ActivationType = 5 // max(0, v)
)

// Activate applies the activation function. Unknown tags pass v through.
func Activate(activation ActivationType, v float32) float32 {
	switch activation {
	case ActivationSigmoid:
		return sigmoid(v)
	case ActivationSquare:
		return v * v
	case ActivationSqrt:
		if v <= 0 {
			return 0
		}
		return math32.Sqrt(v)
	case ActivationLinear:
		return v
	case ActivationRelu:
		if v < 0 {
			return 0
		}
		return v
	default:
		return v
	}
}

// ActivateDerivative computes the derivative with respect to the PRE-activation value.
// Unknown tags are treated as linear.
func ActivateDerivative(activation ActivationType, preActivation float32) float32 {
	switch activation {
	case ActivationSigmoid:
		s := sigmoid(preActivation)
		return s * (1.0 - s)
	case ActivationSquare:
		return 2.0 * preActivation
	case ActivationSqrt:
		// sub-gradient 0 at and below the boundary
		if preActivation <= 0 {
			return 0
		}
		return 0.5 / math32.Sqrt(preActivation)
	case ActivationLinear:
		return 1.0
	case ActivationRelu:
		if preActivation > 0 {
			return 1.0
		}
		return 0
	default:
		return 1.0
	}
}

func sigmoid(v float32) float32 {
	return 1.0 / (1.0 + math32.Exp(-v))
}

func (a ActivationType) String() string {
	switch a {
	case ActivationNone:
		return "None"
	case ActivationSigmoid:
		return "Sigmoid"
	case ActivationSquare:
		return "Square"
	case ActivationSqrt:
		return "Sqrt"
	case ActivationLinear:
		return "Linear"
	case ActivationRelu:
		return "Relu"
	default:
		return "None"
	}
}

// ParseActivation maps a snapshot tag to an ActivationType.
// Unrecognized names fall back to None so that training never halts on them.
func ParseActivation(s string) ActivationType {
	switch s {
	case "Sigmoid", "sigmoid":
		return ActivationSigmoid
	case "Square", "square":
		return ActivationSquare
	case "Sqrt", "sqrt":
		return ActivationSqrt
	case "Linear", "linear":
		return ActivationLinear
	case "Relu", "relu":
		return ActivationRelu
	default:
		return ActivationNone
	}
}
