package nn

import (
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ErrEmptyEvaluation is returned when there is nothing to evaluate.
var ErrEmptyEvaluation = errors.New("no examples to evaluate")

// DeviationBucket represents a range of relative deviation in percent
type DeviationBucket struct {
	Name     string  `json:"name"`
	RangeMin float64 `json:"range_min"`
	RangeMax float64 `json:"range_max"`
	Count    int     `json:"count"`
}

// PredictionResult is the evaluation of one output of one example
type PredictionResult struct {
	SampleIndex int     `json:"sample_index"`
	OutputID    string  `json:"output_id"`
	Expected    float32 `json:"expected"`
	Actual      float32 `json:"actual"`
	Loss        float32 `json:"loss"`      // signed relative error
	Deviation   float64 `json:"deviation"` // |loss| in percent
	Bucket      string  `json:"bucket"`
}

// EvaluationResult stores the performance breakdown over a set of examples
type EvaluationResult struct {
	TotalSamples     int                `json:"total_samples"`
	MeanLoss         float64            `json:"mean_loss"`
	MaxAbsLoss       float64            `json:"max_abs_loss"`
	AverageDeviation float64            `json:"avg_deviation"`
	Failures         int                `json:"failures"` // deviation of 100% or more
	Buckets          []DeviationBucket  `json:"buckets"`
	PerOutputMean    map[string]float64 `json:"per_output_mean"`
	Results          []PredictionResult `json:"results"`
}

func newDeviationBuckets() []DeviationBucket {
	return []DeviationBucket{
		{"0-10%", 0, 10, 0},
		{"10-20%", 10, 20, 0},
		{"20-30%", 20, 30, 0},
		{"30-40%", 30, 40, 0},
		{"40-50%", 40, 50, 0},
		{"50-100%", 50, 100, 0},
		{"100%+", 100, math.Inf(1), 0},
	}
}

func bucketFor(buckets []DeviationBucket, deviation float64) int {
	for i, b := range buckets {
		if deviation <= b.RangeMax {
			return i
		}
	}
	return len(buckets) - 1
}

// EvaluateNetwork runs a forward pass per example on a copy of the network and
// aggregates the signed relative loss of every output neuron. The network
// itself is not modified.
func EvaluateNetwork(n *Network, examples []Example) (*EvaluationResult, error) {
	if len(examples) == 0 {
		return nil, ErrEmptyEvaluation
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	eval := n.Clone()
	outputs := eval.OutputLayer().Active()
	result := &EvaluationResult{
		Buckets:       newDeviationBuckets(),
		PerOutputMean: make(map[string]float64, len(outputs)),
	}

	losses := make([]float64, 0, len(examples)*len(outputs))
	deviations := make([]float64, 0, len(examples)*len(outputs))
	perOutput := make([][]float64, len(outputs))

	for i, ex := range examples {
		if err := eval.SetInputs(ex.Inputs); err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
		if len(ex.Targets) != len(outputs) {
			return nil, errors.Wrapf(ErrInputSize, "example %d has %d targets for %d outputs", i, len(ex.Targets), len(outputs))
		}
		eval.Forward()

		for j, out := range outputs {
			loss := Loss(ex.Targets[j], out.Output)
			deviation := math.Abs(float64(loss)) * 100
			if math.IsNaN(deviation) || math.IsInf(deviation, 0) {
				deviation = math.Inf(1)
			}
			b := bucketFor(result.Buckets, deviation)
			result.Buckets[b].Count++
			if deviation >= 100 {
				result.Failures++
			}

			result.Results = append(result.Results, PredictionResult{
				SampleIndex: i,
				OutputID:    out.ID,
				Expected:    ex.Targets[j],
				Actual:      out.Output,
				Loss:        loss,
				Deviation:   deviation,
				Bucket:      result.Buckets[b].Name,
			})
			losses = append(losses, float64(loss))
			deviations = append(deviations, deviation)
			perOutput[j] = append(perOutput[j], float64(loss))
		}
	}

	result.TotalSamples = len(losses)
	result.MeanLoss = floats.Sum(losses) / float64(len(losses))
	result.MaxAbsLoss = math.Max(math.Abs(floats.Max(losses)), math.Abs(floats.Min(losses)))
	result.AverageDeviation = floats.Sum(deviations) / float64(len(deviations))
	for j, out := range outputs {
		result.PerOutputMean[out.ID] = floats.Sum(perOutput[j]) / float64(len(perOutput[j]))
	}
	return result, nil
}

// WorstSamples returns the n results with the highest deviation.
func (r *EvaluationResult) WorstSamples(n int) []PredictionResult {
	if n > len(r.Results) {
		n = len(r.Results)
	}
	deviations := make([]float64, len(r.Results))
	for i, res := range r.Results {
		deviations[i] = res.Deviation
	}
	order := make([]int, len(deviations))
	floats.Argsort(deviations, order) // ascending

	worst := make([]PredictionResult, 0, n)
	for i := len(order) - 1; i >= 0 && len(worst) < n; i-- {
		worst = append(worst, r.Results[order[i]])
	}
	return worst
}

// PrintSummary prints a human-readable summary of the evaluation
func (r *EvaluationResult) PrintSummary() {
	fmt.Printf("\n=== Network Evaluation Summary ===\n")
	fmt.Printf("Total Samples: %d\n", r.TotalSamples)
	fmt.Printf("Mean Loss: %+.4f\n", r.MeanLoss)
	fmt.Printf("Max |Loss|: %.4f\n", r.MaxAbsLoss)
	fmt.Printf("Average Deviation: %.2f%%\n", r.AverageDeviation)
	if r.TotalSamples > 0 {
		fmt.Printf("Failures (>=100%% deviation): %d (%.1f%%)\n", r.Failures, float64(r.Failures)/float64(r.TotalSamples)*100)
	}

	fmt.Printf("\nDeviation Distribution:\n")
	for _, bucket := range r.Buckets {
		percentage := 0.0
		if r.TotalSamples > 0 {
			percentage = float64(bucket.Count) / float64(r.TotalSamples) * 100
		}
		bar := strings.Repeat("█", int(percentage/2))
		fmt.Printf("  %8s: %4d samples (%.1f%%) %s\n", bucket.Name, bucket.Count, percentage, bar)
	}
	fmt.Println()
}
