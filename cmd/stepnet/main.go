package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/openfluke/stepnet/dataset"
	"github.com/openfluke/stepnet/nn"
)

const (
	networkEndpoint  = "/network"
	snapshotEndpoint = "/events"
)

type options struct {
	network    string
	builtin    string
	data       string
	dataFormat string
	sampler    string
	schedule   string
	seed       int64
	lr         float64
	threshold  float64
	maxIter    int
	frame      time.Duration
	stepWait   time.Duration
	mode       string
	vizURL     string
	quiet      bool
	verbose    bool
	save       string
	eval       int
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.network, "network", "", "Network snapshot to load (default: builtin network)")
	flag.StringVar(&o.builtin, "builtin", "linear", "Builtin network: linear or quadratic")
	flag.StringVar(&o.data, "data", "", "Recorded training set (JSON)")
	flag.StringVar(&o.dataFormat, "data-format", "recorded", "Format of -data: recorded or quadratic")
	flag.StringVar(&o.sampler, "sampler", "", "Sampler when no -data is given: linear, quadratic or fixed (default: matches the network)")
	flag.StringVar(&o.schedule, "schedule", "decay", "Learning rate schedule: decay or constant")
	flag.Int64Var(&o.seed, "seed", time.Now().UnixNano(), "Random seed")
	flag.Float64Var(&o.lr, "lr", 0.1, "Initial learning rate")
	flag.Float64Var(&o.threshold, "threshold", 0.1, "Stop once every output error is below this")
	flag.IntVar(&o.maxIter, "max-iter", 0, "Maximum iterations (0 = unbounded)")
	flag.DurationVar(&o.frame, "frame", 50*time.Millisecond, "Minimum interval between snapshots")
	flag.DurationVar(&o.stepWait, "step-wait", time.Second, "Auto-step interval in step mode")
	flag.StringVar(&o.mode, "mode", "pause", "Initial mode: pause, step or run")
	flag.StringVar(&o.vizURL, "viz-url", "", "Visualization server base URL (e.g. http://localhost:8080)")
	flag.BoolVar(&o.quiet, "quiet", false, "Do not print snapshots")
	flag.BoolVar(&o.verbose, "v", false, "Print every neuron and link in snapshots")
	flag.StringVar(&o.save, "save", "", "Write the trained network to this file")
	flag.IntVar(&o.eval, "eval", 20, "Examples to evaluate after training (0 = skip)")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()

	net, err := loadNetwork(o)
	if err != nil {
		log.Fatalf("Failed to load network: %v", err)
	}
	if o.sampler == "" {
		o.sampler = defaultSampler(net)
	}
	source, err := buildSource(o)
	if err != nil {
		log.Fatalf("Failed to build example source: %v", err)
	}
	if err := dataset.CheckShape(net, source); err != nil {
		log.Fatalf("Examples do not fit the network: %v", err)
	}
	mode, err := nn.ParseRunMode(o.mode)
	if err != nil {
		log.Fatalf("Invalid -mode: %v", err)
	}

	var sinks nn.MultiSink
	if !o.quiet {
		sinks = append(sinks, &nn.ConsoleSink{Verbose: o.verbose})
	}
	if o.vizURL != "" {
		sinks = append(sinks, nn.NewHTTPSink(strings.TrimRight(o.vizURL, "/")+snapshotEndpoint))
	}

	events := make(chan nn.Event, 8)
	go readKeys(os.Stdin, events)

	config := nn.DefaultControllerConfig()
	config.LearningRate = float32(o.lr)
	config.ErrorThreshold = float32(o.threshold)
	config.MaxIterations = o.maxIter
	config.FrameInterval = o.frame
	config.StepWait = o.stepWait
	config.InitialMode = mode
	config.Verbose = true
	config.LogEvery = 1000
	if config.Scheduler, err = nn.NewNamedScheduler(o.schedule, config); err != nil {
		log.Fatalf("Invalid -schedule: %v", err)
	}

	ctrl, err := nn.NewController(net, source, events, sinks, config)
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	blueprint := ctrl.Blueprint()
	bpJSON, err := json.MarshalIndent(blueprint, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode blueprint: %v", err)
	}
	fmt.Println("=== Network Blueprint ===")
	fmt.Println(string(bpJSON))
	if o.vizURL != "" {
		if err := postBlueprint(strings.TrimRight(o.vizURL, "/")+networkEndpoint, bpJSON); err != nil {
			log.Printf("visualization server unavailable: %v", err)
		}
	}
	fmt.Printf("\nControls: p + Enter = pause, s + Enter = step, r + Enter = run (mode: %s)\n\n", ctrl.State().Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ctrl.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Training failed: %v", err)
	}

	fmt.Printf("\n=== Run %s ===\n", result.RunID)
	fmt.Printf("Iterations: %d\n", result.Iterations)
	fmt.Printf("Final error: %.5f\n", result.FinalError)
	fmt.Printf("Learning rate: %.5f\n", result.LearningRate)
	fmt.Printf("Converged: %v\n", result.Converged)
	fmt.Printf("Time: %v\n", result.TotalTime)

	if o.eval > 0 {
		if err := evaluate(ctrl.Network(), o); err != nil {
			log.Printf("evaluation skipped: %v", err)
		}
	}

	if o.save != "" {
		if err := ctrl.Network().SaveNetwork(o.save); err != nil {
			log.Fatalf("Failed to save network: %v", err)
		}
		fmt.Printf("Saved network to %s\n", o.save)
	}
}

func loadNetwork(o options) (*nn.Network, error) {
	if o.network != "" {
		return nn.LoadNetwork(o.network)
	}
	return nn.BuildNamedNetwork(o.builtin)
}

func buildSource(o options) (nn.ExampleSource, error) {
	if o.data != "" {
		switch o.dataFormat {
		case "recorded":
			return dataset.LoadRecordedSet(o.data, o.seed)
		case "quadratic":
			return dataset.LoadQuadraticSet(o.data, o.seed)
		default:
			return nil, errors.Errorf("unknown -data-format %q", o.dataFormat)
		}
	}

	switch o.sampler {
	case "linear":
		return dataset.NewLinearSampler(o.seed, -10, 10), nil
	case "quadratic":
		return dataset.NewQuadraticSampler(o.seed, -10, 10), nil
	case "fixed":
		example, err := dataset.NewLinearSampler(o.seed, -10, 10).Next()
		if err != nil {
			return nil, err
		}
		fmt.Printf("Fixed example: inputs=%v targets=%v\n", example.Inputs, example.Targets)
		return dataset.Repeat(example), nil
	default:
		return nil, errors.Errorf("unknown -sampler %q", o.sampler)
	}
}

// defaultSampler picks the sampler whose examples fit the network: two
// outputs means the quadratic roots task, anything else the linear one.
func defaultSampler(net *nn.Network) string {
	if len(net.OutputLayer().Active()) == 2 {
		return "quadratic"
	}
	return "linear"
}

// evaluate draws a fresh batch from the configured source, or uses the whole
// recorded set, and prints the deviation summary.
func evaluate(net *nn.Network, o options) error {
	o.seed++
	source, err := buildSource(o)
	if err != nil {
		return err
	}
	var examples []nn.Example
	if set, ok := source.(*dataset.RecordedSet); ok {
		examples = set.Examples()
	} else if examples, err = dataset.Take(source, o.eval); err != nil {
		return err
	}

	result, err := nn.EvaluateNetwork(net, examples)
	if err != nil {
		return err
	}
	result.PrintSummary()
	for _, r := range result.WorstSamples(3) {
		fmt.Printf("  worst: sample %d %s expected=%.4f actual=%.4f loss=%+.4f\n",
			r.SampleIndex, r.OutputID, r.Expected, r.Actual, r.Loss)
	}
	return nil
}

// readKeys turns p/s/r lines on r into control events and closes events at EOF.
func readKeys(r io.Reader, events chan<- nn.Event) {
	defer close(events)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if line == "" {
			continue
		}
		switch line[0] {
		case 'p':
			events <- nn.EventPauseRequested
		case 's':
			events <- nn.EventSteppingRequested
		case 'r':
			events <- nn.EventPlayRequested
		default:
			fmt.Printf("unknown command %q (p = pause, s = step, r = run)\n", line)
		}
	}
}

func postBlueprint(url string, body []byte) error {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("server responded %s", resp.Status)
	}
	return nil
}
