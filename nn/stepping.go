package nn

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// RunMode governs whether training advances automatically, one phase at a
// time, or not at all.
type RunMode int

const (
	ModePause    RunMode = 0 // block at every boundary until Play or Step
	ModeStepping RunMode = 1 // advance one phase per Step event (or per elapsed StepWait)
	ModeRunning  RunMode = 2 // never block, poll for events once per phase
)

func (m RunMode) String() string {
	switch m {
	case ModePause:
		return "pause"
	case ModeStepping:
		return "stepping"
	case ModeRunning:
		return "running"
	default:
		return "unknown"
	}
}

// ParseRunMode accepts pause, step/stepping and run/running/play.
func ParseRunMode(s string) (RunMode, error) {
	switch s {
	case "pause":
		return ModePause, nil
	case "step", "stepping":
		return ModeStepping, nil
	case "run", "running", "play":
		return ModeRunning, nil
	default:
		return ModePause, errors.Errorf("unknown run mode %q", s)
	}
}

// Event is a control request sent by an observer.
type Event int

const (
	EventPauseRequested    Event = 0
	EventSteppingRequested Event = 1
	EventPlayRequested     Event = 2
)

func (e Event) String() string {
	switch e {
	case EventPauseRequested:
		return "pause"
	case EventSteppingRequested:
		return "step"
	case EventPlayRequested:
		return "play"
	default:
		return "unknown"
	}
}

// Phase names the boundary at which a snapshot was taken.
type Phase string

const (
	PhaseStart    Phase = "start"
	PhaseForward  Phase = "forward"
	PhaseBackward Phase = "backward"
)

// Example is one labeled training sample.
type Example struct {
	Inputs  []float32 `json:"inputs"`
	Targets []float32 `json:"targets"`
}

// ExampleSource yields the example used by the next training cycle.
type ExampleSource interface {
	Next() (Example, error)
}

// ExecutionState is the controller-owned state published with every snapshot.
type ExecutionState struct {
	RunID        string
	Iteration    int
	Mode         RunMode
	Phase        Phase
	LearningRate float32
	LastError    float32 // largest |error| seeded into the output layer
}

// ControllerConfig holds configuration for a stepping training run
type ControllerConfig struct {
	LearningRate    float32
	DecayRate       float32       // multiplicative decay per iteration
	MinLearningRate float32       // decay stops once the rate is at or below this
	ErrorThreshold  float32       // stop when every seeded |error| is below this
	MaxIterations   int           // 0 = unbounded
	StepWait        time.Duration // wake-up interval while paused or stepping
	FrameInterval   time.Duration // minimum time between timed snapshots
	InitialMode     RunMode
	Scheduler       LRScheduler // optional; overrides LearningRate/DecayRate/MinLearningRate
	Verbose         bool
	LogEvery        int // log progress every N iterations when Verbose
}

// DefaultControllerConfig returns sensible defaults
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		LearningRate:    0.1,
		DecayRate:       0.999,
		MinLearningRate: 0.001,
		ErrorThreshold:  0.1,
		MaxIterations:   0,
		StepWait:        time.Second,
		FrameInterval:   time.Second / 20,
		InitialMode:     ModePause,
		Verbose:         false,
		LogEvery:        100,
	}
}

// RunResult contains statistics of a finished run
type RunResult struct {
	RunID        string
	Iterations   int
	FinalError   float32
	LearningRate float32
	Converged    bool
	TotalTime    time.Duration
}

// Controller drives forward/backward cycles over a network and arbitrates the
// run mode against control events. The network is owned by the goroutine
// calling Run; observers only see snapshots.
type Controller struct {
	net       *Network
	source    ExampleSource
	events    <-chan Event
	publisher *SnapshotPublisher
	scheduler LRScheduler
	config    *ControllerConfig

	// state is written only by the Run goroutine; mu lets State() read it.
	mu    sync.RWMutex
	state ExecutionState
}

// NewController validates its inputs and prepares a run. events may be nil
// when no observer can send control requests; the run then starts Running.
func NewController(net *Network, source ExampleSource, events <-chan Event, sink SnapshotSink, config *ControllerConfig) (*Controller, error) {
	if config == nil {
		config = DefaultControllerConfig()
	}
	if net == nil {
		return nil, errors.New("controller needs a network")
	}
	if err := net.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("controller needs an example source")
	}
	if config.StepWait <= 0 {
		return nil, errors.Errorf("step wait must be positive, got %v", config.StepWait)
	}

	scheduler := config.Scheduler
	if scheduler == nil {
		scheduler = NewFloorDecayScheduler(config.LearningRate, config.DecayRate, config.MinLearningRate)
	}

	mode := config.InitialMode
	if events == nil && mode != ModeRunning {
		log.Printf("no control channel, starting in %s mode instead of %s", ModeRunning, mode)
		mode = ModeRunning
	}

	return &Controller{
		net:       net,
		source:    source,
		events:    events,
		publisher: NewSnapshotPublisher(sink, config.FrameInterval),
		scheduler: scheduler,
		config:    config,
		state: ExecutionState{
			RunID:        uuid.NewString(),
			Mode:         mode,
			Phase:        PhaseStart,
			LearningRate: scheduler.GetLR(0),
			LastError:    1.0,
		},
	}, nil
}

// State returns a copy of the current execution state.
func (c *Controller) State() ExecutionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Network returns the network being trained. It must not be touched while Run is active.
func (c *Controller) Network() *Network {
	return c.net
}

// Blueprint returns the topology of the network tagged with this run's id.
func (c *Controller) Blueprint() Blueprint {
	return ExtractBlueprint(c.net, c.state.RunID)
}

func (c *Controller) update(fn func(s *ExecutionState)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}

// Run trains until the seeded error drops below the threshold, MaxIterations
// is reached, ctx is done, or a fatal error occurs. A NaN or Inf anywhere in
// the network stops the run with an error wrapping ErrNumericInstability.
func (c *Controller) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := func(converged bool) *RunResult {
		s := c.State()
		return &RunResult{
			RunID:        s.RunID,
			Iterations:   s.Iteration,
			FinalError:   s.LastError,
			LearningRate: s.LearningRate,
			Converged:    converged,
			TotalTime:    time.Since(start),
		}
	}

	c.publisher.PublishNow(c.net, c.state)
	if err := c.hangOut(ctx); err != nil {
		return result(false), err
	}

	for {
		if c.config.MaxIterations > 0 && c.state.Iteration >= c.config.MaxIterations {
			return result(false), nil
		}
		converged, err := c.cycle(ctx)
		if err != nil {
			return result(false), err
		}
		if converged {
			if c.config.Verbose {
				log.Printf("converged after %d iterations (error %.5f)", c.state.Iteration, c.state.LastError)
			}
			return result(true), nil
		}
	}
}

// cycle runs one forward and one backward phase and reports convergence.
func (c *Controller) cycle(ctx context.Context) (bool, error) {
	example, err := c.source.Next()
	if err != nil {
		return false, errors.Wrap(err, "failed to fetch next example")
	}
	if err := c.net.SetInputs(example.Inputs); err != nil {
		return false, err
	}

	c.net.Forward()
	if err := c.checkFinite(); err != nil {
		return false, err
	}
	c.update(func(s *ExecutionState) { s.Phase = PhaseForward })
	c.publisher.PublishTimed(c.net, c.state)
	if err := c.hangOut(ctx); err != nil {
		return false, err
	}

	seeded, err := c.net.SeedErrors(example.Targets)
	if err != nil {
		return false, err
	}
	if err := c.checkFinite(); err != nil {
		return false, err
	}
	lastError := maxAbs(seeded)

	c.net.Backward(c.state.LearningRate)
	if err := c.checkFinite(); err != nil {
		return false, err
	}
	c.update(func(s *ExecutionState) {
		s.Phase = PhaseBackward
		s.LastError = lastError
	})
	c.publisher.PublishTimed(c.net, c.state)
	if err := c.hangOut(ctx); err != nil {
		return false, err
	}

	c.update(func(s *ExecutionState) {
		s.Iteration++
		s.LearningRate = c.scheduler.GetLR(s.Iteration)
	})

	if c.config.Verbose && c.config.LogEvery > 0 && c.state.Iteration%c.config.LogEvery == 0 {
		log.Printf("iteration %d: error=%.5f lr=%.5f outputs=%v",
			c.state.Iteration, lastError, c.state.LearningRate, c.net.Outputs())
	}

	return lastError < c.config.ErrorThreshold, nil
}

func (c *Controller) checkFinite() error {
	if err := c.net.CheckFinite(); err != nil {
		log.Printf("FATAL: iteration %d: %v", c.state.Iteration, err)
		return errors.Wrapf(err, "iteration %d", c.state.Iteration)
	}
	return nil
}

// hangOut is called at every phase boundary. Running polls once without
// blocking; Pause and Stepping wait for the observer. A frame dropped by the
// rate limit is sent before blocking, so a stepped phase is always visible.
func (c *Controller) hangOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.state.Mode == ModeRunning {
		select {
		case event, ok := <-c.events:
			if !ok {
				c.detachEvents()
				return nil
			}
			c.apply(event)
		default:
		}
		if c.state.Mode != ModePause {
			return nil
		}
	}
	c.publisher.Flush(c.net, c.state)
	return c.wait(ctx)
}

// wait blocks until an event lets the current phase complete. While paused
// the StepWait timer only wakes the loop; while stepping an elapsed StepWait
// counts as an implicit continue.
func (c *Controller) wait(ctx context.Context) error {
	timer := time.NewTimer(c.config.StepWait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-c.events:
			if !ok {
				c.detachEvents()
				return nil
			}
			if c.apply(event) && c.state.Mode != ModePause {
				return nil
			}

		case <-timer.C:
			if c.state.Mode == ModeStepping {
				return nil
			}
		}
		timer.Reset(c.config.StepWait)
	}
}

// apply switches the run mode. Entering (or re-requesting) Pause publishes
// immediately so the observer sees the paused state without waiting a frame.
func (c *Controller) apply(event Event) bool {
	switch event {
	case EventPauseRequested:
		c.update(func(s *ExecutionState) { s.Mode = ModePause })
		c.publisher.PublishNow(c.net, c.state)
	case EventSteppingRequested:
		c.update(func(s *ExecutionState) { s.Mode = ModeStepping })
	case EventPlayRequested:
		c.update(func(s *ExecutionState) { s.Mode = ModeRunning })
	default:
		log.Printf("ignoring unknown control event %d", int(event))
		return false
	}
	return true
}

// detachEvents handles an observer that closed its event channel. Nobody can
// resume a paused run any more, so training continues free-running.
func (c *Controller) detachEvents() {
	log.Printf("control channel closed, continuing in %s mode", ModeRunning)
	c.events = nil
	c.update(func(s *ExecutionState) { s.Mode = ModeRunning })
}
