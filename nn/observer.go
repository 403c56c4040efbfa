package nn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"
)

// NeuronValue is the live state of one non-dummy neuron.
type NeuronValue struct {
	ID    string  `json:"id"`
	Input float32 `json:"input"`
	Value float32 `json:"value"`
	Error float32 `json:"error"`
}

// LinkValue is the live weight of one non-dummy link, keyed "src->dst".
type LinkValue struct {
	ID    string  `json:"id"`
	Value float32 `json:"value"`
}

// Snapshot is an immutable copy of the engine state handed to observers.
type Snapshot struct {
	RunID          string        `json:"run_id"`
	Iteration      int           `json:"iteration"`
	Phase          Phase         `json:"phase"`
	LearningRate   float32       `json:"learning_rate"`
	Neurons        []NeuronValue `json:"neurons"`
	Links          []LinkValue   `json:"links"`
	PauseActive    bool          `json:"button_pause_active"`
	SteppingActive bool          `json:"button_stepping_active"`
	PlayActive     bool          `json:"button_play_active"`
}

// LinkID is the composite id of the link from source to target.
func LinkID(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// TakeSnapshot copies the network and execution state.
func TakeSnapshot(n *Network, state ExecutionState) Snapshot {
	snap := Snapshot{
		RunID:          state.RunID,
		Iteration:      state.Iteration,
		Phase:          state.Phase,
		LearningRate:   state.LearningRate,
		PauseActive:    state.Mode == ModePause,
		SteppingActive: state.Mode == ModeStepping,
		PlayActive:     state.Mode == ModeRunning,
	}
	for li := 0; li < n.LayersCount; li++ {
		for _, neuron := range n.Layers[li].Active() {
			snap.Neurons = append(snap.Neurons, NeuronValue{
				ID:    neuron.ID,
				Input: neuron.SumInput,
				Value: neuron.Output,
				Error: neuron.Error,
			})
			for _, link := range neuron.ActiveLinks() {
				snap.Links = append(snap.Links, LinkValue{
					ID:    LinkID(link.SourceID, neuron.ID),
					Value: link.Weight,
				})
			}
		}
	}
	return snap
}

// Neuron returns the value recorded for id.
func (s *Snapshot) Neuron(id string) (NeuronValue, bool) {
	for _, v := range s.Neurons {
		if v.ID == id {
			return v, true
		}
	}
	return NeuronValue{}, false
}

// Link returns the weight recorded for the "src->dst" id.
func (s *Snapshot) Link(id string) (LinkValue, bool) {
	for _, v := range s.Links {
		if v.ID == id {
			return v, true
		}
	}
	return LinkValue{}, false
}

// SnapshotSink receives published snapshots. Implementations must not block
// the training goroutine.
type SnapshotSink interface {
	OnSnapshot(snap Snapshot)
}

// =============================================================================
// Publisher
// =============================================================================

// SnapshotPublisher forwards snapshots to a sink at most once per interval.
// PublishNow bypasses the limit and restarts the interval.
type SnapshotPublisher struct {
	sink     SnapshotSink
	interval time.Duration
	lastSent time.Time
	pending  bool // a timed publish was suppressed since the last send
	now      func() time.Time
}

// NewSnapshotPublisher accepts a nil sink, including a nil pointer wrapped in
// the interface, and then publishes nothing.
func NewSnapshotPublisher(sink SnapshotSink, interval time.Duration) *SnapshotPublisher {
	if sink != nil {
		if v := reflect.ValueOf(sink); v.Kind() == reflect.Ptr && v.IsNil() {
			sink = nil
		}
	}
	p := &SnapshotPublisher{
		sink:     sink,
		interval: interval,
		now:      time.Now,
	}
	// first timed publish goes out immediately
	p.lastSent = p.now().Add(-interval)
	return p
}

// PublishTimed publishes unless the previous publish was less than an interval ago.
// It reports whether the snapshot went out.
func (p *SnapshotPublisher) PublishTimed(n *Network, state ExecutionState) bool {
	if p.now().Sub(p.lastSent) < p.interval {
		p.pending = true
		return false
	}
	p.PublishNow(n, state)
	return true
}

// Flush publishes the current state if the last timed publish was suppressed.
// It reports whether a snapshot went out.
func (p *SnapshotPublisher) Flush(n *Network, state ExecutionState) bool {
	if !p.pending {
		return false
	}
	p.PublishNow(n, state)
	return true
}

// PublishNow publishes unconditionally.
func (p *SnapshotPublisher) PublishNow(n *Network, state ExecutionState) {
	if p.sink != nil {
		p.sink.OnSnapshot(TakeSnapshot(n, state))
	}
	p.lastSent = p.now()
	p.pending = false
}

// =============================================================================
// Sink Implementations
// =============================================================================

// ChannelSink sends snapshots to a bounded Go channel and drops them when the
// consumer lags behind.
type ChannelSink struct {
	Snapshots chan Snapshot

	mu      sync.Mutex
	dropped int
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{
		Snapshots: make(chan Snapshot, bufferSize),
	}
}

func (s *ChannelSink) OnSnapshot(snap Snapshot) {
	select {
	case s.Snapshots <- snap:
	default:
		// Channel full, drop snapshot to avoid blocking
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
	}
}

// Dropped returns how many snapshots were discarded because the buffer was full.
func (s *ChannelSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// ConsoleSink prints one line per snapshot to stdout
type ConsoleSink struct {
	Verbose bool // If true, print every neuron and link (can be long!)
}

func (s *ConsoleSink) OnSnapshot(snap Snapshot) {
	mode := "pause"
	switch {
	case snap.SteppingActive:
		mode = "step"
	case snap.PlayActive:
		mode = "play"
	}
	fmt.Printf("[%s] iter=%d phase=%s lr=%.5f", mode, snap.Iteration, snap.Phase, snap.LearningRate)
	if len(snap.Neurons) > 0 {
		last := snap.Neurons[len(snap.Neurons)-1]
		fmt.Printf(" %s=%.4f err=%.4f", last.ID, last.Value, last.Error)
	}
	fmt.Println()

	if s.Verbose {
		for _, v := range snap.Neurons {
			fmt.Printf("       %-4s sum=%9.4f out=%9.4f err=%9.4f\n", v.ID, v.Input, v.Value, v.Error)
		}
		for _, l := range snap.Links {
			fmt.Printf("       %-10s w=%9.4f\n", l.ID, l.Value)
		}
	}
}

// HTTPSink posts snapshots as JSON to an endpoint (for visualization)
type HTTPSink struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		URL:     url,
		Timeout: 100 * time.Millisecond,
		client: &http.Client{
			Timeout: 100 * time.Millisecond,
		},
	}
}

func (s *HTTPSink) OnSnapshot(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}

	// Fire and forget
	go func() {
		resp, err := s.client.Post(s.URL, "application/json", bytes.NewReader(data))
		if err == nil && resp != nil {
			resp.Body.Close()
		}
	}()
}

// MultiSink fans a snapshot out to several sinks.
type MultiSink []SnapshotSink

func (m MultiSink) OnSnapshot(snap Snapshot) {
	for _, s := range m {
		s.OnSnapshot(snap)
	}
}
