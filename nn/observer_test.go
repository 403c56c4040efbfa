package nn

import (
	"testing"
	"time"
)

type countingSink struct {
	snaps []Snapshot
}

func (s *countingSink) OnSnapshot(snap Snapshot) {
	s.snaps = append(s.snaps, snap)
}

func TestTakeSnapshot(t *testing.T) {
	n := chain(0.5, 0.25)
	n.SetInputs([]float32{2})
	n.Forward()

	snap := TakeSnapshot(n, ExecutionState{RunID: "r", Iteration: 3, Mode: ModeStepping, Phase: PhaseForward})
	if len(snap.Neurons) != 3 || len(snap.Links) != 2 {
		t.Fatalf("expected 3 neurons and 2 links, got %d and %d", len(snap.Neurons), len(snap.Links))
	}
	if y, ok := snap.Neuron("y"); !ok || y.Value != 0.25 || y.Input != 0.25 {
		t.Errorf("y = %+v", y)
	}
	if l, ok := snap.Link("h->y"); !ok || l.Value != 0.25 {
		t.Errorf("h->y = %+v", l)
	}
	if snap.PauseActive || !snap.SteppingActive || snap.PlayActive {
		t.Errorf("mode flags wrong: %+v", snap)
	}
	if snap.Iteration != 3 || snap.Phase != PhaseForward {
		t.Errorf("state not copied: iter=%d phase=%s", snap.Iteration, snap.Phase)
	}

	// the snapshot must not alias the network
	n.Layers[2].Neurons[0].Output = 99
	if y, _ := snap.Neuron("y"); y.Value == 99 {
		t.Error("snapshot aliases the network")
	}
}

// TestPublisherRateLimit drives the publisher with a fake clock: 100 timed
// publishes 10ms apart against a 50ms interval.
func TestPublisherRateLimit(t *testing.T) {
	sink := &countingSink{}
	p := NewSnapshotPublisher(sink, 50*time.Millisecond)
	clock := time.Unix(1000, 0)
	p.now = func() time.Time { return clock }
	p.lastSent = clock.Add(-50 * time.Millisecond)

	n := chain(1, 1)
	sent := 0
	for i := 0; i < 100; i++ {
		if p.PublishTimed(n, ExecutionState{Iteration: i}) {
			sent++
		}
		clock = clock.Add(10 * time.Millisecond)
	}
	if sent != 20 || len(sink.snaps) != 20 {
		t.Errorf("expected 20 publishes over 1s, got %d (sink %d)", sent, len(sink.snaps))
	}
	if sink.snaps[0].Iteration != 0 {
		t.Errorf("first timed publish should go out immediately, got iteration %d", sink.snaps[0].Iteration)
	}

	p.PublishNow(n, ExecutionState{Iteration: 500})
	if p.PublishTimed(n, ExecutionState{Iteration: 501}) {
		t.Error("PublishNow should restart the interval")
	}
	if len(sink.snaps) != 21 {
		t.Errorf("PublishNow must bypass the limit, sink has %d", len(sink.snaps))
	}
}

func TestPublisherFlush(t *testing.T) {
	sink := &countingSink{}
	p := NewSnapshotPublisher(sink, time.Hour)
	n := chain(1, 1)

	if p.Flush(n, ExecutionState{}) {
		t.Error("nothing was suppressed, Flush should be a no-op")
	}
	if !p.PublishTimed(n, ExecutionState{Iteration: 1}) {
		t.Fatal("first timed publish should go out")
	}
	if p.PublishTimed(n, ExecutionState{Iteration: 2}) {
		t.Fatal("second timed publish should be rate limited")
	}
	if !p.Flush(n, ExecutionState{Iteration: 2}) {
		t.Error("suppressed frame was not flushed")
	}
	if p.Flush(n, ExecutionState{Iteration: 2}) {
		t.Error("a frame must be flushed only once")
	}
	if len(sink.snaps) != 2 || sink.snaps[1].Iteration != 2 {
		t.Errorf("sink got %d snapshots", len(sink.snaps))
	}
}

func TestPublisherTypedNilSink(t *testing.T) {
	var sink *ChannelSink
	p := NewSnapshotPublisher(sink, 0)
	p.PublishNow(chain(1, 1), ExecutionState{})
	p.PublishTimed(chain(1, 1), ExecutionState{})
}

func TestChannelSinkDrops(t *testing.T) {
	sink := NewChannelSink(2)
	for i := 0; i < 5; i++ {
		sink.OnSnapshot(Snapshot{Iteration: i})
	}
	if len(sink.Snapshots) != 2 {
		t.Errorf("buffer holds %d snapshots, want 2", len(sink.Snapshots))
	}
	if sink.Dropped() != 3 {
		t.Errorf("dropped = %d, want 3", sink.Dropped())
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	MultiSink{a, b}.OnSnapshot(Snapshot{Iteration: 1})
	if len(a.snaps) != 1 || len(b.snaps) != 1 {
		t.Errorf("fan-out failed: %d %d", len(a.snaps), len(b.snaps))
	}
}

func TestExtractBlueprint(t *testing.T) {
	bp := ExtractBlueprint(BuildLinearNetwork(), "run-1")
	if bp.LayersCount != 3 || len(bp.Layers) != 3 {
		t.Fatalf("layers = %d/%d", bp.LayersCount, len(bp.Layers))
	}
	if bp.TotalParams != 16 || len(bp.Links) != 16 {
		t.Errorf("expected 16 links, got %d (%d ids)", bp.TotalParams, len(bp.Links))
	}
	ids := bp.NeuronIDs()
	want := []string{"k", "x", "b", "m1", "m2", "m3", "m4", "y"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("id %d = %s, want %s", i, ids[i], want[i])
		}
	}
	if bp.Layers[1].Neurons[1].Activation != "Square" {
		t.Errorf("m2 activation = %s", bp.Layers[1].Neurons[1].Activation)
	}
}
