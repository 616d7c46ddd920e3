// ABOUTME: Tests for the playback pipeline lifecycle and drain loop
// ABOUTME: Uses in-memory sinks to exercise ordering, catch-up, and faults
package pipeline

import (
	"bytes"
	"errors"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LiveTranslate/livetranslate-go/pkg/audio/output"
)

// memorySink records written PCM. A non-nil gate makes every Write wait
// until the gate is closed, letting tests build a backlog.
type memorySink struct {
	mu      sync.Mutex
	opened  bool
	data    []byte
	writes  int
	delay   time.Duration
	gate    chan struct{}
	failErr error
}

func (s *memorySink) Open(sampleRate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *memorySink) Write(pcm []byte) error {
	if s.gate != nil {
		<-s.gate
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return output.ErrNotOpen
	}
	if s.failErr != nil {
		return s.failErr
	}
	s.data = append(s.data, pcm...)
	s.writes++
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = false
	return nil
}

func (s *memorySink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// stepSink blocks every Write on a permit so tests can advance the
// drain loop one write at a time and observe the mode of each cycle.
type stepSink struct {
	mu      sync.Mutex
	writes  []int
	permits chan struct{}
	blocked atomic.Int32
}

func (s *stepSink) Open(sampleRate, channels int) error { return nil }

func (s *stepSink) Write(pcm []byte) error {
	s.blocked.Add(1)
	<-s.permits
	s.blocked.Add(-1)
	s.mu.Lock()
	s.writes = append(s.writes, len(pcm))
	s.mu.Unlock()
	return nil
}

func (s *stepSink) Close() error { return nil }

func (s *stepSink) sizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.writes))
	copy(out, s.writes)
	return out
}

// stubScaler records the speeds it was asked for and passes audio
// through, or fails every call when fail is set.
type stubScaler struct {
	mu     sync.Mutex
	speeds []float64
	fail   bool
}

func (s *stubScaler) Process(pcm []byte, speed float64) ([]byte, error) {
	s.mu.Lock()
	s.speeds = append(s.speeds, speed)
	s.mu.Unlock()
	if s.fail {
		return nil, errors.New("scaler failure")
	}
	return pcm, nil
}

func (s *stubScaler) calls() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.speeds))
	copy(out, s.speeds)
	return out
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NativeRate = 8000
	cfg.SinkRate = 8000
	cfg.Channels = 1
	cfg.QueueCapacity = 16
	cfg.QueueThreshold = 4
	cfg.TargetCatchupSec = 1
	cfg.MaxBatchChunks = 8
	cfg.HysteresisMargin = 2
	cfg.PushWaitMs = 100
	return cfg
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestPipelineLifecycle(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), sink, &stubScaler{}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if p.State() != StateStopped {
		t.Errorf("initial state = %s, want stopped", p.State())
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if p.State() != StateRunning {
		t.Errorf("state after Start = %s, want running", p.State())
	}
	if err := p.Start(); err == nil {
		t.Error("second Start succeeded, want error")
	}

	p.Stop()
	if p.State() != StateStopped {
		t.Errorf("state after Stop = %s, want stopped", p.State())
	}
	p.Stop() // idempotent
}

func TestPipelineInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.QueueCapacity = 0
	if _, err := New(cfg, &memorySink{}, &stubScaler{}, quietLogger()); err == nil {
		t.Error("New accepted zero queue_capacity")
	}
}

func TestPipelinePlaysInOrder(t *testing.T) {
	sink := &memorySink{}
	p, err := New(testConfig(), sink, &stubScaler{}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	var want []byte
	for i := 0; i < 3; i++ {
		chunk := []byte{byte(i), byte(i + 10)}
		want = append(want, chunk...)
		if !p.PushChunk(chunk) {
			t.Fatalf("PushChunk %d failed", i)
		}
	}

	waitUntil(t, 2*time.Second, func() bool {
		return len(sink.bytes()) == len(want)
	})
	if got := sink.bytes(); !bytes.Equal(got, want) {
		t.Errorf("sink received %v, want %v", got, want)
	}
	if stats := p.Stats(); stats.Received != 3 {
		t.Errorf("Received = %d, want 3", stats.Received)
	}
}

func TestPipelineCatchupEngagesScaler(t *testing.T) {
	gate := make(chan struct{})
	sink := &memorySink{gate: gate}
	scaler := &stubScaler{}
	p, err := New(testConfig(), sink, scaler, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	// First chunk occupies the blocked write while the rest build a
	// backlog past the threshold.
	var want []byte
	for i := 0; i < 9; i++ {
		chunk := []byte{byte(i), byte(i)}
		want = append(want, chunk...)
		if !p.PushChunk(chunk) {
			t.Fatalf("PushChunk %d failed", i)
		}
	}
	waitUntil(t, 2*time.Second, func() bool { return p.queue.Load().Depth() >= 8 })
	close(gate)

	waitUntil(t, 2*time.Second, func() bool {
		return len(sink.bytes()) == len(want)
	})
	if got := sink.bytes(); !bytes.Equal(got, want) {
		t.Errorf("sink received %v, want %v", got, want)
	}

	calls := scaler.calls()
	if len(calls) == 0 {
		t.Fatal("scaler never invoked despite backlog past threshold")
	}
	for _, speed := range calls {
		if speed <= speedEngageGate || speed > 2.0 {
			t.Errorf("scaler invoked with speed %v, want (1.01, 2.0]", speed)
		}
	}
	if stats := p.Stats(); stats.Speedups == 0 {
		t.Error("Speedups = 0, want > 0")
	}
}

func TestPipelineHysteresisHoldsCatchup(t *testing.T) {
	sink := &stepSink{permits: make(chan struct{})}
	scaler := &stubScaler{}
	cfg := testConfig()
	cfg.QueueThreshold = 4
	cfg.HysteresisMargin = 2
	cfg.MaxBatchChunks = 2
	p, err := New(cfg, sink, scaler, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()
	defer close(sink.permits) // unblock the sink before Stop joins the drain loop

	// The first chunk occupies the blocked write; five more leave the
	// queue at depth 5, past the threshold.
	p.PushChunk([]byte{0, 0})
	waitUntil(t, 2*time.Second, func() bool { return sink.blocked.Load() == 1 })
	for i := 1; i < 6; i++ {
		if !p.PushChunk([]byte{byte(i), byte(i)}) {
			t.Fatalf("PushChunk %d failed", i)
		}
	}

	// Release one write per cycle: chunk 0, then a batch at depth 5,
	// then a batch at depth 3 (inside the hysteresis band), then a
	// single chunk once depth 1 falls below threshold minus margin.
	for i := 0; i < 4; i++ {
		sink.permits <- struct{}{}
		if i < 3 {
			waitUntil(t, 2*time.Second, func() bool { return sink.blocked.Load() == 1 })
		}
	}
	waitUntil(t, 2*time.Second, func() bool { return len(sink.sizes()) == 4 })

	wantSizes := []int{2, 4, 4, 2}
	gotSizes := sink.sizes()
	for i, want := range wantSizes {
		if gotSizes[i] != want {
			t.Errorf("write %d = %d bytes, want %d", i, gotSizes[i], want)
		}
	}

	calls := scaler.calls()
	wantSpeeds := []float64{1.5, 1.3}
	if len(calls) != len(wantSpeeds) {
		t.Fatalf("scaler invoked %d times (%v), want %d", len(calls), calls, len(wantSpeeds))
	}
	for i, want := range wantSpeeds {
		if math.Abs(calls[i]-want) > 1e-9 {
			t.Errorf("scaler call %d speed = %v, want %v", i, calls[i], want)
		}
	}
}

func TestPipelineScalerFailureFallsBack(t *testing.T) {
	gate := make(chan struct{})
	sink := &memorySink{gate: gate}
	scaler := &stubScaler{fail: true}
	p, err := New(testConfig(), sink, scaler, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	var want []byte
	for i := 0; i < 9; i++ {
		chunk := []byte{byte(i), byte(i)}
		want = append(want, chunk...)
		p.PushChunk(chunk)
	}
	waitUntil(t, 2*time.Second, func() bool { return p.queue.Load().Depth() >= 8 })
	close(gate)

	// The failed scaler must not lose audio: the raw batch plays.
	waitUntil(t, 2*time.Second, func() bool {
		return len(sink.bytes()) == len(want)
	})
	if got := sink.bytes(); !bytes.Equal(got, want) {
		t.Errorf("sink received %v, want unmodified %v", got, want)
	}
	if stats := p.Stats(); stats.TSMFallbacks == 0 {
		t.Error("TSMFallbacks = 0, want > 0")
	}
}

func TestPipelineSinkFaultTerminates(t *testing.T) {
	sink := &memorySink{failErr: output.ErrDeviceWrite}
	p, err := New(testConfig(), sink, &stubScaler{}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := p.Done()
	p.PushChunk([]byte{1, 2})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("drain loop did not terminate after sink fault")
	}
	if err := p.Err(); !errors.Is(err, output.ErrDeviceWrite) {
		t.Errorf("Err = %v, want wrapped ErrDeviceWrite", err)
	}

	p.Stop()
	if p.State() != StateStopped {
		t.Errorf("state after Stop = %s, want stopped", p.State())
	}
}

func TestPipelineStopDiscardsBacklog(t *testing.T) {
	sink := &memorySink{delay: 30 * time.Millisecond}
	p, err := New(testConfig(), sink, &stubScaler{}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 12; i++ {
		p.PushChunk([]byte{byte(i), byte(i)})
	}
	p.Stop()

	stats := p.Stats()
	if stats.Played >= stats.Received {
		t.Errorf("Played = %d, Received = %d; expected backlog discarded", stats.Played, stats.Received)
	}
	if got := len(sink.bytes()); got >= 24 {
		t.Errorf("sink received %d bytes, want less than the 24 pushed", got)
	}
	if p.PushChunk([]byte{1, 2}) {
		t.Error("PushChunk succeeded on a stopped pipeline")
	}
}

func TestPipelinePushDropsWhenFull(t *testing.T) {
	gate := make(chan struct{})
	sink := &memorySink{gate: gate}
	cfg := testConfig()
	cfg.QueueCapacity = 4
	cfg.QueueThreshold = 4
	cfg.HysteresisMargin = 0
	cfg.PushWaitMs = 20
	p, err := New(cfg, sink, &stubScaler{}, quietLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()
	defer close(gate) // unblock the sink before Stop joins the drain loop

	dropped := false
	for i := 0; i < 8; i++ {
		if !p.PushChunk([]byte{byte(i), byte(i)}) {
			dropped = true
		}
	}
	if !dropped {
		t.Error("no chunk dropped despite full queue and blocked sink")
	}
	if stats := p.Stats(); stats.Dropped == 0 {
		t.Error("Dropped = 0, want > 0")
	}
}
