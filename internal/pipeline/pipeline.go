// ABOUTME: Playback pipeline: bounded queue, drain loop, adaptive catch-up
// ABOUTME: Owns the resampler state and the hardware sink for one session
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/LiveTranslate/livetranslate-go/pkg/audio/output"
	"github.com/LiveTranslate/livetranslate-go/pkg/audio/resample"
)

// State is the pipeline lifecycle phase.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// speedEngageGate is the speed above which time-scale modification is
// applied. Below it the batch plays untouched; the gap to unity is
// inaudible and not worth the processing.
const speedEngageGate = 1.01

// popTimeout bounds each queue wait so the drain loop rechecks the close
// signal promptly.
const popTimeout = 100 * time.Millisecond

// TimeScaler compresses PCM in time without shifting pitch. Process
// returns the scaled audio; an error means the input should play
// unmodified.
type TimeScaler interface {
	Process(pcm []byte, speed float64) ([]byte, error)
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Received       int64
	Played         int64
	Dropped        int64
	QueueFullWaits int64
	Speedups       int64
	TSMFallbacks   int64
}

// Pipeline buffers incoming PCM chunks and drains them to a hardware
// sink, speeding playback up when the backlog grows. One Pipeline serves
// one sink session; after a device fault, build a new one.
type Pipeline struct {
	cfg    Config
	out    output.Output
	scaler TimeScaler
	log    *logrus.Logger

	mu    sync.Mutex
	state atomic.Int32
	queue atomic.Pointer[ChunkQueue]
	done  chan struct{}

	errMu sync.Mutex
	err   error

	received       atomic.Int64
	played         atomic.Int64
	dropped        atomic.Int64
	queueFullWaits atomic.Int64
	speedups       atomic.Int64
	tsmFallbacks   atomic.Int64
}

// New builds a pipeline over the given sink. The scaler handles catch-up
// time compression; the sink must be unopened.
func New(cfg Config, out output.Output, scaler TimeScaler, log *logrus.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("nil output")
	}
	if scaler == nil {
		return nil, fmt.Errorf("nil time scaler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{
		cfg:    cfg,
		out:    out,
		scaler: scaler,
		log:    log,
	}, nil
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Err returns the fault that terminated the drain loop, if any. Valid
// after Done is closed.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Pipeline) setErr(err error) {
	p.errMu.Lock()
	p.err = err
	p.errMu.Unlock()
}

// Done is closed when the drain loop exits, whether by Stop or by a sink
// fault. Check Err to distinguish.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stats returns a snapshot of the counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Received:       p.received.Load(),
		Played:         p.played.Load(),
		Dropped:        p.dropped.Load(),
		QueueFullWaits: p.queueFullWaits.Load(),
		Speedups:       p.speedups.Load(),
		TSMFallbacks:   p.tsmFallbacks.Load(),
	}
}

// Start opens the sink and launches the drain loop. Fails when the
// pipeline is not stopped or the device cannot be opened.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) != StateStopped {
		return fmt.Errorf("pipeline is %s, not stopped", State(p.state.Load()))
	}
	p.state.Store(int32(StateStarting))

	if err := p.out.Open(p.cfg.SinkRate, p.cfg.Channels); err != nil {
		p.state.Store(int32(StateStopped))
		return fmt.Errorf("open audio sink: %w", err)
	}

	rs, err := resample.New(p.cfg.NativeRate, p.cfg.SinkRate, p.cfg.Channels)
	if err != nil {
		p.out.Close()
		p.state.Store(int32(StateStopped))
		return fmt.Errorf("create resampler: %w", err)
	}

	q := NewChunkQueue(p.cfg.QueueCapacity)
	p.queue.Store(q)
	p.setErr(nil)
	p.done = make(chan struct{})

	go p.drainLoop(q, rs, p.done)

	p.state.Store(int32(StateRunning))
	p.log.WithFields(logrus.Fields{
		"native_rate": p.cfg.NativeRate,
		"sink_rate":   p.cfg.SinkRate,
		"channels":    p.cfg.Channels,
	}).Info("Playback pipeline started")
	return nil
}

// PushChunk enqueues one PCM chunk. It tries without blocking, then
// waits a bounded time for space, then drops the chunk so the producer
// never stalls indefinitely. Returns false when the chunk was dropped or
// the pipeline is not running.
func (p *Pipeline) PushChunk(pcm []byte) bool {
	if State(p.state.Load()) != StateRunning {
		return false
	}
	q := p.queue.Load()
	if q == nil {
		return false
	}

	if q.TryPush(pcm) {
		p.received.Add(1)
		return true
	}

	waits := p.queueFullWaits.Add(1)
	if waits%50 == 1 {
		p.log.WithField("depth", q.Depth()).Warn("Chunk queue full, waiting for space")
	}

	if q.PushWait(pcm, time.Duration(p.cfg.PushWaitMs)*time.Millisecond) {
		p.received.Add(1)
		return true
	}

	p.dropped.Add(1)
	p.log.WithField("dropped", p.dropped.Load()).Error("Chunk queue persistently full, dropping chunk")
	return false
}

// Stop terminates the drain loop, discards queued audio, and closes the
// sink. Idempotent; safe to call after a device fault.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if State(p.state.Load()) == StateStopped {
		return
	}
	p.state.Store(int32(StateStopping))

	if q := p.queue.Load(); q != nil {
		q.Close()
		if p.done != nil {
			<-p.done
		}
		if discarded := q.DrainAll(); discarded > 0 {
			p.log.WithField("discarded", discarded).Info("Discarded queued audio on stop")
		}
	}

	if err := p.out.Close(); err != nil {
		p.log.WithError(err).Warn("Error closing audio sink")
	}
	p.state.Store(int32(StateStopped))
	p.log.Info("Playback pipeline stopped")
}

// drainLoop pops chunks and writes them to the sink. Below the depth
// threshold it plays one chunk at a time; above it, it coalesces a batch,
// time-compresses it, and writes the result. The sink's blocking write is
// the only pacing.
func (p *Pipeline) drainLoop(q *ChunkQueue, rs *resample.Resampler, done chan struct{}) {
	defer close(done)

	catchup := false
	for {
		if q.Closed() {
			return
		}

		depth := q.Depth()
		if !catchup && depth >= p.cfg.QueueThreshold {
			catchup = true
		} else if catchup && depth < p.cfg.QueueThreshold-p.cfg.HysteresisMargin {
			catchup = false
		}

		if !catchup {
			chunk, ok := q.Pop(popTimeout)
			if !ok {
				continue
			}
			if !p.write(q, rs.Process(chunk), 1) {
				return
			}
			continue
		}

		speed := Speed(depth, p.cfg.QueueThreshold, p.cfg.TargetCatchupSec, p.cfg.MaxSpeed, p.cfg.ChunksPerSecond())
		want := depth
		if want > p.cfg.MaxBatchChunks {
			want = p.cfg.MaxBatchChunks
		}

		var batch []byte
		popped := int64(0)
		for i := 0; i < want; i++ {
			chunk, ok := q.Pop(popTimeout)
			if !ok {
				break
			}
			batch = append(batch, chunk...)
			popped++
		}
		if len(batch) == 0 {
			continue
		}

		if speed > speedEngageGate {
			scaled, err := p.scaler.Process(batch, speed)
			if err != nil {
				p.tsmFallbacks.Add(1)
				p.log.WithError(err).Warn("Time-scale modification failed, playing unmodified")
			} else {
				batch = scaled
			}
			n := p.speedups.Add(1)
			if n%10 == 1 {
				p.log.WithFields(logrus.Fields{
					"speed": fmt.Sprintf("%.2f", speed),
					"depth": depth,
				}).Info("Catching up: playing at increased speed")
			}
		}

		if !p.write(q, rs.Process(batch), popped) {
			return
		}
	}
}

// write sends resampled PCM to the sink, crediting chunks to the played
// counter. A write error is fatal for the session: the backlog is
// discarded and the loop terminates so the owner can rebuild with a
// fresh device.
func (p *Pipeline) write(q *ChunkQueue, pcm []byte, chunks int64) bool {
	if len(pcm) == 0 {
		return true
	}
	if err := p.out.Write(pcm); err != nil {
		p.log.WithError(err).Error("Audio sink write failed, terminating playback session")
		discarded := q.DrainAll()
		if discarded > 0 {
			p.log.WithField("discarded", discarded).Info("Discarded queued audio after sink fault")
		}
		p.setErr(fmt.Errorf("sink write: %w", err))
		return false
	}
	p.played.Add(chunks)
	return true
}
