// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Callback-driven playback through miniaudio with a byte ring buffer
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using the malgo/miniaudio library
type Malgo struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int
	ready      bool

	// Ring buffer feeding the device callback
	ringBuffer *RingBuffer
	mu         sync.Mutex
}

// RingBuffer is a thread-safe circular byte buffer for PCM data.
type RingBuffer struct {
	buffer   []byte
	readPos  int
	writePos int
	size     int
	count    int
	closed   bool
	mu       sync.Mutex
}

// NewRingBuffer creates a ring buffer with the given byte capacity
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]byte, capacity),
		size:   capacity,
	}
}

// Write adds bytes to the ring buffer, returning the count accepted
func (rb *RingBuffer) Write(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	written := 0
	for i := 0; i < len(p) && rb.count < rb.size; i++ {
		rb.buffer[rb.writePos] = p[i]
		rb.writePos = (rb.writePos + 1) % rb.size
		rb.count++
		written++
	}
	return written
}

// Read retrieves bytes; the remainder is zero-filled on underrun
func (rb *RingBuffer) Read(p []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	read := 0
	for i := 0; i < len(p) && rb.count > 0; i++ {
		p[i] = rb.buffer[rb.readPos]
		rb.readPos = (rb.readPos + 1) % rb.size
		rb.count--
		read++
	}

	for i := read; i < len(p); i++ {
		p[i] = 0
	}

	return read
}

// Close marks the buffer closed so blocked writers give up
func (rb *RingBuffer) Close() {
	rb.mu.Lock()
	rb.closed = true
	rb.mu.Unlock()
}

// Closed reports whether Close was called
func (rb *RingBuffer) Closed() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.closed
}

// NewMalgo creates a new Malgo output
func NewMalgo() Output {
	return &Malgo{}
}

// Open initializes the playback device
func (m *Malgo) Open(sampleRate, channels int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil && m.sampleRate == sampleRate && m.channels == channels {
		return nil
	}
	if m.device != nil {
		m.closeDeviceLocked()
	}

	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("%w: malgo context init: %v", ErrDeviceUnavailable, err)
		}
		m.malgoCtx = ctx
	}

	// 500ms of device-side buffering
	bufferBytes := (sampleRate * channels * 2 * 500) / 1000
	m.ringBuffer = NewRingBuffer(bufferBytes)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	rb := m.ringBuffer
	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutput, pInput []byte, frameCount uint32) {
			rb.Read(pOutput)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("%w: malgo device init: %v", ErrDeviceUnavailable, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("%w: malgo device start: %v", ErrDeviceUnavailable, err)
	}

	m.device = device
	m.sampleRate = sampleRate
	m.channels = channels
	m.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels (malgo)", sampleRate, channels)

	return nil
}

// Write queues PCM16 bytes, blocking while the ring buffer is full so the
// caller is paced to playback speed.
func (m *Malgo) Write(pcm []byte) error {
	if !m.ready {
		return ErrNotOpen
	}

	rb := m.ringBuffer
	written := 0
	for written < len(pcm) {
		if rb.Closed() {
			return fmt.Errorf("%w: device closed", ErrDeviceWrite)
		}
		n := rb.Write(pcm[written:])
		written += n
		if n == 0 {
			// buffer full; the callback drains it continuously
			time.Sleep(5 * time.Millisecond)
		}
	}

	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDeviceLocked()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	return nil
}

// closeDeviceLocked stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDeviceLocked() {
	if m.ringBuffer != nil {
		m.ringBuffer.Close()
	}
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	m.ready = false
}
