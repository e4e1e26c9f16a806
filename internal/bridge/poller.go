package bridge

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/banshee-data/cardio.report/internal/ecg"
	"github.com/banshee-data/cardio.report/internal/frame"
	"github.com/banshee-data/cardio.report/internal/monitoring"
)

// BeatRecorder persists detected beat events. Implemented by the db layer;
// declared here so the poller does not depend on a concrete store.
type BeatRecorder interface {
	RecordBeat(b ecg.Beat) error
}

// Meta summarizes the state of the link and detector after a poll.
type Meta struct {
	Status       string           `json:"status"`
	LastCount    int              `json:"last_count"`
	BPM          int              `json:"bpm"`
	Polarity     int              `json:"polarity"`
	Filters      ecg.FilterConfig `json:"filters"`
	SamplingRate float64          `json:"sampling_rate_hz"`
}

// Event is the per-poll payload fanned out to subscribers: the incremental
// waveform update plus the refreshed link metadata.
type Event struct {
	Update ecg.Update `json:"update"`
	Meta   Meta       `json:"meta"`
}

// Poller drives the device on a fixed cadence and owns the only path that
// mutates the processing stream. Multiple clients may subscribe to poll
// events; slow subscribers are skipped rather than blocking the loop.
type Poller struct {
	device   Devicer
	stream   *ecg.Stream
	recorder BeatRecorder
	interval time.Duration

	subscriberMu sync.Mutex
	subscribers  map[string]chan Event

	metaMu       sync.Mutex
	status       string
	lastCount    int
	lastBPM      int
	lastPolarity int
	lastRate     float64

	closing   bool
	closingMu sync.Mutex
}

// NewPoller creates a poller over the given device and stream. The recorder
// may be nil when beat persistence is disabled.
func NewPoller(device Devicer, stream *ecg.Stream, recorder BeatRecorder, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Poller{
		device:      device,
		stream:      stream,
		recorder:    recorder,
		interval:    interval,
		subscribers: make(map[string]chan Event),
		status:      "Not connected",
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new channel for receiving poll events. The channel ID
// is used to identify the unique channel when unsubscribing.
func (p *Poller) Subscribe() (string, chan Event) {
	id := randomID()
	ch := make(chan Event, 8)
	p.subscriberMu.Lock()
	defer p.subscriberMu.Unlock()
	p.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the poller.
func (p *Poller) Unsubscribe(id string) {
	p.subscriberMu.Lock()
	defer p.subscriberMu.Unlock()
	if ch, ok := p.subscribers[id]; ok {
		close(ch)
		delete(p.subscribers, id)
	}
}

// Run polls the device every interval until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.closingMu.Lock()
			if p.closing {
				p.closingMu.Unlock()
				return nil
			}
			p.closingMu.Unlock()
			p.PollOnce()
		}
	}
}

// PollOnce performs one request/decode/ingest cycle and reports whether any
// samples were applied. Transport failures and malformed frames count as "no
// samples this tick"; the loop carries on either way.
func (p *Poller) PollOnce() bool {
	payload, err := p.device.RequestFrame()
	if err != nil {
		p.metaMu.Lock()
		p.status = "Link error: " + err.Error()
		p.metaMu.Unlock()
		monitoring.Logf("poll: request failed: %v", err)
		return false
	}

	p.metaMu.Lock()
	p.status = "Connected"
	p.metaMu.Unlock()

	if len(payload) == 0 {
		return false
	}

	values, timestamps := frame.Decode(payload)
	if len(values) == 0 {
		monitoring.Logf("poll: discarding undecodable %d byte payload", len(payload))
		return false
	}

	update, ok := p.stream.Ingest(values, timestamps)
	if !ok {
		return false
	}

	if beat, ok := p.stream.TakeBeat(); ok {
		p.metaMu.Lock()
		p.lastBPM = beat.BPM
		p.lastPolarity = beat.Polarity
		p.metaMu.Unlock()
		if p.recorder != nil {
			if err := p.recorder.RecordBeat(beat); err != nil {
				monitoring.Logf("poll: failed to record beat: %v", err)
			}
		}
	}

	p.metaMu.Lock()
	p.lastCount = len(values)
	if len(timestamps) >= 2 {
		spanMS := timestamps[len(timestamps)-1] - timestamps[0]
		if spanMS > 0 {
			p.lastRate = float64(len(timestamps)-1) / (float64(spanMS) / 1000)
		}
	}
	meta := p.metaLocked()
	p.metaMu.Unlock()

	p.broadcast(Event{Update: update, Meta: meta})
	return true
}

// metaLocked builds a Meta snapshot. Callers must hold p.metaMu.
func (p *Poller) metaLocked() Meta {
	return Meta{
		Status:       p.status,
		LastCount:    p.lastCount,
		BPM:          p.lastBPM,
		Polarity:     p.lastPolarity,
		Filters:      p.stream.Filters(),
		SamplingRate: p.lastRate,
	}
}

// Meta returns the current link metadata.
func (p *Poller) Meta() Meta {
	p.metaMu.Lock()
	defer p.metaMu.Unlock()
	return p.metaLocked()
}

// broadcast fans an event out to all subscribers without blocking; full
// channels are skipped.
func (p *Poller) broadcast(ev Event) {
	p.subscriberMu.Lock()
	defer p.subscriberMu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// ResetSession clears the processing stream and last-known detector results
// so a fresh recording starts from scratch. Filter toggles survive.
func (p *Poller) ResetSession() {
	p.stream.Reset()
	p.metaMu.Lock()
	p.lastCount = 0
	p.lastBPM = 0
	p.lastPolarity = 0
	p.lastRate = 0
	p.metaMu.Unlock()
}

// Close stops event delivery, closes all subscriber channels, and closes the
// device link.
func (p *Poller) Close() error {
	p.closingMu.Lock()
	p.closing = true
	p.closingMu.Unlock()

	p.subscriberMu.Lock()
	defer p.subscriberMu.Unlock()
	for id, ch := range p.subscribers {
		close(ch)
		delete(p.subscribers, id)
	}
	return p.device.Close()
}
