// Package display delivers rendered board text to its consumers.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/realmlist/metarboard/internal/metrics"
	"github.com/realmlist/metarboard/internal/models"
)

// Message is one rendered board update.
type Message struct {
	TickID     string                `json:"tick_id"`
	Text       string                `json:"text"`
	StationID  string                `json:"station_id"`
	Kind       models.ReportKind     `json:"kind"`
	Category   models.FlightCategory `json:"category,omitempty"`
	NoData     bool                  `json:"no_data"`
	RenderedAt time.Time             `json:"rendered_at"`
}

// Sink receives board messages. Write must not be called with an empty
// Text; callers skip the sink instead.
type Sink interface {
	Write(ctx context.Context, msg Message) error
}

// WriterSink prints the board text to an io.Writer, one message per block.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Write(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s\n", msg.Text)
	return err
}

// Dedup drops a message whose text equals the last one delivered
// successfully. Boards reject or flash on identical rewrites.
type Dedup struct {
	next Sink

	mu   sync.Mutex
	last string
	sent bool
}

func NewDedup(next Sink) *Dedup {
	return &Dedup{next: next}
}

func (d *Dedup) Write(ctx context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sent && d.last == msg.Text {
		return nil
	}
	if err := d.next.Write(ctx, msg); err != nil {
		return err
	}
	d.last = msg.Text
	d.sent = true
	return nil
}

// Named attaches a metrics label to a sink.
type Named struct {
	Name string
	Sink Sink
}

// Multi fans a message out to every sink in order. One sink failing does
// not stop the others; all errors are returned joined.
type Multi struct {
	sinks []Named
}

func NewMulti(sinks ...Named) *Multi {
	return &Multi{sinks: sinks}
}

// Add appends a sink.
func (m *Multi) Add(name string, s Sink) {
	m.sinks = append(m.sinks, Named{Name: name, Sink: s})
}

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) Write(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Sink.Write(ctx, msg); err != nil {
			metrics.SinkWritesTotal.WithLabelValues(s.Name, "error").Inc()
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name, err))
			continue
		}
		metrics.SinkWritesTotal.WithLabelValues(s.Name, "ok").Inc()
	}
	return errors.Join(errs...)
}
