// Package telemetry provides tracing scopes for the execution runtime. Only
// allow-listed attributes are ever attached to an exported span.
package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Attribute keys the exporter accepts. Everything else is dropped at attach
// time so internal values can never leak into trace output.
const (
	AttrStatement = "db.statement"
	AttrItxID     = "itx_id"
	AttrDBType    = "db.type"
)

var acceptAttributes = map[string]struct{}{
	AttrStatement: {},
	AttrItxID:     {},
	AttrDBType:    {},
}

// AcceptsAttribute reports whether the key survives the allow-list.
func AcceptsAttribute(key string) bool {
	_, ok := acceptAttributes[key]
	return ok
}

// Span is one finished tracing scope.
type Span struct {
	Name       string            `json:"name"`
	Start      time.Time         `json:"start"`
	End        time.Time         `json:"end"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Err        string            `json:"error,omitempty"`
}

// Duration is the span's wall time.
func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Tracer collects spans. The zero value is not usable; a nil *Tracer is and
// records nothing, so callers never have to branch.
type Tracer struct {
	mu    sync.Mutex
	spans []Span
}

// NewTracer creates an empty tracer.
func NewTracer() *Tracer {
	return &Tracer{}
}

// ActiveSpan is an open scope. Attach attributes while the work runs, then
// End it exactly once.
type ActiveSpan struct {
	tracer *Tracer
	span   Span
}

// StartSpan opens a scope with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string) *ActiveSpan {
	if t == nil {
		return nil
	}
	return &ActiveSpan{tracer: t, span: Span{Name: name, Start: time.Now()}}
}

// SetAttribute attaches a key/value pair. Keys outside the allow-list are
// silently dropped.
func (s *ActiveSpan) SetAttribute(key, value string) {
	if s == nil || !AcceptsAttribute(key) {
		return
	}
	if s.span.Attributes == nil {
		s.span.Attributes = map[string]string{}
	}
	s.span.Attributes[key] = value
}

// End closes the scope, recording err when non-nil.
func (s *ActiveSpan) End(err error) {
	if s == nil {
		return
	}
	s.span.End = time.Now()
	if err != nil {
		s.span.Err = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.spans = append(s.tracer.spans, s.span)
	s.tracer.mu.Unlock()
}

// Spans returns a copy of everything recorded so far.
func (t *Tracer) Spans() []Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Span, len(t.spans))
	copy(out, t.spans)
	return out
}

// Reset drops all recorded spans.
func (t *Tracer) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.spans = nil
	t.mu.Unlock()
}

// Export writes the recorded spans as a JSON array.
func (t *Tracer) Export(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t.Spans())
}
