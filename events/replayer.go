package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/dag"
)

// retryBackoff is the fixed delay between RPC retries inside the
// replayer's polling loop. The remote event source is authoritative; the
// replayer has no independent truth to fall back on, so it simply waits
// and asks again.
const retryBackoff = 1 * time.Second

// EventPage is one page of a commit-ordered event stream.
type EventPage struct {
	Data       []NexusEvent `json:"data"`
	NextCursor *EventID     `json:"next_cursor"`
}

// EventSource is the remote event log the replayer polls. Implementations
// own the (module, package) filter and the generic-type/package-match
// bookkeeping needed to produce well-formed NexusEvents; a nil cursor
// requests the first page.
type EventSource interface {
	QueryEvents(ctx context.Context, cursor *EventID) (EventPage, error)
}

// PortData is one named output port's value, as recorded in a trace
// record. For inline data, Data is the decoded JSON value; for remote
// data, Data is the on-chain NexusData wire shape, recorded verbatim since
// the current core does not dereference remote storage.
type PortData struct {
	Port string          `json:"port"`
	Data json.RawMessage `json:"data"`
}

// TraceEvent is one record of a growing ExecutionTrace: a vertex/variant
// evaluation and the data produced on its output ports.
type TraceEvent struct {
	EndState bool       `json:"end_state"`
	Vertex   string     `json:"vertex"`
	Variant  string     `json:"variant"`
	Data     []PortData `json:"data"`
}

// ExecutionTrace is the replayer's output: a prefix of the remote event
// log restricted to one execution, in log order, plus the terminal
// outcome once Done is true.
type ExecutionTrace struct {
	Events  []TraceEvent
	Done    bool
	Success bool
}

// Metrics are the replayer's optional Prometheus instruments. A nil
// *Metrics (the zero value returned by Replayer without WithMetrics) is
// valid and makes every update a no-op.
type Metrics struct {
	EventsProcessed prometheus.Counter
	CursorLag       prometheus.Gauge
}

// NewMetrics builds and, if reg is non-nil, registers the replayer's
// instruments. CursorLag counts consecutive pages fetched without the
// trace advancing, a proxy for how far behind the remote log the
// replayer's cursor has drifted.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replayer",
			Name:      "events_processed_total",
			Help:      "Total number of events read from the remote event log.",
		}),
		CursorLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replayer",
			Name:      "cursor_lag_pages",
			Help:      "Consecutive event pages fetched without the execution trace advancing.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.EventsProcessed, m.CursorLag)
	}
	return m
}

func (m *Metrics) incProcessed() {
	if m != nil && m.EventsProcessed != nil {
		m.EventsProcessed.Inc()
	}
}

func (m *Metrics) setCursorLag(v float64) {
	if m != nil && m.CursorLag != nil {
		m.CursorLag.Set(v)
	}
}

// Replayer reconstructs a single execution's trace from a remote event
// stream.
type Replayer struct {
	source      EventSource
	executionID string
	log         *logrus.Entry
	metrics     *Metrics
}

// Option configures a Replayer.
type Option func(*Replayer)

// WithLogger attaches a structured logger; the zero value logs nothing.
func WithLogger(log *logrus.Entry) Option {
	return func(r *Replayer) { r.log = log }
}

// WithMetrics attaches a Prometheus instrument set built by NewMetrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Replayer) { r.metrics = m }
}

// NewReplayer builds a Replayer that folds source's event stream into a
// trace for executionID.
func NewReplayer(source EventSource, executionID string, opts ...Option) *Replayer {
	r := &Replayer{source: source, executionID: executionID}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls source until an ExecutionFinished event for the replayer's
// execution is observed, ctx is canceled, or ctx is canceled mid-retry.
// RPC errors are retried indefinitely with a fixed backoff; cancellation
// is checked at page boundaries and during the retry wait, never in the
// middle of processing a page.
func (r *Replayer) Run(ctx context.Context) (ExecutionTrace, error) {
	var trace ExecutionTrace
	var cursor *EventID
	var lag float64

	for {
		select {
		case <-ctx.Done():
			return trace, ctx.Err()
		default:
		}

		page, err := r.source.QueryEvents(ctx, cursor)
		if err != nil {
			if r.log != nil {
				r.log.WithError(err).Warn("event query failed, retrying")
			}
			select {
			case <-ctx.Done():
				return trace, ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}
		cursor = page.NextCursor

		advanced := false
		for _, ev := range page.Data {
			r.metrics.incProcessed()

			switch ev.Data.Kind {
			case KindWalkAdvanced:
				e := ev.Data.WalkAdvanced
				if e == nil || e.Execution != r.executionID {
					continue
				}
				trace.Events = append(trace.Events, TraceEvent{
					EndState: false,
					Vertex:   e.Vertex.Name,
					Variant:  e.Variant.Name,
					Data:     expandPortsToData(e.VariantPortsToData),
				})
				advanced = true

			case KindEndStateReached:
				e := ev.Data.EndStateReached
				if e == nil || e.Execution != r.executionID {
					continue
				}
				trace.Events = append(trace.Events, TraceEvent{
					EndState: true,
					Vertex:   e.Vertex.Name,
					Variant:  e.Variant.Name,
					Data:     expandPortsToData(e.VariantPortsToData),
				})
				advanced = true

			case KindExecutionFinished:
				e := ev.Data.ExecutionFinished
				if e == nil || e.Execution != r.executionID {
					continue
				}
				trace.Done = true
				trace.Success = !e.HasAnyWalkFailed
				return trace, nil

			default:
				// RequestWalkExecution, AnnounceInterfacePackage, the
				// tool-registry events, and anything else this
				// repository recognizes on the wire but does not fold
				// into the trace.
			}
		}

		if advanced {
			lag = 0
		} else {
			lag++
		}
		r.metrics.setCursorLag(lag)
	}
}

// vecMapPayload mirrors the VecMap<TypeName, NexusData> wire shape: a
// `contents` array of key/value entries, which is how the Move collection
// serializes.
type vecMapPayload struct {
	Contents []struct {
		Key   TypeName      `json:"key"`
		Value dag.NexusData `json:"value"`
	} `json:"contents"`
}

// expandPortsToData decodes a WalkAdvanced/EndStateReached event's
// variant_ports_to_data field. The preferred shape is a VecMap; if that
// fails to parse, the raw value is recorded verbatim under an empty port
// name, matching the contract's fallback.
func expandPortsToData(raw json.RawMessage) []PortData {
	if len(raw) == 0 {
		return nil
	}

	var wrapped vecMapPayload
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Contents != nil {
		out := make([]PortData, len(wrapped.Contents))
		for i, entry := range wrapped.Contents {
			out[i] = PortData{Port: entry.Key.Name, Data: portValueJSON(entry.Value)}
		}
		return out
	}

	return []PortData{{Port: "", Data: raw}}
}

// portValueJSON renders a NexusData port value the way the original
// inspection trace does: for inline data, the decoded value itself; for
// remote data, the on-chain wire shape (since it is observed, not
// dereferenced).
func portValueJSON(v dag.NexusData) json.RawMessage {
	if v.Inline != nil {
		return v.Inline.Data
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return raw
}
