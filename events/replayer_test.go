package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/dag"
)

func portsToData(t *testing.T, values map[string]int) json.RawMessage {
	t.Helper()

	type entry struct {
		Key   TypeName      `json:"key"`
		Value dag.NexusData `json:"value"`
	}
	var contents []entry
	for port, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal port value: %v", err)
		}
		contents = append(contents, entry{
			Key:   TypeName{Name: port},
			Value: dag.NexusData{Inline: &dag.InlineData{Data: raw}},
		})
	}

	raw, err := json.Marshal(map[string]any{"contents": contents})
	if err != nil {
		t.Fatalf("marshal ports-to-data: %v", err)
	}
	return raw
}

func walkAdvanced(t *testing.T, execution, vertex, variant string, ports map[string]int) NexusEvent {
	return NexusEvent{
		Data: NexusEventKind{
			Kind: KindWalkAdvanced,
			WalkAdvanced: &WalkAdvancedEvent{
				Execution:          execution,
				Vertex:             TypeName{Name: vertex},
				Variant:            TypeName{Name: variant},
				VariantPortsToData: portsToData(t, ports),
			},
		},
	}
}

func endStateReached(t *testing.T, execution, vertex, variant string, ports map[string]int) NexusEvent {
	return NexusEvent{
		Data: NexusEventKind{
			Kind: KindEndStateReached,
			EndStateReached: &EndStateReachedEvent{
				Execution:          execution,
				Vertex:             TypeName{Name: vertex},
				Variant:            TypeName{Name: variant},
				VariantPortsToData: portsToData(t, ports),
			},
		},
	}
}

func executionFinished(execution string, failed bool) NexusEvent {
	return NexusEvent{
		Data: NexusEventKind{
			Kind: KindExecutionFinished,
			ExecutionFinished: &ExecutionFinishedEvent{
				Execution:           execution,
				HasAnyWalkFailed:    failed,
				HasAnyWalkSucceeded: !failed,
			},
		},
	}
}

type fakeSource struct {
	pages []EventPage
	idx   int
}

func (f *fakeSource) QueryEvents(ctx context.Context, cursor *EventID) (EventPage, error) {
	if f.idx >= len(f.pages) {
		return EventPage{}, nil
	}
	p := f.pages[f.idx]
	f.idx++
	return p, nil
}

// TestReplayerS6Scenario mirrors the documented replay example: two
// executions interleaved in the log, one of which reaches an end state and
// finishes successfully; the other execution's events are discarded.
func TestReplayerS6Scenario(t *testing.T) {
	source := &fakeSource{pages: []EventPage{{Data: []NexusEvent{
		walkAdvanced(t, "X", "A", "ok", map[string]int{"p": 1}),
		walkAdvanced(t, "Y", "ignored", "ok", map[string]int{"z": 9}),
		endStateReached(t, "X", "B", "ok", map[string]int{"q": 2}),
		executionFinished("X", false),
	}}}}

	r := NewReplayer(source, "X")
	trace, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !trace.Done || !trace.Success {
		t.Fatalf("expected a done, successful trace, got %+v", trace)
	}
	if len(trace.Events) != 2 {
		t.Fatalf("expected 2 trace events, got %d: %+v", len(trace.Events), trace.Events)
	}

	first := trace.Events[0]
	if first.EndState || first.Vertex != "A" || first.Variant != "ok" {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if len(first.Data) != 1 || first.Data[0].Port != "p" || string(first.Data[0].Data) != "1" {
		t.Fatalf("unexpected first event data: %+v", first.Data)
	}

	second := trace.Events[1]
	if !second.EndState || second.Vertex != "B" || second.Variant != "ok" {
		t.Fatalf("unexpected second event: %+v", second)
	}
	if len(second.Data) != 1 || second.Data[0].Port != "q" || string(second.Data[0].Data) != "2" {
		t.Fatalf("unexpected second event data: %+v", second.Data)
	}
}

func TestReplayerReportsFailure(t *testing.T) {
	source := &fakeSource{pages: []EventPage{{Data: []NexusEvent{executionFinished("X", true)}}}}

	r := NewReplayer(source, "X")
	trace, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !trace.Done || trace.Success {
		t.Fatalf("expected a done, failed trace, got %+v", trace)
	}
}

func TestReplayerCancellationAtPageBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReplayer(&fakeSource{}, "X")
	if _, err := r.Run(ctx); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

type flakySource struct {
	mu       sync.Mutex
	failures int
	page     EventPage
}

func (f *flakySource) QueryEvents(ctx context.Context, cursor *EventID) (EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return EventPage{}, errors.New("transient rpc failure")
	}
	return f.page, nil
}

func TestReplayerRetriesOnRPCError(t *testing.T) {
	if testing.Short() {
		t.Skip("exercises the real 1s retry backoff")
	}

	source := &flakySource{failures: 1, page: EventPage{Data: []NexusEvent{executionFinished("X", false)}}}
	r := NewReplayer(source, "X")

	trace, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !trace.Done || !trace.Success {
		t.Fatalf("expected done+success after retry, got %+v", trace)
	}
}

func TestReplayerOverWebSocketHarness(t *testing.T) {
	srv := NewTestEventServer([]EventPage{{Data: []NexusEvent{executionFinished("X", false)}}})
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	source, err := DialWebSocketEventSource(context.Background(), wsURL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer source.Close()

	r := NewReplayer(source, "X")
	trace, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !trace.Done || !trace.Success {
		t.Fatalf("expected done+success, got %+v", trace)
	}
}
