package dag

import (
	"testing"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
)

func offChain(t *testing.T, s string) VertexKind {
	t.Helper()
	return VertexKind{OffChain: &OffChainKind{ToolFqn: fqn.MustParse(s)}}
}

// S3. Minimal DAG validation.
func TestMinimalDagAccepted(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
		},
	}

	if err := Validate(d); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDefaultValueConflictWhenPortIsEdgeEndpoint(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
		},
		DefaultValues: []DefaultValue{
			{Vertex: "B", InputPort: "q1", Value: NexusData{Inline: &InlineData{Data: []byte(`1`)}}},
		},
	}

	if err := Validate(d); !IsReason(err, ReasonDefaultValueConflict) {
		t.Fatalf("expected default value conflict, got %v", err)
	}
}

func TestDefaultValueAcceptedOnUnconnectedPort(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
		},
		DefaultValues: []DefaultValue{
			{Vertex: "B", InputPort: "q2", Value: NexusData{Inline: &InlineData{Data: []byte(`1`)}}},
		},
	}

	if err := Validate(d); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

// S4. Concurrency-law: two output ports fanning into a single merge
// point with no other incoming edges is accepted (concurrency cancels to
// zero); removing one fan-in path leaves nonzero concurrency.
func TestConcurrencyLawAcceptedWithBalancedFanIn(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out1"}, To: ToPort{Vertex: "B", InputPort: "merge"}},
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out2"}, To: ToPort{Vertex: "B", InputPort: "merge"}},
		},
	}

	if err := Validate(d); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConcurrencyLawRejectedWithUnbalancedFanIn(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{
			{Name: "A", InputPorts: []string{"p1"}},
			{Name: "C", InputPorts: []string{"p2"}},
		},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
			{Name: "C", Kind: offChain(t, "xyz.taluslabs.c@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out1"}, To: ToPort{Vertex: "B", InputPort: "merge"}},
			{From: FromPort{Vertex: "C", OutputVariant: "ok", OutputPort: "out2"}, To: ToPort{Vertex: "B", InputPort: "merge"}},
		},
	}

	if err := Validate(d); !IsReason(err, ReasonConcurrencyViolation) {
		t.Fatalf("expected concurrency violation, got %v", err)
	}
}

func TestCyclicDagRejected(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
			{From: FromPort{Vertex: "B", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "A", InputPort: "p2"}},
		},
	}

	if err := Validate(d); !IsReason(err, ReasonCyclicDag) {
		t.Fatalf("expected cyclic dag rejection, got %v", err)
	}
}

func TestNoEntryVerticesRejected(t *testing.T) {
	d := Dag{
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
		},
	}

	if err := Validate(d); !IsReason(err, ReasonNoEntryVertices) {
		t.Fatalf("expected no entry vertices rejection, got %v", err)
	}
}

func TestUnknownEntryVertexRejected(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "Ghost", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
		},
	}

	if err := Validate(d); !IsReason(err, ReasonUnknownEntryVertex) {
		t.Fatalf("expected unknown entry vertex rejection, got %v", err)
	}
}

func TestStateMachineOrdering(t *testing.T) {
	d := Dag{
		EntryVertices: []EntryVertex{{Name: "A", InputPorts: []string{"p1"}}},
		Vertices: []Vertex{
			{Name: "A", Kind: offChain(t, "xyz.taluslabs.a@1")},
			{Name: "B", Kind: offChain(t, "xyz.taluslabs.b@1")},
		},
		Edges: []Edge{
			{From: FromPort{Vertex: "A", OutputVariant: "ok", OutputPort: "out"}, To: ToPort{Vertex: "B", InputPort: "q1"}},
		},
	}

	inst := NewInstance(d)
	if inst.State() != StateParsed {
		t.Fatalf("expected initial state Parsed, got %v", inst.State())
	}

	if err := inst.MarkPublished(); err == nil {
		t.Fatal("expected MarkPublished to fail before Validate")
	}

	if err := inst.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if inst.State() != StateValidated {
		t.Fatalf("expected state Validated, got %v", inst.State())
	}

	if err := inst.MarkPublished(); err != nil {
		t.Fatalf("MarkPublished: %v", err)
	}
	if err := inst.MarkExecuting(); err != nil {
		t.Fatalf("MarkExecuting: %v", err)
	}
	if err := inst.Finish(true); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if inst.State() != StateFinished || !inst.Succeeded() {
		t.Fatalf("expected Finished(success), got state=%v succeeded=%v", inst.State(), inst.Succeeded())
	}
}
