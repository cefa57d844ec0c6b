// Package dag implements the typed workflow graph: vertices, edges,
// entry groups, and default values (§3.2 of the data model), a
// format-agnostic document parser, a structural/concurrency validator,
// and the DAG instance state machine.
package dag

import (
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
)

// VertexKind discriminates a Vertex's execution target. Vertex kinds are
// a tagged union rather than interface dispatch, keeping exhaustiveness
// checkable the way the original data model specifies.
type VertexKind struct {
	OffChain *OffChainKind
	OnChain  *OnChainKind
}

// OffChainKind identifies a vertex executed by an off-chain HTTP tool.
type OffChainKind struct {
	ToolFqn fqn.ToolFqn
}

// OnChainKind identifies a vertex executed by an on-chain Move call. The
// wire format for on-chain tool registration is explicit future work in
// the source material (marked todo!); this minimal shape carries enough
// identity for structural validation (which never inspects vertex kind
// contents). Nothing in this repository publishes or executes on-chain
// vertices.
type OnChainKind struct {
	PackageID string
	Module    string
	Function  string
}

// Vertex is a named execution unit; names are unique within a Dag.
type Vertex struct {
	Name string
	Kind VertexKind
}

// EntryVertex is a Vertex augmented with the externally-supplied input
// ports it exposes.
type EntryVertex struct {
	Name       string
	InputPorts []string
}

// EntryGroup names a subset of entry vertices. If a Dag declares no
// groups, all entry vertices belong to a single implicit default group.
type EntryGroup struct {
	Name     string
	Vertices []string
}

// FromPort identifies an edge's origin: a specific output port of a
// specific output variant of a vertex.
type FromPort struct {
	Vertex        string
	OutputVariant string
	OutputPort    string
}

// ToPort identifies an edge's destination: an input port of a vertex.
type ToPort struct {
	Vertex    string
	InputPort string
}

// Edge connects an output port to an input port.
type Edge struct {
	From FromPort
	To   ToPort
}

// DefaultValue supplies a value for an input port that is not the
// endpoint of any edge and is not an entry-vertex port.
type DefaultValue struct {
	Vertex    string
	InputPort string
	Value     NexusData
}

// Dag is the complete, immutable-after-construction workflow graph.
type Dag struct {
	EntryVertices []EntryVertex
	EntryGroups   []EntryGroup
	Vertices      []Vertex
	Edges         []Edge
	DefaultValues []DefaultValue
}
