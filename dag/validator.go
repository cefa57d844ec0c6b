package dag

import (
	"fmt"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// Validation failure reasons, matched via IsReason.
const (
	ReasonCyclicDag            = "dag: graph contains one or more cycles"
	ReasonNoEntryVertices      = "dag: no entry vertices declared"
	ReasonMalformedAdjacency   = "dag: malformed adjacency"
	ReasonConcurrencyViolation = "dag: concurrency rules violated at a merge point"
	ReasonDefaultValueConflict = "dag: default value targets a port already present in the graph"
	ReasonUnknownEntryVertex   = "dag: entry vertex not present in the graph"
	ReasonDuplicateEntryPort   = "dag: entry input port declared more than once"
)

// IsReason reports whether err is a *nexuserrors.Error carrying the given
// reason string.
func IsReason(err error, reason string) bool {
	e, ok := err.(*nexuserrors.Error)
	return ok && e.Reason == reason
}

type nodeKind int

const (
	kindTool nodeKind = iota
	kindOutputVariant
	kindOutputPort
	kindInputPort
)

// nodeIdent is the lifted graph's node identity: a Tool, OutputVariant,
// OutputPort, or InputPort node, per the InputPort -> Tool ->
// OutputVariant -> OutputPort -> InputPort lifting cycle.
type nodeIdent struct {
	kind    nodeKind
	vertex  string
	variant string
	port    string
}

func (n nodeIdent) key() string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%s", n.kind, n.vertex, n.variant, n.port)
}

func (n nodeIdent) String() string {
	switch n.kind {
	case kindTool:
		return "Vertex: " + n.vertex
	case kindOutputVariant:
		return fmt.Sprintf("Output variant: %s.%s", n.vertex, n.variant)
	case kindOutputPort:
		return fmt.Sprintf("Output port: %s.%s.%s", n.vertex, n.variant, n.port)
	case kindInputPort:
		return fmt.Sprintf("Input port: %s.%s", n.vertex, n.port)
	default:
		return "unknown node"
	}
}

func toolIdent(vertex string) nodeIdent        { return nodeIdent{kind: kindTool, vertex: vertex} }
func variantIdent(vertex, variant string) nodeIdent {
	return nodeIdent{kind: kindOutputVariant, vertex: vertex, variant: variant}
}
func outputPortIdent(vertex, variant, port string) nodeIdent {
	return nodeIdent{kind: kindOutputPort, vertex: vertex, variant: variant, port: port}
}
func inputPortIdent(vertex, port string) nodeIdent {
	return nodeIdent{kind: kindInputPort, vertex: vertex, port: port}
}

// graph is the lifted multi-stage adjacency structure the validator
// operates on: a flat arena of nodes (the ident map) plus forward and
// backward adjacency lists keyed by node key. No node owns another; the
// arena owns all nodes.
type graph struct {
	idents map[string]nodeIdent
	out    map[string][]string
	in     map[string][]string
}

func newGraph() *graph {
	return &graph{
		idents: make(map[string]nodeIdent),
		out:    make(map[string][]string),
		in:     make(map[string][]string),
	}
}

func (g *graph) addNode(n nodeIdent) string {
	k := n.key()
	if _, ok := g.idents[k]; !ok {
		g.idents[k] = n
	}
	return k
}

func (g *graph) hasEdge(from, to string) bool {
	for _, k := range g.out[from] {
		if k == to {
			return true
		}
	}
	return false
}

func (g *graph) addEdge(from, to string) {
	if g.hasEdge(from, to) {
		return
	}
	g.out[from] = append(g.out[from], to)
	g.in[to] = append(g.in[to], from)
}

// buildGraph lifts a Dag into the abstract multi-stage graph, mirroring
// the edge-expansion-with-dedup construction: each user edge expands
// into the four abstract edges along the Tool -> OutputVariant ->
// OutputPort -> InputPort cycle, entry vertices are injected as source
// input-port nodes, and default values are asserted to target ports
// absent from the graph so far.
func buildGraph(d Dag) (*graph, error) {
	g := newGraph()

	for _, e := range d.Edges {
		tool := g.addNode(toolIdent(e.From.Vertex))
		variant := g.addNode(variantIdent(e.From.Vertex, e.From.OutputVariant))
		outPort := g.addNode(outputPortIdent(e.From.Vertex, e.From.OutputVariant, e.From.OutputPort))
		destTool := g.addNode(toolIdent(e.To.Vertex))
		inPort := g.addNode(inputPortIdent(e.To.Vertex, e.To.InputPort))

		g.addEdge(tool, variant)
		g.addEdge(variant, outPort)
		g.addEdge(outPort, inPort)
		g.addEdge(inPort, destTool)
	}

	for _, ev := range d.EntryVertices {
		entryToolKey := toolIdent(ev.Name).key()
		if _, ok := g.idents[entryToolKey]; !ok {
			return nil, nexuserrors.Validation(ReasonUnknownEntryVertex)
		}

		for _, port := range ev.InputPorts {
			ip := inputPortIdent(ev.Name, port)
			if _, exists := g.idents[ip.key()]; exists {
				return nil, nexuserrors.Validation(ReasonDuplicateEntryPort)
			}
			g.idents[ip.key()] = ip
			g.addEdge(ip.key(), entryToolKey)
		}
	}

	for _, dv := range d.DefaultValues {
		ip := inputPortIdent(dv.Vertex, dv.InputPort)
		if _, exists := g.idents[ip.key()]; exists {
			return nil, nexuserrors.Validation(ReasonDefaultValueConflict)
		}
	}

	return g, nil
}

// Validate runs the full structural and concurrency rule set against d,
// in the order the rules are specified: acyclicity, entry-vertex
// existence, adjacency order, then the concurrency-balance law.
func Validate(d Dag) error {
	g, err := buildGraph(d)
	if err != nil {
		return err
	}

	if isCyclic(g) {
		return nexuserrors.Validation(ReasonCyclicDag)
	}

	entries := findEntryVertices(g)
	if len(entries) == 0 {
		return nexuserrors.Validation(ReasonNoEntryVertices)
	}
	for _, group := range d.EntryGroups {
		if len(group.Vertices) == 0 {
			return nexuserrors.Validation(ReasonNoEntryVertices)
		}
	}

	if err := hasCorrectOrderOfActions(g); err != nil {
		return err
	}

	if err := followsConcurrencyRules(g, entries); err != nil {
		return err
	}

	return nil
}

func isCyclic(g *graph) bool {
	const (white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.idents))

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		for _, next := range g.out[n] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for n := range g.idents {
		if color[n] == white {
			if visit(n) {
				return true
			}
		}
	}
	return false
}

func findEntryVertices(g *graph) []string {
	var entries []string
	for k, n := range g.idents {
		if n.kind == kindInputPort && len(g.in[k]) == 0 {
			entries = append(entries, k)
		}
	}
	return entries
}

func hasCorrectOrderOfActions(g *graph) error {
	for k, n := range g.idents {
		neighbors := g.out[k]

		switch n.kind {
		case kindInputPort:
			if len(neighbors) != 1 {
				return nexuserrors.Validation(ReasonMalformedAdjacency)
			}
		case kindTool:
			// Tools may have any number of outgoing edges, including zero.
		case kindOutputVariant:
			if len(neighbors) == 0 {
				return nexuserrors.Validation(ReasonMalformedAdjacency)
			}
		case kindOutputPort:
			if len(neighbors) != 1 {
				return nexuserrors.Validation(ReasonMalformedAdjacency)
			}
		}

		for _, nb := range neighbors {
			neighbor := g.idents[nb]
			ok := false
			switch n.kind {
			case kindInputPort:
				ok = neighbor.kind == kindTool
			case kindTool:
				ok = neighbor.kind == kindOutputVariant
			case kindOutputVariant:
				ok = neighbor.kind == kindOutputPort
			case kindOutputPort:
				ok = neighbor.kind == kindInputPort
			}
			if !ok {
				return nexuserrors.Validation(ReasonMalformedAdjacency)
			}
		}
	}
	return nil
}

func followsConcurrencyRules(g *graph, entries []string) error {
	for k, n := range g.idents {
		if n.kind != kindInputPort || len(g.in[k]) <= 1 {
			continue
		}

		nodesInPaths := findAllNodesInPathsTo(g, k)

		includedEntries := 0
		for _, e := range entries {
			if _, ok := nodesInPaths[e]; ok {
				includedEntries++
			}
		}

		if !checkConcurrencyInSubgraph(g, nodesInPaths, includedEntries) {
			return nexuserrors.Validation(ReasonConcurrencyViolation)
		}
	}
	return nil
}

func findAllNodesInPathsTo(g *graph, end string) map[string]struct{} {
	visited := make(map[string]struct{})
	stack := append([]string(nil), g.in[end]...)

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := visited[node]; ok {
			continue
		}
		visited[node] = struct{}{}

		for _, nb := range g.in[node] {
			if _, ok := visited[nb]; !ok {
				stack = append(stack, nb)
			}
		}
	}
	return visited
}

func checkConcurrencyInSubgraph(g *graph, nodes map[string]struct{}, entryCount int) bool {
	net := entryCount - 1

	for k := range nodes {
		n := g.idents[k]
		switch n.kind {
		case kindTool:
			maxToolConcurrency := 0
			for _, variant := range g.out[k] {
				if _, ok := nodes[variant]; !ok {
					continue
				}
				outputPorts := 0
				for _, port := range g.out[variant] {
					if _, ok := nodes[port]; ok {
						outputPorts++
					}
				}
				if fanout := outputPorts - 1; fanout > maxToolConcurrency {
					maxToolConcurrency = fanout
				}
			}
			net += maxToolConcurrency
		case kindInputPort:
			net--
		}
	}

	return net == 0
}
