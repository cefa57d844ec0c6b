package dag

import "testing"

const sampleDocument = `
entry_vertices:
  - name: A
    input_ports: [p1]
vertices:
  - name: A
    off_chain:
      tool_fqn: xyz.taluslabs.a@1
  - name: B
    off_chain:
      tool_fqn: xyz.taluslabs.b@1
edges:
  - from:
      vertex: A
      output_variant: ok
      output_port: out
    to:
      vertex: B
      input_port: q1
default_values:
  - vertex: B
    input_port: q2
    value:
      inline:
        data: 42
        encrypted: false
`

func TestParseRoundTrip(t *testing.T) {
	d, err := Parse([]byte(sampleDocument))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(d.EntryVertices) != 1 || d.EntryVertices[0].Name != "A" {
		t.Fatalf("unexpected entry vertices: %+v", d.EntryVertices)
	}
	if len(d.Vertices) != 2 {
		t.Fatalf("expected 2 vertices, got %d", len(d.Vertices))
	}
	if d.Vertices[0].Kind.OffChain == nil || d.Vertices[0].Kind.OffChain.ToolFqn.String() != "xyz.taluslabs.a@1" {
		t.Fatalf("unexpected off-chain kind: %+v", d.Vertices[0].Kind)
	}
	if len(d.Edges) != 1 {
		t.Fatalf("expected 1 edge, got %d", len(d.Edges))
	}
	if len(d.DefaultValues) != 1 || string(d.DefaultValues[0].Value.Inline.Data) != "42" {
		t.Fatalf("unexpected default values: %+v", d.DefaultValues)
	}

	if err := Validate(d); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseRejectsVertexWithoutKind(t *testing.T) {
	doc := `
vertices:
  - name: A
`
	if _, err := Parse([]byte(doc)); err == nil {
		t.Fatal("expected parse error for vertex without off_chain or on_chain")
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("{not: valid: yaml")); err == nil {
		t.Fatal("expected parse error for malformed yaml")
	}
}
