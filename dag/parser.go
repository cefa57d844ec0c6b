package dag

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/fqn"
	"github.com/yuanjiao014278andrewjones/nexus-sdk-sub001/nexuserrors"
)

// document is the on-the-wire YAML shape of a Dag. The grammar is
// format-agnostic per spec.md §4.3.1; YAML is this repository's primary
// document format (JSON documents parse identically via yaml.v3, which
// is a JSON superset).
type document struct {
	EntryVertices []struct {
		Name       string   `yaml:"name"`
		InputPorts []string `yaml:"input_ports"`
	} `yaml:"entry_vertices"`
	EntryGroups []struct {
		Name     string   `yaml:"name"`
		Vertices []string `yaml:"vertices"`
	} `yaml:"entry_groups"`
	Vertices []struct {
		Name     string `yaml:"name"`
		OffChain *struct {
			ToolFqn string `yaml:"tool_fqn"`
		} `yaml:"off_chain"`
		OnChain *struct {
			PackageID string `yaml:"package_id"`
			Module    string `yaml:"module"`
			Function  string `yaml:"function"`
		} `yaml:"on_chain"`
	} `yaml:"vertices"`
	Edges []struct {
		From struct {
			Vertex        string `yaml:"vertex"`
			OutputVariant string `yaml:"output_variant"`
			OutputPort    string `yaml:"output_port"`
		} `yaml:"from"`
		To struct {
			Vertex    string `yaml:"vertex"`
			InputPort string `yaml:"input_port"`
		} `yaml:"to"`
	} `yaml:"edges"`
	DefaultValues []struct {
		Vertex    string `yaml:"vertex"`
		InputPort string `yaml:"input_port"`
		Value     struct {
			Inline *struct {
				Data      yaml.Node `yaml:"data"`
				Encrypted bool      `yaml:"encrypted"`
			} `yaml:"inline"`
			Remote *struct {
				Storage string `yaml:"storage"`
			} `yaml:"remote"`
		} `yaml:"value"`
	} `yaml:"default_values"`
}

// Parse decodes a YAML-encoded Dag document. Parsing failures are
// reported with path-qualified messages and never reach the validator.
func Parse(data []byte) (Dag, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Dag{}, nexuserrors.Wrap(nexuserrors.KindValidation, err, "dag: malformed document")
	}

	out := Dag{}

	for _, ev := range doc.EntryVertices {
		out.EntryVertices = append(out.EntryVertices, EntryVertex{
			Name:       ev.Name,
			InputPorts: ev.InputPorts,
		})
	}

	for _, eg := range doc.EntryGroups {
		out.EntryGroups = append(out.EntryGroups, EntryGroup{
			Name:     eg.Name,
			Vertices: eg.Vertices,
		})
	}

	for i, v := range doc.Vertices {
		path := fmt.Sprintf("vertices[%d]", i)

		vertex := Vertex{Name: v.Name}
		switch {
		case v.OffChain != nil:
			parsed, err := fqn.Parse(v.OffChain.ToolFqn)
			if err != nil {
				return Dag{}, nexuserrors.Wrap(nexuserrors.KindValidation, err, path+".off_chain.tool_fqn")
			}
			vertex.Kind = VertexKind{OffChain: &OffChainKind{ToolFqn: parsed}}
		case v.OnChain != nil:
			vertex.Kind = VertexKind{OnChain: &OnChainKind{
				PackageID: v.OnChain.PackageID,
				Module:    v.OnChain.Module,
				Function:  v.OnChain.Function,
			}}
		default:
			return Dag{}, nexuserrors.Validation(fmt.Sprintf("%s: vertex %q has neither off_chain nor on_chain", path, v.Name))
		}
		out.Vertices = append(out.Vertices, vertex)
	}

	for _, e := range doc.Edges {
		out.Edges = append(out.Edges, Edge{
			From: FromPort{
				Vertex:        e.From.Vertex,
				OutputVariant: e.From.OutputVariant,
				OutputPort:    e.From.OutputPort,
			},
			To: ToPort{
				Vertex:    e.To.Vertex,
				InputPort: e.To.InputPort,
			},
		})
	}

	for i, dv := range doc.DefaultValues {
		path := fmt.Sprintf("default_values[%d]", i)

		var value NexusData
		switch {
		case dv.Value.Inline != nil:
			raw, err := yamlNodeToJSON(dv.Value.Inline.Data)
			if err != nil {
				return Dag{}, nexuserrors.Wrap(nexuserrors.KindValidation, err, path+".value.inline.data")
			}
			value = NexusData{Inline: &InlineData{Data: raw, Encrypted: dv.Value.Inline.Encrypted}}
		case dv.Value.Remote != nil:
			value = NexusData{Remote: &RemoteData{Storage: []byte(dv.Value.Remote.Storage)}}
		default:
			return Dag{}, nexuserrors.Validation(fmt.Sprintf("%s: default value has neither inline nor remote payload", path))
		}

		out.DefaultValues = append(out.DefaultValues, DefaultValue{
			Vertex:    dv.Vertex,
			InputPort: dv.InputPort,
			Value:     value,
		})
	}

	return out, nil
}

func yamlNodeToJSON(node yaml.Node) ([]byte, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
