package blueprint

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/agentic-research/loom/api"
)

// The HCL form of a blueprint:
//
//	blueprint "my-dapp" {
//	  name = "My dApp"
//
//	  node "token" {
//	    type   = "erc20"
//	    config = { name = "Demo", symbol = "DEMO" }
//	  }
//
//	  edge {
//	    source = "token"
//	    target = "web"
//	  }
//	}

type hclRoot struct {
	Blueprints []hclBlueprint `hcl:"blueprint,block"`
}

type hclBlueprint struct {
	ID     string    `hcl:"id,label"`
	Name   string    `hcl:"name,optional"`
	Config cty.Value `hcl:"config,optional"`
	Nodes  []hclNode `hcl:"node,block"`
	Edges  []hclEdge `hcl:"edge,block"`
}

type hclNode struct {
	ID     string    `hcl:"id,label"`
	Type   string    `hcl:"type"`
	Config cty.Value `hcl:"config,optional"`
}

type hclEdge struct {
	Source string `hcl:"source"`
	Target string `hcl:"target"`
}

// ParseHCL decodes an HCL blueprint document. The file must contain
// exactly one blueprint block.
func ParseHCL(filename string, data []byte) (*api.Blueprint, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse blueprint hcl: %s", diags.Error())
	}
	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("decode blueprint hcl: %s", diags.Error())
	}
	if len(root.Blueprints) != 1 {
		return nil, fmt.Errorf("expected exactly one blueprint block, found %d", len(root.Blueprints))
	}

	src := root.Blueprints[0]
	bp := &api.Blueprint{ID: src.ID, Name: src.Name}
	cfg, err := ctyConfig(src.Config)
	if err != nil {
		return nil, fmt.Errorf("blueprint %s config: %w", src.ID, err)
	}
	bp.Config = cfg
	for _, n := range src.Nodes {
		cfg, err := ctyConfig(n.Config)
		if err != nil {
			return nil, fmt.Errorf("node %s config: %w", n.ID, err)
		}
		bp.Nodes = append(bp.Nodes, api.Node{ID: n.ID, Type: n.Type, Config: cfg})
	}
	for _, e := range src.Edges {
		bp.Edges = append(bp.Edges, api.Edge{Source: e.Source, Target: e.Target})
	}
	return bp, nil
}

// ctyConfig converts an optional config attribute into the plain map the
// rest of the engine works with.
func ctyConfig(v cty.Value) (map[string]any, error) {
	if v == cty.NilVal || v.IsNull() {
		return nil, nil
	}
	converted, err := ctyToGo(v)
	if err != nil {
		return nil, err
	}
	m, ok := converted.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config must be an object, got %s", v.Type().FriendlyName())
	}
	return m, nil
}

// ctyToGo lowers a cty value into plain Go values, matching what the JSON
// and YAML loaders produce. Numbers become float64.
func ctyToGo(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			gv, err := ctyToGo(ev)
			if err != nil {
				return nil, err
			}
			out[kv.AsString()] = gv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}
