package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rakib91221/StableGen/types"
)

// Handle addresses one output port of one node.
type Handle struct {
	Node string
	Port int
}

func (h Handle) handle() Handle { return h }

// Ref is implemented by every typed output handle.
type Ref interface {
	handle() Handle
}

// Typed output handles. Each wraps a Handle so that chain helpers can only
// be wired with outputs of the right kind.
type (
	// Model is a diffusion model output.
	Model struct{ Handle }
	// Clip is a text encoder output.
	Clip struct{ Handle }
	// VAE is a variational autoencoder output.
	VAE struct{ Handle }
	// Cond is an encoded conditioning output.
	Cond struct{ Handle }
	// Image is a pixel-space image output.
	Image struct{ Handle }
	// Mask is a single-channel mask output.
	Mask struct{ Handle }
	// Latent is a latent-space image output.
	Latent struct{ Handle }
	// Control is a control network output.
	Control struct{ Handle }
	// Guider is a guidance wrapper output used by the Flux sampling path.
	Guider struct{ Handle }
	// SamplerSel is a sampler selection output.
	SamplerSel struct{ Handle }
	// Sigmas is a noise schedule output.
	Sigmas struct{ Handle }
	// Noise is a noise source output.
	Noise struct{ Handle }
)

// Node is a single operation in the graph. Inputs map parameter names to
// either literal values or Refs to upstream node outputs.
type Node struct {
	ID        string
	ClassType string
	Title     string
	Inputs    map[string]any
}

// Graph is an ordered set of nodes with a single designated image sink.
type Graph struct {
	nodes map[string]*Node
	order []string
	sink  string
}

// newGraph returns an empty graph. Nodes are added through Builder.
func newGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// Len reports the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.order) }

// SinkID returns the id of the designated image sink node, or "" when no
// sink has been added yet.
func (g *Graph) SinkID() string { return g.sink }

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Validate checks structural integrity: every handle input must reference
// an existing node, the graph must be acyclic, and exactly one image sink
// must be present.
func (g *Graph) Validate() error {
	if g.sink == "" {
		return types.NewError(types.ErrGraphInvalid, "graph has no image sink node")
	}
	for _, id := range g.order {
		n := g.nodes[id]
		for name, v := range n.Inputs {
			ref, ok := v.(Ref)
			if !ok {
				continue
			}
			h := ref.handle()
			if _, exists := g.nodes[h.Node]; !exists {
				return types.NewError(types.ErrGraphInvalid,
					"node %s input %q references unknown node %s", id, name, h.Node)
			}
		}
	}
	return g.checkAcyclic()
}

// checkAcyclic runs an iterative three-color DFS over the handle edges.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.nodes))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		for _, v := range g.nodes[id].Inputs {
			ref, ok := v.(Ref)
			if !ok {
				continue
			}
			dep := ref.handle().Node
			switch color[dep] {
			case gray:
				return types.NewError(types.ErrGraphInvalid,
					"cycle detected through node %s", dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for _, id := range g.order {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// wireNode is the serialized form of a node.
type wireNode struct {
	Inputs    map[string]any `json:"inputs"`
	ClassType string         `json:"class_type"`
	Meta      *wireMeta      `json:"_meta,omitempty"`
}

type wireMeta struct {
	Title string `json:"title"`
}

// MarshalJSON encodes the graph in the backend wire format: an object keyed
// by node id, with handle inputs rendered as [nodeID, port] pairs.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := make(map[string]wireNode, len(g.nodes))
	for _, id := range g.order {
		n := g.nodes[id]
		inputs := make(map[string]any, len(n.Inputs))
		for name, v := range n.Inputs {
			if ref, ok := v.(Ref); ok {
				h := ref.handle()
				inputs[name] = []any{h.Node, h.Port}
			} else {
				inputs[name] = v
			}
		}
		wn := wireNode{Inputs: inputs, ClassType: n.ClassType}
		if n.Title != "" {
			wn.Meta = &wireMeta{Title: n.Title}
		}
		out[id] = wn
	}
	return json.Marshal(out)
}

// Dependents returns, for debugging and tests, the ids of nodes that
// consume at least one output of the given node, sorted.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, cand := range g.order {
		for _, v := range g.nodes[cand].Inputs {
			if ref, ok := v.(Ref); ok && ref.handle().Node == id {
				out = append(out, cand)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// String renders a short human-readable summary.
func (g *Graph) String() string {
	return fmt.Sprintf("graph{nodes: %d, sink: %s}", len(g.order), g.sink)
}
