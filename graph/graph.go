/*
 *	Copyright 2023 Jan Pfeifer
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

// Package graph defines the computation-graph fragments that fully resolved
// architecture modules compile into.
//
// A Graph is an append-only collection of Nodes. Each Node is the result of one
// operation ("op" for short) -- Input, Dense, Conv2D, Activation, Add, etc. --
// and has a fixed shape, inferred when the node is created. Fragments carry no
// numeric values: they are the symbolic program a trainer/evaluator consumes.
//
// Shape checking happens at fragment-building time: op constructors panic with
// a *FragmentShapeError when their inputs are incompatible. Callers that need
// an error instead wrap the building code with exceptions.TryCatch[error].
// This mirrors the usual deferred checking of ML computation graphs: most
// shape information only exists after hyperparameters are resolved, so nothing
// can be verified at Go compile time.
package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/deeparchitect/types/shapes"
	"github.com/gomlx/deeparchitect/types/xslices"
	"github.com/gomlx/gopjrt/dtypes"
)

// NodeId is a unique Node id within a Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// Graph holds the operations of one compiled architecture.
//
// Create it with New, add an Input node and then chain op constructors
// (Dense, Activation, Add, ...) from it. Nodes are never removed.
type Graph struct {
	name   string
	nodes  []*Node
	inputs []*Node
}

// New constructs an empty Graph with the given name.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name of the computation this Graph defines, set during its construction.
func (g *Graph) Name() string { return g.name }

// Nodes returns all nodes in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// NumNodes returns the number of nodes created so far.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// Inputs returns the input nodes, in creation order.
func (g *Graph) Inputs() []*Node { return g.inputs }

// NodeById returns the node with the given id, or nil if out of range.
func (g *Graph) NodeById(id NodeId) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[int(id)]
}

// String lists all nodes of the graph, one per line.
func (g *Graph) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Graph %q: %d nodes", g.name, len(g.nodes)))
	for _, node := range g.nodes {
		parts = append(parts, "\t"+node.String())
	}
	return strings.Join(parts, "\n")
}

// newNode creates a Node, appends it to the graph and returns it.
func (g *Graph) newNode(opType OpType, shape shapes.Shape, inputs []*Node, attrs map[string]any) *Node {
	node := &Node{
		graph:      g,
		id:         NodeId(len(g.nodes)),
		opType:     opType,
		shape:      shape,
		inputNodes: inputs,
		attrs:      attrs,
	}
	g.nodes = append(g.nodes, node)
	return node
}

// Node represents the result of one operation in a Graph. Its shape is fixed
// and known at creation time.
type Node struct {
	graph      *Graph
	id         NodeId
	opType     OpType
	inputNodes []*Node
	shape      shapes.Shape
	attrs      map[string]any
}

// Graph this node belongs to.
func (n *Node) Graph() *Graph { return n.graph }

// Id is the unique id of this node within its Graph.
func (n *Node) Id() NodeId { return n.id }

// Type of the operation that created this node.
func (n *Node) Type() OpType { return n.opType }

// Shape of the node's value.
func (n *Node) Shape() shapes.Shape { return n.shape }

// DType of the node's value.
func (n *Node) DType() dtypes.DType { return n.shape.DType }

// Rank of the node's shape.
func (n *Node) Rank() int { return n.shape.Rank() }

// Inputs are the other nodes this operation consumes.
func (n *Node) Inputs() []*Node { return n.inputNodes }

// Attr returns an op-specific attribute (e.g. "units" for Dense) and whether
// it is set.
func (n *Node) Attr(key string) (value any, found bool) {
	value, found = n.attrs[key]
	return
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	inputIds := xslices.Map(n.inputNodes, func(input *Node) string {
		return fmt.Sprintf("#%d", input.id)
	})
	var attrs []string
	for _, key := range xslices.SortedKeys(n.attrs) {
		attrs = append(attrs, fmt.Sprintf("%s=%v", key, n.attrs[key]))
	}
	args := strings.Join(append(inputIds, attrs...), ", ")
	return fmt.Sprintf("#%d %s(%s) -> %s", n.id, n.opType, args, n.shape)
}
