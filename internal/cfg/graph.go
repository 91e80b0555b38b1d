package cfg

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Graph is the control-flow graph of one function. It is built once and
// then treated as read-only by analyses.
type Graph struct {
	Name   string
	Blocks map[BlockID]*Block
	Entry  BlockID

	// Exits and RPO are derived; see ComputeMetadata.
	Exits []BlockID
	RPO   []BlockID
}

// New returns an empty graph whose entry block is entry.
func New(name string, entry BlockID) *Graph {
	return &Graph{Name: name, Blocks: make(map[BlockID]*Block), Entry: entry}
}

// AddBlock inserts b, replacing any block with the same id.
func (g *Graph) AddBlock(b *Block) {
	if b.Term == nil {
		b.Term = Unreachable{}
	}
	if b.Succs == nil {
		b.Succs = dedupe(b.Term.Successors())
	}
	g.Blocks[b.ID] = b
}

// Block returns the block with the given id, or nil.
func (g *Graph) Block(id BlockID) *Block { return g.Blocks[id] }

// IDs returns the block ids in ascending order.
func (g *Graph) IDs() []BlockID {
	ids := make([]BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SetTerminator replaces the terminator of id and re-derives its successors.
// Predecessor lists are stale until ComputePredecessors runs.
func (g *Graph) SetTerminator(id BlockID, t Terminator) error {
	b := g.Blocks[id]
	if b == nil {
		return fmt.Errorf("set terminator: unknown block b%d", id)
	}
	if t == nil {
		t = Unreachable{}
	}
	b.Term = t
	b.Succs = dedupe(t.Successors())
	return nil
}

// AddEdge records an edge from -> to on both endpoints, ignoring duplicates.
func (g *Graph) AddEdge(from, to BlockID) error {
	src, dst := g.Blocks[from], g.Blocks[to]
	if src == nil || dst == nil {
		return fmt.Errorf("add edge b%d -> b%d: unknown block", from, to)
	}
	if !contains(src.Succs, to) {
		src.Succs = append(src.Succs, to)
	}
	if !contains(dst.Preds, from) {
		dst.Preds = append(dst.Preds, from)
	}
	return nil
}

// ComputePredecessors rebuilds every predecessor list from the successor
// lists.
func (g *Graph) ComputePredecessors() {
	ids := g.IDs()
	for _, id := range ids {
		g.Blocks[id].Preds = nil
	}
	for _, id := range ids {
		for _, s := range g.Blocks[id].Succs {
			if succ := g.Blocks[s]; succ != nil && !contains(succ.Preds, id) {
				succ.Preds = append(succ.Preds, id)
			}
		}
	}
}

// ComputeReversePostorder orders the blocks reachable from the entry in
// reverse postorder. Blocks unreachable from the entry are omitted.
func (g *Graph) ComputeReversePostorder() {
	g.RPO = nil
	if g.Blocks[g.Entry] == nil {
		return
	}
	type frame struct {
		id   BlockID
		next int
	}
	visited := map[BlockID]bool{g.Entry: true}
	stack := []frame{{id: g.Entry}}
	var post []BlockID
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succs := g.Blocks[top.id].Succs
		if top.next < len(succs) {
			s := succs[top.next]
			top.next++
			if !visited[s] && g.Blocks[s] != nil {
				visited[s] = true
				stack = append(stack, frame{id: s})
			}
			continue
		}
		post = append(post, top.id)
		stack = stack[:len(stack)-1]
	}
	slices.Reverse(post)
	g.RPO = post
}

// ComputeExitBlocks collects the blocks that return, revert or have no
// successors.
func (g *Graph) ComputeExitBlocks() {
	g.Exits = nil
	for _, id := range g.IDs() {
		if g.Blocks[id].IsExit() {
			g.Exits = append(g.Exits, id)
		}
	}
}

// ComputeMetadata derives predecessors, reverse postorder, exits and the
// per-block def/use sets, in that order.
func (g *Graph) ComputeMetadata() {
	g.ComputePredecessors()
	g.ComputeReversePostorder()
	g.ComputeExitBlocks()
	for _, id := range g.IDs() {
		g.Blocks[id].computeDefUse()
	}
}

// IsExit reports whether id is one of the derived exit blocks.
func (g *Graph) IsExit(id BlockID) bool { return contains(g.Exits, id) }

// Validate checks that the entry exists and every edge targets a block.
func (g *Graph) Validate() error {
	var errs []error
	if g.Blocks[g.Entry] == nil {
		errs = append(errs, fmt.Errorf("entry block b%d does not exist", g.Entry))
	}
	for _, id := range g.IDs() {
		for _, s := range g.Blocks[id].Succs {
			if g.Blocks[s] == nil {
				errs = append(errs, fmt.Errorf("b%d has edge to missing block b%d", id, s))
			}
		}
	}
	return errors.Join(errs...)
}

// WriteDot renders the graph in Graphviz dot syntax.
func (g *Graph) WriteDot(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", g.Name)
	b.WriteString("  node [shape=box fontname=monospace];\n")
	for _, id := range g.IDs() {
		blk := g.Blocks[id]
		var label strings.Builder
		fmt.Fprintf(&label, "b%d\\l", id)
		for _, s := range blk.Stmts {
			fmt.Fprintf(&label, "%s\\l", escapeDot(fmt.Sprint(s)))
		}
		fmt.Fprintf(&label, "%s\\l", escapeDot(blk.Term.String()))
		fmt.Fprintf(&b, "  b%d [label=\"%s\"];\n", id, label.String())
		for _, s := range blk.Succs {
			fmt.Fprintf(&b, "  b%d -> b%d;\n", id, s)
		}
	}
	b.WriteString("}\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeDot(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
