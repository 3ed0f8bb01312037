package ir

import (
	"fmt"
	"strings"
)

// Print renders the subtree under root in the textual form accepted
// by Parse. Value and block names are assigned in definition order,
// so the output is deterministic for a given structure.
func Print(root *Node) string {
	p := &printer{
		names:      make(map[ValueID]string),
		blockNames: make(map[BlockID]string),
	}
	p.printNode(root, 0)
	return p.b.String()
}

type printer struct {
	b          strings.Builder
	names      map[ValueID]string
	blockNames map[BlockID]string
	nextValue  int
	nextBlock  int
}

func (p *printer) valueName(v ValueID) string {
	name, ok := p.names[v]
	if !ok {
		name = fmt.Sprintf("%%%d", p.nextValue)
		p.nextValue++
		p.names[v] = name
	}
	return name
}

func (p *printer) blockName(b BlockID) string {
	name, ok := p.blockNames[b]
	if !ok {
		name = fmt.Sprintf("^bb%d", p.nextBlock)
		p.nextBlock++
		p.blockNames[b] = name
	}
	return name
}

func (p *printer) printNode(n *Node, indent int) {
	p.b.WriteString(strings.Repeat("  ", indent))
	if n.NumResults() > 0 {
		for i, res := range n.results {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(p.valueName(res))
		}
		p.b.WriteString(" = ")
	}
	p.b.WriteString(string(n.op))

	wroteAny := false
	for i := 0; i < n.numLeading; i++ {
		if wroteAny {
			p.b.WriteString(", ")
		} else {
			p.b.WriteString(" ")
		}
		p.b.WriteString(p.valueName(n.operands[i]))
		wroteAny = true
	}
	for i := range n.succs {
		if wroteAny {
			p.b.WriteString(", ")
		} else {
			p.b.WriteString(" ")
		}
		wroteAny = true
		s := n.Successor(i)
		p.b.WriteString(p.blockName(s.Block))
		if len(s.Args) > 0 {
			p.b.WriteString("(")
			for j, a := range s.Args {
				if j > 0 {
					p.b.WriteString(", ")
				}
				p.b.WriteString(p.valueName(a))
			}
			p.b.WriteString(")")
		}
	}

	if len(n.attrs) > 0 {
		p.b.WriteString(" {")
		for i, k := range n.attrs.SortedKeys() {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(k)
			p.b.WriteString(" = ")
			p.b.WriteString(n.attrs[k].String())
		}
		p.b.WriteString("}")
	}

	for i := 0; i < n.NumRegions(); i++ {
		p.printRegion(n.Region(i), indent)
	}

	if n.NumResults() > 0 {
		p.b.WriteString(" : ")
		for i, res := range n.results {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.b.WriteString(n.g.Value(res).typ.String())
		}
	}
	p.b.WriteString("\n")
}

func (p *printer) printRegion(r *Region, indent int) {
	p.b.WriteString(" {\n")
	for bi, bid := range r.blocks {
		b := r.g.Block(bid)
		if bi > 0 || len(b.params) > 0 {
			p.b.WriteString(strings.Repeat("  ", indent))
			p.b.WriteString(p.blockName(b.id))
			if len(b.params) > 0 {
				p.b.WriteString("(")
				for pi, param := range b.params {
					if pi > 0 {
						p.b.WriteString(", ")
					}
					p.b.WriteString(p.valueName(param))
					p.b.WriteString(" : ")
					p.b.WriteString(r.g.Value(param).typ.String())
				}
				p.b.WriteString(")")
			}
			p.b.WriteString(":\n")
		}
		for c := b.First(); c != nil; c = c.Next() {
			p.printNode(c, indent+1)
		}
	}
	p.b.WriteString(strings.Repeat("  ", indent))
	p.b.WriteString("}")
}

// String returns the node's op name, for logs.
func (n *Node) String() string { return string(n.op) }
