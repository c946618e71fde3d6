package tree

import "strings"

// IndentUnit is the per-level indent of a rendered row
const IndentUnit = "  "

// FlatEntry is one row of a flattened forest
type FlatEntry struct {
	Node            *Node
	Depth           int
	Prefix          string
	Index           int
	ParentIndex     int // -1 at top level
	FirstChildIndex int // -1 when the node has no visible children
}

// Flatten linearizes forest in depth-first pre-order. Node pointers refer into
// forest, which must not be modified afterwards.
func Flatten(forest Forest) []FlatEntry {
	flat := make([]FlatEntry, 0, Count(forest))
	return flattenInto(flat, forest, 0, -1)
}

func flattenInto(flat []FlatEntry, nodes []Node, depth, parent int) []FlatEntry {
	for i := range nodes {
		idx := len(flat)
		flat = append(flat, FlatEntry{
			Node:            &nodes[i],
			Depth:           depth,
			Prefix:          strings.Repeat(IndentUnit, depth),
			Index:           idx,
			ParentIndex:     parent,
			FirstChildIndex: -1,
		})

		flat = flattenInto(flat, nodes[i].Children, depth+1, idx)
		if len(flat) > idx+1 {
			flat[idx].FirstChildIndex = idx + 1
		}
	}
	return flat
}

// IndexOfPath returns the index of the entry for path, or -1
func IndexOfPath(flat []FlatEntry, path string) int {
	for i := range flat {
		if flat[i].Node.Path == path {
			return i
		}
	}
	return -1
}
