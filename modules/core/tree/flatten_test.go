package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panetree/modules/core/ignore"
)

func checkFlatInvariants(t *testing.T, flat []FlatEntry) {
	t.Helper()
	for i, e := range flat {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, e.Depth*len(IndentUnit), len(e.Prefix))
		if e.ParentIndex >= 0 {
			require.Less(t, e.ParentIndex, i)
			assert.Equal(t, e.Depth-1, flat[e.ParentIndex].Depth)
		} else {
			assert.Equal(t, 0, e.Depth)
		}
		if e.FirstChildIndex >= 0 {
			require.Less(t, e.FirstChildIndex, len(flat))
			assert.Equal(t, i+1, e.FirstChildIndex)
			assert.Equal(t, i, flat[e.FirstChildIndex].ParentIndex)
		} else {
			assert.Empty(t, e.Node.Children)
		}
	}
}

func TestFlattenPreOrder(t *testing.T) {
	forest := Forest{
		{Name: "a", Path: "/a", IsDir: true, Children: []Node{
			{Name: "b", Path: "/a/b", IsDir: true, Children: []Node{
				{Name: "c.txt", Path: "/a/b/c.txt"},
			}},
			{Name: "d.txt", Path: "/a/d.txt"},
		}},
		{Name: "empty", Path: "/empty", IsDir: true, Children: []Node{}},
		{Name: "e.txt", Path: "/e.txt"},
	}

	flat := Flatten(forest)
	require.Len(t, flat, 6)

	var paths []string
	for _, e := range flat {
		paths = append(paths, e.Node.Path)
	}
	assert.Equal(t, []string{"/a", "/a/b", "/a/b/c.txt", "/a/d.txt", "/empty", "/e.txt"}, paths)

	assert.Equal(t, -1, flat[0].ParentIndex)
	assert.Equal(t, 1, flat[0].FirstChildIndex)
	assert.Equal(t, 0, flat[3].ParentIndex)
	assert.Equal(t, "    ", flat[2].Prefix)
	assert.Equal(t, -1, flat[4].FirstChildIndex)

	checkFlatInvariants(t, flat)
}

func TestFlattenEmpty(t *testing.T) {
	assert.Empty(t, Flatten(nil))
	assert.Empty(t, Flatten(Forest{}))
}

func TestFlattenBuiltForest(t *testing.T) {
	root := tempRoot(t)
	mkTree(t, root, "a/b/c/d/e.txt", "a/f.txt", "g/", "h.txt", "i/j/k.txt")

	forest := BuildAll(root, DefaultOptions(), ignore.Default())
	flat := Flatten(forest)
	assert.Equal(t, Count(forest), len(flat))
	checkFlatInvariants(t, flat)

	again := Flatten(BuildAll(root, DefaultOptions(), ignore.Default()))
	require.Len(t, again, len(flat))
	for i := range flat {
		assert.Equal(t, flat[i].Node.Path, again[i].Node.Path)
	}
}

func TestIndexOfPath(t *testing.T) {
	flat := Flatten(Forest{
		{Name: "a", Path: "/a", IsDir: true, Children: []Node{{Name: "b", Path: "/a/b"}}},
		{Name: "c", Path: "/c"},
	})
	assert.Equal(t, 1, IndexOfPath(flat, "/a/b"))
	assert.Equal(t, 2, IndexOfPath(flat, "/c"))
	assert.Equal(t, -1, IndexOfPath(flat, "/missing"))
}
