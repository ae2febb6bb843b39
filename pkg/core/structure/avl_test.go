package structure

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	seq  int
}

func entryKey(e entry) string { return e.name }

func newTree() *AVLTree[entry] {
	return NewAVLTree(entryKey)
}

func names(t *AVLTree[entry]) []string {
	var out []string
	t.Ascend(func(e entry) bool {
		out = append(out, e.name)
		return true
	})
	return out
}

func TestInsertRoundTripSorted(t *testing.T) {
	tree := newTree()
	for i, n := range []string{"Carol", "Alice", "Bob", "Dave", "Eve"} {
		require.True(t, tree.Insert(entry{name: n, seq: i}))
		require.NoError(t, tree.Verify())
	}

	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave", "Eve"}, names(tree))
	assert.Equal(t, 5, tree.Len())
	assert.LessOrEqual(t, tree.Height(), int(math.Ceil(math.Log2(6))))
}

func TestRightRightCaseSingleLeftRotation(t *testing.T) {
	tree := newTree()
	tree.Insert(entry{name: "A"})
	tree.Insert(entry{name: "B"})
	require.Equal(t, uint64(0), tree.Rotations())
	tree.Insert(entry{name: "C"})

	assert.Equal(t, uint64(1), tree.Rotations())
	root := tree.root
	require.NotNil(t, root)
	assert.Equal(t, "B", root.value.name)
	assert.Equal(t, 2, root.height)
	assert.Nil(t, root.parent)
	require.NotNil(t, root.left)
	require.NotNil(t, root.right)
	assert.Equal(t, "A", root.left.value.name)
	assert.Equal(t, "C", root.right.value.name)
	assert.Equal(t, 1, root.left.height)
	assert.Equal(t, 1, root.right.height)
	assert.Same(t, root, root.left.parent)
	assert.Same(t, root, root.right.parent)
}

func TestRotationCases(t *testing.T) {
	tests := []struct {
		name      string
		order     []string
		rotations uint64
	}{
		{name: "left-left", order: []string{"C", "B", "A"}, rotations: 1},
		{name: "right-right", order: []string{"A", "B", "C"}, rotations: 1},
		{name: "left-right", order: []string{"C", "A", "B"}, rotations: 2},
		{name: "right-left", order: []string{"A", "C", "B"}, rotations: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newTree()
			for _, n := range tt.order {
				require.True(t, tree.Insert(entry{name: n}))
			}
			require.NoError(t, tree.Verify())
			assert.Equal(t, tt.rotations, tree.Rotations())
			assert.Equal(t, "B", tree.root.value.name)
			assert.Equal(t, 2, tree.Height())
		})
	}
}

func TestDuplicateInsertRejected(t *testing.T) {
	tree := newTree()
	require.True(t, tree.Insert(entry{name: "Zed", seq: 1}))
	assert.False(t, tree.Insert(entry{name: "Zed", seq: 2}))

	assert.Equal(t, 1, tree.Len())
	got, ok := tree.Search("Zed")
	require.True(t, ok)
	assert.Equal(t, 1, got.seq, "duplicate insert must not overwrite")
}

func TestDuplicateInsertLeavesTreeUnchanged(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"m", "f", "t", "b", "h", "p", "x"} {
		tree.Insert(entry{name: n})
	}
	before := names(tree)
	height := tree.Height()
	rotations := tree.Rotations()

	for _, n := range before {
		assert.False(t, tree.Insert(entry{name: n, seq: 99}))
	}

	assert.Equal(t, before, names(tree))
	assert.Equal(t, height, tree.Height())
	assert.Equal(t, rotations, tree.Rotations())
	assert.Equal(t, len(before), tree.Len())
	require.NoError(t, tree.Verify())
}

func TestEmptyKeyRejected(t *testing.T) {
	tree := newTree()
	assert.False(t, tree.Insert(entry{name: ""}))
	assert.Equal(t, 0, tree.Len())
	assert.Nil(t, tree.root)
}

func TestCaseSensitiveKeys(t *testing.T) {
	tree := newTree()
	require.True(t, tree.Insert(entry{name: "alice"}))
	require.True(t, tree.Insert(entry{name: "Alice"}))
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, []string{"Alice", "alice"}, names(tree))
}

func TestDeleteRootWithTwoChildrenKeepsNode(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"D", "B", "F", "A", "C", "E", "G"} {
		require.True(t, tree.Insert(entry{name: n}))
	}
	require.Equal(t, 3, tree.Height())
	root := tree.root
	require.Equal(t, "D", root.value.name)

	removed, ok := tree.Delete("D")
	require.True(t, ok)
	assert.Equal(t, "D", removed.name)
	require.NoError(t, tree.Verify())

	assert.Same(t, root, tree.root, "root node survives structurally")
	assert.Equal(t, "E", tree.root.value.name, "root carries the in-order successor")
	_, ok = tree.Search("D")
	assert.False(t, ok)
	got, ok := tree.Search("E")
	require.True(t, ok)
	assert.Equal(t, "E", got.name)
	assert.Equal(t, 6, tree.Len())
	assert.Equal(t, []string{"A", "B", "C", "E", "F", "G"}, names(tree))
}

func TestDeleteLeafAndSingleChild(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"m", "f", "t", "b", "p", "x", "a"} {
		tree.Insert(entry{name: n})
	}

	// "a" arrives as a left-left case, leaving m(b(a, f), t(p, x)).
	_, ok := tree.Delete("a") // leaf
	require.True(t, ok)
	require.NoError(t, tree.Verify())

	_, ok = tree.Delete("b") // only a right child left
	require.True(t, ok)
	require.NoError(t, tree.Verify())
	assert.Equal(t, []string{"f", "m", "p", "t", "x"}, names(tree))
	assert.Equal(t, 5, tree.Len())
}

func TestDeleteNotFound(t *testing.T) {
	tree := newTree()
	_, ok := tree.Delete("nobody")
	assert.False(t, ok)

	tree.Insert(entry{name: "somebody"})
	_, ok = tree.Delete("nobody")
	assert.False(t, ok)
	assert.Equal(t, 1, tree.Len())
}

func TestDeleteTriggersRebalance(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"b", "a", "c", "d"} {
		tree.Insert(entry{name: n})
	}
	before := tree.Rotations()

	_, ok := tree.Delete("a")
	require.True(t, ok)
	require.NoError(t, tree.Verify())
	assert.Equal(t, before+1, tree.Rotations())
	assert.Equal(t, "c", tree.root.value.name)
}

func TestDeleteAllRandomOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		tree := newTree()
		n := 1 + rng.Intn(200)
		keys := make([]string, n)
		for i := range keys {
			keys[i] = fmt.Sprintf("contact-%05d", rng.Intn(100000))
		}

		inserted := map[string]bool{}
		for _, k := range keys {
			ok := tree.Insert(entry{name: k})
			assert.Equal(t, !inserted[k], ok)
			inserted[k] = true
			require.NoError(t, tree.Verify())
		}
		require.Equal(t, len(inserted), tree.Len())

		want := make([]string, 0, len(inserted))
		for k := range inserted {
			want = append(want, k)
		}
		sort.Strings(want)
		require.Equal(t, want, names(tree))

		rng.Shuffle(len(want), func(i, j int) { want[i], want[j] = want[j], want[i] })
		for i, k := range want {
			_, ok := tree.Delete(k)
			require.True(t, ok, "delete %q", k)
			require.NoError(t, tree.Verify())
			require.Equal(t, len(want)-i-1, tree.Len())
		}
		assert.Nil(t, tree.root)
		assert.Equal(t, 0, tree.Len())
	}
}

func TestHeightStaysLogarithmic(t *testing.T) {
	tree := newTree()
	const n = 4096
	for i := 0; i < n; i++ {
		tree.Insert(entry{name: fmt.Sprintf("%06d", i)}) // sorted input, worst case for a plain BST
	}
	require.NoError(t, tree.Verify())
	limit := int(1.45 * math.Log2(n+2))
	assert.LessOrEqual(t, tree.Height(), limit)
}

func TestUpdateInPlace(t *testing.T) {
	tree := newTree()
	tree.Insert(entry{name: "x", seq: 1})

	ok := tree.Update("x", func(e *entry) { e.seq = 7 })
	require.True(t, ok)
	got, _ := tree.Search("x")
	assert.Equal(t, 7, got.seq)

	assert.False(t, tree.Update("y", func(e *entry) { e.seq = 1 }))
	assert.Panics(t, func() {
		tree.Update("x", func(e *entry) { e.name = "renamed" })
	})
}

func TestDescendAndEarlyStop(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"c", "a", "b", "e", "d"} {
		tree.Insert(entry{name: n})
	}

	var desc []string
	tree.Descend(func(e entry) bool {
		desc = append(desc, e.name)
		return true
	})
	assert.Equal(t, []string{"e", "d", "c", "b", "a"}, desc)

	var firstTwo []string
	tree.Ascend(func(e entry) bool {
		firstTwo = append(firstTwo, e.name)
		return len(firstTwo) < 2
	})
	assert.Equal(t, []string{"a", "b"}, firstTwo)
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tree := newTree()
	for _, n := range []string{"b", "a", "c"} {
		tree.Insert(entry{name: n})
	}
	require.NoError(t, tree.Verify())

	tree.root.left.height = 5
	assert.Error(t, tree.Verify())
	tree.root.left.height = 1

	tree.size = 4
	assert.Error(t, tree.Verify())
	tree.size = 3

	tree.root.left.value.name = "z"
	assert.Error(t, tree.Verify())
}
