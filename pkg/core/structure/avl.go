package structure

import (
	"fmt"
	"strings"
)

type avlNode[T any] struct {
	value  T
	left   *avlNode[T]
	right  *avlNode[T]
	parent *avlNode[T] // navigation only; ownership runs parent -> child
	height int
}

func height[T any](n *avlNode[T]) int {
	if n == nil {
		return 0
	}
	return n.height
}

func (n *avlNode[T]) fix() {
	n.height = 1 + max(height(n.left), height(n.right))
}

func (n *avlNode[T]) balance() int {
	return height(n.left) - height(n.right)
}

// AVLTree is a height-balanced binary search tree ordered by the string key
// extracted from each value. Keys are unique under strings.Compare.
// It is not safe for concurrent use.
type AVLTree[T any] struct {
	root      *avlNode[T]
	size      int
	rotations uint64
	key       func(T) string
}

func NewAVLTree[T any](key func(T) string) *AVLTree[T] {
	return &AVLTree[T]{key: key}
}

// Insert adds v. It returns false, leaving the tree untouched, when the key
// of v is empty or already present.
func (t *AVLTree[T]) Insert(v T) bool {
	k := t.key(v)
	if k == "" {
		return false
	}

	n := &avlNode[T]{value: v, height: 1}
	if t.root == nil {
		t.root = n
		t.size++
		return true
	}

	cur := t.root
	for {
		c := strings.Compare(k, t.key(cur.value))
		if c == 0 {
			return false
		}
		if c < 0 {
			if cur.left == nil {
				cur.left = n
				break
			}
			cur = cur.left
		} else {
			if cur.right == nil {
				cur.right = n
				break
			}
			cur = cur.right
		}
	}
	n.parent = cur
	t.size++

	t.retrace(cur)
	return true
}

// Delete removes the value stored under k and returns it.
func (t *AVLTree[T]) Delete(k string) (T, bool) {
	n := t.find(k)
	if n == nil {
		var zero T
		return zero, false
	}
	removed := n.value

	// Two children: the node keeps its place and takes the successor's
	// payload; the successor node is the one spliced out.
	if n.left != nil && n.right != nil {
		s := n.right
		for s.left != nil {
			s = s.left
		}
		n.value = s.value
		n = s
	}

	child := n.left
	if child == nil {
		child = n.right
	}
	parent := n.parent
	if child != nil {
		child.parent = parent
	}
	t.replaceChild(parent, n, child)
	n.left, n.right, n.parent = nil, nil, nil
	t.size--

	t.retrace(parent)
	return removed, true
}

// Search returns the value stored under k.
func (t *AVLTree[T]) Search(k string) (T, bool) {
	if n := t.find(k); n != nil {
		return n.value, true
	}
	var zero T
	return zero, false
}

// Update applies fn to the resident value under k. fn must not change the key.
func (t *AVLTree[T]) Update(k string, fn func(*T)) bool {
	n := t.find(k)
	if n == nil {
		return false
	}
	fn(&n.value)
	if t.key(n.value) != k {
		panic(fmt.Sprintf("avl: update changed key %q to %q", k, t.key(n.value)))
	}
	return true
}

func (t *AVLTree[T]) find(k string) *avlNode[T] {
	cur := t.root
	for cur != nil {
		c := strings.Compare(k, t.key(cur.value))
		switch {
		case c == 0:
			return cur
		case c < 0:
			cur = cur.left
		default:
			cur = cur.right
		}
	}
	return nil
}

// retrace walks from n up to the root, refreshing heights and rotating any
// node whose balance factor left [-1, 1].
func (t *AVLTree[T]) retrace(n *avlNode[T]) {
	for n != nil {
		n.fix()
		if b := n.balance(); b > 1 || b < -1 {
			parent := n.parent
			sub := t.rebalance(n)
			t.replaceChild(parent, n, sub)
			n = sub
		}
		n = n.parent
	}
}

func (t *AVLTree[T]) rebalance(n *avlNode[T]) *avlNode[T] {
	b := n.balance()
	switch {
	case b > 1:
		if n.left.balance() < 0 {
			n.left = t.rotateLeft(n.left)
		}
		return t.rotateRight(n)
	case b < -1:
		if n.right.balance() > 0 {
			n.right = t.rotateRight(n.right)
		}
		return t.rotateLeft(n)
	}
	return n
}

// rotateRight promotes p.left. The caller relinks the returned node into
// p's former parent.
func (t *AVLTree[T]) rotateRight(p *avlNode[T]) *avlNode[T] {
	c := p.left
	if c == nil {
		panic("avl: right rotation without left child")
	}
	inner := c.right

	c.right = p
	p.left = inner
	if inner != nil {
		inner.parent = p
	}
	c.parent = p.parent
	p.parent = c

	p.fix()
	c.fix()
	t.rotations++
	return c
}

func (t *AVLTree[T]) rotateLeft(p *avlNode[T]) *avlNode[T] {
	c := p.right
	if c == nil {
		panic("avl: left rotation without right child")
	}
	inner := c.left

	c.left = p
	p.right = inner
	if inner != nil {
		inner.parent = p
	}
	c.parent = p.parent
	p.parent = c

	p.fix()
	c.fix()
	t.rotations++
	return c
}

func (t *AVLTree[T]) replaceChild(parent, old, repl *avlNode[T]) {
	switch {
	case parent == nil:
		t.root = repl
	case parent.left == old:
		parent.left = repl
	case parent.right == old:
		parent.right = repl
	default:
		panic("avl: parent link does not point back to child")
	}
}

func (t *AVLTree[T]) Len() int {
	return t.size
}

// Height is the height of the root; 0 for an empty tree.
func (t *AVLTree[T]) Height() int {
	return height(t.root)
}

// Rotations counts single rotations performed since construction.
func (t *AVLTree[T]) Rotations() uint64 {
	return t.rotations
}

// Ascend calls fn for each value in ascending key order until fn returns false.
func (t *AVLTree[T]) Ascend(fn func(T) bool) {
	ascend(t.root, fn)
}

// Descend calls fn for each value in descending key order until fn returns false.
func (t *AVLTree[T]) Descend(fn func(T) bool) {
	descend(t.root, fn)
}

func ascend[T any](n *avlNode[T], fn func(T) bool) bool {
	if n == nil {
		return true
	}
	return ascend(n.left, fn) && fn(n.value) && ascend(n.right, fn)
}

func descend[T any](n *avlNode[T], fn func(T) bool) bool {
	if n == nil {
		return true
	}
	return descend(n.right, fn) && fn(n.value) && descend(n.left, fn)
}

// Items returns all values in ascending key order.
func (t *AVLTree[T]) Items() []T {
	out := make([]T, 0, t.size)
	t.Ascend(func(v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Verify checks ordering, stored heights, balance, parent links and the
// resident count, and describes the first violation found.
func (t *AVLTree[T]) Verify() error {
	if t.root != nil && t.root.parent != nil {
		return fmt.Errorf("avl: root has a parent")
	}
	count := 0
	if _, err := t.verify(t.root, nil, nil, &count); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("avl: size %d but %d reachable nodes", t.size, count)
	}
	return nil
}

func (t *AVLTree[T]) verify(n *avlNode[T], lo, hi *string, count *int) (int, error) {
	if n == nil {
		return 0, nil
	}
	*count++
	k := t.key(n.value)
	if lo != nil && strings.Compare(k, *lo) <= 0 {
		return 0, fmt.Errorf("avl: key %q not greater than %q", k, *lo)
	}
	if hi != nil && strings.Compare(k, *hi) >= 0 {
		return 0, fmt.Errorf("avl: key %q not less than %q", k, *hi)
	}
	for _, c := range []*avlNode[T]{n.left, n.right} {
		if c != nil && c.parent != n {
			return 0, fmt.Errorf("avl: child %q of %q has wrong parent", t.key(c.value), k)
		}
	}

	lh, err := t.verify(n.left, lo, &k, count)
	if err != nil {
		return 0, err
	}
	rh, err := t.verify(n.right, &k, hi, count)
	if err != nil {
		return 0, err
	}
	h := 1 + max(lh, rh)
	if n.height != h {
		return 0, fmt.Errorf("avl: node %q stores height %d, want %d", k, n.height, h)
	}
	if d := lh - rh; d > 1 || d < -1 {
		return 0, fmt.Errorf("avl: node %q has balance %d", k, d)
	}
	return h, nil
}
