// Package olist is an ordered, doubly linked sequence with indexed access,
// in-place sorting and a guarded iteration session.
//
// A List keeps a reference to its middle element so that positional lookups
// walk from whichever of head, middle or tail is nearest. Freed nodes are kept
// in a small spare cache and reused by later insertions.
package olist

import (
	"errors"
	"iter"
)

var (
	ErrIterating    = errors.New("olist: list is being iterated")
	ErrIndex        = errors.New("olist: index out of range")
	ErrNoComparator = errors.New("olist: no comparator configured")
	ErrNoSession    = errors.New("olist: no iteration session")
)

// maxSpare bounds the freed-node cache.
const maxSpare = 5

type node[T any] struct {
	val        T
	prev, next *node[T]
}

// List is not safe for concurrent use.
type List[T any] struct {
	head, tail *node[T] // sentinels
	mid        *node[T] // element at index n/2, nil when empty
	n          int

	spare []*node[T]

	cmp     func(a, b T) int
	workers int

	iterating bool
	cursor    *node[T]
	walkers   int
}

type Option[T any] func(*List[T])

// WithComparator sets the ordering used by Sort, Locate and Contains.
// cmp returns a negative number when a sorts before b, zero when they are
// equal and a positive number otherwise.
func WithComparator[T any](cmp func(a, b T) int) Option[T] {
	return func(l *List[T]) { l.cmp = cmp }
}

// WithParallelSort lets Sort hand large partitions to up to workers goroutines.
// The resulting order is identical to the sequential sort.
func WithParallelSort[T any](workers int) Option[T] {
	return func(l *List[T]) {
		if workers > 1 {
			l.workers = workers
		}
	}
}

func New[T any](opts ...Option[T]) *List[T] {
	l := &List[T]{head: &node[T]{}, tail: &node[T]{}}
	l.head.next = l.tail
	l.tail.prev = l.head
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *List[T]) Len() int { return l.n }

func (l *List[T]) Empty() bool { return l.n == 0 }

func (l *List[T]) mutable() error {
	if l.iterating || l.walkers > 0 {
		return ErrIterating
	}
	return nil
}

// findpos returns the node at index i. i == -1 yields the head sentinel and
// i == n the tail sentinel.
func (l *List[T]) findpos(i int) *node[T] {
	if i == -1 {
		return l.head
	}
	if i == l.n {
		return l.tail
	}
	m := l.n / 2
	var (
		x   *node[T]
		pos int
	)
	switch {
	case i <= l.n/4:
		x, pos = l.head.next, 0
		for ; pos < i; pos++ {
			x = x.next
		}
	case i < m:
		x, pos = l.mid, m
		for ; pos > i; pos-- {
			x = x.prev
		}
	case i <= (3*l.n)/4:
		x, pos = l.mid, m
		for ; pos < i; pos++ {
			x = x.next
		}
	default:
		x, pos = l.tail.prev, l.n-1
		for ; pos > i; pos-- {
			x = x.prev
		}
	}
	return x
}

// recenter moves mid from index cur to index n/2.
func (l *List[T]) recenter(cur int) {
	if l.n == 0 {
		l.mid = nil
		return
	}
	want := l.n / 2
	for cur < want {
		l.mid = l.mid.next
		cur++
	}
	for cur > want {
		l.mid = l.mid.prev
		cur--
	}
}

func (l *List[T]) newNode(v T) *node[T] {
	if k := len(l.spare); k > 0 {
		x := l.spare[k-1]
		l.spare = l.spare[:k-1]
		x.val = v
		return x
	}
	return &node[T]{val: v}
}

func (l *List[T]) freeNode(x *node[T]) {
	var zero T
	x.val = zero
	x.prev, x.next = nil, nil
	if len(l.spare) < maxSpare {
		l.spare = append(l.spare, x)
	}
}

func (l *List[T]) Append(v T) error { return l.InsertAt(l.n, v) }

// InsertAt places v so that it ends up at index i. Valid indexes are 0..Len().
func (l *List[T]) InsertAt(i int, v T) error {
	if err := l.mutable(); err != nil {
		return err
	}
	if i < 0 || i > l.n {
		return ErrIndex
	}
	prev := l.findpos(i - 1)
	succ := prev.next
	x := l.newNode(v)
	x.prev, x.next = prev, succ
	prev.next = x
	succ.prev = x

	if l.n == 0 {
		l.n = 1
		l.mid = x
		return nil
	}
	cur := l.n / 2
	if i <= cur {
		cur++
	}
	l.n++
	l.recenter(cur)
	return nil
}

func (l *List[T]) unlink(i int) T {
	x := l.findpos(i)
	cur := l.n / 2
	if x == l.mid {
		if x.next != l.tail {
			l.mid = x.next
		} else {
			l.mid = x.prev
			cur--
		}
	} else if i < cur {
		cur--
	}
	x.prev.next = x.next
	x.next.prev = x.prev
	l.n--
	v := x.val
	l.freeNode(x)
	l.recenter(cur)
	return v
}

func (l *List[T]) DeleteAt(i int) error {
	_, err := l.ExtractAt(i)
	return err
}

// ExtractAt removes the element at index i and returns it.
func (l *List[T]) ExtractAt(i int) (T, error) {
	var zero T
	if err := l.mutable(); err != nil {
		return zero, err
	}
	if i < 0 || i >= l.n {
		return zero, ErrIndex
	}
	return l.unlink(i), nil
}

// DeleteRange removes the elements at indexes from..to, both inclusive, and
// returns how many were removed.
func (l *List[T]) DeleteRange(from, to int) (int, error) {
	if err := l.mutable(); err != nil {
		return 0, err
	}
	if from < 0 || to >= l.n || from > to {
		return 0, ErrIndex
	}
	count := to - from + 1
	for k := 0; k < count; k++ {
		l.unlink(from)
	}
	return count, nil
}

func (l *List[T]) GetAt(i int) (T, error) {
	var zero T
	if i < 0 || i >= l.n {
		return zero, ErrIndex
	}
	return l.findpos(i).val, nil
}

func (l *List[T]) First() (T, bool) {
	if l.n == 0 {
		var zero T
		return zero, false
	}
	return l.head.next.val, true
}

// Clear removes every element.
func (l *List[T]) Clear() error {
	if err := l.mutable(); err != nil {
		return err
	}
	for x := l.head.next; x != l.tail; {
		next := x.next
		l.freeNode(x)
		x = next
	}
	l.head.next = l.tail
	l.tail.prev = l.head
	l.mid = nil
	l.n = 0
	return nil
}

// Locate returns the index of the first element comparing equal to v, or -1.
func (l *List[T]) Locate(v T) (int, error) {
	if l.cmp == nil {
		return -1, ErrNoComparator
	}
	i := 0
	for x := l.head.next; x != l.tail; x = x.next {
		if l.cmp(x.val, v) == 0 {
			return i, nil
		}
		i++
	}
	return -1, nil
}

func (l *List[T]) Contains(v T) (bool, error) {
	i, err := l.Locate(v)
	return i >= 0, err
}

// Seek returns the first element for which match reports true.
func (l *List[T]) Seek(match func(T) bool) (T, int, bool) {
	i := 0
	for x := l.head.next; x != l.tail; x = x.next {
		if match(x.val) {
			return x.val, i, true
		}
		i++
	}
	var zero T
	return zero, -1, false
}

// Slice copies the elements into a new slice in list order.
func (l *List[T]) Slice() []T {
	out := make([]T, 0, l.n)
	for x := l.head.next; x != l.tail; x = x.next {
		out = append(out, x.val)
	}
	return out
}

// All ranges over the elements in order. The list rejects structural
// mutation while the range loop runs.
func (l *List[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		l.walkers++
		defer func() { l.walkers-- }()
		i := 0
		for x := l.head.next; x != l.tail; x = x.next {
			if !yield(i, x.val) {
				return
			}
			i++
		}
	}
}

// IterStart opens an iteration session. Only one session may be open at a
// time and mutations fail with ErrIterating until IterStop is called.
func (l *List[T]) IterStart() error {
	if l.iterating {
		return ErrIterating
	}
	l.iterating = true
	l.cursor = l.head.next
	return nil
}

func (l *List[T]) HasNext() bool {
	return l.iterating && l.cursor != nil && l.cursor != l.tail
}

func (l *List[T]) Next() (T, bool) {
	var zero T
	if !l.HasNext() {
		return zero, false
	}
	v := l.cursor.val
	l.cursor = l.cursor.next
	return v, true
}

func (l *List[T]) IterStop() error {
	if !l.iterating {
		return ErrNoSession
	}
	l.iterating = false
	l.cursor = nil
	return nil
}
