package olist

import "sync"

// minQuicksort is the partition size below which selection sort is used.
const minQuicksort = 24

// parallelThreshold is the smallest partition handed to a helper goroutine.
const parallelThreshold = 4096

// Sort orders the list ascending by its comparator.
func (l *List[T]) Sort() error {
	if l.cmp == nil {
		return ErrNoComparator
	}
	return l.SortFunc(l.cmp)
}

// SortFunc orders the list ascending by cmp. Element values are swapped
// between nodes; the node chain itself is not relinked.
func (l *List[T]) SortFunc(cmp func(a, b T) int) error {
	if err := l.mutable(); err != nil {
		return err
	}
	if l.n < 2 {
		return nil
	}
	nodes := make([]*node[T], 0, l.n)
	for x := l.head.next; x != l.tail; x = x.next {
		nodes = append(nodes, x)
	}
	s := sorter[T]{nodes: nodes, cmp: cmp}
	if l.workers > 1 {
		s.sem = make(chan struct{}, l.workers-1)
	}
	s.quicksort(0, len(nodes)-1)
	s.wg.Wait()
	return nil
}

type sorter[T any] struct {
	nodes []*node[T]
	cmp   func(a, b T) int

	sem chan struct{}
	wg  sync.WaitGroup
}

func (s *sorter[T]) swap(i, j int) {
	s.nodes[i].val, s.nodes[j].val = s.nodes[j].val, s.nodes[i].val
}

func (s *sorter[T]) selection(first, last int) {
	for i := first; i < last; i++ {
		lo := i
		for j := i + 1; j <= last; j++ {
			if s.cmp(s.nodes[j].val, s.nodes[lo].val) < 0 {
				lo = j
			}
		}
		if lo != i {
			s.swap(i, lo)
		}
	}
}

func (s *sorter[T]) quicksort(first, last int) {
	for last-first+1 > minQuicksort {
		p := s.partition(first, last)
		left, right := [2]int{first, p - 1}, [2]int{p + 1, last}
		// recurse into the smaller side, loop on the larger
		if left[1]-left[0] > right[1]-right[0] {
			left, right = right, left
		}
		if !s.spawn(left[0], left[1]) {
			s.quicksort(left[0], left[1])
		}
		first, last = right[0], right[1]
	}
	if first < last {
		s.selection(first, last)
	}
}

// spawn sorts [first,last] on a helper goroutine if one is free.
func (s *sorter[T]) spawn(first, last int) bool {
	if s.sem == nil || last-first+1 < parallelThreshold {
		return false
	}
	select {
	case s.sem <- struct{}{}:
	default:
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { <-s.sem }()
		s.quicksort(first, last)
	}()
	return true
}

func (s *sorter[T]) partition(first, last int) int {
	p := first + int(pivotHash(uint64(first), uint64(last))%uint64(last-first+1))
	s.swap(p, last)
	pivot := s.nodes[last].val
	store := first
	for i := first; i < last; i++ {
		if s.cmp(s.nodes[i].val, pivot) < 0 {
			s.swap(i, store)
			store++
		}
	}
	s.swap(store, last)
	return store
}

// pivotHash derives the pivot from the partition bounds only, so parallel and
// sequential runs pick the same pivots.
func pivotHash(first, last uint64) uint64 {
	x := first<<32 ^ last
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
