package olist

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, n int) *List[int] {
	t.Helper()
	l := New(WithComparator(cmp.Compare[int]))
	for i := 0; i < n; i++ {
		require.NoError(t, l.Append(i))
	}
	return l
}

func TestInsertGetLaw(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 7, 8, 31, 100} {
		for i := 0; i <= n; i++ {
			l := fill(t, n)
			before := l.Slice()

			require.NoError(t, l.InsertAt(i, -1))
			got, err := l.GetAt(i)
			require.NoError(t, err)
			assert.Equal(t, -1, got, "n=%d i=%d", n, i)
			assert.Equal(t, n+1, l.Len())

			require.NoError(t, l.DeleteAt(i))
			assert.Equal(t, before, l.Slice(), "n=%d i=%d", n, i)
		}
	}
}

func TestGetAtWalksFromEveryAnchor(t *testing.T) {
	l := fill(t, 57)
	for i := 0; i < 57; i++ {
		v, err := l.GetAt(i)
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	_, err := l.GetAt(57)
	assert.ErrorIs(t, err, ErrIndex)
	_, err = l.GetAt(-1)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestMidStaysConsistentUnderRandomEdits(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	l := New[int]()
	var ref []int
	for step := 0; step < 2000; step++ {
		if len(ref) == 0 || r.IntN(3) > 0 {
			i := r.IntN(len(ref) + 1)
			require.NoError(t, l.InsertAt(i, step))
			ref = slices.Insert(ref, i, step)
		} else {
			i := r.IntN(len(ref))
			v, err := l.ExtractAt(i)
			require.NoError(t, err)
			require.Equal(t, ref[i], v)
			ref = slices.Delete(ref, i, i+1)
		}
		if step%97 == 0 {
			for i, want := range ref {
				got, err := l.GetAt(i)
				require.NoError(t, err)
				require.Equal(t, want, got)
			}
		}
	}
	assert.Equal(t, ref, l.Slice())
}

func TestDeleteRange(t *testing.T) {
	l := fill(t, 10)
	n, err := l.DeleteRange(2, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{0, 1, 6, 7, 8, 9}, l.Slice())

	_, err = l.DeleteRange(4, 9)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestSpareCacheIsBounded(t *testing.T) {
	l := fill(t, 20)
	require.NoError(t, l.Clear())
	assert.Len(t, l.spare, maxSpare)
	assert.Equal(t, 0, l.Len())

	require.NoError(t, l.Append(42))
	assert.Len(t, l.spare, maxSpare-1)
	v, _ := l.First()
	assert.Equal(t, 42, v)
}

func TestLocateAndContains(t *testing.T) {
	l := fill(t, 5)
	i, err := l.Locate(3)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	ok, err := l.Contains(9)
	require.NoError(t, err)
	assert.False(t, ok)

	plain := New[int]()
	_, err = plain.Locate(1)
	assert.ErrorIs(t, err, ErrNoComparator)

	v, idx, found := l.Seek(func(x int) bool { return x > 2 })
	assert.True(t, found)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, idx)
}

func TestSort(t *testing.T) {
	for _, n := range []int{0, 1, 2, 10, 24, 25, 300, 10000} {
		r := rand.New(rand.NewPCG(uint64(n), 3))
		l := New(WithComparator(cmp.Compare[int]))
		var ref []int
		for i := 0; i < n; i++ {
			v := r.IntN(n/2 + 1)
			ref = append(ref, v)
			require.NoError(t, l.Append(v))
		}
		require.NoError(t, l.Sort())
		slices.Sort(ref)
		assert.Equal(t, ref, l.Slice(), "n=%d", n)
	}
}

type keyed struct{ key, id int }

func TestParallelSortMatchesSequential(t *testing.T) {
	byKey := func(a, b keyed) int { return cmp.Compare(a.key, b.key) }
	seq := New(WithComparator(byKey))
	par := New(WithComparator(byKey), WithParallelSort[keyed](4))

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50000; i++ {
		// duplicate keys expose any difference in element placement
		k := keyed{key: r.IntN(1000), id: i}
		require.NoError(t, seq.Append(k))
		require.NoError(t, par.Append(k))
	}
	require.NoError(t, seq.Sort())
	require.NoError(t, par.Sort())
	assert.Equal(t, seq.Slice(), par.Slice())
}

func TestIterationSessionRejectsMutation(t *testing.T) {
	l := fill(t, 3)
	require.NoError(t, l.IterStart())
	assert.ErrorIs(t, l.IterStart(), ErrIterating)

	var got []int
	for l.HasNext() {
		v, ok := l.Next()
		require.True(t, ok)
		got = append(got, v)
		assert.ErrorIs(t, l.Append(9), ErrIterating)
		_, err := l.ExtractAt(0)
		assert.ErrorIs(t, err, ErrIterating)
		assert.ErrorIs(t, l.Sort(), ErrIterating)
	}
	assert.Equal(t, []int{0, 1, 2}, got)
	require.NoError(t, l.IterStop())
	assert.ErrorIs(t, l.IterStop(), ErrNoSession)
	require.NoError(t, l.Append(3))
}

func TestAllBlocksMutation(t *testing.T) {
	l := fill(t, 4)
	var sum int
	for _, v := range l.All() {
		sum += v
		assert.ErrorIs(t, l.Append(1), ErrIterating)
	}
	assert.Equal(t, 6, sum)
	require.NoError(t, l.Append(1))
}
