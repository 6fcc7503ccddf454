package block

import (
	"math/rand"
	"testing"

	"github.com/coldb/coldb/pkg/storage/config"
	"github.com/coldb/coldb/pkg/storage/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSplitRoundTrip(t *testing.T) {
	body := []byte("hello block body")
	framed := Frame(body, TypePlain, config.ChecksumCrc32)

	bt, got, err := Split(framed)
	require.NoError(t, err)
	assert.Equal(t, TypePlain, bt)
	assert.Equal(t, body, got)
}

func TestSplitDetectsChecksumMismatch(t *testing.T) {
	framed := Frame([]byte("payload"), TypePlain, config.ChecksumCrc32)
	framed[0] ^= 0xFF // corrupt the body

	_, _, err := Split(framed)
	assert.Error(t, err)
}

func TestSplitTooShort(t *testing.T) {
	_, _, err := Split([]byte{1, 2, 3})
	assert.Error(t, err)
}

// outerRoundTrip appends vals (nil meaning SQL NULL) through an
// OuterBuilder/OuterIterator pair and asserts the decoded values match.
func outerRoundTrip[T any](t *testing.T, ob OuterBuilder[T], vals []*T, eq func(a, b T) bool,
	newIter func(body []byte, n int) (OuterIterator[T], error)) {
	t.Helper()
	for _, v := range vals {
		require.NoError(t, ob.Append(v))
	}
	body := ob.Finish()

	it, err := newIter(body, len(vals))
	require.NoError(t, err)

	var got []T
	var nulls []bool
	sink := &recordingSink[T]{}
	for it.RemainingItems() > 0 {
		n := it.NextBatch(4, sink)
		if n == 0 {
			break
		}
	}
	got, nulls = sink.values, sink.nulls

	require.Len(t, got, len(vals))
	for i, v := range vals {
		if v == nil {
			assert.True(t, nulls[i], "row %d expected null", i)
			continue
		}
		assert.False(t, nulls[i], "row %d expected non-null", i)
		assert.True(t, eq(*v, got[i]), "row %d: want %v got %v", i, *v, got[i])
	}
}

type recordingSink[T any] struct {
	values []T
	nulls  []bool
}

func (s *recordingSink[T]) Append(v T) {
	s.values = append(s.values, v)
	s.nulls = append(s.nulls, false)
}

func (s *recordingSink[T]) AppendNull() {
	var zero T
	s.values = append(s.values, zero)
	s.nulls = append(s.nulls, true)
}

func TestInt32Plain_DirectRoundTrip(t *testing.T) {
	vals := []*int32{ptr(int32(1)), ptr(int32(2)), ptr(int32(3))}
	outerRoundTrip[int32](t, NewInt32OuterBuilder(config.EncodePlain, false), vals,
		func(a, b int32) bool { return a == b },
		func(body []byte, n int) (OuterIterator[int32], error) {
			return NewInt32OuterIterator(TypePlain, body, n)
		})
}

func TestInt32Nullable_RoundTrip(t *testing.T) {
	vals := []*int32{ptr(int32(1)), nil, ptr(int32(3)), nil}
	bt := TypePlain | NullableFlag
	outerRoundTrip[int32](t, NewInt32OuterBuilder(config.EncodePlain, true), vals,
		func(a, b int32) bool { return a == b },
		func(body []byte, n int) (OuterIterator[int32], error) {
			return NewInt32OuterIterator(bt, body, n)
		})
}

// TestRLERoundTrip_Property is spec.md §8's named RLE round-trip property
// test: random runs of repeated int32 values must decode back unchanged.
func TestRLERoundTrip_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		var vals []*int32
		numRuns := 1 + rng.Intn(10)
		for i := 0; i < numRuns; i++ {
			v := int32(rng.Intn(5))
			runLen := 1 + rng.Intn(8)
			for j := 0; j < runLen; j++ {
				vals = append(vals, ptr(v))
			}
		}
		bt := TypeRLE
		outerRoundTrip[int32](t, NewInt32OuterBuilder(config.EncodeRunLength, false), vals,
			func(a, b int32) bool { return a == b },
			func(body []byte, n int) (OuterIterator[int32], error) {
				return NewInt32OuterIterator(bt, body, n)
			})
	}
}

// TestDictRoundTrip_Property is spec.md §8's named Dict round-trip
// property test: random low-cardinality string columns must decode back
// to their original values via the dictionary + RLE code stream.
func TestDictRoundTrip_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	alphabet := []string{"alpha", "beta", "gamma", "delta"}
	for trial := 0; trial < 20; trial++ {
		n := 1 + rng.Intn(40)
		vals := make([]*string, n)
		for i := range vals {
			s := alphabet[rng.Intn(len(alphabet))]
			vals[i] = &s
		}
		bt := TypeDict
		outerRoundTrip[string](t, NewVarcharOuterBuilder(config.EncodeDictionary, false), vals,
			func(a, b string) bool { return a == b },
			func(body []byte, n int) (OuterIterator[string], error) {
				return NewVarcharOuterIterator(bt, body, n)
			})
	}
}

func TestVectorRoundTrip(t *testing.T) {
	dim := 3
	v1 := []float64{1, 2, 3}
	v2 := []float64{4, 5, 6}
	vals := []*[]float64{&v1, &v2}
	bt := TypeVector
	outerRoundTrip[[]float64](t, NewVectorOuterBuilder(dim, false), vals,
		func(a, b []float64) bool {
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i] != b[i] {
					return false
				}
			}
			return true
		},
		func(body []byte, n int) (OuterIterator[[]float64], error) {
			return NewVectorOuterIterator(bt, body, dim)
		})
}

func TestFixedChar_ExceedsWidthReturnsError(t *testing.T) {
	b := NewPlainFixedCharBuilder(4)
	err := b.AppendValue([]byte("toolong"))
	require.Error(t, err)
	var lim *errs.ExceedLengthLimitError
	require.ErrorAs(t, err, &lim)
	assert.Equal(t, 4, lim.Limit)
	assert.Equal(t, 7, lim.Got)
}

func TestFixedChar_WithinWidthOK(t *testing.T) {
	b := NewPlainFixedCharBuilder(4)
	require.NoError(t, b.AppendValue([]byte("ab")))
	require.NoError(t, b.AppendValue([]byte("abcd")))
}

func ptr[T any](v T) *T { return &v }
