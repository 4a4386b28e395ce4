package lineage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
)

func info(sinks map[string][]string, sources ...string) lineage.Info {
	m := map[string]lineage.Set{}
	for k, v := range sinks {
		m[k] = lineage.NewSet(v...)
	}
	return lineage.NewInfo(m, lineage.NewSet(sources...))
}

func TestMergeAll(t *testing.T) {
	a := info(map[string][]string{"s1": {"x"}, "s2": {}}, "x", "y")
	b := info(map[string][]string{"s1": {"z"}, "s3": {"w"}}, "z")

	got := lineage.MergeAll(a, b)
	assert.Equal(t, flatten(info(map[string][]string{
		"s1": {"x", "z"},
		"s2": {},
		"s3": {"w"},
	}, "x", "y", "z")), flatten(got))

	t.Run("commutative", func(t *testing.T) {
		assert.Equal(t, flatten(lineage.MergeAll(a, b)), flatten(lineage.MergeAll(b, a)))
	})
	t.Run("identity", func(t *testing.T) {
		assert.Equal(t, flatten(a), flatten(lineage.MergeAll(a, lineage.NewEmpty())))
		assert.Equal(t, flatten(a), flatten(lineage.MergeAll(lineage.NewEmpty(), a)))
	})
	t.Run("associative", func(t *testing.T) {
		c := info(map[string][]string{"s2": {"q"}}, "q")
		left := lineage.MergeAll(lineage.MergeAll(a, b), c)
		right := lineage.MergeAll(a, lineage.MergeAll(b, c))
		assert.Equal(t, flatten(left), flatten(right))
	})
	t.Run("arguments untouched", func(t *testing.T) {
		assert.Equal(t, []string{"x"}, a.Lineage["s1"].Sorted())
		assert.Equal(t, []string{"z"}, b.Lineage["s1"].Sorted())
	})
}

func TestMergeKeepsLeftContext(t *testing.T) {
	name := "left.sql"
	a := lineage.NewEmpty().WithContext(lineage.Context{SourceName: &name})
	b := lineage.NewEmpty().WithSourceName("right.sql")

	assert.Equal(t, a.Context, lineage.MergeAll(a, b).Context)
	assert.Equal(t, a.Context, lineage.MergeOnlyLineage(a, b).Context)
	assert.Nil(t, lineage.MergeAll(lineage.NewEmpty(), b).Context)
}

func TestMergeOnlyLineage(t *testing.T) {
	a := info(map[string][]string{"t": {"x"}}, "x")
	b := info(map[string][]string{"inner": {"y"}}, "y")

	got := lineage.MergeOnlyLineage(a, b)
	assert.Equal(t, flatten(info(map[string][]string{
		"t":     {"x"},
		"inner": {"y"},
	}, "x")), flatten(got))
}

func TestResolvedTransitive(t *testing.T) {
	resolved := map[string]lineage.Set{
		"cte_a": lineage.NewSet("base1", "base2"),
		"cte_b": lineage.NewSet("base3"),
	}
	in := info(map[string][]string{"sink": {"cte_a", "plain"}}, "cte_a", "cte_b", "plain")

	got := lineage.ResolvedTransitive(in, resolved)
	assert.Equal(t, flatten(info(map[string][]string{
		"sink": {"base1", "base2", "plain"},
	}, "base1", "base2", "base3", "plain")), flatten(got))

	t.Run("single hop", func(t *testing.T) {
		chain := map[string]lineage.Set{"c": lineage.NewSet("b")}
		got := lineage.ResolvedTransitive(info(nil, "c"), chain)
		assert.Equal(t, []string{"b"}, got.Sources.Sorted())
	})
	t.Run("sink names are not substituted", func(t *testing.T) {
		got := lineage.ResolvedTransitive(info(map[string][]string{"cte_a": {"x"}}), resolved)
		assert.Contains(t, got.Lineage, "cte_a")
	})
}

func TestMergeSourcePositions(t *testing.T) {
	p := func(l1, c1, l2, c2 int) *lineage.SourcePosition {
		return &lineage.SourcePosition{
			Start: lineage.TextPosition{Line: l1, PositionInLine: c1},
			Stop:  lineage.TextPosition{Line: l2, PositionInLine: c2},
		}
	}

	assert.Nil(t, lineage.MergeSourcePositions(nil, nil))
	assert.Equal(t, p(1, 0, 1, 5), lineage.MergeSourcePositions(p(1, 0, 1, 5), nil))
	assert.Equal(t, p(1, 0, 1, 5), lineage.MergeSourcePositions(nil, p(1, 0, 1, 5)))
	assert.Equal(t, p(1, 4, 3, 2), lineage.MergeSourcePositions(p(2, 0, 3, 2), p(1, 4, 2, 9)))
	assert.Equal(t, p(1, 2, 1, 9), lineage.MergeSourcePositions(p(1, 3, 1, 9), p(1, 2, 1, 4)))
}

func TestTextPositionCompare(t *testing.T) {
	a := lineage.TextPosition{Line: 1, PositionInLine: 10}
	b := lineage.TextPosition{Line: 2, PositionInLine: 0}
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.Equal(t, -1, a.Compare(lineage.TextPosition{Line: 1, PositionInLine: 11}))
}

func TestSet(t *testing.T) {
	s := lineage.NewSet("b", "a")
	s.Add("c")
	require.True(t, s.Contains("a"))
	assert.False(t, s.Contains("d"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Sorted())

	u := s.Union(lineage.NewSet("d"))
	assert.Len(t, s, 3)
	assert.Len(t, u, 4)

	var nilSet lineage.Set
	assert.Empty(t, nilSet.Clone())
	assert.NotNil(t, nilSet.Clone())
}

func TestWithSourceNameKeepsPosition(t *testing.T) {
	pos := &lineage.SourcePosition{Stop: lineage.TextPosition{Line: 1, PositionInLine: 3}}
	i := lineage.NewEmpty().WithContext(lineage.Context{PositionInSource: pos}).WithSourceName("in.sql")
	require.NotNil(t, i.Context.SourceName)
	assert.Equal(t, "in.sql", *i.Context.SourceName)
	assert.Equal(t, pos, i.Position())
	assert.Equal(t, []string{}, i.Sinks())
}
