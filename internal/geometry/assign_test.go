package geometry

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/quest-forensics/internal/sampler"
)

func TestAssign_Deterministic(t *testing.T) {
	for _, contentID := range []string{"1", "29", "64", "quest-abc"} {
		for _, seed := range []any{"s1", 7, "", 3.25} {
			a := Assign(AssignRequest{ContentID: contentID, Seed: seed})
			b := Assign(AssignRequest{ContentID: contentID, Seed: seed})
			if diff := cmp.Diff(a, b); diff != "" {
				t.Fatalf("content %s seed %v: geometry differs (-first +second):\n%s", contentID, seed, diff)
			}
		}
	}
}

func TestAssign_ContentIDUsedWhenNoSeed(t *testing.T) {
	a := Assign(AssignRequest{ContentID: "hex-12"})
	b := Assign(AssignRequest{ContentID: "other", Seed: "hex-12"})
	assert.Equal(t, a, b)
}

func TestAssign_RandTakesPrecedence(t *testing.T) {
	calls := 0
	src := sampler.SourceFunc(func() float64 {
		calls++
		return 0.99
	})
	g := Assign(AssignRequest{ContentID: "x", Seed: "ignored", Rand: src})
	assert.Equal(t, 3, calls)
	assert.Equal(t, "SEEK_DARE_EXTERIOR", g.State)
}

func TestAssign_LowDrawPicksFirstValues(t *testing.T) {
	src := sampler.SourceFunc(func() float64 { return 0 })
	g := Assign(AssignRequest{Rand: src})
	assert.Equal(t, "HIDE_TRUTH_INTERIOR", g.State)
}

func TestAssign_UniformSanity(t *testing.T) {
	const draws = 8000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		g := Assign(AssignRequest{ContentID: "uniform", Seed: fmt.Sprintf("seed-%d", i)})
		counts[g.State]++
	}
	require.Len(t, counts, 8)
	expected := float64(draws) / 8
	for state, c := range counts {
		dev := math.Abs(float64(c)-expected) / expected
		assert.Less(t, dev, 0.30, "state %s observed %d times", state, c)
	}
}

func TestAssign_SharedStreamThroughput(t *testing.T) {
	rng := sampler.New("shared")
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[Assign(AssignRequest{ContentID: "ignored", Rand: rng}).State]++
	}
	assert.Len(t, counts, 8)
}

func TestAssign_BiasDominance(t *testing.T) {
	const trials = 3000
	bias := Bias{
		AxisVisibility: {string(Seek): 100, string(Hide): 1},
		AxisRevelation: {string(Truth): 100, string(Dare): 1},
		AxisDirection:  {string(Exterior): 100, string(Interior): 1},
	}
	rng := sampler.New("bias")
	var seek, hide, truth, dare, ext, inner int
	for i := 0; i < trials; i++ {
		g := Assign(AssignRequest{Bias: bias, Rand: rng})
		if g.Visibility == Seek {
			seek++
		} else {
			hide++
		}
		if g.Revelation == Truth {
			truth++
		} else {
			dare++
		}
		if g.Direction == Exterior {
			ext++
		} else {
			inner++
		}
	}
	assert.Greater(t, seek, 3*hide)
	assert.Greater(t, truth, 3*dare)
	assert.Greater(t, ext, 3*inner)
	assert.Greater(t, float64(seek)/trials, 0.75)
}

func TestAssign_DegenerateBiasFallsBackToUniform(t *testing.T) {
	bias := Bias{
		AxisVisibility: {string(Hide): 0, string(Seek): 0},
		AxisRevelation: {string(Truth): math.NaN(), string(Dare): -4},
		AxisDirection:  {string(Interior): math.Inf(1)},
	}
	rng := sampler.New("degenerate")
	counts := map[Visibility]int{}
	revCounts := map[Revelation]int{}
	dirCounts := map[Direction]int{}
	for i := 0; i < 4000; i++ {
		g := Assign(AssignRequest{Bias: bias, Rand: rng})
		counts[g.Visibility]++
		revCounts[g.Revelation]++
		dirCounts[g.Direction]++
	}
	for _, c := range []int{counts[Hide], counts[Seek], revCounts[Truth], revCounts[Dare], dirCounts[Interior], dirCounts[Exterior]} {
		assert.InDelta(t, 2000, c, 300)
	}
}

func TestPickWeighted_ZeroWeightValueSkipped(t *testing.T) {
	src := sampler.SourceFunc(func() float64 { return 0.5 })
	got := pickWeighted(src, visibilityValues, AxisWeights{string(Hide): 0, string(Seek): 1})
	assert.Equal(t, string(Seek), got)
}

func TestPickWeighted_HugeWeightsDoNotOverflow(t *testing.T) {
	huge := AxisWeights{string(Hide): 1e308, string(Seek): 1e308}
	for _, tc := range []struct {
		draw float64
		want Visibility
	}{
		{0, Hide},
		{0.25, Hide},
		{0.75, Seek},
	} {
		src := sampler.SourceFunc(func() float64 { return tc.draw })
		assert.Equal(t, string(tc.want), pickWeighted(src, visibilityValues, huge), "draw %v", tc.draw)
	}

	rng := sampler.New("overflow")
	hides := 0
	for i := 0; i < 1000; i++ {
		if pickWeighted(rng, visibilityValues, huge) == string(Hide) {
			hides++
		}
	}
	assert.InDelta(t, 500, hides, 100)
}

func TestAllStatesAndParse(t *testing.T) {
	states := AllStates()
	require.Len(t, states, 8)
	assert.Equal(t, "HIDE_TRUTH_INTERIOR", states[0])
	assert.Equal(t, "SEEK_DARE_EXTERIOR", states[7])
	for _, s := range states {
		g, err := ParseState(s)
		require.NoError(t, err)
		assert.Equal(t, s, g.State)
	}
	_, err := ParseState("SEEK_DARE")
	assert.Error(t, err)
	_, err = ParseState("SEEK_MAYBE_EXTERIOR")
	assert.Error(t, err)
}

func TestStaticBiasProvider(t *testing.T) {
	table := map[string]Bias{"29": {AxisVisibility: {string(Hide): 5}}}
	p := NewStaticBiasProvider(table)
	table["29"][AxisVisibility][string(Hide)] = 0

	b := p.BiasFor("29")
	require.NotNil(t, b)
	assert.Equal(t, 5.0, b[AxisVisibility][string(Hide)])
	assert.Nil(t, p.BiasFor("1"))

	var provider CubeBiasProvider = NoBias{}
	assert.Nil(t, provider.BiasFor("29"))
}

func TestAssignWithProvider(t *testing.T) {
	p := NewStaticBiasProvider(map[string]Bias{
		"2": {
			AxisVisibility: {string(Hide): 1, string(Seek): 0},
			AxisRevelation: {string(Truth): 0, string(Dare): 1},
			AxisDirection:  {string(Interior): 1, string(Exterior): 0},
		},
	})
	src := sampler.SourceFunc(func() float64 { return 0.7 })
	g := AssignWithProvider(p, AssignRequest{ContentID: "2", Rand: src})
	assert.Equal(t, "HIDE_DARE_INTERIOR", g.State)
}

func TestLoadBiasTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bias.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`biases:
  "29":
    visibility: {HIDE: 3, SEEK: 1}
    direction: {INTERIOR: 2}
`), 0o644))

	p, err := LoadBiasTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 3.0, p.BiasFor("29")[AxisVisibility][string(Hide)])

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("biases:\n  \"1\":\n    colour: {RED: 1}\n"), 0o644))
	_, err = LoadBiasTable(bad)
	assert.Error(t, err)
}
