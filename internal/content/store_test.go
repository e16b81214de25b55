package content

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
	"github.com/danielpatrickdp/quest-forensics/internal/rules"
)

// seekDareInterior pins hexagram "27" to SEEK_DARE_INTERIOR.
var seekDareInterior = geometry.NewStaticBiasProvider(map[string]geometry.Bias{
	"27": {
		geometry.AxisVisibility: {"HIDE": 0, "SEEK": 1},
		geometry.AxisRevelation: {"TRUTH": 0, "DARE": 1},
		geometry.AxisDirection:  {"INTERIOR": 1, "EXTERIOR": 0},
	},
})

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "quests.db"), WithBiasProvider(seekDareInterior))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndResolve(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	q, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "cold shower", "days": 3}})
	require.NoError(t, err)
	assert.NotEmpty(t, q.ID)
	assert.Equal(t, "SEEK_DARE_INTERIOR", q.Geometry.State)
	assert.True(t, q.Eligible)

	got, err := s.Resolve(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Geometry, got.Geometry)
	assert.Equal(t, "cold shower", got.Inputs["challenge"])
	assert.Equal(t, 3.0, got.Inputs["days"])
}

func TestCreate_DeterministicGeometryPerHexagram(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "quests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	want := geometry.Assign(geometry.AssignRequest{ContentID: "11"})
	rule, err := rules.GetRule(want.State)
	require.NoError(t, err)
	inputs := map[string]any{}
	for _, in := range rule.Inputs {
		switch in.Type {
		case rules.InputChoice:
			inputs[in.Key] = in.Options[0]
		case rules.InputNumber:
			inputs[in.Key] = 1
		case rules.InputBoolean:
			inputs[in.Key] = true
		default:
			inputs[in.Key] = "value"
		}
	}

	q, err := s.Create(context.Background(), NewQuest{HexagramID: "11", Inputs: inputs})
	require.NoError(t, err)
	assert.Equal(t, want, q.Geometry)
}

func TestCreate_RejectsMissingRequiredInputs(t *testing.T) {
	s := tempStore(t)
	_, err := s.Create(context.Background(), NewQuest{HexagramID: "27", Inputs: map[string]any{"days": 3}})
	var verr *rules.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"challenge"}, verr.Missing)

	_, err = s.Create(context.Background(), NewQuest{})
	assert.Error(t, err)
}

func TestResolve_NotFound(t *testing.T) {
	s := tempStore(t)
	_, err := s.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_IneligibleQuest(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	q, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "a"}})
	require.NoError(t, err)

	require.NoError(t, s.SetEligible(ctx, q.ID, false))
	_, err = s.Resolve(ctx, q.ID)
	assert.ErrorIs(t, err, ErrNoEligibleContent)

	require.NoError(t, s.SetEligible(ctx, q.ID, true))
	got, err := s.Resolve(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestFirstEligible(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	_, err := s.FirstEligible(ctx)
	assert.ErrorIs(t, err, ErrNoEligibleContent)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	first, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "a"}})
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(time.Hour) }
	second, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "b"}})
	require.NoError(t, err)

	got, err := s.FirstEligible(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, s.SetEligible(ctx, first.ID, false))
	got, err = s.FirstEligible(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	require.NoError(t, s.SetEligible(ctx, second.ID, false))
	_, err = s.FirstEligible(ctx)
	assert.ErrorIs(t, err, ErrNoEligibleContent)

	assert.ErrorIs(t, s.SetEligible(ctx, "missing", true), ErrNotFound)

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
}

func TestFirstEligible_SubSecondOrder(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	whole := time.Date(2026, 3, 1, 0, 0, 5, 0, time.UTC)
	s.now = func() time.Time { return whole.Add(500 * time.Millisecond) }
	later, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "later"}})
	require.NoError(t, err)
	s.now = func() time.Time { return whole }
	earlier, err := s.Create(ctx, NewQuest{HexagramID: "27", Inputs: map[string]any{"challenge": "earlier"}})
	require.NoError(t, err)

	got, err := s.FirstEligible(ctx)
	require.NoError(t, err)
	assert.Equal(t, earlier.ID, got.ID)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, later.ID, list[0].ID)
	assert.True(t, list[1].CreatedAt.Equal(whole))
}

func TestImport(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	g := geometry.NewGeometry(geometry.Hide, geometry.Truth, geometry.Exterior)
	require.NoError(t, s.Import(ctx, Quest{ID: "fixed", HexagramID: "5", Geometry: g, Eligible: true}))

	q, err := s.Resolve(ctx, "fixed")
	require.NoError(t, err)
	assert.Equal(t, g, q.Geometry)
	assert.Empty(t, q.Inputs)

	assert.Error(t, s.Import(ctx, Quest{ID: "bad", Geometry: geometry.Geometry{State: "NOPE"}}))
}

func TestStaticSource(t *testing.T) {
	src := NewStaticSource(
		Quest{ID: "a", Eligible: false},
		Quest{ID: "b", Eligible: true},
	)
	q, err := src.FirstEligible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", q.ID)

	_, err = src.Resolve(context.Background(), "c")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = src.Resolve(context.Background(), "a")
	assert.ErrorIs(t, err, ErrNoEligibleContent)
	assert.Equal(t, []string{"a", "b"}, src.IDs())

	_, err = NewStaticSource().FirstEligible(context.Background())
	assert.ErrorIs(t, err, ErrNoEligibleContent)
}
