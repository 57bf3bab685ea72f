package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOf(t *testing.T) {
	p := Of(42)
	v, err := p.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Empty(t, p.Producers())
}

func TestNew_IsCalledOnEveryGet(t *testing.T) {
	calls := 0
	p := New(func() (int, error) {
		calls++
		return calls, nil
	}, "compile")

	first, err := p.Get()
	require.NoError(t, err)
	second, err := p.Get()
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
	assert.Equal(t, []string{"compile"}, p.Producers())
}

func TestMapAndFlatMap(t *testing.T) {
	base := New(func() (int, error) { return 3, nil }, "a")

	doubled := Map(base, func(v int) int { return v * 2 })
	v, err := doubled.Get()
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, []string{"a"}, doubled.Producers())

	chained := FlatMap(base, func(v int) (Provider[string], error) {
		if v != 3 {
			return nil, errors.New("unexpected")
		}
		return Of("three"), nil
	})
	s, err := chained.Get()
	require.NoError(t, err)
	assert.Equal(t, "three", s)
	assert.Equal(t, []string{"a"}, chained.Producers())
}

func TestFlatMap_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	p := FlatMap(New(func() (int, error) { return 0, boom }), func(int) (Provider[int], error) {
		t.Fatal("fn must not be called when the source fails")
		return nil, nil
	})
	_, err := p.Get()
	assert.ErrorIs(t, err, boom)
}

func TestProperty_ReadThrough(t *testing.T) {
	prop := NewProperty[string]("manifest")
	held := Provider[string](prop)

	require.NoError(t, prop.SetValue("first"))
	v, err := held.Get()
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	require.NoError(t, prop.Set(New(func() (string, error) { return "second", nil }, "transform")))
	v, err = held.Get()
	require.NoError(t, err)
	assert.Equal(t, "second", v, "holders see the re-pointed source")
	assert.Equal(t, []string{"transform"}, held.Producers())
}

func TestProperty_Missing(t *testing.T) {
	prop := NewProperty[int]("dex")
	_, err := prop.Get()
	assert.ErrorIs(t, err, ErrMissingValue)
	assert.False(t, prop.IsPresent())

	custom := errors.New("custom missing")
	withHook := NewProperty[int]("dex", WithMissing(func() error { return custom }))
	_, err = withHook.Get()
	assert.ErrorIs(t, err, custom)
}

func TestProperty_Sealed(t *testing.T) {
	prop := NewProperty[int]("output")
	require.NoError(t, prop.SetValue(1))
	prop.Seal()
	assert.True(t, prop.Sealed())

	err := prop.SetValue(2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBindingViolation)

	var bv *BindingViolationError
	require.ErrorAs(t, err, &bv)
	assert.Equal(t, "output", bv.Property)

	v, err := prop.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v, "sealed value is unchanged")
}

func TestProperty_RejectsSelfReference(t *testing.T) {
	prop := NewProperty[int]("loop")
	assert.Error(t, prop.Set(prop))
}

func TestListProperty(t *testing.T) {
	list := NewListProperty[string]("resources")

	empty, err := list.Get()
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, list.Add(New(func() (string, error) { return "a", nil }, "genA")))
	require.NoError(t, list.AddAll(New(func() ([]string, error) { return []string{"b", "c"}, nil }, "genBC", "genA")))

	got, err := list.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, []string{"genA", "genBC"}, list.Producers(), "producers are de-duplicated in first-seen order")
	assert.Equal(t, 2, list.Len())

	require.NoError(t, list.Set(Of([]string{"z"})))
	got, err = list.Get()
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, got)

	list.Seal()
	assert.ErrorIs(t, list.Add(Of("late")), ErrBindingViolation)
	assert.ErrorIs(t, list.Set(Of([]string{"late"})), ErrBindingViolation)
}

func TestListProperty_ErrorNamesList(t *testing.T) {
	boom := errors.New("boom")
	list := NewListProperty[int]("dexFiles")
	require.NoError(t, list.Add(New(func() (int, error) { return 0, boom })))

	_, err := list.Get()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dexFiles")
}

func TestReadOnly(t *testing.T) {
	prop := NewProperty[int]("final")
	require.NoError(t, prop.SetValue(1))

	view := ReadOnly[int](prop)
	_, isProperty := view.(*Property[int])
	assert.False(t, isProperty, "the view must not expose the property")

	require.NoError(t, prop.SetValue(2))
	v, err := view.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
