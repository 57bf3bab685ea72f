package task

import (
	"context"
	"errors"
	"testing"

	"github.com/dusk-indust/buildgraph/internal/artifact"
	"github.com/dusk-indust/buildgraph/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTask struct {
	Base
	Input  *artifact.LocationProperty
	Output *artifact.LocationProperty
	ran    bool
}

func newStub(name string) *stubTask {
	return &stubTask{
		Base:   NewBase(name),
		Input:  artifact.NewFileProperty("input"),
		Output: artifact.NewFileProperty("output"),
	}
}

func (s *stubTask) Execute(context.Context) error {
	s.ran = true
	return nil
}

func TestRegister_IsLazy(t *testing.T) {
	c := NewContainer(nil)
	created := 0
	h, err := Register(c, "compile", func(name string) *stubTask {
		created++
		return newStub(name)
	})
	require.NoError(t, err)

	var order []string
	require.NoError(t, h.Configure(func(s *stubTask) error {
		order = append(order, "first")
		return nil
	}))
	require.NoError(t, h.Configure(func(s *stubTask) error {
		order = append(order, "second")
		return nil
	}))

	assert.Equal(t, 0, created, "registration must not create the task")
	assert.False(t, h.Realized())
	assert.Empty(t, c.Realized())

	got, err := c.Realize("compile")
	require.NoError(t, err)
	assert.Equal(t, "compile", got.Name())
	assert.Equal(t, 1, created)
	assert.Equal(t, []string{"first", "second"}, order, "actions run in registration order")

	again, err := h.Get()
	require.NoError(t, err)
	assert.Same(t, got, Task(again))
	assert.Equal(t, 1, created, "realization happens once")
	assert.Equal(t, []string{"compile"}, c.Realized())

	require.NoError(t, h.Configure(func(s *stubTask) error {
		order = append(order, "late")
		return nil
	}))
	assert.Equal(t, []string{"first", "second", "late"}, order, "late actions run immediately")
}

func TestRegister_Duplicate(t *testing.T) {
	c := NewContainer(nil)
	_, err := Register(c, "a", newStub)
	require.NoError(t, err)
	_, err = Register(c, "a", newStub)
	assert.ErrorIs(t, err, ErrDuplicateTask)
	assert.Equal(t, []string{"a"}, c.Names())
}

func TestRealize_Unknown(t *testing.T) {
	c := NewContainer(nil)
	_, err := c.Realize("missing")
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.False(t, c.Has("missing"))
}

func TestHandle_ConfigureErrorIsSticky(t *testing.T) {
	c := NewContainer(nil)
	boom := errors.New("boom")
	h, err := Register(c, "broken", newStub)
	require.NoError(t, err)
	require.NoError(t, h.Configure(func(*stubTask) error { return boom }))

	_, err = h.Get()
	assert.ErrorIs(t, err, boom)
	_, err = c.Realize("broken")
	assert.ErrorIs(t, err, boom)
	assert.False(t, h.Realized())
}

func TestHandle_TypeName(t *testing.T) {
	c := NewContainer(nil)
	h, err := Register(c, "stub", newStub)
	require.NoError(t, err)
	assert.Equal(t, "*task.stubTask", h.TypeName())

	name, err := c.TypeName("stub")
	require.NoError(t, err)
	assert.Equal(t, "*task.stubTask", name)
	assert.Equal(t, []string{"stub"}, h.Producers())
}

func TestBase_Dependencies(t *testing.T) {
	s := newStub("package")
	require.NoError(t, s.Input.Set(provider.New(func() (artifact.Location, error) {
		return artifact.File("in.txt"), nil
	}, "merge", "package")))

	require.NoError(t, s.TrackInput(Input{Name: "input", Value: s.Input, Sensitivity: artifact.SensitivityNone}))
	require.NoError(t, s.TrackOutput(Output{Name: "output", Value: s.Output}))
	s.DependsOn(provider.New(func() (int, error) { return 0, nil }, "lint", "merge"))

	assert.Equal(t, []string{"merge", "lint"}, s.Dependencies(), "self and repeats are dropped")

	assert.Error(t, s.TrackInput(Input{Name: "input", Value: s.Input}))
	assert.Error(t, s.TrackOutput(Output{Name: "output", Value: s.Output}))
	assert.Len(t, s.Inputs(), 1)
	assert.Len(t, s.Outputs(), 1)
}
