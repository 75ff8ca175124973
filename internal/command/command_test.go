package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_FindReleaseFIFO(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	_, ok := q.Find("10.0.0.1")
	require.False(t, ok)

	first := &Command{Method: MethodGET, Type: TypeRefresh, ID: 1}
	second := &Command{Method: MethodGET, Type: TypeRefresh, ID: 2}
	q.Push("10.0.0.1", first)
	q.Push("10.0.0.1", second)

	got, ok := q.Find("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 1, got.ID)
	q.Release(got)

	got, ok = q.Find("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 2, got.ID)
	q.Release(got)

	_, ok = q.Find("10.0.0.1")
	require.False(t, ok)
}

func TestMemoryQueue_PerIPIsolation(t *testing.T) {
	t.Parallel()

	q := NewMemoryQueue()
	q.Push("10.0.0.1", &Command{ID: 1})

	_, ok := q.Find("10.0.0.2")
	require.False(t, ok)

	got, ok := q.Find("10.0.0.1")
	require.True(t, ok)
	require.Equal(t, 1, got.ID)
}
