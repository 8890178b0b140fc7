package store

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStorage(t *testing.T) {
	t.Parallel()

	t.Run("set_get_delete", func(t *testing.T) {
		s := NewMemStorage()
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Set("a", []byte("1")))
		v, found, err := s.Get("a")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("1"), v)

		require.NoError(t, s.Delete("a"))
		_, found, err = s.Get("a")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("values_copied", func(t *testing.T) {
		s := NewMemStorage()
		t.Cleanup(func() { _ = s.Close() })

		value := []byte("abc")
		require.NoError(t, s.Set("k", value))
		value[0] = 'x'
		got, _, _ := s.Get("k")
		got[1] = 'y'

		again, _, _ := s.Get("k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("key_set_and_delete_all", func(t *testing.T) {
		s := NewMemStorage()
		t.Cleanup(func() { _ = s.Close() })

		require.NoError(t, s.Set("b", nil))
		require.NoError(t, s.Set("a", nil))
		keys := s.KeySet()
		sort.Strings(keys)
		assert.Equal(t, []string{"a", "b"}, keys)

		require.NoError(t, s.DeleteAll())
		assert.Empty(t, s.KeySet())
	})

	t.Run("closed", func(t *testing.T) {
		s := NewMemStorage()
		require.NoError(t, s.Close())

		_, _, err := s.Get("a")
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, s.Set("a", nil), ErrClosed)
	})
}

func TestSerialize(t *testing.T) {
	t.Parallel()

	type record struct {
		ID      string    `msgpack:"id"`
		Status  int       `msgpack:"s"`
		Created time.Time `msgpack:"c"`
	}

	in := record{ID: "x", Status: 200, Created: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}
	data, err := Serialize(in)
	require.NoError(t, err)

	var out record
	require.NoError(t, Deserialize(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Status, out.Status)
	assert.True(t, in.Created.Equal(out.Created))

	assert.Error(t, Deserialize([]byte{0xc1}, &out))
}
