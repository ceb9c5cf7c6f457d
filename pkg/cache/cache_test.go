package cache

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_LoadsOnce(t *testing.T) {
	var calls int
	c := NewCache(func(key string) (interface{}, error) {
		calls++
		return "value-" + key, nil
	})

	value, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "value-a", value)
	assert.Equal(t, 1, calls)

	// Repeat access returns the cached value without reloading.
	value, err = c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "value-a", value)
	assert.Equal(t, 1, calls)

	_, err = c.Get("b")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGet_SameInstance(t *testing.T) {
	type entry struct{ id string }

	c := NewCache(func(key string) (interface{}, error) {
		return &entry{id: key}, nil
	})

	first, err := c.Get("a")
	require.NoError(t, err)
	second, err := c.Get("a")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestGet_ErrorNotCached(t *testing.T) {
	loadErr := errors.New("load failed")

	var calls int
	c := NewCache(func(key string) (interface{}, error) {
		calls++
		if calls == 1 {
			return nil, loadErr
		}
		return "ok", nil
	})

	_, err := c.Get("a")
	assert.Equal(t, loadErr, err)
	assert.False(t, c.Contains("a"))

	// The failed load is retried on the next access.
	value, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "ok", value)
	assert.Equal(t, 2, calls)
}

func TestDeleteAndClear(t *testing.T) {
	var calls int
	c := NewCache(func(key string) (interface{}, error) {
		calls++
		return calls, nil
	})

	_, err := c.Get("a")
	require.NoError(t, err)
	_, err = c.Get("b")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())

	c.Delete("a")
	assert.False(t, c.Contains("a"))
	assert.True(t, c.Contains("b"))

	value, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 3, value)

	c.Clear()
	assert.Empty(t, c.Keys())
}

func TestGet_Concurrent(t *testing.T) {
	var calls int
	c := NewCache(func(key string) (interface{}, error) {
		calls++
		return calls, nil
	})

	var wg sync.WaitGroup
	results := make([]interface{}, 16)
	for i := 0; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			value, err := c.Get("a")
			require.NoError(t, err)
			results[i] = value
		}(i)
	}
	wg.Wait()

	// All goroutines observe the value loaded by the first access.
	assert.Equal(t, 1, calls)
	for _, value := range results {
		assert.Equal(t, 1, value)
	}
}
