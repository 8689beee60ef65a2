package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/ontomap/errors"
)

func TestStoreGetSet(t *testing.T) {
	s := NewStore[string]("test")

	_, ok := s.Get("paris")
	assert.False(t, ok)

	s.Set("paris", "urn:a")
	s.Set("lyon", "urn:b")
	s.Set("paris", "urn:c")

	v, ok := s.Get("paris")
	require.True(t, ok)
	assert.Equal(t, "urn:c", v)
	assert.Equal(t, 2, s.Len())

	hits, misses := s.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "paris", entries[0].Key, "insertion order survives overwrite")
	assert.Equal(t, "lyon", entries[1].Key)
}

func TestStoreSetIfAbsent(t *testing.T) {
	s := NewStore[ClassBinding]("prediction")

	first := ClassBinding{ClassURI: "urn:City", OntologyURI: "urn:onto"}
	got, inserted := s.SetIfAbsent("paris", first)
	assert.True(t, inserted)
	assert.Equal(t, first, got)

	got, inserted = s.SetIfAbsent("paris", ClassBinding{ClassURI: "urn:Person"})
	assert.False(t, inserted)
	assert.Equal(t, first, got, "a bound key is never rebound")
}

func TestStoreGetOrCreateSharesCreation(t *testing.T) {
	s := NewStore[string]("title_uri")
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := s.GetOrCreate("Paris", func() (string, error) {
				calls.Add(1)
				<-release
				return fmt.Sprintf("urn:paris_%d", i), nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r, "every caller sees the same instance")
	}
	assert.LessOrEqual(t, calls.Load(), int32(16))
	v, ok := s.Get("Paris")
	require.True(t, ok)
	assert.Equal(t, results[0], v)
}

func TestStoreGetOrCreateErrorNotCached(t *testing.T) {
	s := NewStore[string]("entity_prediction")

	_, err := s.GetOrCreate("Paris", func() (string, error) {
		return "", errors.New("ner unavailable")
	})
	require.Error(t, err)
	assert.Zero(t, s.Len())

	v, err := s.GetOrCreate("Paris", func() (string, error) { return "LOC", nil })
	require.NoError(t, err)
	assert.Equal(t, "LOC", v)
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore[int]("counter")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("n", func(cur int, _ bool) int { return cur + 1 })
		}()
	}
	wg.Wait()

	v, _ := s.Get("n")
	assert.Equal(t, 100, v)
}
