package display

import (
	"strings"
	"sync"
	"testing"

	"spine-analyzer-go/internal/codec"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func binary(name string) Source {
	return Source{File: codec.File{Name: name, ContentType: "image/png", Data: []byte(name)}}
}

func TestResolveBinaryAllocatesURL(t *testing.T) {
	registry := NewRegistry("/api/v1/blobs/")

	handle, err := registry.Resolve(binary("a.png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle.URL, "/api/v1/blobs/"))
	assert.Equal(t, 1, registry.Len())

	token := strings.TrimPrefix(handle.URL, "/api/v1/blobs/")
	blob, ok := registry.Lookup(token)
	require.True(t, ok)
	assert.Equal(t, "image/png", blob.ContentType)
	assert.Equal(t, []byte("a.png"), blob.Data)

	handle.Release()
	handle.Release()
	assert.Zero(t, registry.Len())
	_, ok = registry.Lookup(token)
	assert.False(t, ok)
}

func TestResolveURLIsPassThrough(t *testing.T) {
	registry := NewRegistry("/blobs")

	handle, err := registry.Resolve(Source{URL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", handle.URL)
	assert.Zero(t, registry.Len())
	handle.Release()

	_, err = registry.Resolve(Source{})
	assert.ErrorIs(t, err, ErrEmptySource)

	var nilHandle *Handle
	nilHandle.Release()
}

func TestSlotSwapReleasesPrevious(t *testing.T) {
	registry := NewRegistry("/blobs")
	slot := NewSlot(registry)

	first, err := slot.Swap(binary("a.png"))
	require.NoError(t, err)
	assert.Equal(t, first, slot.URL())
	assert.Equal(t, 1, registry.Len())

	second, err := slot.Swap(binary("b.png"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, 1, registry.Len())

	_, err = slot.Swap(Source{})
	assert.Error(t, err)
	assert.Equal(t, second, slot.URL())

	_, err = slot.Swap(Source{URL: "https://example.org/scan.png"})
	require.NoError(t, err)
	assert.Zero(t, registry.Len())

	slot.Close()
	slot.Close()
	assert.Equal(t, "", slot.URL())
}

func TestSlotConcurrentSwaps(t *testing.T) {
	registry := NewRegistry("/blobs")
	slot := NewSlot(registry)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = slot.Swap(binary("x.png"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, registry.Len())
	slot.Close()
	assert.Zero(t, registry.Len())
}
