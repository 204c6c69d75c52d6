package evmcbridge

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleLifecycle(t *testing.T) {
	host := &extHost{}
	h := RegisterHost(host)
	require.NotZero(t, h)

	got, ok := lookup(h)
	require.True(t, ok)
	require.Same(t, host, got.(*extHost))

	ReleaseHost(h)
	_, ok = lookup(h)
	require.False(t, ok)
}

func TestRegisterNilHost(t *testing.T) {
	require.Zero(t, RegisterHost(nil))
}

func TestHandlesAreUnique(t *testing.T) {
	a := RegisterHost(&extHost{})
	b := RegisterHost(&extHost{})
	defer ReleaseHost(a)
	defer ReleaseHost(b)
	require.NotEqual(t, a, b)
}

func TestHandleRegistryConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := RegisterHost(&extHost{})
				if _, ok := lookup(h); !ok {
					t.Error("registered handle not found")
					return
				}
				ReleaseHost(h)
				if _, ok := lookup(h); ok {
					t.Error("released handle still live")
					return
				}
			}
		}()
	}
	wg.Wait()
}
