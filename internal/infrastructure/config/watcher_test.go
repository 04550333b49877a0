package config

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsAndNotifies(t *testing.T) {
	path := writeFile(t, "[video]\nnoise_reduction = 0.1\n")
	mgr, err := NewManagerForFile(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Load())

	var (
		mu   sync.Mutex
		seen []float64
	)
	mgr.OnConfigChange(func(c *Config) {
		mu.Lock()
		seen = append(seen, c.Video.NoiseReduction)
		mu.Unlock()
	})
	require.NoError(t, mgr.Watch())
	require.NoError(t, mgr.Watch(), "second call is a no-op")

	// An invalid edit is ignored and the previous values stay.
	require.NoError(t, os.WriteFile(path, []byte("[video]\nnoise_reduction = 7\n"), filePerm))
	time.Sleep(200 * time.Millisecond)
	assert.InDelta(t, 0.1, mgr.Get().Video.NoiseReduction, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte("[video]\nnoise_reduction = 0.6\n"), filePerm))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) > 0 && seen[len(seen)-1] == 0.6
	}, 5*time.Second, 10*time.Millisecond)
	assert.InDelta(t, 0.6, mgr.Get().Video.NoiseReduction, 1e-9)
}
