package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	profile := Default()
	assert.Equal(t, "U19", profile.Subleague)
	assert.Equal(t, 16, profile.TimeStepMs)
	assert.Equal(t, []float64{1.8761, -6.3738, 0.0442}, profile.RobotTranslation)
	assert.Equal(t, []float64{20, 20}, profile.GroundSize)
	assert.InDelta(t, 0.0442, profile.Robot.RideHeight, 1e-9)
	assert.Equal(t, 40, profile.PointsPerPercent)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	data := []byte(`
subleague: U14
boost_positions:
  - [1.0, 2.0, 0.0]
walls:
  - center: [0, 10, 0.15]
    size: [20, 0.1, 0.3]
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	profile, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "U14", profile.Subleague)
	assert.Equal(t, [][]float64{{1, 2, 0}}, profile.BoostPositions)
	require.Len(t, profile.Walls, 1)
	assert.Equal(t, []float64{20, 0.1, 0.3}, profile.Walls[0].Size)
	// Untouched fields keep their defaults.
	assert.Equal(t, 16, profile.TimeStepMs)
	assert.InDelta(t, 25.0, profile.Robot.MaxWheelSpeed, 1e-9)
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	profile, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, "U19", profile.Subleague, "defaults survive a failed load")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subleague: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatcherCloseWithPendingEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte("subleague: U19\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)

	// Nobody drains Events; edits racing Close must not panic the watcher.
	for i := 0; i < 32; i++ {
		require.NoError(t, os.WriteFile(path, []byte("subleague: U19\n"), 0o644))
	}
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "close is idempotent")

	done := make(chan struct{})
	go func() {
		for range w.Events {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events channel never closed")
	}
}
