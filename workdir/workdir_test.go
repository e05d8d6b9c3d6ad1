package workdir

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakib91221/StableGen/types"
)

func newRun(t *testing.T) *Run {
	t.Helper()
	r, err := New(t.TempDir(), time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC), nil)
	require.NoError(t, err)
	return r
}

func TestNewCreatesTimestampedLayout(t *testing.T) {
	base := t.TempDir()
	r, err := New(base, time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "20260314_150926"), r.Root())
	for _, sub := range subdirs {
		info, err := os.Stat(filepath.Join(r.Root(), sub))
		require.NoError(t, err, sub)
		assert.True(t, info.IsDir())
	}
}

func TestArtifactPaths(t *testing.T) {
	r := newRun(t)
	assert.Equal(t, filepath.Join(r.Root(), "control", "depth", "2.png"),
		r.GuidancePath(types.SignalDepth, 2))
	assert.Equal(t, filepath.Join(r.Root(), "inpaint", "visibility", "1.png"),
		r.VisibilityMaskPath(1))
	assert.Equal(t, filepath.Join(r.Root(), "generated", "rev3_0.png"),
		r.GeneratedPath(0, types.MaterialRevision(3)))
	assert.Equal(t, filepath.Join(r.Root(), "baked", "rev3_surface1.png"),
		r.BakedPath(1, types.MaterialRevision(3)))
}

func TestLatestRevisionIn(t *testing.T) {
	r := newRun(t)
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	require.NoError(t, r.SaveImage(r.GeneratedPath(0, 1), img))
	require.NoError(t, r.SaveImage(r.GeneratedPath(1, 1), img))
	require.NoError(t, r.SaveImage(r.GeneratedPath(0, 3), img))

	rev, err := LatestRevisionIn(r.Root())
	require.NoError(t, err)
	assert.Equal(t, types.MaterialRevision(3), rev)
}

func TestLatestRevisionInEmptyRun(t *testing.T) {
	r := newRun(t)
	_, err := LatestRevisionIn(r.Root())
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))

	_, err = LatestRevisionIn(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestSaveAndLoadImageRoundTrip(t *testing.T) {
	r := newRun(t)
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(1, 1, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	path := r.GeneratedPath(0, 1)
	require.NoError(t, r.SaveImage(path, img))

	loaded, err := r.LoadImage(path)
	require.NoError(t, err)
	got := color.NRGBAModel.Convert(loaded.At(1, 1)).(color.NRGBA)
	assert.Equal(t, color.NRGBA{R: 200, G: 100, B: 50, A: 255}, got)
}

func TestLoadImageMissing(t *testing.T) {
	r := newRun(t)
	_, err := r.LoadImage(r.GeneratedPath(9, 1))
	require.Error(t, err)
	assert.Equal(t, types.ErrConfiguration, types.GetErrorCode(err))
}

func TestPruneRemovesOnlyEmptyDirs(t *testing.T) {
	r := newRun(t)
	require.NoError(t, r.SaveBytes(r.GuidancePath(types.SignalDepth, 0), []byte("png")))

	require.NoError(t, r.Prune())

	// Used directory survives, unused ones are gone.
	_, err := os.Stat(filepath.Join(r.Root(), "control", "depth"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(r.Root(), "inpaint"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(r.Root(), "generated"))
	assert.True(t, os.IsNotExist(err))

	// control/canny and control/normal are empty and removed, but the
	// parent keeps the used depth directory.
	_, err = os.Stat(filepath.Join(r.Root(), "control", "canny"))
	assert.True(t, os.IsNotExist(err))
}
