package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/musicplayer/pkg/model"
)

type fakeController struct {
	loaded  []model.Song
	stopped int
	seeks   []float64
}

func (f *fakeController) Load(song model.Song) error {
	f.loaded = append(f.loaded, song)
	return nil
}
func (f *fakeController) Stop() { f.stopped++ }
func (f *fakeController) Seek(seconds float64) error {
	f.seeks = append(f.seeks, seconds)
	return nil
}

func songs(n int) []model.Song {
	out := make([]model.Song, n)
	for i := range out {
		out[i] = model.Song{Title: string(rune('A' + i)), Path: string(rune('a' + i))}
	}
	return out
}

func TestAddFromEmptySetsCursorAndLoads(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))
	assert.Equal(t, 0, q.Cursor())
	require.Len(t, ctrl.loaded, 1)
	assert.Equal(t, "A", ctrl.loaded[0].Title)
}

func TestAddWhenCursorSetDoesNotReload(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(1)...))
	require.NoError(t, q.Add(songs(1)...))
	assert.Len(t, ctrl.loaded, 1)
}

func TestNextPrevSaturateAtBoundaries(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))

	require.NoError(t, q.Prev())
	assert.Equal(t, 0, q.Cursor())

	require.NoError(t, q.Next())
	require.NoError(t, q.Next())
	assert.Equal(t, 2, q.Cursor())
	require.NoError(t, q.Next())
	assert.Equal(t, 2, q.Cursor())
}

func TestDeleteEmptiesQueueStopsPlayback(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(1)...))
	require.NoError(t, q.Delete(0))
	assert.Equal(t, -1, q.Cursor())
	assert.Equal(t, 1, ctrl.stopped)
}

func TestDeleteAtCursorZeroStaysAndReloads(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))
	ctrl.loaded = nil

	require.NoError(t, q.Delete(0))
	assert.Equal(t, 0, q.Cursor())
	require.Len(t, ctrl.loaded, 1)
}

func TestDeleteBeforeCursorShiftsWithoutReload(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))
	require.NoError(t, q.PlayIndex(2))
	ctrl.loaded = nil

	require.NoError(t, q.Delete(0))
	assert.Equal(t, 1, q.Cursor())
	assert.Empty(t, ctrl.loaded)
}

func TestDeleteAfterCursorNoChange(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))
	ctrl.loaded = nil

	require.NoError(t, q.Delete(2))
	assert.Equal(t, 0, q.Cursor())
	assert.Empty(t, ctrl.loaded)
}

func TestClearExceptPlayingRetainsOnlyCurrent(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(3)...))
	require.NoError(t, q.PlayIndex(1))

	q.ClearExceptPlaying()
	remaining := q.Songs()
	require.Len(t, remaining, 1)
	assert.Equal(t, "B", remaining[0].Title)
	assert.Equal(t, 0, q.Cursor())
}

func TestShufflePreservesPlayingSongIdentity(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(10)...))
	require.NoError(t, q.PlayIndex(5))
	playing := q.Songs()[5]

	q.Shuffle()

	newSongs := q.Songs()
	assert.Equal(t, playing, newSongs[q.Cursor()])
}

func TestSeekByClampsToDurationRange(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.SeekBy(-100, 180, 10))
	assert.Equal(t, 0.0, ctrl.seeks[0])

	require.NoError(t, q.SeekBy(1000, 180, 10))
	assert.Equal(t, 180.0, ctrl.seeks[1])
}

func TestTickAdvancesOnFinishedAndIsIdempotent(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(2)...))
	ctrl.loaded = nil

	require.NoError(t, q.Tick(StateFinished))
	assert.Equal(t, 1, q.Cursor())
	require.Len(t, ctrl.loaded, 1)

	require.NoError(t, q.Tick(StateFinished))
	assert.Len(t, ctrl.loaded, 1, "repeated Finished before the state leaves Finished must not double-advance")
}

func TestTickAtEndClearsInsteadOfAdvancing(t *testing.T) {
	ctrl := &fakeController{}
	q := New(ctrl)
	require.NoError(t, q.Add(songs(1)...))

	require.NoError(t, q.Tick(StateFinished))
	assert.Equal(t, -1, q.Cursor())
	assert.Equal(t, 1, ctrl.stopped)
}
