package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drgolem/musicplayer/pkg/model"
)

func sampleSongs() ([]string, []model.Song) {
	songs := []model.Song{
		{Title: "Bohemian Rhapsody", Artist: "Queen", Album: "A Night at the Opera", TrackNumber: 1, DiscNumber: 1},
		{Title: "Killer Queen", Artist: "Queen", Album: "Sheer Heart Attack", TrackNumber: 1, DiscNumber: 1},
		{Title: "Yesterday", Artist: "The Beatles", Album: "Help!", TrackNumber: 1, DiscNumber: 1},
	}
	ids := []string{"/a/bohemian.flac", "/a/killer.flac", "/b/yesterday.mp3"}
	return ids, songs
}

func TestEmptyQueryReturnsSeededResults(t *testing.T) {
	idx := Rebuild(sampleSongs())
	results := idx.Search("")
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), SeededResultCount)
}

func TestSearchFindsExactArtistMatch(t *testing.T) {
	idx := Rebuild(sampleSongs())
	results := idx.Search("Queen")
	require.NotEmpty(t, results)
	assert.Equal(t, KindArtist, results[0].Entry.Kind)
	assert.Equal(t, "Queen", results[0].Entry.Name)
}

func TestSearchRanksArtistAboveAlbumAboveSongOnTie(t *testing.T) {
	idx := New()
	idx.Rebuild([]string{"/x/song.flac"}, []model.Song{
		{Title: "Echo", Artist: "Echo", Album: "Echo", TrackNumber: 1, DiscNumber: 1},
	})
	results := idx.Search("Echo")
	require.Len(t, results, 3)
	assert.Equal(t, KindArtist, results[0].Entry.Kind)
	assert.Equal(t, KindAlbum, results[1].Entry.Kind)
	assert.Equal(t, KindSong, results[2].Entry.Kind)
}

func TestSearchExcludesLowSimilarityMatches(t *testing.T) {
	idx := Rebuild(sampleSongs())
	results := idx.Search("zzzzzzzzzz")
	assert.Empty(t, results)
}

func TestRebuildReplacesPriorContents(t *testing.T) {
	idx := Rebuild(sampleSongs())
	idx.Rebuild([]string{"/c/new.flac"}, []model.Song{
		{Title: "New Song", Artist: "New Artist", Album: "New Album", TrackNumber: 1, DiscNumber: 1},
	})
	results := idx.Search("Queen")
	assert.Empty(t, results)
	results = idx.Search("New Artist")
	require.NotEmpty(t, results)
}
