package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drgolem/musicplayer/pkg/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-search the indexed library",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	ids, songs := store.ListSongs()
	index := search.Rebuild(ids, songs)

	results := index.Search(args[0])
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}

	for _, r := range results {
		switch r.Entry.Kind {
		case search.KindSong:
			fmt.Printf("%.2f  song    %s — %s (%s)\n", r.Similarity, r.Entry.Name, r.Entry.Artist, r.Entry.Album)
		case search.KindAlbum:
			fmt.Printf("%.2f  album   %s — %s\n", r.Similarity, r.Entry.Name, r.Entry.Artist)
		case search.KindArtist:
			fmt.Printf("%.2f  artist  %s\n", r.Similarity, r.Entry.Name)
		}
	}
	return nil
}
