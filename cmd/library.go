package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/drgolem/musicplayer/internal/apppath"
	"github.com/drgolem/musicplayer/pkg/library"
	"github.com/drgolem/musicplayer/pkg/tagreader"
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a scan root and index it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdd,
}

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a scan root",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the registered scan roots",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Erase the library index (playlists are preserved)",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(addCmd, rmCmd, listCmd, resetCmd)
}

func openLibrary() (*library.Store, error) {
	dbPath, err := apppath.LibraryDBPath()
	if err != nil {
		return nil, err
	}
	return library.Open(dbPath, tagreader.New())
}

func runAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("add: %w", err)
	}

	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	store.AddRoot(path)
	for store.State() == library.StateBusy {
		time.Sleep(50 * time.Millisecond)
	}

	slog.Info("scan root added", "path", path)
	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveRoot(args[0]); err != nil {
		return err
	}
	slog.Info("scan root removed", "path", args[0])
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openLibrary()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, root := range store.ListRoots() {
		fmt.Println(root)
	}
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	dbPath, err := apppath.LibraryDBPath()
	if err != nil {
		return err
	}
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset: %w", err)
	}
	slog.Info("library index erased", "path", dbPath)
	return nil
}
