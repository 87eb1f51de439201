package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/spf13/cobra"

	"github.com/drgolem/musicplayer/pkg/audiodevice"
	"github.com/drgolem/musicplayer/pkg/model"
	"github.com/drgolem/musicplayer/pkg/pipeline"
	"github.com/drgolem/musicplayer/pkg/queue"
	"github.com/drgolem/musicplayer/pkg/tagreader"
	"github.com/drgolem/musicplayer/pkg/types"
)

var deviceIndex int

var playCmd = &cobra.Command{
	Use:   "play <path>",
	Short: "Play a single audio file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().IntVarP(&deviceIndex, "device", "d", -1, "Output device index (-1 = system default)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	path := args[0]

	raw, err := tagreader.New().Read(path)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	song := model.Song{
		Title:        raw.Title,
		Album:        raw.Album,
		Artist:       raw.Artist,
		AlbumArtist:  raw.AlbumArtist,
		TrackNumber:  raw.TrackNumber,
		DiscNumber:   raw.DiscNumber,
		Path:         path,
		DurationSecs: raw.DurationSecs,
		ReplayGain:   raw.ReplayGain,
	}
	song.Normalize()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("play: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	cfg := pipeline.DefaultConfig()
	cfg.DeviceIndex = deviceIndex
	if cfg.DeviceIndex < 0 {
		dev, err := audiodevice.DefaultDevice()
		if err != nil {
			return fmt.Errorf("play: %w", err)
		}
		cfg.DeviceIndex = dev.Index
	}
	apc, err := pipeline.New(cfg)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	defer apc.Close()

	q := queue.New(apc)
	if err := q.Add(song); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if err := apc.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitorPlayback(ctx, apc, q)
	return nil
}

// monitorPlayback polls the APC's status once per tick, prints a
// single-line progress readout, and drives queue auto-advance until the
// queue empties or the caller cancels ctx.
func monitorPlayback(ctx context.Context, apc types.PlaybackMonitor, q *queue.Queue) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case <-ticker.C:
			status := apc.GetPlaybackStatus()
			fmt.Printf("\r%s  %s / %s  [%s]   ",
				status.FileName, status.Elapsed.Round(time.Second), status.Duration.Round(time.Second), status.State)

			if err := q.Tick(status.State); err != nil {
				slog.Warn("queue tick failed", "error", err)
			}
			if len(q.Songs()) == 0 {
				fmt.Println()
				return
			}
		}
	}
}
