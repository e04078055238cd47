package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"video-tournament/internal/platform/config"
	"video-tournament/internal/platform/logger"
	"video-tournament/internal/tournament"
	"video-tournament/internal/youtube"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"
)

// CLI flags
var (
	sizeFlag     int
	apiKeyFlag   string
	jsonFlag     bool
	logLevelFlag string
	timeoutFlag  time.Duration
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "bracket",
	Short: "Draw a video tournament bracket from a YouTube playlist",
	Long: `bracket reads a public YouTube playlist, keeps the videos at least 90 seconds
long and draws a random bracket from them, the same way the web service does.

Examples:
  bracket playlist PLxxxxxxxx --size 16
  bracket playlist PLxxxxxxxx --size 64 --json
  bracket sizes 40`,
	SilenceUsage: true,
}

var playlistCmd = &cobra.Command{
	Use:   "playlist <playlist-id>",
	Short: "Build a pool from a playlist and draw a bracket",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlaylist,
}

var sizesCmd = &cobra.Command{
	Use:   "sizes <pool-size>",
	Short: "List the bracket sizes a pool of the given size allows",
	Args:  cobra.ExactArgs(1),
	RunE:  runSizes,
}

func init() {
	_ = config.Load()

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", config.GetEnv("LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	playlistCmd.Flags().IntVarP(&sizeFlag, "size", "s", 16, "Requested bracket size; clamped to the largest size the pool allows")
	playlistCmd.Flags().StringVar(&apiKeyFlag, "api-key", config.GetEnv("YOUTUBE_API_KEY", ""), "YouTube Data API key (default $YOUTUBE_API_KEY)")
	playlistCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the bracket as JSON")
	playlistCmd.Flags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "Overall deadline for catalog requests")

	rootCmd.AddCommand(playlistCmd, sizesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPlaylist(cmd *cobra.Command, args []string) error {
	log := logger.NewWithWriter(os.Stderr, logLevelFlag, "text")
	if apiKeyFlag == "" {
		return errors.New("an API key is required: pass --api-key or set YOUTUBE_API_KEY")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeoutFlag)
	defer cancel()

	client, err := youtube.New(ctx, option.WithAPIKey(apiKeyFlag))
	if err != nil {
		return err
	}

	playlistID := args[0]
	pool, err := tournament.BuildPlaylistPool(ctx, client, playlistID)
	if err != nil {
		return err
	}
	log.Info("pool built", "playlist_id", playlistID, "size", len(pool))

	if len(pool) < tournament.MinPoolSize {
		return fmt.Errorf("playlist %s has %d eligible videos, need at least %d", playlistID, len(pool), tournament.MinPoolSize)
	}

	size := tournament.ValidateSize(sizeFlag, len(pool))
	if size != sizeFlag {
		log.Warn("requested size not available, clamped", "requested", sizeFlag, "size", size)
	}
	bracket := tournament.NewSampler().Sample(pool, size)

	out := cmd.OutOrStdout()
	if jsonFlag {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"pool_size": len(pool), "videos": bracket})
	}
	for i, v := range bracket {
		fmt.Fprintf(out, "%3d  %s  https://www.youtube.com/watch?v=%s\n", i+1, v.Title, v.ID)
	}
	return nil
}

func runSizes(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("pool size must be a non-negative integer, got %q", args[0])
	}
	sizes := tournament.AvailableSizes(n)
	if len(sizes) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "a pool of %d cannot form a bracket\n", n)
		return nil
	}
	for _, s := range sizes {
		fmt.Fprintln(cmd.OutOrStdout(), s)
	}
	return nil
}
