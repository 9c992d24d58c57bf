// Package main implements the IPTV guide server and its command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/savid/iptv-guide/config"
	"github.com/savid/iptv-guide/handlers"
	"github.com/savid/iptv-guide/pkg/data"
	"github.com/savid/iptv-guide/pkg/schedule"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.New()
	logger := logrus.StandardLogger()

	root := &cobra.Command{
		Use:           "iptv-guide",
		Short:         "Serve IPTV channels with today's programme guide",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return setupLogger(logger, cfg, cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfg, logger)
		},
	}
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), cfg, logger)
			},
		},
		&cobra.Command{
			Use:   "channels",
			Short: "Print every channel with the programme airing now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runChannels(cmd.Context(), cmd.OutOrStdout(), cfg, logger, time.Now)
			},
		},
		&cobra.Command{
			Use:   "guide <channel-id>",
			Short: "Print today's programmes for a channel",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGuide(cmd.Context(), cmd.OutOrStdout(), cfg, logger, time.Now, args[0])
			},
		},
	)

	return root
}

// setupLogger configures formatting and level, and tees output into a rotating
// log file when one is configured.
func setupLogger(logger *logrus.Logger, cfg *config.Config, stderr io.Writer) error {
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}
	logger.SetLevel(level)
	logger.SetOutput(stderr)

	if cfg.LogFile == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	}
	logger.SetOutput(io.MultiWriter(stderr, fileWriter))
	logger.WithField("file", cfg.LogFile).Info("Logging to file")

	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := data.NewStore()
	fetcher := data.NewFetcher(cfg, logger)
	refresher := data.NewRefresher(store, fetcher, cfg.RefreshInterval, logger)

	// Perform initial data fetch (blocking)
	logger.Info("Fetching initial data...")
	if err := refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to fetch initial data: %w", err)
	}
	logger.Info("Initial data loaded successfully")

	go refresher.Start(ctx)

	clock := func() time.Time {
		return time.Now().In(cfg.Location())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handlers.NewRouter(store, cfg, clock, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		logger.Info("Shutting down server...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to gracefully shutdown")
		}
	}()

	logger.WithField("port", cfg.Port).Info("Starting IPTV guide server")
	logger.WithField("endpoint", fmt.Sprintf("%s/channels", cfg.BaseURL)).Info("Channels endpoint")
	logger.WithField("endpoint", fmt.Sprintf("%s/playlist.m3u", cfg.BaseURL)).Info("Playlist endpoint")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func fetchSnapshot(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*data.Snapshot, error) {
	return data.NewFetcher(cfg, logger).FetchAll(ctx)
}

func runChannels(ctx context.Context, out io.Writer, cfg *config.Config, logger *logrus.Logger, clock handlers.Clock) error {
	snapshot, err := fetchSnapshot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	now := clock().In(cfg.Location())
	for _, channel := range snapshot.Playlist.Channels {
		today := schedule.TodayPrograms(snapshot.Guide.Index, channel.ID, now)
		if current, ok := schedule.CurrentProgram(today, now); ok {
			fmt.Fprintf(out, "%s (%s)\n", channel.Name, current.Title)
			continue
		}
		fmt.Fprintln(out, channel.Name)
	}

	return nil
}

func runGuide(ctx context.Context, out io.Writer, cfg *config.Config, logger *logrus.Logger, clock handlers.Clock, channelID string) error {
	snapshot, err := fetchSnapshot(ctx, cfg, logger)
	if err != nil {
		return err
	}

	loc := cfg.Location()
	today := schedule.TodayPrograms(snapshot.Guide.Index, channelID, clock().In(loc))
	if len(today) == 0 {
		fmt.Fprintf(out, "No guide found for %s today.\n", channelID)
		return nil
	}

	for _, entry := range today {
		fmt.Fprintln(out, handlers.RowLabel(entry, loc))
	}

	return nil
}
