package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wireboard-server/internal/blobstore"
	"github.com/vovakirdan/wireboard-server/internal/blobstore/boltdb"
	"github.com/vovakirdan/wireboard-server/internal/blobstore/sqlite"
	"github.com/vovakirdan/wireboard-server/internal/client"
	"github.com/vovakirdan/wireboard-server/internal/log"
)

type options struct {
	url         string
	canvasID    string
	name        string
	cacheDriver string
	cachePath   string
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "drawclient",
		Short:         "Headless wireboard canvas client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.url, "url", "ws://localhost:8080/ws", "relay websocket url")
	flags.StringVar(&opts.canvasID, "canvas", "room1", "canvas id to join")
	flags.StringVar(&opts.name, "name", "", "display name")
	flags.StringVar(&opts.cacheDriver, "cache-driver", "bolt", "asset cache: bolt, sqlite or memory")
	flags.StringVar(&opts.cachePath, "cache", "drawclient.cache", "asset cache file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newWatchCmd(opts), newUploadCmd(opts))
	return root
}

func openStore(ctx context.Context, driver, path string) (blobstore.Store, error) {
	switch driver {
	case "bolt", "boltdb":
		return boltdb.New(ctx, path)
	case "sqlite":
		return sqlite.New(path)
	case "memory", "":
		return blobstore.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", driver)
	}
}

// runEngine connects an engine to the relay, joins the canvas and runs fn
// alongside the session until fn returns or the process is interrupted.
func runEngine(cmd *cobra.Command, opts *options, fn func(ctx context.Context, engine *client.Engine, logger *zerolog.Logger) error) error {
	logger := log.New(opts.logLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, opts.cacheDriver, opts.cachePath)
	if err != nil {
		return fmt.Errorf("open asset cache: %w", err)
	}
	defer store.Close()

	session := client.NewSession(opts.url, client.SessionOptions{}, logger)
	engine := client.NewEngine(session, client.Options{
		DisplayName: opts.name,
		Store:       store,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(gctx, engine)
	})
	g.Go(func() error {
		engine.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := engine.Join(gctx, opts.canvasID); err != nil {
			return err
		}
		if err := fn(gctx, engine, logger); err != nil {
			return err
		}
		stop()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// waitJoined blocks until the snapshot for the joined canvas arrived.
func waitJoined(ctx context.Context, engine *client.Engine) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		switch {
		case engine.Status() == client.StatusRejected:
			return fmt.Errorf("join rejected: %w", engine.LastError())
		case engine.Status() == client.StatusConnected && engine.ConnectionID() != "":
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
