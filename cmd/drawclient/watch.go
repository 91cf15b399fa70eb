package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wireboard-server/internal/client"
)

func newWatchCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Join a canvas and report its state until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngine(cmd, opts, func(ctx context.Context, engine *client.Engine, logger *zerolog.Logger) error {
				return watch(ctx, engine, logger, interval)
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "report interval")
	return cmd
}

func watch(ctx context.Context, engine *client.Engine, logger *zerolog.Logger, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		ev := logger.Info().
			Str("status", string(engine.Status())).
			Str("canvas_id", engine.CanvasID()).
			Int("objects", len(engine.Objects())).
			Int("members", len(engine.Members())).
			Int("live_strokes", len(engine.InProgressStrokes()))
		if err := engine.LastError(); err != nil {
			ev = ev.AnErr("last_error", err)
		}
		ev.Msg("canvas state")

		for _, p := range engine.Presence() {
			if !p.HasCursor {
				continue
			}
			logger.Debug().
				Str("connection_id", p.ConnectionID).
				Str("user", p.DisplayName).
				Float64("x", p.Cursor.X).
				Float64("y", p.Cursor.Y).
				Bool("drawing", p.Drawing).
				Msg("cursor")
		}
	}
}
