package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wireboard-server/internal/asset"
	"github.com/vovakirdan/wireboard-server/internal/canvas"
	"github.com/vovakirdan/wireboard-server/internal/client"
	"github.com/vovakirdan/wireboard-server/internal/utils"
)

func newUploadCmd(opts *options) *cobra.Command {
	var (
		x, y   float64
		linger time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload an image and place it on the canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return runEngine(cmd, opts, func(ctx context.Context, engine *client.Engine, logger *zerolog.Logger) error {
				if err := upload(ctx, engine, logger, data, x, y); err != nil {
					return err
				}
				// let the session flush queued frames
				select {
				case <-time.After(linger):
				case <-ctx.Done():
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&x, "x", 0, "image x position")
	flags.Float64Var(&y, "y", 0, "image y position")
	flags.DurationVar(&linger, "linger", 500*time.Millisecond, "time to stay connected after the upload")
	return cmd
}

func upload(ctx context.Context, engine *client.Engine, logger *zerolog.Logger, data []byte, x, y float64) error {
	if err := waitJoined(ctx, engine); err != nil {
		return err
	}

	mime := asset.Detect(data)
	assetID := utils.NewID()
	decoded, err := engine.UploadAsset(ctx, assetID, mime, data)
	if err != nil {
		return fmt.Errorf("upload asset: %w", err)
	}

	obj := canvas.NewImage(utils.NewID(), canvas.Image{
		AssetID:   assetID,
		Mime:      decoded.Mime,
		X:         x,
		Y:         y,
		Width:     float64(decoded.Width),
		Height:    float64(decoded.Height),
		CreatedAt: time.Now().UnixMilli(),
	})
	if err := engine.AddLocal(ctx, obj); err != nil {
		return fmt.Errorf("place image: %w", err)
	}

	logger.Info().
		Str("asset_id", assetID).
		Str("object_id", obj.ID).
		Str("mime", decoded.Mime).
		Int("bytes", len(data)).
		Msg("image uploaded")
	return nil
}
