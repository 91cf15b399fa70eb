package asset

import (
	"context"
	"runtime"
	"time"
)

// Pacer sends chunks in batches and cedes control between batches so a large
// transfer doesn't monopolize a shared outbound channel.
type Pacer struct {
	// ChunksPerYield is the batch size; zero sends everything without yielding.
	ChunksPerYield int
	// Delay is slept between batches; zero only yields the processor.
	Delay time.Duration
}

// Send calls send for every chunk in order, stopping on the first error or when ctx ends.
func (p Pacer) Send(ctx context.Context, chunks []Chunk, send func(Chunk) error) error {
	for i, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(c); err != nil {
			return err
		}
		if p.ChunksPerYield > 0 && (i+1)%p.ChunksPerYield == 0 && i+1 < len(chunks) {
			if err := p.yield(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p Pacer) yield(ctx context.Context) error {
	if p.Delay <= 0 {
		runtime.Gosched()
		return ctx.Err()
	}
	t := time.NewTimer(p.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
