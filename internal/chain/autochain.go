package chain

import (
	"context"
	"time"

	"github.com/tussienorway/tussievideo/pkg/models"
)

type ChainOptions struct {
	Prompt string
	Model  string

	// MaxClips bounds the run; zero or negative means run until
	// cancelled or a generation fails.
	MaxClips int

	// OnClip is called after each clip has been generated and persisted.
	OnClip func(clip *models.Clip)
}

// RunChain generates continuation clips back to back, carrying the same
// directive forward, until cancelled or a generation fails. The call is
// synchronous; Cancel from another goroutine stops the loop before the
// next iteration. The clip already in flight is never aborted, so a
// cancelled chain still finishes and persists its current clip.
func (c *Controller) RunChain(ctx context.Context, opts ChainOptions) (int, error) {
	c.mu.Lock()
	if c.chaining {
		c.mu.Unlock()
		return 0, ErrBusy
	}
	c.chaining = true
	c.cancelled = false
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.chaining = false
		c.mu.Unlock()
	}()

	produced := 0
	for {
		clip, err := c.generate(ctx, GenerateOptions{
			Prompt:   opts.Prompt,
			Model:    opts.Model,
			Continue: true,
		}, true)
		if err != nil {
			return produced, err
		}
		produced++
		if opts.OnClip != nil {
			opts.OnClip(clip)
		}

		if c.isCancelled() {
			return produced, nil
		}
		if opts.MaxClips > 0 && produced >= opts.MaxClips {
			return produced, nil
		}

		select {
		case <-ctx.Done():
			return produced, ctx.Err()
		case <-time.After(c.chainDelay):
		}

		if c.isCancelled() {
			return produced, nil
		}
	}
}

// Cancel asks a running chain to stop. It takes effect before the next
// iteration starts; the in-flight generation completes normally.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

func (c *Controller) Chaining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chaining
}

func (c *Controller) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}
