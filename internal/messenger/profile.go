package messenger

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// EnsureProfile provisions the messenger profile at startup: it checks
// whether a Get Started button is already configured, sets it if absent,
// then writes the greeting and persistent menu. Idempotent, safe to run on
// every process start. Failures are returned for logging but provisioning
// is best-effort; callers should not treat an error as fatal.
func (c *Client) EnsureProfile(ctx context.Context, settings ProfileSettings) error {
	hasGetStarted := false
	if data, err := c.GetProfile(ctx, "get_started"); err != nil {
		// Read failure is not fatal; fall through and set everything.
		c.logger.WithError(err).Warn("Failed to read messenger profile, provisioning from scratch")
	} else {
		for _, entry := range data.Data {
			if entry.GetStarted != nil && entry.GetStarted.Payload != "" {
				hasGetStarted = true
				break
			}
		}
	}

	if !hasGetStarted && settings.GetStarted != nil {
		if err := c.SetProfile(ctx, ProfileSettings{GetStarted: settings.GetStarted}); err != nil {
			return err
		}
		c.logger.Info("Get Started button set")
	}

	// Greeting and persistent menu are independent profile fields.
	g, gctx := errgroup.WithContext(ctx)
	if len(settings.Greeting) > 0 {
		g.Go(func() error {
			return c.SetProfile(gctx, ProfileSettings{Greeting: settings.Greeting})
		})
	}
	if len(settings.PersistentMenu) > 0 {
		g.Go(func() error {
			return c.SetProfile(gctx, ProfileSettings{PersistentMenu: settings.PersistentMenu})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.logger.Info("Messenger profile provisioned")
	return nil
}
