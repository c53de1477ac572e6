package market

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// StartWarmer refreshes the oracle cache on spec (e.g. "@every 1m") so request
// paths rarely pay for a live lookup. Stop the returned cron to end it.
func StartWarmer(ctx context.Context, o *Oracle, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		q := o.Refresh(ctx)
		log.Debug().Float64("usd", q.USD).Str("from", q.From).Msg("native price refreshed")
	})
	if err != nil {
		return nil, fmt.Errorf("price warmer: %w", err)
	}
	c.Start()
	go o.Refresh(ctx)
	return c, nil
}
