package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/startblog/apiserver/internal/mq"
)

// LogListener returns a wildcard handler that writes one structured log
// line per dispatched event.
func LogListener(logger *slog.Logger) Handler {
	return func(ctx context.Context, evt Event) error {
		logger.Info("event dispatched",
			"event", evt.Name,
			"payload", evt.Payload,
		)
		return nil
	}
}

// Forwarder returns a wildcard handler that republishes events to an
// external broker. Each invocation runs under its own deadline so a
// slow broker cannot stall the request that triggered the event; the
// bus itself applies no timeout.
func Forwarder(broker *mq.MQ, timeout time.Duration) Handler {
	return func(ctx context.Context, evt Event) error {
		data, err := json.Marshal(evt.Payload)
		if err != nil {
			return err
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		_, err = broker.Publish(ctx, evt.Name, data, map[string]string{
			"event": evt.Name,
			"at":    evt.At.UTC().Format(time.RFC3339),
		})
		return err
	}
}
