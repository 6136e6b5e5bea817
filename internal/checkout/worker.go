package checkout

import (
	"context"
	"time"

	"github.com/luxspa/giftspa/internal/settings"
	log "github.com/sirupsen/logrus"
)

// RetryWorker periodically re-runs pending fulfillment tasks.
type RetryWorker struct {
	fulfiller *Fulfiller
	interval  func() time.Duration
}

// NewRetryWorker returns a worker whose interval follows the FULFILLMENT_RETRY_INTERVAL_SECONDS setting.
func NewRetryWorker(f *Fulfiller) *RetryWorker {
	if f == nil {
		return nil
	}
	return &RetryWorker{fulfiller: f, interval: settings.FulfillmentRetryInterval}
}

// Start launches the retry loop in a background goroutine.
func (w *RetryWorker) Start(ctx context.Context) {
	if w == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go w.run(ctx)
	log.Infof("fulfillment retry worker started (interval=%s)", w.interval())
}

func (w *RetryWorker) run(ctx context.Context) {
	for {
		timer := time.NewTimer(w.interval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
		w.runOnce(ctx)
	}
}

func (w *RetryWorker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	remaining, err := w.fulfiller.RetryPending(ctx)
	if err != nil {
		log.WithError(err).Warn("fulfillment retry worker: sweep failed")
		return
	}
	if remaining > 0 {
		log.Infof("fulfillment retry worker: %d task(s) still pending", remaining)
	}
}
