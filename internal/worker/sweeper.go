// internal/worker/sweeper.go
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/services"
)

// Sweeper periodically drains due delivery retries and backfills delivery
// rows for finished orders that have none.
type Sweeper struct {
	deliveries *services.DeliveryService
	interval   time.Duration
	stop       chan struct{}
	done       chan struct{}
}

func NewSweeper(deliveries *services.DeliveryService, cfg config.DeliveryConfig) *Sweeper {
	return &Sweeper{
		deliveries: deliveries,
		interval:   cfg.SweepInterval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (w *Sweeper) Start() {
	go w.run()
	logrus.WithField("interval", w.interval).Info("Delivery sweeper started")
}

func (w *Sweeper) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

func (w *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()

	processed, err := w.deliveries.Sweep(ctx, time.Now())
	if err != nil {
		logrus.WithError(err).Error("Delivery sweep failed")
	} else if processed > 0 {
		logrus.WithField("processed", processed).Info("Delivery sweep completed")
	}

	backfilled, err := w.deliveries.EnqueueMissing(ctx)
	if err != nil {
		logrus.WithError(err).Error("Delivery backfill failed")
	} else if backfilled > 0 {
		logrus.WithField("enqueued", backfilled).Warn("Backfilled missing deliveries")
	}
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (w *Sweeper) Stop() {
	close(w.stop)
	<-w.done
}
