package reserve

import (
	"context"

	"cdplend/core"
	"cdplend/worker"

	"github.com/fox-one/pkg/logger"
)

// Sweeper moves pool reserves out to the collector
type Sweeper interface {
	SweepReserve(ctx context.Context, actor string) ([]core.Bucket, error)
}

// Worker sweep protocol reserves on schedule
type Worker struct {
	worker.CronJob
	sweeper   Sweeper
	collector string
}

// New new reserve worker sweeping as collector
func New(spec, collector string, sweeper Sweeper) *Worker {
	w := &Worker{
		sweeper:   sweeper,
		collector: collector,
	}

	w.CronJob = worker.CronJob{
		Name:   "reserve",
		Spec:   spec,
		OnWork: w.onWork,
	}

	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "reserve")

	buckets, err := w.sweeper.SweepReserve(ctx, w.collector)
	if err != nil {
		log.WithError(err).Errorln("sweep reserve")
		return err
	}

	for _, b := range buckets {
		log.WithField("asset", b.AssetID).Infof("swept %s", b.Amount)
	}

	return nil
}
