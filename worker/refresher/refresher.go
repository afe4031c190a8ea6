package refresher

import (
	"context"

	"cdplend/core"
	"cdplend/service/market"
	"cdplend/worker"

	"github.com/fox-one/pkg/logger"
)

// Market the market operations the refresher drives
type Market interface {
	Stats(ctx context.Context) (*core.MarketStats, error)
	ListLiquidatable(ctx context.Context) ([]*market.LiquidatableCDP, error)
}

// StatsSink receives the market stats after every refresh
type StatsSink interface {
	SetStats(stats *core.MarketStats)
}

// Worker refresh every pool on schedule and publish the market stats
type Worker struct {
	worker.CronJob
	market Market
	sink   StatsSink
}

// New new refresher worker
func New(spec string, m Market, sink StatsSink) *Worker {
	w := &Worker{
		market: m,
		sink:   sink,
	}

	w.CronJob = worker.CronJob{
		Name:   "refresher",
		Spec:   spec,
		OnWork: w.onWork,
	}

	return w
}

func (w *Worker) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "refresher")

	stats, err := w.market.Stats(ctx)
	if err != nil {
		log.WithError(err).Errorln("market stats")
		return err
	}

	if w.sink != nil {
		w.sink.SetStats(stats)
	}

	if stats.LiquidatingCDP == 0 {
		return nil
	}

	cdps, err := w.market.ListLiquidatable(ctx)
	if err != nil {
		log.WithError(err).Errorln("list liquidatable")
		return err
	}

	for _, c := range cdps {
		log.WithField("cdp", c.CDP.ID).
			WithField("ltv", c.Health.LTV.String()).
			WithField("loan_value", c.Health.LoanValue.String()).
			Warnln("cdp liquidatable")
	}

	return nil
}
